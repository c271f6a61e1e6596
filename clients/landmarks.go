package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// --- Landmarks (/frame) ---
type LandmarkFrame struct {
	TimestampMS int64       `json:"timestamp_ms"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Landmarks   [][]float64 `json:"landmarks"` // normalized [x, y(, z)]; empty = no face
}

// NextFrame pulls one frame from the landmark service. 204 means the
// service saw no face; 410 means the stream is over and yields io.EOF.
func (h *HTTP) NextFrame(ctx context.Context, url string) (*LandmarkFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/frame", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return &LandmarkFrame{}, nil
	case http.StatusGone:
		return nil, io.EOF
	default:
		return nil, statusError("landmarks", resp)
	}

	var out LandmarkFrame
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("landmarks decode: %w", err)
	}
	return &out, nil
}

// ServiceSource streams frames from a landmark service.
type ServiceSource struct {
	h   *HTTP
	url string
}

func (h *HTTP) Source(url string) *ServiceSource { return &ServiceSource{h: h, url: url} }

func (s *ServiceSource) Next(ctx context.Context) (*LandmarkFrame, error) {
	return s.h.NextFrame(ctx, s.url)
}
