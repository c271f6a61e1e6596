package clients

import (
	"context"
	"fmt"
)

// --- Visualization ---
type TimelineReq struct {
	SessionID  string   `json:"session_id"`
	Timestamps []int64  `json:"timestamps"`
	Emotions   []string `json:"emotions"`
	Mode       string   `json:"mode"`
	OutputDir  string   `json:"output_dir,omitempty"`
}
type TimelineResp struct{ Status, Path string }

func (h *HTTP) GenerateTimeline(ctx context.Context, url string, req TimelineReq) (*TimelineResp, error) {
	var out TimelineResp
	if err := h.postJSON(ctx, url+"/generate-emotion-timeline", req, &out); err != nil {
		return nil, fmt.Errorf("viz timeline %w", err)
	}
	return &out, nil
}

type RadarReq struct {
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
	SessionID  string    `json:"session_id"`
	OutputDir  string    `json:"output_dir,omitempty"`
}
type RadarResp struct{ Status, Path string }

func (h *HTTP) GenerateRadar(ctx context.Context, url string, req RadarReq) (*RadarResp, error) {
	var out RadarResp
	if err := h.postJSON(ctx, url+"/generate-radar", req, &out); err != nil {
		return nil, fmt.Errorf("viz radar %w", err)
	}
	return &out, nil
}
