package clients

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const maxReplayLine = 4 << 20

// Replay reads recorded frames from JSON lines, one LandmarkFrame per line.
type Replay struct {
	sc     *bufio.Scanner
	closer io.Closer
	line   int
}

func NewReplay(r io.Reader) *Replay {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	return &Replay{sc: sc}
}

// OpenReplay opens a JSON-lines recording on disk.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReplay(f)
	r.closer = f
	return r, nil
}

// Next returns the following frame or io.EOF at the end of the recording.
func (r *Replay) Next(ctx context.Context) (*LandmarkFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, fmt.Errorf("replay line %d: %w", r.line+1, err)
			}
			return nil, io.EOF
		}
		r.line++
		b := bytes.TrimSpace(r.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var out LandmarkFrame
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", r.line, err)
		}
		return &out, nil
	}
}

func (r *Replay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
