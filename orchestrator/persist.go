package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maastricht-university/facial-emotion/features"
)

type CalibrationInfo struct {
	Enabled  bool             `json:"enabled"`
	Baseline *features.Params `json:"baseline"`
}

type SmoothingInfo struct {
	Enabled bool    `json:"enabled"`
	Alpha   float64 `json:"alpha"`
}

type PersistBundle struct {
	SessionID   string           `json:"session"`
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Calibration CalibrationInfo  `json:"calibration"`
	Smoothing   SmoothingInfo    `json:"smoothing"`
	Stats       Stats            `json:"stats"`
	Frames      []map[string]any `json:"frames"`
}

// csvHeader is frame,timestamp,emotion,mode, then <k>_raw and <k>_smooth
// for every parameter.
func csvHeader() []string {
	h := []string{"frame", "timestamp", "emotion", "mode"}
	for _, k := range features.Keys {
		h = append(h, k+"_raw")
	}
	for _, k := range features.Keys {
		h = append(h, k+"_smooth")
	}
	return h
}

func csvRow(r Record) []string {
	row := []string{strconv.Itoa(r.Frame), strconv.FormatInt(r.Timestamp, 10), string(r.Emotion), string(r.Mode)}
	for _, v := range r.Raw.Values() {
		row = append(row, strconv.FormatFloat(round5(v), 'f', -1, 64))
	}
	for _, v := range r.Smoothed.Values() {
		row = append(row, strconv.FormatFloat(round5(v), 'f', -1, 64))
	}
	return row
}

func flatRecord(r Record) map[string]any {
	m := map[string]any{
		"frame":     r.Frame,
		"timestamp": r.Timestamp,
		"emotion":   r.Emotion,
		"mode":      r.Mode,
	}
	raw, sm := r.Raw.Values(), r.Smoothed.Values()
	for i, k := range features.Keys {
		m[k+"_raw"] = round5(raw[i])
		m[k+"_smooth"] = round5(sm[i])
	}
	return m
}

func sessionID(now time.Time) string {
	return "session_" + now.Format("20060102-150405")
}

func mkSessionDir(outputsRoot, sid string) (string, error) {
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// closeFile closes f and reports its error unless an earlier one is set.
func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func writeCSV(path string, recs []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader()); err != nil {
		return err
	}
	for _, r := range recs {
		if err := w.Write(csvRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// persist writes frames.csv and/or session.json into outDir and returns
// the paths it wrote.
func persist(outDir string, b *PersistBundle, recs []Record, wantCSV, wantJSON bool) (csvPath, jsonPath string, err error) {
	if wantCSV {
		csvPath = filepath.Join(outDir, "frames.csv")
		if err = writeCSV(csvPath, recs); err != nil {
			return "", "", err
		}
	}
	if wantJSON {
		b.Frames = make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			b.Frames = append(b.Frames, flatRecord(r))
		}
		jsonPath = filepath.Join(outDir, "session.json")
		if err = writeJSON(jsonPath, b); err != nil {
			return "", "", err
		}
	}
	return csvPath, jsonPath, nil
}
