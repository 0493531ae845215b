package main

import (
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2/dialog"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/itohio/gostrovib/pkg/vibro"
)

const defaultResultsPath = "results.yaml"

// Record is one saved measurement in the results history.
type Record struct {
	ID          string    `yaml:"id"`
	Time        time.Time `yaml:"time"`
	Estimator   string    `yaml:"estimator"`
	DominantHz  float64   `yaml:"dominant_hz"`
	Peak        float64   `yaml:"peak"`
	RMS         float64   `yaml:"rms"`
	StdDev      float64   `yaml:"std_dev"`
	RMSVelocity float64   `yaml:"rms_velocity"`
	Score       float64   `yaml:"score"`
	Duration    float64   `yaml:"duration_seconds"`
	Samples     int       `yaml:"samples"`
}

// history is the persisted list of measurement records. It is only touched
// from the main thread.
type history struct {
	path    string
	records []Record
}

// newHistory loads the existing results file, or starts empty when there is
// none yet.
func newHistory(path string) *history {
	h := &history{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return h
	}
	if err := yaml.Unmarshal(data, &h.records); err != nil {
		// A corrupt file must not block new exports; start over
		h.records = nil
	}
	return h
}

// add appends a completed measurement and returns the new record.
func (h *history) add(st vibro.Status) Record {
	r := st.Result
	rec := Record{
		ID:          uuid.NewString(),
		Time:        time.Now(),
		Estimator:   st.Estimator,
		DominantHz:  r.DominantFreqHz,
		Peak:        r.Peak,
		RMS:         r.RMS,
		StdDev:      r.StdDev,
		RMSVelocity: r.RMSVelocity,
		Score:       r.Score,
		Duration:    r.Duration,
		Samples:     r.Samples,
	}
	h.records = append(h.records, rec)
	return rec
}

// save writes the full history back to the results file.
func (h *history) save() error {
	data, err := yaml.Marshal(h.records)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// handleExport appends the completed measurement to the results file.
func (p *panel) handleExport() {
	snap := p.ins.Snapshot()
	if !snap.Vibration.HasResult {
		dialog.ShowInformation("Export", "No completed measurement to export", p.window)
		return
	}

	rec := p.history.add(snap.Vibration)
	if err := p.history.save(); err != nil {
		dialog.ShowError(err, p.window)
		return
	}
	fmt.Printf("Saved measurement %s to %s\n", rec.ID, p.history.path)
}
