package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/gassim/internal/gas"
)

// ExportData is the JSON form of a stored run.
type ExportData struct {
	ID          string             `json:"id"`
	Process     string             `json:"process"`
	Seed        int64              `json:"seed"`
	Particles   int                `json:"particles"`
	Steps       int                `json:"steps"`
	Metrics     map[string]float64 `json:"metrics"`
	Temperature []float64          `json:"temperature"`
	Pressure    []float64          `json:"pressure"`
	Energy      []float64          `json:"energy"`
	Volume      []float64          `json:"volume"`
	Processes   []string           `json:"processes"`
}

// ExportJSON writes a run as column arrays, one entry per record.
func ExportJSON(w io.Writer, meta *RunMetadata, records []gas.Record) error {
	hist := gas.NewHistory()
	processes := make([]string, len(records))
	for i, r := range records {
		hist.Record(r)
		processes[i] = r.Process.String()
	}

	data := ExportData{
		ID:          meta.ID,
		Process:     meta.Process,
		Seed:        meta.Seed,
		Particles:   meta.Particles,
		Steps:       meta.Steps,
		Metrics:     meta.Metrics,
		Temperature: hist.Temperature,
		Pressure:    hist.Pressure,
		Energy:      hist.Energy,
		Volume:      hist.Volume,
		Processes:   processes,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSON writes the stored run to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadHistory(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, records)
}

// ExportCSV writes the stored history of a run to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	records, err := s.LoadHistory(runID)
	if err != nil {
		return err
	}
	return WriteCSV(w, records)
}
