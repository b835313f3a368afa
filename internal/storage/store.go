package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	historyFile  = "history.csv"
	// ConfigFile holds the run's settings; it loads back with config.Load
	// to repeat the run.
	ConfigFile = "config.yaml"
)

var historyHeader = []string{"step", "process", "rate", "temperature", "pressure", "energy", "volume", "half_y"}

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Process   string             `json:"process"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Particles int                `json:"particles"`
	Steps     int                `json:"steps"`
	Config    config.Config      `json:"config"`
	Final     gas.Thermo         `json:"final"`
	Metrics   map[string]float64 `json:"metrics"`
	Closures  []gas.Closure      `json:"closures,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Save writes the metadata, config and history of a run and returns its new ID.
// runErr, when set, is kept in the metadata of a partial run.
func (s *Store) Save(cfg *config.Config, result *sim.Result, runErr error) (*RunMetadata, error) {
	meta := &RunMetadata{
		ID:        uuid.NewString(),
		Process:   cfg.Run.Process,
		Timestamp: time.Now(),
		Seed:      cfg.Run.Seed,
		Particles: cfg.Gas.Particles,
		Steps:     result.StepsTaken,
		Config:    *cfg,
		Final:     result.Final,
		Metrics:   result.Metrics,
		Closures:  result.Closures,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return nil, err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return nil, err
	}

	if err := config.Save(filepath.Join(runDir, ConfigFile), cfg); err != nil {
		return nil, err
	}

	csvFile, err := os.Create(filepath.Join(runDir, historyFile))
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result.Records); err != nil {
		return nil, err
	}
	return meta, nil
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHistory reads the records of a run. Box x and z extents and the
// particle count come from the stored config.
func (s *Store) LoadHistory(runID string) ([]gas.Record, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file, meta.Config.Box.X, meta.Config.Box.Z, meta.Particles)
}

// WriteCSV writes records with a header row.
func WriteCSV(out io.Writer, records []gas.Record) error {
	w := csv.NewWriter(out)
	if err := w.Write(historyHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Step),
			r.Process.String(),
			formatFloat(r.Rate),
			formatFloat(r.Temperature),
			formatFloat(r.Pressure),
			formatFloat(r.Energy),
			formatFloat(r.Volume),
			formatFloat(r.Box.HalfY),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV parses a history written by WriteCSV.
func ReadCSV(in io.Reader, halfX, halfZ float64, n int) ([]gas.Record, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(historyHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("history: missing header")
	}

	records := make([]gas.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row, halfX, halfZ, n)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, halfX, halfZ float64, n int) (gas.Record, error) {
	step, err := strconv.Atoi(row[0])
	if err != nil {
		return gas.Record{}, err
	}
	p, err := gas.ParseProcess(row[1])
	if err != nil {
		return gas.Record{}, err
	}

	vals := make([]float64, 6)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(row[i+2], 64); err != nil {
			return gas.Record{}, err
		}
	}

	return gas.Record{
		Step:    step,
		Process: p,
		Rate:    vals[0],
		Thermo: gas.Thermo{
			Temperature: vals[1],
			Pressure:    vals[2],
			Energy:      vals[3],
			Volume:      vals[4],
			Box:         gas.Box{HalfX: halfX, HalfY: vals[5], HalfZ: halfZ},
			N:           n,
		},
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
