package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// CatalogFile is the name of the catalog database inside the data dir.
const CatalogFile = "catalog.db"

// Catalog is a SQLite index over stored runs.
type Catalog struct {
	conn *sqlx.DB
}

// CatalogEntry is one row of the runs table.
type CatalogEntry struct {
	ID               string  `db:"id"`
	Process          string  `db:"process"`
	CreatedAt        int64   `db:"created_at"`
	Particles        int     `db:"particles"`
	Steps            int     `db:"steps"`
	Seed             int64   `db:"seed"`
	FinalTemperature float64 `db:"final_temperature"`
	FinalPressure    float64 `db:"final_pressure"`
	FinalEnergy      float64 `db:"final_energy"`
	FinalVolume      float64 `db:"final_volume"`
	MetricsJSON      string  `db:"metrics_json"`
	Failed           bool    `db:"failed"`
}

func (e CatalogEntry) Created() time.Time { return time.Unix(0, e.CreatedAt) }

func (e CatalogEntry) Metrics() (map[string]float64, error) {
	m := make(map[string]float64)
	if e.MetricsJSON == "" {
		return m, nil
	}
	err := json.Unmarshal([]byte(e.MetricsJSON), &m)
	return m, err
}

// OpenCatalog opens or creates the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	c := &Catalog{conn: conn}
	if err := c.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.conn.Close()
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		process TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		particles INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		final_temperature REAL NOT NULL,
		final_pressure REAL NOT NULL,
		final_energy REAL NOT NULL,
		final_volume REAL NOT NULL,
		metrics_json TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_process ON runs(process);
	`
	_, err := c.conn.Exec(schema)
	return err
}

// Add indexes a saved run.
func (c *Catalog) Add(meta *RunMetadata) error {
	return insertRun(c.conn, meta)
}

// insertRun writes one row through db, which is either the connection or
// an open transaction.
func insertRun(db sqlx.Ext, meta *RunMetadata) error {
	metricsJSON, err := json.Marshal(meta.Metrics)
	if err != nil {
		return err
	}

	entry := CatalogEntry{
		ID:               meta.ID,
		Process:          meta.Process,
		CreatedAt:        meta.Timestamp.UnixNano(),
		Particles:        meta.Particles,
		Steps:            meta.Steps,
		Seed:             meta.Seed,
		FinalTemperature: meta.Final.Temperature,
		FinalPressure:    meta.Final.Pressure,
		FinalEnergy:      meta.Final.Energy,
		FinalVolume:      meta.Final.Volume,
		MetricsJSON:      string(metricsJSON),
		Failed:           meta.Error != "",
	}

	_, err = sqlx.NamedExec(db, `INSERT OR REPLACE INTO runs
		(id, process, created_at, particles, steps, seed,
		 final_temperature, final_pressure, final_energy, final_volume, metrics_json, failed)
		VALUES (:id, :process, :created_at, :particles, :steps, :seed,
		 :final_temperature, :final_pressure, :final_energy, :final_volume, :metrics_json, :failed)`,
		entry)
	if err != nil {
		return err
	}

	slog.Debug("catalog add", "id", meta.ID, "process", meta.Process, "steps", meta.Steps)
	return nil
}

// List returns up to limit runs, newest first. An empty process matches
// every run.
func (c *Catalog) List(process string, limit int) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	var err error
	if process == "" {
		err = c.conn.Select(&entries, "SELECT * FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	} else {
		err = c.conn.Select(&entries, "SELECT * FROM runs WHERE process = ? ORDER BY created_at DESC LIMIT ?", process, limit)
	}
	return entries, err
}

func (c *Catalog) Get(id string) (*CatalogEntry, error) {
	var entry CatalogEntry
	if err := c.conn.Get(&entry, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Catalog) Delete(id string) error {
	_, err := c.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}

// Count returns the number of indexed runs.
func (c *Catalog) Count() (int, error) {
	var n int
	err := c.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}

// Reindex rebuilds the catalog from the run directories of a store. The
// rebuild is one transaction: on error the previous index is kept.
func (c *Catalog) Reindex(s *Store) (int, error) {
	runs, err := s.List()
	if err != nil {
		return 0, err
	}
	return c.replaceAll(runs)
}

func (c *Catalog) replaceAll(runs []RunMetadata) (int, error) {
	tx, err := c.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM runs"); err != nil {
		return 0, err
	}
	for i := range runs {
		if err := insertRun(tx, &runs[i]); err != nil {
			return 0, fmt.Errorf("index %s: %w", runs[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(runs), nil
}
