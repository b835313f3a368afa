package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

func runResult(t *testing.T, cfg *config.Config) *sim.Result {
	t.Helper()
	sys, err := gas.New(cfg.GasConfig(), gas.WithRand(rand.New(rand.NewSource(cfg.Run.Seed))))
	require.NoError(t, err)

	p, err := gas.ParseProcess(cfg.Run.Process)
	require.NoError(t, err)
	result, err := sim.New(sys).Run(context.Background(), sim.Constant(p, cfg.Run.Rate, cfg.Run.Steps))
	require.NoError(t, err)
	result.Metrics["work"] = 1.25
	return result
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Run.Process = "isentropic"
	cfg.Run.Rate = 10
	cfg.Run.Steps = 5
	cfg.Run.Seed = 42
	cfg.Gas.Particles = 10
	return cfg
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg := testConfig()
	result := runResult(t, cfg)

	meta, err := st.Save(cfg, result, nil)
	require.NoError(t, err)
	_, err = uuid.Parse(meta.ID)
	assert.NoError(t, err, "run id must be a uuid")

	loaded, err := st.Load(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "isentropic", loaded.Process)
	assert.Equal(t, int64(42), loaded.Seed)
	assert.Equal(t, 5, loaded.Steps)
	assert.Equal(t, 1.25, loaded.Metrics["work"])
	assert.Equal(t, result.Final, loaded.Final)
	assert.Empty(t, loaded.Error)

	records, err := st.LoadHistory(meta.ID)
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, result.Records, records)
	assert.Equal(t, gas.NoOp, records[0].Process)
	assert.Equal(t, gas.Isentropic, records[5].Process)

	replay, err := config.Load(filepath.Join(st.Dir(), meta.ID, ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, cfg, replay)
}

func TestStoreSavePartial(t *testing.T) {
	st := New(t.TempDir())
	cfg := testConfig()

	meta, err := st.Save(cfg, runResult(t, cfg), errors.New("run: boom"))
	require.NoError(t, err)

	loaded, err := st.Load(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "run: boom", loaded.Error)
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	cfg := testConfig()
	for i := 0; i < 3; i++ {
		_, err := st.Save(cfg, runResult(t, cfg), nil)
		require.NoError(t, err)
	}

	runs, err = st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for i := 1; i < len(runs); i++ {
		assert.False(t, runs[i].Timestamp.After(runs[i-1].Timestamp))
	}
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), 10, 10, 1)
	assert.Error(t, err)

	bad := "step,process,rate,temperature,pressure,energy,volume,half_y\n1,melt,0,1,1,1,1,1\n"
	_, err = ReadCSV(strings.NewReader(bad), 10, 10, 1)
	assert.Error(t, err)

	short := "step,process\n1,noop\n"
	_, err = ReadCSV(strings.NewReader(short), 10, 10, 1)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	cfg := testConfig()
	meta, err := st.Save(cfg, runResult(t, cfg), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, meta.ID))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, meta.ID, data.ID)
	assert.Len(t, data.Volume, 6)
	assert.InDelta(t, 8050.0, data.Volume[5], 1e-9)
	assert.Equal(t, "isentropic", data.Processes[5])

	buf.Reset()
	require.NoError(t, st.ExportCSV(&buf, meta.ID))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 7)
	assert.Equal(t, "step,process,rate,temperature,pressure,energy,volume,half_y", lines[0])

	assert.Error(t, st.ExportCSV(&buf, "missing"))
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	cat, err := OpenCatalog(filepath.Join(dir, CatalogFile))
	require.NoError(t, err)
	defer cat.Close()

	iso := testConfig()
	meta1, err := st.Save(iso, runResult(t, iso), nil)
	require.NoError(t, err)
	require.NoError(t, cat.Add(meta1))

	heat := testConfig()
	heat.Run.Process = "isochoric"
	heat.Run.Rate = 0.5
	meta2, err := st.Save(heat, runResult(t, heat), errors.New("stopped"))
	require.NoError(t, err)
	require.NoError(t, cat.Add(meta2))

	n, err := cat.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := cat.List("", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, meta2.ID, all[0].ID, "newest first")
	assert.True(t, all[0].Failed)

	only, err := cat.List("isentropic", 10)
	require.NoError(t, err)
	require.Len(t, only, 1)

	entry, err := cat.Get(meta1.ID)
	require.NoError(t, err)
	assert.Equal(t, meta1.Final.Volume, entry.FinalVolume)
	assert.Equal(t, meta1.Timestamp.UnixNano(), entry.Created().UnixNano())
	m, err := entry.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1.25, m["work"])

	require.NoError(t, cat.Delete(meta1.ID))
	_, err = cat.Get(meta1.ID)
	assert.Error(t, err)

	indexed, err := cat.Reindex(st)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
}

func TestReindexFailureKeepsIndex(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	cat, err := OpenCatalog(filepath.Join(dir, CatalogFile))
	require.NoError(t, err)
	defer cat.Close()

	cfg := testConfig()
	meta, err := st.Save(cfg, runResult(t, cfg), nil)
	require.NoError(t, err)
	require.NoError(t, cat.Add(meta))

	good := *meta
	good.ID = "good"
	bad := *meta
	bad.ID = "bad"
	bad.Metrics = map[string]float64{"work": math.NaN()}

	_, err = cat.replaceAll([]RunMetadata{good, bad})
	require.Error(t, err)

	n, err := cat.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = cat.Get(meta.ID)
	assert.NoError(t, err)
	_, err = cat.Get("good")
	assert.Error(t, err)
}
