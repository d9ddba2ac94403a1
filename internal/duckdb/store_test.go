package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcf2hist/internal/hist"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *hist.Result {
	h := hist.New()
	h.Add(1, 2)
	h.Add(2, 2)
	h.Inc(4)
	return &hist.Result{Histogram: h, HaplotypeTotal: 7, Lines: 4}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLoadRun(t *testing.T) {
	s := openInMemory(t)
	res := sampleResult()

	fp := FileFingerprint{Path: "multi.vcf", Size: 273, ModTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	run := NewRun(fp, "AF=0.9", "vcf2hist multi.vcf -f AF=0.9", res, true)
	require.NoError(t, s.WriteRun(run, res.Histogram))

	got, h, err := s.LoadRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "multi.vcf", got.Input.Path)
	assert.Equal(t, int64(273), got.Input.Size)
	assert.True(t, fp.ModTime.Equal(got.Input.ModTime))
	assert.Equal(t, "AF=0.9", got.Filter)
	assert.Equal(t, "vcf2hist multi.vcf -f AF=0.9", got.Invocation)
	assert.Equal(t, 7, got.HaplotypeTotal)
	assert.Equal(t, 4, got.Lines)
	assert.True(t, got.Pad)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	assert.Equal(t, res.Histogram.Keys(), h.Keys())
	for _, k := range h.Keys() {
		assert.Equal(t, res.Histogram.Get(k), h.Get(k), "count %d", k)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	s := openInMemory(t)

	_, _, err := s.LoadRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteRun_RowFailureRemovesRun(t *testing.T) {
	s := openInMemory(t)
	res := sampleResult()
	run := NewRun(FileFingerprint{Path: "multi.vcf"}, "", "vcf2hist multi.vcf", res, true)

	// A row already holding (run_id, 1) makes the appended rows violate the primary key.
	_, err := s.db.Exec(`INSERT INTO histogram_rows VALUES (?, 1, 9)`, run.ID)
	require.NoError(t, err)

	require.Error(t, s.WriteRun(run, res.Histogram))

	_, _, err = s.LoadRun(run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM histogram_rows WHERE run_id=?`, run.ID).Scan(&n))
	assert.Zero(t, n)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRuns(t *testing.T) {
	s := openInMemory(t)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	res := sampleResult()
	first := NewRun(FileFingerprint{Path: "a.vcf"}, "", "vcf2hist a.vcf", res, true)
	second := NewRun(FileFingerprint{Path: "b.vcf"}, "AF=0.9", "vcf2hist b.vcf -f AF=0.9", res, false)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.WriteRun(first, res.Histogram))
	require.NoError(t, s.WriteRun(second, res.Histogram))

	runs, err = s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.Equal(t, second.ID, runs[1].ID)
	assert.False(t, runs[1].Pad)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(path, []byte("#CHROM\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(7), fp.Size)
	assert.False(t, fp.ModTime.IsZero())

	fp, err = StatFile("-")
	require.NoError(t, err)
	assert.Equal(t, FileFingerprint{Path: "-"}, fp)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}
