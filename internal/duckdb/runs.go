package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vcf2hist/internal/hist"
)

// ErrRunNotFound is returned when a run ID is not present in the store.
var ErrRunNotFound = errors.New("run not found")

// Run describes one conversion whose histogram was stored.
type Run struct {
	ID             string
	Input          FileFingerprint
	Filter         string
	Invocation     string
	HaplotypeTotal int
	Lines          int
	Pad            bool
	CreatedAt      time.Time
}

// NewRun creates a run with a fresh ID and creation time.
func NewRun(input FileFingerprint, filter, invocation string, res *hist.Result, pad bool) Run {
	return Run{
		ID:             uuid.NewString(),
		Input:          input,
		Filter:         filter,
		Invocation:     invocation,
		HaplotypeTotal: res.HaplotypeTotal,
		Lines:          res.Lines,
		Pad:            pad,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

// WriteRun records a run and its observed histogram rows.
// Rows are batch-inserted using the Appender API. If the rows cannot be
// written, the run is removed again.
func (s *Store) WriteRun(run Run, h *hist.Histogram) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `INSERT INTO histogram_runs
		(run_id, input_path, input_size, input_mod_time, filter, invocation,
		 haplotype_total, lines, pad, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input.Path, run.Input.Size, run.Input.ModTime, run.Filter, run.Invocation,
		int64(run.HaplotypeTotal), int64(run.Lines), run.Pad, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := appendRows(conn, run.ID, h); err != nil {
		if _, derr := conn.ExecContext(ctx, `DELETE FROM histogram_rows WHERE run_id=?`, run.ID); derr != nil {
			return errors.Join(err, fmt.Errorf("remove partial rows: %w", derr))
		}
		if _, derr := conn.ExecContext(ctx, `DELETE FROM histogram_runs WHERE run_id=?`, run.ID); derr != nil {
			return errors.Join(err, fmt.Errorf("remove run: %w", derr))
		}
		return err
	}
	return nil
}

// appendRows writes the histogram rows of a run. The appender is closed
// before returning so no rows are flushed after a failure is reported.
func appendRows(conn *sql.Conn, runID string, h *hist.Histogram) (err error) {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "histogram_rows")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer func() {
		if cerr := appender.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close appender: %w", cerr)
		}
	}()

	for _, k := range h.Keys() {
		if err := appender.AppendRow(runID, int64(k), int64(h.Get(k))); err != nil {
			return fmt.Errorf("append histogram row: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush histogram rows: %w", err)
	}
	return nil
}

// ListRuns returns all stored runs, oldest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, input_path, input_size, input_mod_time, filter, invocation,
		haplotype_total, lines, pad, created_at
		FROM histogram_runs
		ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRun returns a stored run together with its histogram.
func (s *Store) LoadRun(id string) (*Run, *hist.Histogram, error) {
	row := s.db.QueryRow(`SELECT
		run_id, input_path, input_size, input_mod_time, filter, invocation,
		haplotype_total, lines, pad, created_at
		FROM histogram_runs
		WHERE run_id=?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(`SELECT allele_count, frequency
		FROM histogram_rows
		WHERE run_id=?
		ORDER BY allele_count`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query histogram rows: %w", err)
	}
	defer rows.Close()

	h := hist.New()
	for rows.Next() {
		var count, freq int64
		if err := rows.Scan(&count, &freq); err != nil {
			return nil, nil, fmt.Errorf("scan histogram row: %w", err)
		}
		h.Add(int(count), int(freq))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate histogram rows: %w", err)
	}
	return &run, h, nil
}

// scanRun scans a single histogram_runs row.
func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	var haplotypes, lines int64
	if err := row.Scan(
		&r.ID, &r.Input.Path, &r.Input.Size, &r.Input.ModTime, &r.Filter, &r.Invocation,
		&haplotypes, &lines, &r.Pad, &r.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.HaplotypeTotal = int(haplotypes)
	r.Lines = int(lines)
	return r, nil
}
