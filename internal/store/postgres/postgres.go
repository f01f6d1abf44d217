package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/CtrlAltQ/jobseek-sub001/internal/model"
	"github.com/CtrlAltQ/jobseek-sub001/internal/store"
	"github.com/google/uuid"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib adapter.

type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs(
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			company TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			salary TEXT NOT NULL DEFAULT '',
			relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'new',
			posted_at TIMESTAMPTZ NULL,
			discovered_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_discovered ON jobs(discovered_at);`,
		`CREATE TABLE IF NOT EXISTS settings(
			id INTEGER PRIMARY KEY CHECK(id=1),
			data TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS agent_status(
			id INTEGER PRIMARY KEY CHECK(id=1),
			data TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) UpsertJobs(ctx context.Context, jobs []model.Job) (store.UpsertResult, error) {
	var res store.UpsertResult
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, j := range jobs {
		if strings.TrimSpace(j.URL) == "" {
			continue
		}
		var existingID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM jobs WHERE url=$1;`, j.URL).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			j.ID = uuid.NewString()
			j.Status = model.StatusNew
			j.DiscoveredAt = now
			j.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO jobs(id, title, company, location, url, source, summary, salary, relevance_score, status, posted_at, discovered_at, updated_at)
				VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`,
				j.ID, j.Title, j.Company, j.Location, j.URL, j.Source, j.Summary, j.Salary,
				j.RelevanceScore, string(j.Status), nullTime(j.PostedAt), j.DiscoveredAt, j.UpdatedAt); err != nil {
				return store.UpsertResult{}, err
			}
			res.Inserted = append(res.Inserted, j)
		case err != nil:
			return store.UpsertResult{}, err
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE jobs SET title=$1, company=$2, location=$3, source=$4, summary=$5, salary=$6,
					relevance_score=$7, posted_at=$8, updated_at=$9
				WHERE id=$10;`,
				j.Title, j.Company, j.Location, j.Source, j.Summary, j.Salary,
				j.RelevanceScore, nullTime(j.PostedAt), now, existingID); err != nil {
				return store.UpsertResult{}, err
			}
			res.Updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return store.UpsertResult{}, err
	}
	return res, nil
}

var sortColumns = map[string]string{
	"":                "discovered_at",
	"discovered_at":   "discovered_at",
	"relevance_score": "relevance_score",
	"posted_at":       "posted_at",
	"updated_at":      "updated_at",
}

func (p *DB) ListJobs(ctx context.Context, q model.JobsQuery) ([]model.Job, model.Pagination, error) {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		return nil, model.Pagination{}, fmt.Errorf("unsupported sort column %q", q.SortBy)
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}

	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.Status != "" {
		where = append(where, "status="+arg(string(q.Status)))
	}
	if q.Source != "" {
		where = append(where, "source="+arg(q.Source))
	}
	if q.MinScore > 0 {
		where = append(where, "relevance_score>="+arg(q.MinScore))
	}
	if q.Search != "" {
		ph := arg("%" + q.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR company ILIKE %s OR summary ILIKE %s)", ph, ph, ph))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE `+cond+`;`, args...).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 20
	}
	limit := arg(perPage)
	offset := arg((page - 1) * perPage)
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, company, location, url, source, summary, salary, relevance_score, status, posted_at, discovered_at, updated_at
		FROM jobs WHERE `+cond+` ORDER BY `+col+` `+dir+` LIMIT `+limit+` OFFSET `+offset+`;`, args...)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	defer func() { _ = rows.Close() }()
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, model.Pagination{}, err
	}

	pg := model.Pagination{Page: page, PerPage: perPage, Total: total}
	pg.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	return jobs, pg, nil
}

func (p *DB) GetJob(ctx context.Context, id string) (model.Job, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, title, company, location, url, source, summary, salary, relevance_score, status, posted_at, discovered_at, updated_at
		FROM jobs WHERE id=$1;`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, store.ErrNotFound
	}
	return j, err
}

func (p *DB) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE jobs SET status=$1, updated_at=$2 WHERE id=$3;`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ArchiveJob moves a job out of the active pipeline.
func (p *DB) ArchiveJob(ctx context.Context, id string) error {
	return p.UpdateJobStatus(ctx, id, model.StatusArchived)
}

func (p *DB) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{
		ByStatus:  make(map[string]int64),
		BySource:  make(map[string]int64),
		UpdatedAt: time.Now().UTC(),
	}
	var avg sql.NullFloat64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*), AVG(relevance_score) FROM jobs;`).Scan(&st.Total, &avg); err != nil {
		return model.Stats{}, err
	}
	st.AvgScore = avg.Float64

	rows, err := p.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return model.Stats{}, err
	}
	if err := scanCounts(rows, st.ByStatus); err != nil {
		return model.Stats{}, err
	}

	rows, err = p.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM jobs GROUP BY source;`)
	if err != nil {
		return model.Stats{}, err
	}
	if err := scanCounts(rows, st.BySource); err != nil {
		return model.Stats{}, err
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE discovered_at >= $1;`, cutoff).Scan(&st.Last24h); err != nil {
		return model.Stats{}, err
	}
	return st, nil
}

func (p *DB) GetSettings(ctx context.Context) (model.Settings, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id=1;`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	var out model.Settings
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

func (p *DB) SaveSettings(ctx context.Context, set model.Settings) error {
	set.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO settings(id, data, updated_at) VALUES(1, $1, $2)
		ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at;`,
		string(data), set.UpdatedAt)
	return err
}

func (p *DB) GetAgentStatus(ctx context.Context) (model.AgentStatus, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM agent_status WHERE id=1;`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AgentStatus{State: "offline"}, nil
	}
	if err != nil {
		return model.AgentStatus{}, err
	}
	var out model.AgentStatus
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return model.AgentStatus{}, fmt.Errorf("decode agent status: %w", err)
	}
	return out, nil
}

func (p *DB) UpsertAgentStatus(ctx context.Context, st model.AgentStatus) error {
	st.ReportedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO agent_status(id, data, updated_at) VALUES(1, $1, $2)
		ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at;`,
		string(data), st.ReportedAt)
	return err
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var j model.Job
	var status string
	var posted sql.NullTime
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.URL, &j.Source, &j.Summary,
		&j.Salary, &j.RelevanceScore, &status, &posted, &j.DiscoveredAt, &j.UpdatedAt); err != nil {
		return model.Job{}, err
	}
	j.Status = model.JobStatus(status)
	if posted.Valid {
		j.PostedAt = posted.Time
	}
	return j, nil
}

func scanJobs(rows *sql.Rows) ([]model.Job, error) {
	out := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanCounts(rows *sql.Rows, into map[string]int64) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return err
		}
		into[k] = n
	}
	return rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
