package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stellarlinkco/embench/internal/evaluator"
	"github.com/stellarlinkco/embench/internal/result"
	"github.com/stellarlinkco/embench/internal/task"
)

const defaultListLimit = 100

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	insertStmt *sql.Stmt
	latestStmt *sql.Stmt
}

var (
	sqliteOpen              = sql.Open
	sqlitePrepareStatements = (*SQLiteStore).prepareStatements
)

// NewSQLiteStore opens or creates a SQLite store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sqliteOpen("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db}
	if err := sqlitePrepareStatements(st); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS task_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			schema_version INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			task_name TEXT NOT NULL,
			task_type TEXT NOT NULL,
			revision TEXT NOT NULL,
			main_score REAL NOT NULL,
			main_score_metric TEXT NOT NULL,
			main_score_split TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			splits BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_results_model_task ON task_results(model_id, task_name, id)`,
		`CREATE INDEX IF NOT EXISTS idx_task_results_created_at ON task_results(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

// resultColumns is the scan order every result query uses.
const resultColumns = `schema_version, run_id, model_id, task_name, task_type, revision,
	main_score, main_score_metric, main_score_split, created_at, splits`

func (s *SQLiteStore) prepareStatements() error {
	if s == nil || s.db == nil {
		return errors.New("store: nil sqlite store")
	}

	ctx := context.Background()

	insert, err := s.db.PrepareContext(ctx, `
		INSERT INTO task_results (
			schema_version, run_id, model_id, task_name, task_type, revision,
			main_score, main_score_metric, main_score_split, created_at, splits
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare insert result: %w", err)
	}
	s.insertStmt = insert

	latest, err := s.db.PrepareContext(ctx, `
		SELECT `+resultColumns+`
		FROM task_results
		WHERE model_id = ? AND task_name = ?
		ORDER BY id DESC
		LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("store: prepare latest result: %w", err)
	}
	s.latestStmt = latest

	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.latestStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save appends a task result. Earlier records for the same (model, task) are
// kept but superseded.
func (s *SQLiteStore) Save(ctx context.Context, res *result.TaskResult) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if res == nil {
		return errors.New("store: nil result")
	}
	if strings.TrimSpace(res.ModelID) == "" || strings.TrimSpace(res.TaskName) == "" {
		return errors.New("store: missing model/task name")
	}
	if res.SchemaVersion == 0 {
		return errors.New("store: result missing schema version")
	}

	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	splitsJSON, err := json.Marshal(res.Splits)
	if err != nil {
		return fmt.Errorf("store: marshal splits: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin result tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := tx.StmtContext(ctx, s.insertStmt)
	defer stmt.Close()

	_, err = stmt.ExecContext(
		ctx,
		res.SchemaVersion,
		res.RunID,
		res.ModelID,
		res.TaskName,
		string(res.TaskType),
		res.Revision,
		res.MainScore,
		res.MainScoreMetric,
		res.MainScoreSplit,
		createdAt.UTC().UnixMilli(),
		splitsJSON,
	)
	if err != nil {
		return fmt.Errorf("store: insert result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit result: %w", err)
	}
	return nil
}

// Load returns the latest result for (model, task). A record written under a
// different schema version yields ErrStaleSchema.
func (s *SQLiteStore) Load(ctx context.Context, modelID, taskName string) (*result.TaskResult, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	modelID = strings.TrimSpace(modelID)
	taskName = strings.TrimSpace(taskName)
	if modelID == "" || taskName == "" {
		return nil, errors.New("store: missing model/task name")
	}

	row := s.latestStmt.QueryRowContext(ctx, modelID, taskName)
	res, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if res.SchemaVersion != result.SchemaVersion {
		return nil, fmt.Errorf("%w: stored version %d, current %d", ErrStaleSchema, res.SchemaVersion, result.SchemaVersion)
	}
	return res, nil
}

// List returns the latest current-schema result per (model, task) matching
// the filter, ordered by model then task name.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*result.TaskResult, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}

	query := `
		SELECT ` + resultColumns + `
		FROM task_results r
		WHERE r.id = (
			SELECT MAX(id) FROM task_results
			WHERE model_id = r.model_id AND task_name = r.task_name
		)
		AND r.schema_version = ?
	`
	args := []any{result.SchemaVersion}

	if m := strings.TrimSpace(filter.ModelID); m != "" {
		query += ` AND r.model_id = ?`
		args = append(args, m)
	}
	if t := strings.TrimSpace(filter.TaskName); t != "" {
		query += ` AND r.task_name = ?`
		args = append(args, t)
	}
	if rev := strings.TrimSpace(filter.Revision); rev != "" {
		query += ` AND r.revision = ?`
		args = append(args, rev)
	}
	if !filter.Since.IsZero() {
		query += ` AND r.created_at >= ?`
		args = append(args, filter.Since.UTC().UnixMilli())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY r.model_id ASC, r.task_name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	defer rows.Close()

	var out []*result.TaskResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	return out, nil
}

// Compare pairs two models' main scores on every task both have a current
// result for.
func (s *SQLiteStore) Compare(ctx context.Context, modelA, modelB string) (*Comparison, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	modelA = strings.TrimSpace(modelA)
	modelB = strings.TrimSpace(modelB)
	if modelA == "" || modelB == "" {
		return nil, errors.New("store: missing model ids")
	}

	resultsA, err := s.List(ctx, Filter{ModelID: modelA})
	if err != nil {
		return nil, err
	}
	resultsB, err := s.List(ctx, Filter{ModelID: modelB})
	if err != nil {
		return nil, err
	}

	byTask := make(map[string]*result.TaskResult, len(resultsA))
	for _, r := range resultsA {
		byTask[r.TaskName] = r
	}

	cmp := &Comparison{ModelA: modelA, ModelB: modelB}
	for _, b := range resultsB {
		a, ok := byTask[b.TaskName]
		if !ok {
			continue
		}
		cmp.Tasks = append(cmp.Tasks, TaskComparison{
			TaskName: b.TaskName,
			Metric:   a.MainScoreMetric,
			ScoreA:   a.MainScore,
			ScoreB:   b.MainScore,
			Delta:    b.MainScore - a.MainScore,
		})
	}
	sort.Slice(cmp.Tasks, func(i, j int) bool { return cmp.Tasks[i].TaskName < cmp.Tasks[j].TaskName })
	return cmp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*result.TaskResult, error) {
	var (
		res         result.TaskResult
		taskType    string
		createdAtMS int64
		splitsJSON  []byte
	)
	err := row.Scan(
		&res.SchemaVersion,
		&res.RunID,
		&res.ModelID,
		&res.TaskName,
		&taskType,
		&res.Revision,
		&res.MainScore,
		&res.MainScoreMetric,
		&res.MainScoreSplit,
		&createdAtMS,
		&splitsJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan result: %w", err)
	}

	res.TaskType = task.Type(taskType)
	res.CreatedAt = time.UnixMilli(createdAtMS).UTC()

	if len(splitsJSON) > 0 {
		var splits map[string]*evaluator.Report
		if err := json.Unmarshal(splitsJSON, &splits); err != nil {
			return nil, fmt.Errorf("store: decode splits: %w", err)
		}
		res.Splits = splits
	}
	return &res, nil
}
