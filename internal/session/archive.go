// Package session archives finished tasks and their step transcripts to
// sqlite, so past runs can be listed and replayed.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"otto/internal/engine"
)

// TaskRecord is the archived summary of one task run.
type TaskRecord struct {
	ID          string
	RepoPath    string
	Request     string
	Status      engine.TaskStatus
	Reason      string
	FinalAnswer string
	Steps       int
	Errors      int
	Usage       engine.Usage
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// Archive is the sqlite-backed task store.
type Archive struct {
	db *sql.DB
}

// Open connects to (or creates) the archive database at dbPath.
func Open(ctx context.Context, dbPath string) (*Archive, error) {
	// WAL mode allows a reader while the archiver writes.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id           TEXT PRIMARY KEY,
		repo_path         TEXT NOT NULL,
		request           TEXT NOT NULL,
		status            TEXT NOT NULL,
		reason            TEXT NOT NULL DEFAULT '',
		final_answer      TEXT NOT NULL DEFAULT '',
		steps             INTEGER NOT NULL DEFAULT 0,
		errors            INTEGER NOT NULL DEFAULT 0,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens      INTEGER NOT NULL DEFAULT 0,
		created_at        INTEGER NOT NULL,
		finished_at       INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_steps (
		task_id      TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		calls_json   TEXT NOT NULL,
		results_json TEXT NOT NULL,
		PRIMARY KEY (task_id, seq),
		FOREIGN KEY (task_id) REFERENCES tasks(task_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_repo ON tasks(repo_path, created_at);
	`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// Save archives a finished task and its full step transcript. Saving the
// same task again replaces the previous record.
func (a *Archive) Save(ctx context.Context, repoPath string, st *engine.State) error {
	if st == nil || st.Task == nil {
		return fmt.Errorf("nothing to archive")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tasks
		(task_id, repo_path, request, status, reason, final_answer,
		 steps, errors, prompt_tokens, completion_tokens, total_tokens,
		 created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Task.ID, repoPath, st.Task.Request, string(st.Task.Status), st.Task.Reason,
		st.FinalAnswer, st.Step, st.ErrorCount,
		st.Totals.Prompt, st.Totals.Completion, st.Totals.Total,
		st.Task.CreatedAt.Unix(), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("archive task %s: %w", st.Task.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_steps WHERE task_id = ?`, st.Task.ID); err != nil {
		return fmt.Errorf("clear steps for %s: %w", st.Task.ID, err)
	}
	for _, rec := range st.Steps {
		calls, err := json.Marshal(rec.Calls)
		if err != nil {
			return fmt.Errorf("marshal calls for step %d: %w", rec.Seq, err)
		}
		results, err := json.Marshal(rec.Results)
		if err != nil {
			return fmt.Errorf("marshal results for step %d: %w", rec.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_steps (task_id, seq, calls_json, results_json)
			VALUES (?, ?, ?, ?)`,
			st.Task.ID, rec.Seq, string(calls), string(results),
		)
		if err != nil {
			return fmt.Errorf("archive step %d: %w", rec.Seq, err)
		}
	}

	return tx.Commit()
}

// List returns archived tasks for a repository, newest first.
func (a *Archive) List(ctx context.Context, repoPath string, limit int) ([]TaskRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT task_id, repo_path, request, status, reason, final_answer,
		       steps, errors, prompt_tokens, completion_tokens, total_tokens,
		       created_at, finished_at
		FROM tasks WHERE repo_path = ?
		ORDER BY created_at DESC LIMIT ?`, repoPath, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Load returns one archived task by ID.
func (a *Archive) Load(ctx context.Context, taskID string) (TaskRecord, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT task_id, repo_path, request, status, reason, final_answer,
		       steps, errors, prompt_tokens, completion_tokens, total_tokens,
		       created_at, finished_at
		FROM tasks WHERE task_id = ?`, taskID)
	rec, err := scanTask(row)
	if err == sql.ErrNoRows {
		return TaskRecord{}, fmt.Errorf("task %s not archived", taskID)
	}
	return rec, err
}

// LoadSteps returns the step transcript for a task, in sequence order.
func (a *Archive) LoadSteps(ctx context.Context, taskID string) ([]engine.StepRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT seq, calls_json, results_json
		FROM task_steps WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	var out []engine.StepRecord
	for rows.Next() {
		var rec engine.StepRecord
		var calls, results string
		if err := rows.Scan(&rec.Seq, &calls, &results); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(calls), &rec.Calls); err != nil {
			return nil, fmt.Errorf("decode calls for step %d: %w", rec.Seq, err)
		}
		if err := json.Unmarshal([]byte(results), &rec.Results); err != nil {
			return nil, fmt.Errorf("decode results for step %d: %w", rec.Seq, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (TaskRecord, error) {
	var rec TaskRecord
	var status string
	var created, finished int64
	err := row.Scan(&rec.ID, &rec.RepoPath, &rec.Request, &status, &rec.Reason,
		&rec.FinalAnswer, &rec.Steps, &rec.Errors,
		&rec.Usage.Prompt, &rec.Usage.Completion, &rec.Usage.Total,
		&created, &finished)
	if err != nil {
		return TaskRecord{}, err
	}
	rec.Status = engine.TaskStatus(status)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.FinishedAt = time.Unix(finished, 0).UTC()
	return rec, nil
}
