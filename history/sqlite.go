package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ai_content_workflow/generator"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS content (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    content_type TEXT,
    tone TEXT,
    length TEXT,
    topic TEXT,
    idea TEXT,
    outline TEXT,
    draft TEXT,
    final_content TEXT,
    generated_idea TEXT,
    generated_outline TEXT,
    generated_draft TEXT,
    generated_final_content TEXT,
    notes TEXT,
    clarity_score INTEGER,
    engagement_score INTEGER
)`

const columns = `id, timestamp, content_type, tone, length, topic,
    idea, outline, draft, final_content,
    generated_idea, generated_outline, generated_draft, generated_final_content,
    notes, clarity_score, engagement_score`

// SQLiteStore keeps runs in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageErr("create data dir", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", err)
	}
	// One connection keeps writes ordered and pragmas in effect.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, storageErr("configure", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, storageErr("init schema", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run SavedRun) (int64, error) {
	if err := run.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO content (timestamp, content_type, tone, length, topic,
    idea, outline, draft, final_content,
    generated_idea, generated_outline, generated_draft, generated_final_content,
    notes, clarity_score, engagement_score)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339Nano),
		run.Params.ContentType, run.Params.Tone, run.Params.Length, run.Params.Topic,
		run.Edited(generator.StageIdea), run.Edited(generator.StageOutline),
		run.Edited(generator.StageDraft), run.Edited(generator.StageRefine),
		run.Generated(generator.StageIdea), run.Generated(generator.StageOutline),
		run.Generated(generator.StageDraft), run.Generated(generator.StageRefine),
		run.Notes, run.ClarityScore, run.EngagementScore,
	)
	if err != nil {
		return 0, storageErr("insert run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert run", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]SavedRun, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM content ORDER BY id ASC")
	if err != nil {
		return nil, storageErr("list runs", err)
	}
	defer rows.Close()

	var runs []SavedRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, storageErr("scan run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list runs", err)
	}
	return runs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (SavedRun, error) {
	var (
		run                             SavedRun
		ts                              string
		idea, outline, draft, final     sql.NullString
		gIdea, gOutline, gDraft, gFinal sql.NullString
		contentType, tone, length       sql.NullString
		topic, notes                    sql.NullString
	)
	err := rows.Scan(&run.ID, &ts, &contentType, &tone, &length, &topic,
		&idea, &outline, &draft, &final,
		&gIdea, &gOutline, &gDraft, &gFinal,
		&notes, &run.ClarityScore, &run.EngagementScore)
	if err != nil {
		return SavedRun{}, err
	}
	run.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return SavedRun{}, fmt.Errorf("run %d: bad timestamp %q: %w", run.ID, ts, err)
	}
	run.Params = generator.Parameters{
		ContentType: contentType.String,
		Tone:        tone.String,
		Length:      length.String,
		Topic:       topic.String,
	}
	run.Notes = notes.String
	run.Stages = map[generator.Stage]generator.Slot{
		generator.StageIdea:    {Generated: gIdea.String, Edited: idea.String},
		generator.StageOutline: {Generated: gOutline.String, Edited: outline.String},
		generator.StageDraft:   {Generated: gDraft.String, Edited: draft.String},
		generator.StageRefine:  {Generated: gFinal.String, Edited: final.String},
	}
	return run, nil
}
