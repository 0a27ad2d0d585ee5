// Package audiofile implements the content-addressed audio index using
// PostgreSQL. Rows are keyed by (engine, language, voice, text); the audio
// artifact itself lives on disk at the recorded file path.
package audiofile

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/clara-project/clara-core/internal/adapter/postgres"
)

// Record is one indexed audio artifact.
type Record struct {
	ID        uuid.UUID
	Engine    string
	Language  string
	Voice     string
	Text      string
	FilePath  string
	CreatedAt time.Time
}

// Stat is an aggregate row for the admin stats view.
type Stat struct {
	Engine   string
	Language string
	Count    int64
}

const table = "audio_files"

var columns = []string{"id", "engine_id", "language_id", "voice_id", "text", "file_path", "created_at"}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides audio index persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new audio file repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

func keyString(engine, language, voice, text string) string {
	return fmt.Sprintf("%s/%s/%s/%q", engine, language, voice, text)
}

// Get returns the record for a key, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, engine, language, voice, text string) (*Record, error) {
	sql, args, err := psql.Select(columns...).
		From(table).
		Where(squirrel.Eq{
			"engine_id":   engine,
			"language_id": language,
			"voice_id":    voice,
			"text":        text,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	rec, err := scanRecord(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "audio file", keyString(engine, language, voice, text))
	}
	return rec, nil
}

// Put records an artifact for a key. Idempotent: an existing row for the
// same key is updated in place and keeps its id.
func (r *Repo) Put(ctx context.Context, engine, language, voice, text, filePath string) (*Record, error) {
	sql, args, err := psql.Insert(table).
		Columns(columns...).
		Values(uuid.New(), engine, language, voice, text, filePath, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (engine_id, language_id, voice_id, text) DO UPDATE SET file_path = EXCLUDED.file_path").
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build put query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	rec, err := scanRecord(querier.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, postgres.MapError(err, "audio file", keyString(engine, language, voice, text))
	}
	return rec, nil
}

// ListFor returns every record for an engine and language, newest first.
func (r *Repo) ListFor(ctx context.Context, engine, language string) ([]Record, error) {
	sql, args, err := psql.Select(columns...).
		From(table).
		Where(squirrel.Eq{"engine_id": engine, "language_id": language}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "audio files", engine+"/"+language)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, postgres.MapError(err, "audio files", engine+"/"+language)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "audio files", engine+"/"+language)
	}
	return result, nil
}

// DeleteFor removes all records for an engine and language and reports how
// many rows went away. The artifacts on disk are the caller's problem.
func (r *Repo) DeleteFor(ctx context.Context, engine, language string) (int64, error) {
	sql, args, err := psql.Delete(table).
		Where(squirrel.Eq{"engine_id": engine, "language_id": language}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "audio files", engine+"/"+language)
	}
	return tag.RowsAffected(), nil
}

// Stats returns per-(engine, language) record counts.
func (r *Repo) Stats(ctx context.Context) ([]Stat, error) {
	sql, args, err := psql.Select("engine_id", "language_id", "count(*)").
		From(table).
		GroupBy("engine_id", "language_id").
		OrderBy("engine_id", "language_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "audio stats", "all")
	}
	defer rows.Close()

	result := []Stat{}
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.Engine, &s.Language, &s.Count); err != nil {
			return nil, postgres.MapError(err, "audio stats", "all")
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "audio stats", "all")
	}
	return result, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Engine, &rec.Language, &rec.Voice, &rec.Text, &rec.FilePath, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func joinColumns() string {
	out := columns[0]
	for _, c := range columns[1:] {
		out += ", " + c
	}
	return out
}
