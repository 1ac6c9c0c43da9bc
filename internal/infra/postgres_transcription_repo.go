package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTranscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTranscriptionRepo(pool *pgxpool.Pool) ports.TranscriptionRepository {
	return &PostgresTranscriptionRepo{pool: pool}
}

func parseUUID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ports.ErrInvalidID
	}
	return u, nil
}

const transcriptionColumns = `id, text, optimizations, details, optimized_text, status, user_id, created_at, updated_at, edited_at`

func scanTranscription(row pgx.Row) (*models.Transcription, error) {
	var (
		t        models.Transcription
		id       uuid.UUID
		opts     []byte
		details  []byte
		status   string
		editedAt *time.Time
	)
	if err := row.Scan(&id, &t.Text, &opts, &details, &t.OptimizedText, &status, &t.UserID, &t.CreatedAt, &t.UpdatedAt, &editedAt); err != nil {
		return nil, err
	}

	t.ID = id.String()
	t.Status = models.Status(status)
	t.EditedAt = editedAt

	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &t.Optimizations); err != nil {
			return nil, fmt.Errorf("decode optimizations: %w", err)
		}
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &t.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}
	return &t, nil
}

func (r *PostgresTranscriptionRepo) Insert(ctx context.Context, t *models.Transcription) (*models.Transcription, error) {
	id := uuid.New()

	query := `
		INSERT INTO transcriptions (id, text, status, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, id, t.Text, string(t.Status), t.UserID, t.CreatedAt, t.UpdatedAt); err != nil {
		return nil, storageErr("insert transcription", err)
	}

	t.ID = id.String()
	return t, nil
}

func (r *PostgresTranscriptionRepo) GetByID(ctx context.Context, id string) (*models.Transcription, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `SELECT `+transcriptionColumns+` FROM transcriptions WHERE id = $1`, uid)
	t, err := scanTranscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get transcription", err)
	}
	return t, nil
}

func (r *PostgresTranscriptionRepo) List(ctx context.Context) ([]models.Transcription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transcriptionColumns+` FROM transcriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, storageErr("list transcriptions", err)
	}
	defer rows.Close()

	out := []models.Transcription{}
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, storageErr("scan transcription", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transcriptions", err)
	}
	return out, nil
}

func (r *PostgresTranscriptionRepo) SaveOptimizations(ctx context.Context, upd models.OptimizationUpdate) error {
	uid, err := parseUUID(upd.ID)
	if err != nil {
		return err
	}

	opts, err := json.Marshal(upd.Optimizations)
	if err != nil {
		return fmt.Errorf("encode optimizations: %w", err)
	}
	var details []byte
	if len(upd.Details) > 0 {
		if details, err = json.Marshal(upd.Details); err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
	}

	query := `
		UPDATE transcriptions
		SET optimizations  = $1,
		    details        = $2,
		    status         = $3,
		    updated_at     = $4,
		    optimized_text = CASE WHEN $6 <> '' THEN $6 ELSE optimized_text END
		WHERE id = $5
	`
	tag, err := r.pool.Exec(ctx, query, opts, details, string(models.StatusOptimized), upd.UpdatedAt, uid, upd.OptimizedText)
	if err != nil {
		return storageErr("save optimizations", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *PostgresTranscriptionRepo) SetStatus(ctx context.Context, id string, status models.Status) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE transcriptions SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), uid,
	)
	if err != nil {
		return storageErr("set status", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *PostgresTranscriptionRepo) ApplyEdit(ctx context.Context, edit models.TranscriptionEdit) error {
	uid, err := parseUUID(edit.ID)
	if err != nil {
		return err
	}

	opts := []byte("{}")
	if len(edit.Optimizations) > 0 {
		if opts, err = json.Marshal(edit.Optimizations); err != nil {
			return fmt.Errorf("encode optimizations: %w", err)
		}
	}

	query := `
		UPDATE transcriptions
		SET optimized_text = CASE WHEN $1 <> '' THEN $1 ELSE optimized_text END,
		    optimizations  = COALESCE(optimizations, '{}'::jsonb) || $2::jsonb,
		    status         = $3,
		    edited_at      = $4,
		    updated_at     = $4
		WHERE id = $5 AND ($6 = '' OR user_id = $6)
	`
	tag, err := r.pool.Exec(ctx, query, edit.OptimizedText, opts, string(models.StatusEdited), edit.EditedAt, uid, edit.UserID)
	if err != nil {
		return storageErr("apply edit", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *PostgresTranscriptionRepo) Delete(ctx context.Context, id string) error {
	uid, err := parseUUID(id)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM transcriptions WHERE id = $1`, uid)
	if err != nil {
		return storageErr("delete transcription", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
