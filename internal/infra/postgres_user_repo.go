package infra

import (
	"context"

	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) ports.UserRepository {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) CreateIfAbsent(ctx context.Context, u *models.User) (bool, error) {
	query := `
		INSERT INTO users (user_id, tokens, is_premium, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, u.UserID, u.Tokens, u.IsPremium, u.CreatedAt)
	if err != nil {
		return false, storageErr("create user", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, tokens, is_premium, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Tokens, &u.IsPremium, &u.CreatedAt); err != nil {
			return nil, storageErr("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}
	return out, nil
}

func (r *PostgresUserRepo) SetPremium(ctx context.Context, userID string, premium bool, tokens int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_premium = $1, tokens = $2 WHERE user_id = $3`,
		premium, tokens, userID,
	)
	if err != nil {
		return storageErr("set premium", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
