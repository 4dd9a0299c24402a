package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"managemind-quiz-service/internal/domain"
)

// AttemptStore persists practice attempts as JSONB rows.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, record domain.AttemptRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, user_id, data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		record.ID, record.UserID, string(data), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Attempt(ctx context.Context, id string) (domain.AttemptRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_attempts WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttemptRecord{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.AttemptRecord{}, fmt.Errorf("load attempt: %w", err)
	}
	var record domain.AttemptRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.AttemptRecord{}, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return record, nil
}
