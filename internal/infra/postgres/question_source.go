// Package postgres loads MCQs and stores practice attempts in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"managemind-quiz-service/internal/domain"
)

// QuestionSource reads MCQ JSONB rows from Postgres.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) Search(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `SELECT data FROM mcqs WHERE ($1 = '' OR lower(unit) = lower($1)) AND ($2 = '' OR lower(topic) = lower($2))`
	args := []interface{}{filter.Unit, filter.Topic}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search mcqs: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan mcq: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal mcq: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *QuestionSource) ByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT data FROM mcqs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load mcqs: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan mcq: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal mcq: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
