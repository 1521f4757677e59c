package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"quiz-sync-service/internal/codec"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/postgres/migrations"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the remote adapter over Postgres. Tables are created lazily before
// the first operation; every failure comes back wrapped in
// domain.ErrRemoteUnavailable.
type Store struct {
	pool        *pgxpool.Pool
	provisioned atomic.Bool
}

// Open builds a lazily connecting pool so an unreachable database does not
// block startup.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.LazyConnect = true
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	return NewStore(pool), nil
}

// NewStore wraps an existing pool; tables are created on first use.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// EnsureSchema creates the tables if absent. Concurrent callers rely on the
// database's IF NOT EXISTS handling; a lost race surfaces as an error and the
// next call tries again.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range migrations.Schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return unavailable("ensure schema", err)
		}
	}
	s.provisioned.Store(true)
	return nil
}

func (s *Store) prepare(ctx context.Context) error {
	if s.provisioned.Load() {
		return nil
	}
	return s.EnsureSchema(ctx)
}

// UpsertSession inserts the session or updates its status and completed_at.
func (s *Store) UpsertSession(ctx context.Context, session domain.QuizSession) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	row := codec.SessionToRow(session)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (quiz_id, quiz_type, created_at, status, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (quiz_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at
	`, row.QuizID, row.QuizType, row.CreatedAt, row.Status, row.CompletedAt)
	if err != nil {
		return unavailable("upsert session", err)
	}
	return nil
}

// GetSession maps a missing row to domain.ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, quizID string) (domain.QuizSession, error) {
	if err := s.prepare(ctx); err != nil {
		return domain.QuizSession{}, err
	}
	var row codec.SessionRow
	err := s.pool.QueryRow(ctx, `
		SELECT quiz_id, quiz_type, created_at, status, completed_at
		FROM quiz_sessions WHERE quiz_id = $1
	`, quizID).Scan(&row.QuizID, &row.QuizType, &row.CreatedAt, &row.Status, &row.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, unavailable("get session", err)
	}
	return codec.SessionFromRow(row), nil
}

// InsertParticipant replaces any earlier rows of the same device in the same
// quiz inside one transaction, so repeated joins never pile up rows.
func (s *Store) InsertParticipant(ctx context.Context, participant domain.Participant) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	row := codec.ParticipantToRow(participant)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("insert participant", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM participants WHERE quiz_id = $1 AND device_id = $2`, row.QuizID, row.DeviceID); err != nil {
		return unavailable("insert participant", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO participants (name, email, device_id, quiz_id, joined_at, browser, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, row.Name, row.Email, row.DeviceID, row.QuizID, row.JoinedAt, row.Browser, row.Status); err != nil {
		return unavailable("insert participant", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("insert participant", err)
	}
	return nil
}

func (s *Store) UpdateParticipantStatus(ctx context.Context, quizID, deviceID string, status domain.ParticipantStatus) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE participants SET status = $1
		WHERE quiz_id = $2 AND device_id = $3
	`, string(status), quizID, deviceID)
	if err != nil {
		return unavailable("update participant status", err)
	}
	return nil
}

// ListParticipants returns a quiz's participants in join order.
func (s *Store) ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT quiz_id, device_id, name, email, joined_at, COALESCE(browser, ''), status
		FROM participants
		WHERE quiz_id = $1
		ORDER BY joined_at ASC, id ASC
	`, quizID)
	if err != nil {
		return nil, unavailable("list participants", err)
	}
	defer rows.Close()

	out := []domain.Participant{}
	for rows.Next() {
		var row codec.ParticipantRow
		if err := rows.Scan(&row.QuizID, &row.DeviceID, &row.Name, &row.Email, &row.JoinedAt, &row.Browser, &row.Status); err != nil {
			return nil, unavailable("list participants", err)
		}
		out = append(out, codec.ParticipantFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list participants", err)
	}
	return out, nil
}

// UpsertResult writes the participant snapshot only on insert; later upserts
// refresh score and date.
func (s *Store) UpsertResult(ctx context.Context, result domain.QuizResult) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	row, err := codec.ResultToRow(result)
	if err != nil {
		return unavailable("upsert result", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_results (quiz_id, quiz_type, score, total_questions, date, participants)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		ON CONFLICT (quiz_id) DO UPDATE SET
			score = EXCLUDED.score,
			date = EXCLUDED.date
	`, row.QuizID, row.QuizType, row.Score, row.TotalQuestions, row.Date, string(row.Participants))
	if err != nil {
		return unavailable("upsert result", err)
	}
	return nil
}

// ListResults returns every result, newest first.
func (s *Store) ListResults(ctx context.Context) ([]domain.QuizResult, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT quiz_id, quiz_type, score, total_questions, date, participants
		FROM quiz_results
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, unavailable("list results", err)
	}
	defer rows.Close()

	out := []domain.QuizResult{}
	for rows.Next() {
		var row codec.ResultRow
		if err := rows.Scan(&row.QuizID, &row.QuizType, &row.Score, &row.TotalQuestions, &row.Date, &row.Participants); err != nil {
			return nil, unavailable("list results", err)
		}
		result, err := codec.ResultFromRow(row)
		if err != nil {
			return nil, unavailable("list results", err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list results", err)
	}
	return out, nil
}

func (s *Store) ClearResults(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_results`); err != nil {
		return unavailable("clear results", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRemoteUnavailable, op, err)
}
