// Package persistence is the single entry point for storing sessions,
// participants and results. Each operation tries the remote store first and
// falls back to the local store on any failure; callers never see an error.
package persistence

import (
	"context"
	"errors"
	"log"
	"time"

	"quiz-sync-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Backend is implemented by both the remote adapter and the local store.
type Backend interface {
	UpsertSession(ctx context.Context, session domain.QuizSession) error
	GetSession(ctx context.Context, quizID string) (domain.QuizSession, error)
	InsertParticipant(ctx context.Context, participant domain.Participant) error
	UpdateParticipantStatus(ctx context.Context, quizID, deviceID string, status domain.ParticipantStatus) error
	ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error)
	UpsertResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context) ([]domain.QuizResult, error)
	ClearResults(ctx context.Context) error
}

// Config is decided once at startup and injected.
type Config struct {
	// RemoteEnabled is false in development/offline mode.
	RemoteEnabled bool
	// RemoteTimeout bounds each remote attempt; zero means no bound.
	RemoteTimeout time.Duration
}

// Service is the dual-backend facade: remote first, local on any failure.
type Service struct {
	remote  Backend
	local   Backend
	cfg     Config
	metrics *Metrics
	reads   singleflight.Group
}

// NewService wires the facade. remote may be nil when cfg.RemoteEnabled is false.
func NewService(remote, local Backend, cfg Config, metrics *Metrics) *Service {
	if remote == nil {
		cfg.RemoteEnabled = false
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		remote:  remote,
		local:   local,
		cfg:     cfg,
		metrics: metrics,
	}
}

// RemoteEnabled reports whether remote attempts are made at all.
func (s *Service) RemoteEnabled() bool {
	return s.cfg.RemoteEnabled
}

// SaveSession upserts the session by quiz id.
func (s *Service) SaveSession(ctx context.Context, session domain.QuizSession) bool {
	return s.write(ctx, "save_session", func(ctx context.Context, b Backend) error {
		return b.UpsertSession(ctx, session)
	})
}

// GetSession reports false when neither store knows the session.
func (s *Service) GetSession(ctx context.Context, quizID string) (domain.QuizSession, bool) {
	session, err := attempt(ctx, s, "get_session", func(ctx context.Context, b Backend) (domain.QuizSession, error) {
		return b.GetSession(ctx, quizID)
	})
	return session, err == nil
}

// SaveParticipant records a join; re-joining replaces the earlier record.
func (s *Service) SaveParticipant(ctx context.Context, participant domain.Participant) bool {
	return s.write(ctx, "save_participant", func(ctx context.Context, b Backend) error {
		return b.InsertParticipant(ctx, participant)
	})
}

// UpdateStatus is a successful no-op when the identity pair is unknown.
func (s *Service) UpdateStatus(ctx context.Context, quizID, deviceID string, status domain.ParticipantStatus) bool {
	return s.write(ctx, "update_status", func(ctx context.Context, b Backend) error {
		return b.UpdateParticipantStatus(ctx, quizID, deviceID, status)
	})
}

// GetParticipants returns participants first-joined first. Overlapping polls
// for the same quiz share one backend round trip. The shared fetch does not
// inherit any caller's cancellation; a caller whose ctx ends stops waiting
// and gets an empty list.
func (s *Service) GetParticipants(ctx context.Context, quizID string) []domain.Participant {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.reads.DoChan("participants:"+quizID, func() (interface{}, error) {
		list, err := attempt(fetchCtx, s, "get_participants", func(ctx context.Context, b Backend) ([]domain.Participant, error) {
			return b.ListParticipants(ctx, quizID)
		})
		if err != nil || list == nil {
			return []domain.Participant{}, nil
		}
		return list, nil
	})

	select {
	case res := <-ch:
		shared := res.Val.([]domain.Participant)
		out := make([]domain.Participant, len(shared))
		copy(out, shared)
		return out
	case <-ctx.Done():
		return []domain.Participant{}
	}
}

// SaveResult upserts the result; the participant snapshot of the first save is kept.
func (s *Service) SaveResult(ctx context.Context, result domain.QuizResult) bool {
	return s.write(ctx, "save_result", func(ctx context.Context, b Backend) error {
		return b.UpsertResult(ctx, result)
	})
}

// GetAllResults returns results newest first, or an empty slice.
func (s *Service) GetAllResults(ctx context.Context) []domain.QuizResult {
	results, err := attempt(ctx, s, "get_all_results", func(ctx context.Context, b Backend) ([]domain.QuizResult, error) {
		return b.ListResults(ctx)
	})
	if err != nil || results == nil {
		return []domain.QuizResult{}
	}
	return results
}

// ClearResults clears the remote store when reachable and always clears the
// local collection, so the next read is empty whichever store serves it.
func (s *Service) ClearResults(ctx context.Context) bool {
	cleared := false
	if s.cfg.RemoteEnabled {
		rctx, cancel := s.remoteContext(ctx)
		err := s.remote.ClearResults(rctx)
		cancel()
		if err != nil {
			log.Printf("persistence: clear_results: remote failed: %v", err)
			s.metrics.observe("clear_results", backendRemote, err)
		} else {
			s.metrics.observe("clear_results", backendRemote, nil)
			cleared = true
		}
	}
	err := s.local.ClearResults(ctx)
	s.metrics.observe("clear_results", backendLocal, err)
	if err != nil {
		log.Printf("persistence: clear_results: local failed: %v", err)
		return cleared
	}
	return true
}

func (s *Service) write(ctx context.Context, op string, fn func(context.Context, Backend) error) bool {
	_, err := attempt(ctx, s, op, func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, fn(ctx, b)
	})
	return err == nil
}

// attempt runs fn against the remote store and, if that fails, against the
// local store. The remote call always completes before the fallback starts.
// A session missing remotely may still have been written locally during an
// outage, so not-found also consults the local store, without counting as a
// remote failure.
func attempt[T any](ctx context.Context, s *Service, op string, fn func(context.Context, Backend) (T, error)) (T, error) {
	if s.cfg.RemoteEnabled {
		rctx, cancel := s.remoteContext(ctx)
		v, err := fn(rctx, s.remote)
		cancel()
		switch {
		case err == nil:
			s.metrics.observe(op, backendRemote, nil)
			return v, nil
		case errors.Is(err, domain.ErrSessionNotFound):
			s.metrics.observe(op, backendRemote, nil)
		default:
			log.Printf("persistence: %s: remote failed, using local store: %v", op, err)
			s.metrics.observe(op, backendRemote, err)
			s.metrics.fallback(op)
		}
	}

	v, err := fn(ctx, s.local)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		log.Printf("persistence: %s: local store failed: %v", op, err)
		s.metrics.observe(op, backendLocal, err)
		return v, err
	}
	s.metrics.observe(op, backendLocal, nil)
	return v, err
}

func (s *Service) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RemoteTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	}
	return context.WithCancel(ctx)
}
