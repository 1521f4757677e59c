package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/polling"
)

// Store is the persistence surface the lifecycle services need; the
// persistence facade implements it and never fails loudly.
type Store interface {
	SaveSession(ctx context.Context, session domain.QuizSession) bool
	GetSession(ctx context.Context, quizID string) (domain.QuizSession, bool)
	SaveParticipant(ctx context.Context, participant domain.Participant) bool
	UpdateStatus(ctx context.Context, quizID, deviceID string, status domain.ParticipantStatus) bool
	GetParticipants(ctx context.Context, quizID string) []domain.Participant
	SaveResult(ctx context.Context, result domain.QuizResult) bool
}

// HostedSession is what a host needs to show the join code.
type HostedSession struct {
	Session domain.QuizSession `json:"session"`
	JoinURL string             `json:"joinUrl"`
	Saved   bool               `json:"saved"`
}

// HostStatus describes the quiz this host is currently running.
type HostStatus struct {
	QuizID   string           `json:"quizId"`
	QuizType domain.QuizType  `json:"quizType,omitempty"`
	Started  bool             `json:"started"`
	TimeLeft int              `json:"timeLeftSeconds"`
	Lobby    polling.Snapshot `json:"lobby"`
}

// HostService runs the host side of a quiz: one current quiz per host,
// a lobby poller bound to it, and the countdown once started.
type HostService struct {
	store     Store
	lobby     *polling.Poller
	publicURL string
	now       func() time.Time
	tick      time.Duration

	mu        sync.Mutex
	current   domain.QuizSession
	countdown *Countdown
}

// NewHostService creates a host service. lobby may be nil.
func NewHostService(store Store, lobby *polling.Poller, publicURL string) *HostService {
	return &HostService{
		store:     store,
		lobby:     lobby,
		publicURL: publicURL,
		now:       time.Now,
		tick:      time.Second,
	}
}

// NewHostServiceWithClock is used by tests for deterministic timestamps.
func NewHostServiceWithClock(store Store, lobby *polling.Poller, publicURL string, now func() time.Time, tick time.Duration) *HostService {
	s := NewHostService(store, lobby, publicURL)
	s.now = now
	s.tick = tick
	return s
}

// CreateSession opens a new quiz, replaces whatever quiz the host was running
// and starts polling its lobby.
func (s *HostService) CreateSession(ctx context.Context, quizType domain.QuizType) (HostedSession, error) {
	if !quizType.Valid() {
		return HostedSession{}, fmt.Errorf("%w: %q", domain.ErrInvalidQuizType, quizType)
	}
	now := s.now().UTC()
	session := domain.QuizSession{
		QuizID:    domain.NewQuizID(now),
		QuizType:  quizType,
		CreatedAt: now,
		Status:    domain.SessionActive,
	}
	saved := s.store.SaveSession(ctx, session)
	if !saved {
		log.Printf("host: session %s was not persisted", session.QuizID)
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.current = session
	s.mu.Unlock()

	if s.lobby != nil {
		s.lobby.Watch(session.QuizID)
	}
	return HostedSession{
		Session: session,
		JoinURL: domain.JoinURL(s.publicURL, session.QuizID),
		Saved:   saved,
	}, nil
}

// StartQuiz moves every joined participant to active and starts the countdown.
func (s *HostService) StartQuiz(ctx context.Context, quizID string) ([]domain.Participant, error) {
	session, ok := s.store.GetSession(ctx, quizID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status == domain.SessionCompleted {
		return nil, domain.ErrSessionCompleted
	}
	for _, p := range s.store.GetParticipants(ctx, quizID) {
		if !s.store.UpdateStatus(ctx, quizID, p.DeviceID, domain.ParticipantActive) {
			log.Printf("host: could not activate %s in %s", p.DeviceID, quizID)
		}
	}

	s.mu.Lock()
	s.stopCountdownLocked()
	s.current = session
	s.countdown = StartCountdown(session.QuizType.Duration(), s.tick, nil, func() {
		log.Printf("host: time is up for %s", quizID)
	})
	s.mu.Unlock()

	return s.store.GetParticipants(ctx, quizID), nil
}

// FinishQuiz saves the result with a snapshot of the current participants and
// marks the session completed. A session is finished at most once.
func (s *HostService) FinishQuiz(ctx context.Context, quizID string, score, totalQuestions int) (domain.QuizResult, error) {
	if err := validateScore(score, totalQuestions); err != nil {
		return domain.QuizResult{}, err
	}
	session, ok := s.store.GetSession(ctx, quizID)
	if !ok {
		return domain.QuizResult{}, domain.ErrSessionNotFound
	}
	if session.Status == domain.SessionCompleted {
		return domain.QuizResult{}, domain.ErrSessionCompleted
	}

	now := s.now().UTC()
	participants := s.store.GetParticipants(ctx, quizID)
	snapshot := make([]domain.ParticipantSnapshot, 0, len(participants))
	for _, p := range participants {
		snapshot = append(snapshot, p.Snapshot())
	}
	result := domain.QuizResult{
		QuizID:         quizID,
		QuizType:       session.QuizType,
		Score:          score,
		TotalQuestions: totalQuestions,
		Date:           now,
		Participants:   snapshot,
	}
	if !s.store.SaveResult(ctx, result) {
		log.Printf("host: result for %s was not persisted", quizID)
	}

	session.Status = domain.SessionCompleted
	session.CompletedAt = &now
	if !s.store.SaveSession(ctx, session) {
		log.Printf("host: completion of %s was not persisted", quizID)
	}

	s.mu.Lock()
	if s.current.QuizID == quizID {
		s.stopCountdownLocked()
		s.current = domain.QuizSession{}
		if s.lobby != nil {
			s.lobby.Stop()
		}
	}
	s.mu.Unlock()
	return result, nil
}

// Status reports the running quiz and the latest lobby snapshot.
func (s *HostService) Status() HostStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := HostStatus{
		QuizID:   s.current.QuizID,
		QuizType: s.current.QuizType,
	}
	if s.countdown != nil {
		status.Started = true
		status.TimeLeft = int(s.countdown.Remaining() / time.Second)
	} else if s.current.QuizType != "" {
		status.TimeLeft = int(s.current.QuizType.Duration() / time.Second)
	}
	if s.lobby != nil {
		if snap := s.lobby.Latest(); snap.QuizID == s.current.QuizID {
			status.Lobby = snap
		}
	}
	return status
}

// Close stops the countdown and the lobby poller.
func (s *HostService) Close() {
	s.mu.Lock()
	s.stopCountdownLocked()
	s.mu.Unlock()
	if s.lobby != nil {
		s.lobby.Stop()
	}
}

func (s *HostService) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func validateScore(score, totalQuestions int) error {
	if totalQuestions <= 0 {
		return &domain.ValidationError{Field: "totalQuestions", Message: "totalQuestions must be positive"}
	}
	if score < 0 || score > totalQuestions*domain.PointsPerQuestion {
		return &domain.ValidationError{Field: "score", Message: fmt.Sprintf("score must be between 0 and %d", totalQuestions*domain.PointsPerQuestion)}
	}
	if score%domain.PointsPerQuestion != 0 {
		return &domain.ValidationError{Field: "score", Message: fmt.Sprintf("score must be a multiple of %d", domain.PointsPerQuestion)}
	}
	return nil
}
