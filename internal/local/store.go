// Package local is the always-available fallback store. It keeps named
// collections of JSON records in a Backend and answers the same logical
// operations as the remote store by read-modify-write over those collections.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"quiz-sync-service/internal/domain"
)

// Collection names of the persisted local layout.
const (
	CollectionParticipants = "quizParticipants"
	CollectionSessions     = "activeQuizSessions"
	CollectionResults      = "quizResults"
	deviceIDKey            = "deviceId"
)

// Backend stores raw collection payloads. Load returns nil, nil for a
// collection that was never written.
type Backend interface {
	Load(name string) ([]byte, error)
	Save(name string, data []byte) error
	Delete(name string) error
}

// Store serializes read-modify-write cycles so concurrent requests in one
// process do not drop each other's updates.
type Store struct {
	backend Backend
	mu      sync.Mutex
}

// NewStore returns a local store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// ReadCollection returns the records of a collection. Missing, unreadable or
// corrupt collections read as empty.
func ReadCollection[T any](s *Store, name string) []T {
	records, err := load[T](s, name)
	if err != nil {
		log.Printf("local store: read %s: %v", name, err)
		return []T{}
	}
	return records
}

// WriteCollection replaces the whole collection with records.
func WriteCollection[T any](s *Store, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.backend.Save(name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// load only fails when the backend itself fails; unparseable content is
// logged and treated as empty.
func load[T any](s *Store, name string) ([]T, error) {
	data, err := s.backend.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("local store: %s is corrupt, treating as empty: %v", name, err)
		return []T{}, nil
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// DeviceID returns this device's id, generating and persisting it on first use.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(deviceIDKey)
	if err == nil && len(data) > 0 {
		var id string
		if json.Unmarshal(data, &id) == nil && id != "" {
			return id
		}
	}
	id := domain.NewDeviceID()
	raw, _ := json.Marshal(id)
	if err := s.backend.Save(deviceIDKey, raw); err != nil {
		log.Printf("local store: persist device id: %v", err)
	}
	return id
}

// UpsertSession inserts the session or replaces its status and completedAt.
func (s *Store) UpsertSession(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := load[domain.QuizSession](s, CollectionSessions)
	if err != nil {
		return err
	}
	found := false
	for i := range sessions {
		if sessions[i].QuizID != session.QuizID {
			continue
		}
		found = true
		sessions[i].Status = session.Status
		sessions[i].CompletedAt = session.CompletedAt
		if sessions[i].QuizType == "" {
			sessions[i].QuizType = session.QuizType
		}
		if sessions[i].CreatedAt.IsZero() {
			sessions[i].CreatedAt = session.CreatedAt
		}
	}
	if !found {
		sessions = append(sessions, session)
	}
	return WriteCollection(s, CollectionSessions, sessions)
}

// GetSession returns domain.ErrSessionNotFound when the session was never saved locally.
func (s *Store) GetSession(_ context.Context, quizID string) (domain.QuizSession, error) {
	for _, session := range ReadCollection[domain.QuizSession](s, CollectionSessions) {
		if session.QuizID == quizID {
			return session, nil
		}
	}
	return domain.QuizSession{}, domain.ErrSessionNotFound
}

// InsertParticipant drops earlier records of the same device in the same quiz
// before appending, so re-joining replaces instead of duplicating.
func (s *Store) InsertParticipant(_ context.Context, participant domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := load[domain.Participant](s, CollectionParticipants)
	if err != nil {
		return err
	}
	kept := participants[:0]
	for _, p := range participants {
		if !p.SameIdentity(participant) {
			kept = append(kept, p)
		}
	}
	return WriteCollection(s, CollectionParticipants, append(kept, participant))
}

// UpdateParticipantStatus writes nothing when the identity pair is unknown.
func (s *Store) UpdateParticipantStatus(_ context.Context, quizID, deviceID string, status domain.ParticipantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := load[domain.Participant](s, CollectionParticipants)
	if err != nil {
		return err
	}
	changed := false
	for i := range participants {
		if participants[i].QuizID == quizID && participants[i].DeviceID == deviceID {
			participants[i].Status = status
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return WriteCollection(s, CollectionParticipants, participants)
}

// ListParticipants returns the quiz's participants, first joined first.
func (s *Store) ListParticipants(_ context.Context, quizID string) ([]domain.Participant, error) {
	out := []domain.Participant{}
	for _, p := range ReadCollection[domain.Participant](s, CollectionParticipants) {
		if p.QuizID == quizID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

// UpsertResult keeps the participant snapshot of an existing result and only
// refreshes score and date.
func (s *Store) UpsertResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := load[domain.QuizResult](s, CollectionResults)
	if err != nil {
		return err
	}
	found := false
	for i := range results {
		if results[i].QuizID == result.QuizID {
			results[i].Score = result.Score
			results[i].Date = result.Date
			found = true
		}
	}
	if !found {
		if result.Participants == nil {
			result.Participants = []domain.ParticipantSnapshot{}
		}
		results = append(results, result)
	}
	return WriteCollection(s, CollectionResults, results)
}

// ListResults returns all results, newest first.
func (s *Store) ListResults(_ context.Context) ([]domain.QuizResult, error) {
	results := ReadCollection[domain.QuizResult](s, CollectionResults)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.After(results[j].Date)
	})
	return results, nil
}

// ClearResults deletes the results collection.
func (s *Store) ClearResults(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Delete(CollectionResults)
}
