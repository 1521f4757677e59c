// Package codec maps canonical entities to the snake_case rows used by the
// relational store and back. Optional fields always encode as an explicit
// null so updates compare unambiguously.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"quiz-sync-service/internal/domain"
)

// SessionRow mirrors a quiz_sessions row.
type SessionRow struct {
	QuizID      string     `json:"quiz_id"`
	QuizType    string     `json:"quiz_type"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ParticipantRow mirrors a participants row.
type ParticipantRow struct {
	QuizID   string    `json:"quiz_id"`
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name"`
	Email    *string   `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
	Browser  string    `json:"browser"`
	Status   string    `json:"status"`
}

// SnapshotRow is one element of the participants JSONB column of quiz_results.
type SnapshotRow struct {
	Name     string    `json:"name"`
	Email    *string   `json:"email"`
	DeviceID string    `json:"device_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// ResultRow mirrors a quiz_results row; Participants holds the raw JSONB.
type ResultRow struct {
	QuizID         string    `json:"quiz_id"`
	QuizType       string    `json:"quiz_type"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Date           time.Time `json:"date"`
	Participants   []byte    `json:"-"`
}

func SessionToRow(s domain.QuizSession) SessionRow {
	return SessionRow{
		QuizID:      s.QuizID,
		QuizType:    string(s.QuizType),
		CreatedAt:   s.CreatedAt,
		Status:      string(s.Status),
		CompletedAt: copyTime(s.CompletedAt),
	}
}

func SessionFromRow(r SessionRow) domain.QuizSession {
	return domain.QuizSession{
		QuizID:      r.QuizID,
		QuizType:    domain.QuizType(r.QuizType),
		CreatedAt:   r.CreatedAt,
		Status:      domain.SessionStatus(r.Status),
		CompletedAt: copyTime(r.CompletedAt),
	}
}

func ParticipantToRow(p domain.Participant) ParticipantRow {
	return ParticipantRow{
		QuizID:   p.QuizID,
		DeviceID: p.DeviceID,
		Name:     p.Name,
		Email:    NormalizeEmail(p.Email),
		JoinedAt: p.JoinedAt,
		Browser:  p.Browser,
		Status:   string(p.Status),
	}
}

func ParticipantFromRow(r ParticipantRow) domain.Participant {
	return domain.Participant{
		QuizID:   r.QuizID,
		DeviceID: r.DeviceID,
		Name:     r.Name,
		Email:    NormalizeEmail(r.Email),
		JoinedAt: r.JoinedAt,
		Browser:  r.Browser,
		Status:   domain.ParticipantStatus(r.Status),
	}
}

// ResultToRow encodes the participant snapshot as a JSON array. A nil
// snapshot encodes as [] so the column is never null.
func ResultToRow(r domain.QuizResult) (ResultRow, error) {
	snaps := make([]SnapshotRow, 0, len(r.Participants))
	for _, p := range r.Participants {
		snaps = append(snaps, SnapshotRow{
			Name:     p.Name,
			Email:    NormalizeEmail(p.Email),
			DeviceID: p.DeviceID,
			JoinedAt: p.JoinedAt,
		})
	}
	raw, err := json.Marshal(snaps)
	if err != nil {
		return ResultRow{}, fmt.Errorf("encode participants: %w", err)
	}
	return ResultRow{
		QuizID:         r.QuizID,
		QuizType:       string(r.QuizType),
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Date:           r.Date,
		Participants:   raw,
	}, nil
}

func ResultFromRow(r ResultRow) (domain.QuizResult, error) {
	var snaps []SnapshotRow
	if len(r.Participants) > 0 {
		if err := json.Unmarshal(r.Participants, &snaps); err != nil {
			return domain.QuizResult{}, fmt.Errorf("decode participants: %w", err)
		}
	}
	participants := make([]domain.ParticipantSnapshot, 0, len(snaps))
	for _, s := range snaps {
		participants = append(participants, domain.ParticipantSnapshot{
			Name:     s.Name,
			Email:    NormalizeEmail(s.Email),
			DeviceID: s.DeviceID,
			JoinedAt: s.JoinedAt,
		})
	}
	return domain.QuizResult{
		QuizID:         r.QuizID,
		QuizType:       domain.QuizType(r.QuizType),
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Date:           r.Date,
		Participants:   participants,
	}, nil
}

// NormalizeEmail turns an empty address into nil and copies the rest.
func NormalizeEmail(email *string) *string {
	if email == nil || *email == "" {
		return nil
	}
	v := *email
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
