package domain

import (
	"math"
	"time"
)

// QuizType selects the question set and time limit of a session.
type QuizType string

const (
	QuizTypeRefresh QuizType = "refresh"
	QuizTypeFinal   QuizType = "final"
)

// Valid reports whether t is a known quiz type.
func (t QuizType) Valid() bool {
	return t == QuizTypeRefresh || t == QuizTypeFinal
}

// Duration is the countdown a host gets for the quiz type.
func (t QuizType) Duration() time.Duration {
	if t == QuizTypeFinal {
		return 4 * time.Minute
	}
	return 2 * time.Minute
}

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// ParticipantStatus tracks a participant through a session.
type ParticipantStatus string

const (
	ParticipantJoined    ParticipantStatus = "joined"
	ParticipantActive    ParticipantStatus = "active"
	ParticipantCompleted ParticipantStatus = "completed"
)

// Valid reports whether s is a known participant status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantJoined, ParticipantActive, ParticipantCompleted:
		return true
	}
	return false
}

// PointsPerQuestion is awarded for every correct answer.
const PointsPerQuestion = 10

// QuizSession is one run of a quiz by a host, keyed by QuizID.
type QuizSession struct {
	QuizID      string        `json:"quizId"`
	QuizType    QuizType      `json:"quizType"`
	CreatedAt   time.Time     `json:"createdAt"`
	Status      SessionStatus `json:"status"`
	CompletedAt *time.Time    `json:"completedAt"`
}

// Participant is one device's join record within a session.
// (QuizID, DeviceID) identifies it.
type Participant struct {
	QuizID   string            `json:"quizId"`
	DeviceID string            `json:"deviceId"`
	Name     string            `json:"name"`
	Email    *string           `json:"email"`
	JoinedAt time.Time         `json:"joinedAt"`
	Browser  string            `json:"browser"`
	Status   ParticipantStatus `json:"status"`
}

// SameIdentity reports whether p and other describe the same device in the same quiz.
func (p Participant) SameIdentity(other Participant) bool {
	return p.QuizID == other.QuizID && p.DeviceID == other.DeviceID
}

// Snapshot projects the participant into the form embedded in a result.
func (p Participant) Snapshot() ParticipantSnapshot {
	return ParticipantSnapshot{
		Name:     p.Name,
		Email:    p.Email,
		DeviceID: p.DeviceID,
		JoinedAt: p.JoinedAt,
	}
}

// ParticipantSnapshot is the frozen view of a participant stored with a result.
type ParticipantSnapshot struct {
	Name     string    `json:"name"`
	Email    *string   `json:"email"`
	DeviceID string    `json:"deviceId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// QuizResult is the final record saved when a host ends a quiz.
type QuizResult struct {
	QuizID         string                `json:"quizId"`
	QuizType       QuizType              `json:"quizType"`
	Score          int                   `json:"score"`
	TotalQuestions int                   `json:"totalQuestions"`
	Date           time.Time             `json:"date"`
	Participants   []ParticipantSnapshot `json:"participants"`
}

// MaxScore is the score of a perfect run.
func (r QuizResult) MaxScore() int {
	return r.TotalQuestions * PointsPerQuestion
}

// Percentage returns the rounded share of the maximum score.
func (r QuizResult) Percentage() int {
	best := r.MaxScore()
	if best <= 0 {
		return 0
	}
	return int(math.Round(float64(r.Score) / float64(best) * 100))
}
