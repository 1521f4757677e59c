package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-sync-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// JoinRequest is what a participant's device submits from the join screen.
type JoinRequest struct {
	QuizID   string `json:"quizId" validate:"required,max=255"`
	DeviceID string `json:"deviceId" validate:"required,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Browser  string `json:"browser" validate:"max=512"`
}

// JoinResult is returned after a join attempt was recorded.
type JoinResult struct {
	Participant domain.Participant `json:"participant"`
	Session     domain.QuizSession `json:"session"`
	Rejoined    bool               `json:"rejoined"`
	Saved       bool               `json:"saved"`
}

// JoinStatus tells the join screen whether this device is already in the quiz.
type JoinStatus struct {
	Session     domain.QuizSession  `json:"session"`
	Participant *domain.Participant `json:"participant"`
}

// JoinService handles the participant side of joining a session.
type JoinService struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
}

// NewJoinService creates a join service over store.
func NewJoinService(store Store) *JoinService {
	return &JoinService{
		store:    store,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NewJoinServiceWithClock is used by tests for deterministic timestamps.
func NewJoinServiceWithClock(store Store, now func() time.Time) *JoinService {
	s := NewJoinService(store)
	s.now = now
	return s
}

// Lookup returns the session and, if this device joined before, its record.
func (s *JoinService) Lookup(ctx context.Context, quizID, deviceID string) (JoinStatus, error) {
	session, ok := s.store.GetSession(ctx, quizID)
	if !ok {
		return JoinStatus{}, domain.ErrSessionNotFound
	}
	status := JoinStatus{Session: session}
	if deviceID == "" {
		return status, nil
	}
	for _, p := range s.store.GetParticipants(ctx, quizID) {
		if p.DeviceID == deviceID {
			p := p
			status.Participant = &p
			break
		}
	}
	return status, nil
}

// Join validates the request before touching storage, then records the
// participant with status joined. Joining again from the same device
// replaces the earlier record.
func (s *JoinService) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return JoinResult{}, toValidationError(err)
	}

	status, err := s.Lookup(ctx, req.QuizID, req.DeviceID)
	if err != nil {
		return JoinResult{}, err
	}

	participant := domain.Participant{
		QuizID:   req.QuizID,
		DeviceID: req.DeviceID,
		Name:     req.Name,
		JoinedAt: s.now().UTC(),
		Browser:  req.Browser,
		Status:   domain.ParticipantJoined,
	}
	if req.Email != "" {
		email := req.Email
		participant.Email = &email
	}
	return JoinResult{
		Participant: participant,
		Session:     status.Session,
		Rejoined:    status.Participant != nil,
		Saved:       s.store.SaveParticipant(ctx, participant),
	}, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch {
	case fe.Field() == "Name" && fe.Tag() == "required":
		return &domain.ValidationError{Field: field, Message: "Please enter your name"}
	case fe.Field() == "Email":
		return &domain.ValidationError{Field: field, Message: "Please enter a valid email address"}
	case fe.Tag() == "required":
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	case fe.Tag() == "max":
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("%s is too long", field)}
	}
	return &domain.ValidationError{Field: field, Message: fmt.Sprintf("%s is invalid", field)}
}
