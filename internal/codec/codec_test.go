package codec

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"quiz-sync-service/internal/domain"
)

func TestParticipantRowKeepsNullEmail(t *testing.T) {
	p := domain.Participant{
		QuizID:   "quiz_1",
		DeviceID: "dev_a",
		Name:     "Ana",
		JoinedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Browser:  "Mozilla/5.0",
		Status:   domain.ParticipantJoined,
	}

	raw, err := json.Marshal(ParticipantToRow(p))
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	got := string(raw)
	for _, want := range []string{`"email":null`, `"device_id":"dev_a"`, `"quiz_id":"quiz_1"`, `"joined_at":`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}

	back := ParticipantFromRow(ParticipantToRow(p))
	if back != p {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, p)
	}
}

func TestEmptyEmailBecomesNull(t *testing.T) {
	empty := ""
	row := ParticipantToRow(domain.Participant{QuizID: "q", DeviceID: "d", Name: "n", Email: &empty})
	if row.Email != nil {
		t.Fatalf("expected nil email, got %q", *row.Email)
	}
}

func TestResultRowEncodesSnapshot(t *testing.T) {
	email := "ana@example.com"
	joined := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := domain.QuizResult{
		QuizID:         "quiz_1",
		QuizType:       domain.QuizTypeRefresh,
		Score:          20,
		TotalQuestions: 3,
		Date:           joined.Add(time.Hour),
		Participants: []domain.ParticipantSnapshot{
			{Name: "Ana", Email: &email, DeviceID: "dev_a", JoinedAt: joined},
			{Name: "Ben", DeviceID: "dev_b", JoinedAt: joined.Add(time.Minute)},
		},
	}

	row, err := ResultToRow(result)
	if err != nil {
		t.Fatalf("to row: %v", err)
	}
	if !strings.Contains(string(row.Participants), `"device_id":"dev_b","joined_at"`) {
		t.Fatalf("unexpected snapshot json %s", row.Participants)
	}

	back, err := ResultFromRow(row)
	if err != nil {
		t.Fatalf("from row: %v", err)
	}
	if len(back.Participants) != 2 || back.Participants[0].Name != "Ana" || *back.Participants[0].Email != email {
		t.Fatalf("unexpected participants %+v", back.Participants)
	}
	if back.Participants[1].Email != nil {
		t.Fatalf("expected null email for Ben")
	}
}

func TestResultRowWithoutParticipants(t *testing.T) {
	row, err := ResultToRow(domain.QuizResult{QuizID: "quiz_2"})
	if err != nil {
		t.Fatalf("to row: %v", err)
	}
	if string(row.Participants) != "[]" {
		t.Fatalf("expected empty array, got %s", row.Participants)
	}

	back, err := ResultFromRow(ResultRow{QuizID: "quiz_2"})
	if err != nil {
		t.Fatalf("from row: %v", err)
	}
	if back.Participants == nil || len(back.Participants) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", back.Participants)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	done := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	s := domain.QuizSession{
		QuizID:      "quiz_1",
		QuizType:    domain.QuizTypeFinal,
		CreatedAt:   done.Add(-time.Hour),
		Status:      domain.SessionCompleted,
		CompletedAt: &done,
	}
	back := SessionFromRow(SessionToRow(s))
	if back.QuizID != s.QuizID || back.Status != s.Status || !back.CompletedAt.Equal(done) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.CompletedAt == s.CompletedAt {
		t.Fatalf("expected completedAt to be copied")
	}
}
