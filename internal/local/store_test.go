package local_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
	"quiz-sync-service/internal/local"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestReadCollectionNeverWritten(t *testing.T) {
	store := local.NewStore(memory.NewCollectionStore())

	got := local.ReadCollection[domain.Participant](store, local.CollectionParticipants)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCorruptCollectionReadsAsEmpty(t *testing.T) {
	backend := memory.NewCollectionStore()
	_ = backend.Save(local.CollectionResults, []byte("{not json"))
	store := local.NewStore(backend)

	if got := local.ReadCollection[domain.QuizResult](store, local.CollectionResults); len(got) != 0 {
		t.Fatalf("expected empty results, got %+v", got)
	}

	// Writing over a corrupt collection repairs it.
	ctx := context.Background()
	if err := store.UpsertResult(ctx, domain.QuizResult{QuizID: "quiz_1", Score: 10, Date: base}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	results, _ := store.ListResults(ctx)
	if len(results) != 1 || results[0].QuizID != "quiz_1" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestInsertParticipantReplacesSameDevice(t *testing.T) {
	ctx := context.Background()
	store := local.NewStore(memory.NewCollectionStore())

	_ = store.InsertParticipant(ctx, participant("quiz_1", "dev_a", "Ana", base))
	_ = store.InsertParticipant(ctx, participant("quiz_1", "dev_b", "Ben", base.Add(time.Second)))
	_ = store.InsertParticipant(ctx, participant("quiz_2", "dev_a", "Ana", base))
	_ = store.InsertParticipant(ctx, participant("quiz_1", "dev_a", "Ana Maria", base.Add(2*time.Second)))

	got, err := store.ListParticipants(ctx, "quiz_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 participants, got %+v", got)
	}
	if got[0].Name != "Ben" || got[1].Name != "Ana Maria" {
		t.Fatalf("expected join order Ben, Ana Maria; got %s, %s", got[0].Name, got[1].Name)
	}

	all := local.ReadCollection[domain.Participant](store, local.CollectionParticipants)
	if len(all) != 3 {
		t.Fatalf("expected 3 records across quizzes, got %d", len(all))
	}
}

func TestUpdateParticipantStatusUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewCollectionStore()
	store := local.NewStore(backend)

	if err := store.UpdateParticipantStatus(ctx, "quiz_x", "dev_x", domain.ParticipantActive); err != nil {
		t.Fatalf("update: %v", err)
	}
	if data, _ := backend.Load(local.CollectionParticipants); data != nil {
		t.Fatalf("expected no collection written, got %s", data)
	}

	_ = store.InsertParticipant(ctx, participant("quiz_1", "dev_a", "Ana", base))
	_ = store.UpdateParticipantStatus(ctx, "quiz_1", "dev_a", domain.ParticipantActive)
	got, _ := store.ListParticipants(ctx, "quiz_1")
	if len(got) != 1 || got[0].Status != domain.ParticipantActive {
		t.Fatalf("expected active participant, got %+v", got)
	}
}

func TestUpsertSessionKeepsIdentityFields(t *testing.T) {
	ctx := context.Background()
	store := local.NewStore(memory.NewCollectionStore())

	_ = store.UpsertSession(ctx, domain.QuizSession{
		QuizID: "quiz_1", QuizType: domain.QuizTypeFinal, CreatedAt: base, Status: domain.SessionActive,
	})
	done := base.Add(time.Hour)
	_ = store.UpsertSession(ctx, domain.QuizSession{
		QuizID: "quiz_1", QuizType: domain.QuizTypeRefresh, Status: domain.SessionCompleted, CompletedAt: &done,
	})

	sessions := local.ReadCollection[domain.QuizSession](store, local.CollectionSessions)
	if len(sessions) != 1 {
		t.Fatalf("expected a single session row, got %d", len(sessions))
	}
	s := sessions[0]
	if s.Status != domain.SessionCompleted || s.CompletedAt == nil || !s.CompletedAt.Equal(done) {
		t.Fatalf("expected completed session, got %+v", s)
	}
	if s.QuizType != domain.QuizTypeFinal || !s.CreatedAt.Equal(base) {
		t.Fatalf("identity fields changed: %+v", s)
	}

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertResultKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := local.NewStore(memory.NewCollectionStore())

	snap := []domain.ParticipantSnapshot{{Name: "Ana", DeviceID: "dev_a", JoinedAt: base}}
	_ = store.UpsertResult(ctx, domain.QuizResult{QuizID: "quiz_1", Score: 10, TotalQuestions: 3, Date: base, Participants: snap})
	_ = store.UpsertResult(ctx, domain.QuizResult{QuizID: "quiz_2", Score: 30, TotalQuestions: 3, Date: base.Add(time.Minute)})
	_ = store.UpsertResult(ctx, domain.QuizResult{QuizID: "quiz_1", Score: 20, TotalQuestions: 3, Date: base.Add(2 * time.Minute)})

	results, _ := store.ListResults(ctx)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].QuizID != "quiz_1" || results[0].Score != 20 {
		t.Fatalf("expected updated quiz_1 first, got %+v", results[0])
	}
	if len(results[0].Participants) != 1 || results[0].Participants[0].Name != "Ana" {
		t.Fatalf("expected snapshot preserved, got %+v", results[0].Participants)
	}
	if results[1].Participants == nil {
		t.Fatalf("expected empty snapshot to be stored as []")
	}

	if err := store.ClearResults(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if results, _ := store.ListResults(ctx); len(results) != 0 {
		t.Fatalf("expected no results after clear, got %d", len(results))
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	backend := memory.NewCollectionStore()
	first := local.NewStore(backend).DeviceID()
	second := local.NewStore(backend).DeviceID()
	if first == "" || first != second {
		t.Fatalf("expected stable device id, got %q and %q", first, second)
	}
}

func TestBackendFailureAbortsWrite(t *testing.T) {
	store := local.NewStore(failingBackend{})
	err := store.InsertParticipant(context.Background(), participant("quiz_1", "dev_a", "Ana", base))
	if err == nil {
		t.Fatalf("expected backend error")
	}
	if got, _ := store.ListParticipants(context.Background(), "quiz_1"); len(got) != 0 {
		t.Fatalf("expected empty read on failing backend")
	}
}

type failingBackend struct{}

func (failingBackend) Load(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingBackend) Save(string, []byte) error   { return errors.New("disk gone") }
func (failingBackend) Delete(string) error         { return errors.New("disk gone") }

func participant(quizID, deviceID, name string, joined time.Time) domain.Participant {
	return domain.Participant{
		QuizID:   quizID,
		DeviceID: deviceID,
		Name:     name,
		JoinedAt: joined,
		Browser:  "test",
		Status:   domain.ParticipantJoined,
	}
}
