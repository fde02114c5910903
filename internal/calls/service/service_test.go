package service

import (
	"context"
	"testing"
	"time"

	"atendimento_backend/internal/calls/domain"
	"atendimento_backend/internal/calls/repository"
	"atendimento_backend/internal/events"
	"atendimento_backend/platform/apperr"
	"atendimento_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	calls map[uuid.UUID]domain.Call
	notes map[uuid.UUID][]domain.Note
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls: make(map[uuid.UUID]domain.Call),
		notes: make(map[uuid.UUID][]domain.Note),
	}
}

func (f *fakeStore) Create(_ context.Context, p repository.CreateParams) (domain.Call, error) {
	c := domain.Call{
		ID:        uuid.New(),
		ContactID: p.ContactID,
		AgentID:   p.AgentID,
		SectorID:  p.SectorID,
		Number:    p.Number,
		Status:    domain.StatusDialing,
		StartedAt: time.Now(),
	}
	f.calls[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Call, error) {
	c, ok := f.calls[id]
	if !ok {
		return domain.Call{}, apperr.NotFound("call not found")
	}
	return c, nil
}

func (f *fakeStore) Advance(_ context.Context, id uuid.UUID, from, to domain.Status,
	connectedAt, finishedAt *time.Time, durationSeconds *int64) (domain.Call, error) {
	c, ok := f.calls[id]
	if !ok || c.Status != from {
		return domain.Call{}, apperr.Conflict("the call changed state concurrently")
	}
	c.Status = to
	if connectedAt != nil {
		c.ConnectedAt = connectedAt
	}
	if finishedAt != nil {
		c.FinishedAt = finishedAt
	}
	if durationSeconds != nil {
		c.DurationSeconds = durationSeconds
	}
	f.calls[id] = c
	return c, nil
}

func (f *fakeStore) AddNote(_ context.Context, callID, authorID uuid.UUID, body string) (domain.Note, error) {
	n := domain.Note{ID: uuid.New(), CallID: callID, AuthorID: authorID, Body: body, CreatedAt: time.Now()}
	f.notes[callID] = append(f.notes[callID], n)
	return n, nil
}

func (f *fakeStore) ListNotes(_ context.Context, callID uuid.UUID) ([]domain.Note, error) {
	return f.notes[callID], nil
}

func (f *fakeStore) ListByContact(_ context.Context, contactID uuid.UUID) ([]domain.Call, error) {
	var out []domain.Call
	for _, c := range f.calls {
		if c.ContactID != nil && *c.ContactID == contactID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeContacts struct {
	known map[uuid.UUID]bool
}

func (f *fakeContacts) Exists(_ context.Context, id uuid.UUID) error {
	if !f.known[id] {
		return apperr.NotFound("contact not found")
	}
	return nil
}

func newTestService(store *fakeStore, contacts *fakeContacts) *Service {
	log := logger.New("development")
	return New(store, contacts, events.NewInMemoryBus(log), log)
}

func TestStartRequiresKnownContactWhenLinked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	missing := uuid.New()
	_, err := svc.Start(context.Background(), StartParams{
		ContactID: &missing,
		AgentID:   uuid.New(),
		Number:    "+5511999990000",
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found for unknown linked contact, got %v", err)
	}
}

func TestStartWithoutContactLink(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, err := svc.Start(context.Background(), StartParams{
		AgentID: uuid.New(),
		Number:  "+5511999990000",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if call.Status != domain.StatusDialing {
		t.Fatalf("new call status = %s, want dialing", call.Status)
	}
	if call.ContactID != nil {
		t.Fatalf("unlinked call must have no contact")
	}
}

func TestAdvanceRejectsIllegalStep(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, err := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// dialing -> ended skips connected and must be rejected.
	_, err = svc.Advance(context.Background(), call.ID, domain.StatusEnded)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid-transition, got %v", err)
	}
	got, _ := svc.GetCall(context.Background(), call.ID)
	if got.Status != domain.StatusDialing {
		t.Fatalf("rejected advance mutated status to %s", got.Status)
	}
}

func TestAdvanceToSameStatusIsNoOp(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, _ := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})
	got, err := svc.Advance(context.Background(), call.ID, domain.StatusDialing)
	if err != nil {
		t.Fatalf("advance to same status: %v", err)
	}
	if got.Status != domain.StatusDialing {
		t.Fatalf("status = %s, want dialing", got.Status)
	}
}

func TestFullLifecycleSetsDurationOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, _ := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})

	// Backdate the start so dialing and ringing time is visible in the
	// recorded duration: it measures from the start of dialing, not from
	// the connect.
	backdated := store.calls[call.ID]
	backdated.StartedAt = time.Now().Add(-90 * time.Second)
	store.calls[call.ID] = backdated

	for _, step := range []domain.Status{domain.StatusRinging, domain.StatusConnected, domain.StatusEnded} {
		var err error
		call, err = svc.Advance(context.Background(), call.ID, step)
		if err != nil {
			t.Fatalf("advance to %s: %v", step, err)
		}
	}

	if call.DurationSeconds == nil {
		t.Fatalf("terminal call must carry a duration")
	}
	if got := *call.DurationSeconds; got < 89 || got > 95 {
		t.Fatalf("duration = %ds, want ~90s measured from the start of dialing", got)
	}
	if call.FinishedAt == nil || call.ConnectedAt == nil {
		t.Fatalf("terminal call missing timestamps")
	}

	// Terminal states accept no further transitions, so the duration can
	// never be recomputed.
	_, err := svc.Advance(context.Background(), call.ID, domain.StatusConnected)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid-transition out of ended, got %v", err)
	}
}

func TestMissedCallHasZeroDuration(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, _ := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})
	call, err := svc.Advance(context.Background(), call.ID, domain.StatusRinging)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	call, err = svc.Advance(context.Background(), call.ID, domain.StatusMissed)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}

	if call.DurationSeconds == nil || *call.DurationSeconds != 0 {
		t.Fatalf("missed call duration = %v, want 0", call.DurationSeconds)
	}
	if call.ConnectedAt != nil {
		t.Fatalf("missed call must have no connected timestamp")
	}
}

func TestNotesNeverChangeStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, _ := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})
	author := uuid.New()

	if _, err := svc.AttachNote(context.Background(), call.ID, author, "tried the secondary number"); err != nil {
		t.Fatalf("attach note: %v", err)
	}

	got, _ := svc.GetCall(context.Background(), call.ID)
	if got.Status != domain.StatusDialing {
		t.Fatalf("note changed status to %s", got.Status)
	}

	notes, err := svc.ListNotes(context.Background(), call.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "tried the secondary number" {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestAttachNoteRejectsEmptyBody(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{}})

	call, _ := svc.Start(context.Background(), StartParams{AgentID: uuid.New(), Number: "+5511999990000"})
	_, err := svc.AttachNote(context.Background(), call.ID, uuid.New(), "   ")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
