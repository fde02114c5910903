package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"atendimento_backend/internal/agents"
	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/attendance/queue"
	"atendimento_backend/internal/attendance/repository"
	"atendimento_backend/internal/attendance/sla"
	"atendimento_backend/internal/config"
	"atendimento_backend/internal/events"
	sectorsrepo "atendimento_backend/internal/sectors/repository"
	"atendimento_backend/platform/apperr"
	"atendimento_backend/platform/logger"

	"github.com/google/uuid"
)

type memStore struct {
	mu        sync.Mutex
	contacts  map[uuid.UUID]domain.Contact
	transfers map[uuid.UUID][]domain.TransferRecord

	// failSaves forces the next n SaveContact calls to return a conflict.
	failSaves int

	nameChanges int
	completions int

	handleSeconds map[uuid.UUID]float64
}

func newMemStore() *memStore {
	return &memStore{
		contacts:      make(map[uuid.UUID]domain.Contact),
		transfers:     make(map[uuid.UUID][]domain.TransferRecord),
		handleSeconds: make(map[uuid.UUID]float64),
	}
}

func (m *memStore) CreateContact(_ context.Context, p repository.CreateContactParams) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c := domain.Contact{
		ID:          uuid.New(),
		DisplayName: p.DisplayName,
		Phone:       p.Phone,
		SectorID:    p.SectorID,
		Status:      domain.StatusQueued,
		Cycle:       1,
		ArrivedAt:   now,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.contacts[c.ID] = c
	return c, nil
}

func (m *memStore) GetContact(_ context.Context, id uuid.UUID) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return domain.Contact{}, apperr.NotFound("contact not found")
	}
	return c, nil
}

func (m *memStore) SaveContact(_ context.Context, c domain.Contact) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(c)
}

func (m *memStore) saveLocked(c domain.Contact) (domain.Contact, error) {
	current, ok := m.contacts[c.ID]
	if !ok {
		return domain.Contact{}, apperr.NotFound("contact not found")
	}
	if m.failSaves > 0 {
		m.failSaves--
		return domain.Contact{}, apperr.Conflict("the contact changed concurrently")
	}
	if current.Version != c.Version {
		return domain.Contact{}, apperr.Conflict("the contact changed concurrently")
	}
	c.Version++
	c.UpdatedAt = time.Now()
	m.contacts[c.ID] = c
	return c, nil
}

func (m *memStore) SaveContactWithTransfer(_ context.Context, c domain.Contact, rec domain.TransferRecord) (domain.Contact, domain.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved, err := m.saveLocked(c)
	if err != nil {
		return domain.Contact{}, domain.TransferRecord{}, err
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.transfers[c.ID] = append(m.transfers[c.ID], rec)
	return saved, rec, nil
}

func (m *memStore) ListQueuedContacts(_ context.Context) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contact
	for _, c := range m.contacts {
		if c.Status == domain.StatusQueued {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListTransfers(_ context.Context, contactID uuid.UUID) ([]domain.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfers[contactID], nil
}

func (m *memStore) RecordNameChange(_ context.Context, _ uuid.UUID, _, _ string, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameChanges++
	return nil
}

func (m *memStore) RecordCompletion(_ context.Context, _ domain.Contact, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions++
	return nil
}

func (m *memStore) AgentWorkload(_ context.Context, agentID uuid.UUID) (repository.Workload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := repository.Workload{AgentID: agentID}
	for _, c := range m.contacts {
		if c.Status == domain.StatusInProgress && c.OwnerID != nil && *c.OwnerID == agentID {
			w.InProgress++
		}
	}
	return w, nil
}

func (m *memStore) CountInProgressByAgent(_ context.Context) (map[uuid.UUID]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for _, c := range m.contacts {
		if c.Status == domain.StatusInProgress && c.OwnerID != nil {
			counts[*c.OwnerID]++
		}
	}
	return counts, nil
}

func (m *memStore) AgentAverageHandleSeconds(_ context.Context) (map[uuid.UUID]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]float64, len(m.handleSeconds))
	for k, v := range m.handleSeconds {
		out[k] = v
	}
	return out, nil
}

type fakeSectors struct {
	byID map[uuid.UUID]sectorsrepo.Sector
}

func (f *fakeSectors) GetByID(_ context.Context, id uuid.UUID) (sectorsrepo.Sector, error) {
	s, ok := f.byID[id]
	if !ok {
		return sectorsrepo.Sector{}, apperr.NotFound("sector not found")
	}
	return s, nil
}

type fakeAgents struct {
	ordered []agents.Agent
}

func (f *fakeAgents) GetByID(_ context.Context, id uuid.UUID) (agents.Agent, error) {
	for _, a := range f.ordered {
		if a.ID == id {
			return a, nil
		}
	}
	return agents.Agent{}, apperr.NotFound("agent not found")
}

func (f *fakeAgents) ListBySector(_ context.Context, sectorID *uuid.UUID) ([]agents.Agent, error) {
	var out []agents.Agent
	for _, a := range f.ordered {
		if sectorID == nil || (a.SectorID != nil && *a.SectorID == *sectorID) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePresence struct {
	status map[uuid.UUID]agents.Presence
}

func (f *fakePresence) Status(_ context.Context, agentID uuid.UUID) (agents.Presence, error) {
	if s, ok := f.status[agentID]; ok {
		return s, nil
	}
	return agents.PresenceAway, nil
}

type harness struct {
	svc      *Service
	store    *memStore
	index    *queue.Index
	sectors  *fakeSectors
	agents   *fakeAgents
	presence *fakePresence
	bus      *events.InMemoryBus
	cfg      *config.Config
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			EntryRule:         config.EntryRuleOnFirstMessage,
			BalancingStrategy: config.BalanceRoundRobin,
		}
	}
	log := logger.New("development")
	h := &harness{
		store:    newMemStore(),
		index:    queue.NewIndex(),
		sectors:  &fakeSectors{byID: make(map[uuid.UUID]sectorsrepo.Sector)},
		agents:   &fakeAgents{},
		presence: &fakePresence{status: make(map[uuid.UUID]agents.Presence)},
		bus:      events.NewInMemoryBus(log),
		cfg:      cfg,
	}
	monitor := sla.NewMonitor(sla.Thresholds{QueueWait: 30 * time.Minute, NoResponse: 15 * time.Minute})
	h.svc = New(h.store, h.index, h.sectors, h.agents, h.presence, monitor,
		h.bus, cfg, log)
	return h
}

func (h *harness) addSector(acceptsChat, autoDistribute bool) uuid.UUID {
	id := uuid.New()
	h.sectors.byID[id] = sectorsrepo.Sector{
		ID:             id,
		Name:           "sector",
		AcceptsChat:    acceptsChat,
		AutoDistribute: autoDistribute,
	}
	return id
}

func (h *harness) addAgent(sectorID *uuid.UUID, presence agents.Presence) uuid.UUID {
	id := uuid.New()
	h.agents.ordered = append(h.agents.ordered, agents.Agent{
		ID:          id,
		DisplayName: "agent",
		Role:        agents.RoleAgent,
		SectorID:    sectorID,
		CreatedAt:   time.Now().Add(time.Duration(len(h.agents.ordered)) * time.Minute),
	})
	h.presence.status[id] = presence
	return id
}

func (h *harness) receive(t *testing.T, sectorID *uuid.UUID) domain.Contact {
	t.Helper()
	c, err := h.svc.ReceiveContact(context.Background(), ReceiveContactParams{
		DisplayName: "Maria",
		Phone:       "+5511988887777",
		SectorID:    sectorID,
	})
	if err != nil {
		t.Fatalf("receive contact: %v", err)
	}
	return c
}

func TestReceiveContactQueuesByDefault(t *testing.T) {
	h := newHarness(t, nil)
	sectorID := h.addSector(true, false)

	c := h.receive(t, &sectorID)
	if c.Status != domain.StatusQueued {
		t.Fatalf("status = %s, want queued", c.Status)
	}
	if !h.index.Contains(c.ID) {
		t.Fatalf("received contact missing from the queue index")
	}
	if c.Cycle != 1 {
		t.Fatalf("cycle = %d, want 1", c.Cycle)
	}
}

func TestReceiveContactRejectsChatlessSector(t *testing.T) {
	h := newHarness(t, nil)
	sectorID := h.addSector(false, false)

	_, err := h.svc.ReceiveContact(context.Background(), ReceiveContactParams{
		DisplayName: "Maria",
		Phone:       "+5511988887777",
		SectorID:    &sectorID,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignPromotesAndDequeues(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	actor := uuid.New()
	assigned, err := h.svc.Assign(context.Background(), c.ID, agentID, &actor)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", assigned.Status)
	}
	if assigned.OwnerID == nil || *assigned.OwnerID != agentID {
		t.Fatalf("owner = %v, want %s", assigned.OwnerID, agentID)
	}
	if h.index.Contains(c.ID) {
		t.Fatalf("assigned contact still in queue index")
	}
	if reason := assigned.ValidateOwnership(); reason != "" {
		t.Fatalf("ownership invariant broken: %s", reason)
	}
}

func TestConcurrentAssignsYieldOneOwner(t *testing.T) {
	h := newHarness(t, nil)
	a1 := h.addAgent(nil, agents.PresenceOnline)
	a2 := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, agentID := range []uuid.UUID{a1, a2} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := h.svc.Assign(context.Background(), c.ID, id, nil)
			errs <- err
		}(agentID)
	}
	wg.Wait()
	close(errs)

	var wins, rejections int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindNotQueued):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || rejections != 1 {
		t.Fatalf("wins = %d rejections = %d, want exactly one of each", wins, rejections)
	}
}

func TestOpenPromotesOnlyUnderOnOpenRule(t *testing.T) {
	t.Run("on_open promotes", func(t *testing.T) {
		h := newHarness(t, &config.Config{EntryRule: config.EntryRuleOnOpen})
		agentID := h.addAgent(nil, agents.PresenceOnline)
		c := h.receive(t, nil)

		got, err := h.svc.OpenConversation(context.Background(), c.ID, agentID)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if got.Status != domain.StatusInProgress {
			t.Fatalf("status = %s, want in_progress", got.Status)
		}
	})

	t.Run("on_first_message leaves open inert", func(t *testing.T) {
		h := newHarness(t, nil)
		agentID := h.addAgent(nil, agents.PresenceOnline)
		c := h.receive(t, nil)
		if _, err := h.svc.RecordInboundMessage(context.Background(), c.ID, time.Now()); err != nil {
			t.Fatalf("inbound: %v", err)
		}

		got, err := h.svc.OpenConversation(context.Background(), c.ID, agentID)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if got.Status != domain.StatusQueued {
			t.Fatalf("status = %s, want queued", got.Status)
		}
		if got.UnreadCount != 0 {
			t.Fatalf("open must clear the unread counter, got %d", got.UnreadCount)
		}

		// The matching trigger does promote.
		got, err = h.svc.SendFirstMessage(context.Background(), c.ID, agentID)
		if err != nil {
			t.Fatalf("first message: %v", err)
		}
		if got.Status != domain.StatusInProgress {
			t.Fatalf("status = %s, want in_progress", got.Status)
		}
	})
}

func TestPromotionSurvivesQueueIndexDrift(t *testing.T) {
	h := newHarness(t, &config.Config{EntryRule: config.EntryRuleOnOpen})
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	started := make(chan events.Event, 1)
	h.bus.Subscribe(events.AttendanceStarted{}.EventName(), events.HandlerFunc(
		func(_ context.Context, e events.Event) error {
			started <- e
			return nil
		}))

	// The contact is queued in the store but the index lost track of it.
	h.index.Dequeue(c.ID)

	got, err := h.svc.OpenConversation(context.Background(), c.ID, agentID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.Status != domain.StatusInProgress || got.OwnerID == nil || *got.OwnerID != agentID {
		t.Fatalf("promotion did not happen: %+v", got)
	}

	select {
	case e := <-started:
		ev, ok := e.(events.AttendanceStarted)
		if !ok || ev.ContactID != c.ID {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("promotion emitted no assignment event")
	}

	// A repeated open on the now-owned contact must not emit again.
	if _, err := h.svc.OpenConversation(context.Background(), c.ID, agentID); err != nil {
		t.Fatalf("second open: %v", err)
	}
	select {
	case e := <-started:
		t.Fatalf("repeated open re-emitted %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInboundOnCompletedOpensNewCycle(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.svc.Complete(context.Background(), c.ID, agentID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := h.svc.RecordInboundMessage(context.Background(), c.ID, time.Now())
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if got.Status != domain.StatusQueued {
		t.Fatalf("status = %s, want queued", got.Status)
	}
	if got.Cycle != 2 {
		t.Fatalf("cycle = %d, want 2", got.Cycle)
	}
	if got.OwnerID != nil {
		t.Fatalf("re-opened contact must have no owner")
	}
	if got.CompletedAt != nil {
		t.Fatalf("re-opened contact must clear its completion timestamp")
	}
	if !h.index.Contains(c.ID) {
		t.Fatalf("re-opened contact missing from the queue index")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	first, err := h.svc.Complete(context.Background(), c.ID, agentID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	second, err := h.svc.Complete(context.Background(), c.ID, agentID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", second.Status)
	}
	if first.CompletedAt == nil || second.CompletedAt == nil || !first.CompletedAt.Equal(*second.CompletedAt) {
		t.Fatalf("second complete changed the completion timestamp")
	}
	if h.store.completions != 1 {
		t.Fatalf("completions recorded = %d, want 1", h.store.completions)
	}
}

func TestCompleteRejectsQueuedContact(t *testing.T) {
	h := newHarness(t, nil)
	c := h.receive(t, nil)

	_, err := h.svc.Complete(context.Background(), c.ID, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid-transition, got %v", err)
	}
}

func TestMutateRetriesOneConflict(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	h.store.failSaves = 1
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign should survive one conflict: %v", err)
	}

	h.store.failSaves = 2
	_, err := h.svc.Rename(context.Background(), c.ID, "Ana", uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict after retry budget, got %v", err)
	}
}

func TestRenameAuditsChange(t *testing.T) {
	h := newHarness(t, nil)
	c := h.receive(t, nil)

	got, err := h.svc.Rename(context.Background(), c.ID, "Ana Clara", uuid.New())
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got.DisplayName != "Ana Clara" {
		t.Fatalf("name = %q", got.DisplayName)
	}
	if h.store.nameChanges != 1 {
		t.Fatalf("name changes recorded = %d, want 1", h.store.nameChanges)
	}

	// Renaming to the same value writes no audit entry.
	if _, err := h.svc.Rename(context.Background(), c.ID, "Ana Clara", uuid.New()); err != nil {
		t.Fatalf("same-name rename: %v", err)
	}
	if h.store.nameChanges != 1 {
		t.Fatalf("same-name rename must not audit, got %d entries", h.store.nameChanges)
	}
}

func TestAutoDistributeRoundRobinRotates(t *testing.T) {
	h := newHarness(t, &config.Config{EntryRule: config.EntryRuleAuto, BalancingStrategy: config.BalanceRoundRobin})
	a1 := h.addAgent(nil, agents.PresenceOnline)
	a2 := h.addAgent(nil, agents.PresenceOnline)
	h.addAgent(nil, agents.PresenceAway)

	var owners []uuid.UUID
	for i := 0; i < 3; i++ {
		c := h.receive(t, nil)
		if c.Status != domain.StatusInProgress || c.OwnerID == nil {
			t.Fatalf("contact %d not auto-assigned: %+v", i, c)
		}
		owners = append(owners, *c.OwnerID)
	}
	want := []uuid.UUID{a1, a2, a1}
	for i := range want {
		if owners[i] != want[i] {
			t.Fatalf("owner[%d] = %s, want %s", i, owners[i], want[i])
		}
	}
}

func TestAutoDistributeShortestQueue(t *testing.T) {
	h := newHarness(t, &config.Config{EntryRule: config.EntryRuleAuto, BalancingStrategy: config.BalanceShortestQueue})
	a1 := h.addAgent(nil, agents.PresenceOnline)
	a2 := h.addAgent(nil, agents.PresenceOnline)

	// Load the first agent so the second is the shorter queue.
	busy := h.receive(t, nil)
	if busy.OwnerID == nil || *busy.OwnerID != a1 {
		t.Fatalf("setup: first contact went to %v, want %s", busy.OwnerID, a1)
	}

	c := h.receive(t, nil)
	if c.OwnerID == nil || *c.OwnerID != a2 {
		t.Fatalf("owner = %v, want least-loaded agent %s", c.OwnerID, a2)
	}
}

func TestAutoDistributeSeniorityPicksOldestAgent(t *testing.T) {
	h := newHarness(t, &config.Config{EntryRule: config.EntryRuleAuto, BalancingStrategy: config.BalanceSeniority})
	senior := h.addAgent(nil, agents.PresenceOnline)
	h.addAgent(nil, agents.PresenceOnline)

	for i := 0; i < 2; i++ {
		c := h.receive(t, nil)
		if c.OwnerID == nil || *c.OwnerID != senior {
			t.Fatalf("owner = %v, want most senior %s", c.OwnerID, senior)
		}
		if _, err := h.svc.Complete(context.Background(), c.ID, senior); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
}

func TestAutoDistributeFallsBackToQueueWhenNobodyOnline(t *testing.T) {
	h := newHarness(t, &config.Config{EntryRule: config.EntryRuleAuto, BalancingStrategy: config.BalanceRoundRobin})
	h.addAgent(nil, agents.PresenceBusy)
	h.addAgent(nil, agents.PresenceAway)

	c := h.receive(t, nil)
	if c.Status != domain.StatusQueued {
		t.Fatalf("status = %s, want queued when nobody is online", c.Status)
	}
	if !h.index.Contains(c.ID) {
		t.Fatalf("unassignable contact missing from the queue index")
	}
}

func TestSectorFlagOverridesEntryRule(t *testing.T) {
	h := newHarness(t, nil) // global rule is on_first_message
	sectorID := h.addSector(true, true)
	agentID := h.addAgent(&sectorID, agents.PresenceOnline)

	c := h.receive(t, &sectorID)
	if c.Status != domain.StatusInProgress || c.OwnerID == nil || *c.OwnerID != agentID {
		t.Fatalf("auto-distribute sector did not assign: %+v", c)
	}
}

func beginTransfer(t *testing.T, h *harness, contactID uuid.UUID, dest domain.Destination, actor uuid.UUID) domain.PendingTransfer {
	t.Helper()
	pt, err := h.svc.BeginTransfer(context.Background(), contactID, dest, actor)
	if err != nil {
		t.Fatalf("begin transfer: %v", err)
	}
	return pt
}

func TestTransferToSectorRequeuesWithoutOwner(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	destSector := h.addSector(true, false)
	c := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pt := beginTransfer(t, h, c.ID, domain.Destination{Kind: domain.DestinationSector, SectorID: &destSector}, agentID)

	got, err := h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonForaDoEscopoDoSetor, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got.Status != domain.StatusQueued {
		t.Fatalf("status = %s, want queued", got.Status)
	}
	if got.OwnerID != nil {
		t.Fatalf("transferred contact must have no owner")
	}
	if got.SectorID == nil || *got.SectorID != destSector {
		t.Fatalf("sector = %v, want %s", got.SectorID, destSector)
	}
	if !h.index.Contains(c.ID) {
		t.Fatalf("requeued contact missing from the queue index")
	}

	recs, err := h.svc.ListTransfers(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list transfers: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("transfer records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.PreviousAgent == nil || *rec.PreviousAgent != agentID {
		t.Fatalf("previous agent = %v, want %s", rec.PreviousAgent, agentID)
	}
	if rec.NewSector == nil || *rec.NewSector != destSector {
		t.Fatalf("new sector = %v, want %s", rec.NewSector, destSector)
	}
	if rec.Reason != domain.ReasonForaDoEscopoDoSetor {
		t.Fatalf("reason = %s", rec.Reason)
	}

	// The token is single use.
	_, err = h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonOutro, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found on token reuse, got %v", err)
	}
}

func TestTransferToAgentKeepsInProgress(t *testing.T) {
	h := newHarness(t, nil)
	from := h.addAgent(nil, agents.PresenceOnline)
	to := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), c.ID, from, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pt := beginTransfer(t, h, c.ID, domain.Destination{Kind: domain.DestinationAgent, AgentID: &to}, from)
	got, err := h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonNecessitaEspecialista, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got.Status)
	}
	if got.OwnerID == nil || *got.OwnerID != to {
		t.Fatalf("owner = %v, want %s", got.OwnerID, to)
	}
	if h.index.Contains(c.ID) {
		t.Fatalf("agent-to-agent transfer must not enter a queue")
	}
}

func TestTransferToGeneralPoolClearsSector(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	sectorID := h.addSector(true, false)
	c := h.receive(t, &sectorID)
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pt := beginTransfer(t, h, c.ID, domain.Destination{Kind: domain.DestinationGeneralPool}, agentID)
	got, err := h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonBalanceamentoDeFila, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got.SectorID != nil {
		t.Fatalf("general pool transfer must clear the sector, got %v", got.SectorID)
	}
	if got.Status != domain.StatusQueued || got.OwnerID != nil {
		t.Fatalf("contact not in the general queue: %+v", got)
	}
}

func TestCommitTransferRequiresJustification(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	other := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pt := beginTransfer(t, h, c.ID, domain.Destination{Kind: domain.DestinationAgent, AgentID: &other}, agentID)

	_, err := h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, "", nil)
	if !apperr.Is(err, apperr.KindMissingJustification) {
		t.Fatalf("expected missing-justification for empty reason, got %v", err)
	}
	_, err = h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, "porque_sim", nil)
	if !apperr.Is(err, apperr.KindMissingJustification) {
		t.Fatalf("expected missing-justification for unknown reason, got %v", err)
	}

	// A rejected justification consumes nothing: the selection still commits.
	got, err := h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonOutro, nil)
	if err != nil {
		t.Fatalf("commit after rejected reasons: %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != other {
		t.Fatalf("owner = %v, want %s", got.OwnerID, other)
	}
}

func TestAbandonTransferLeavesContactUntouched(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	destSector := h.addSector(true, false)
	c := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pt := beginTransfer(t, h, c.ID, domain.Destination{Kind: domain.DestinationSector, SectorID: &destSector}, agentID)
	if err := h.svc.AbandonTransfer(pt.Token); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	got, err := h.svc.GetContact(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusInProgress || got.OwnerID == nil || *got.OwnerID != agentID {
		t.Fatalf("abandoned transfer mutated the contact: %+v", got)
	}

	_, err = h.svc.CommitTransfer(context.Background(), c.ID, pt.Token, domain.ReasonOutro, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found after abandon, got %v", err)
	}
	if err := h.svc.AbandonTransfer(pt.Token); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found on double abandon, got %v", err)
	}
}

func TestBeginTransferRejectsSelfAndIdle(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	c := h.receive(t, nil)

	// Queued contacts cannot be transferred.
	_, err := h.svc.BeginTransfer(context.Background(), c.ID,
		domain.Destination{Kind: domain.DestinationGeneralPool}, agentID)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid-transition for queued contact, got %v", err)
	}

	if _, err := h.svc.Assign(context.Background(), c.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err = h.svc.BeginTransfer(context.Background(), c.ID,
		domain.Destination{Kind: domain.DestinationAgent, AgentID: &agentID}, agentID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for self transfer, got %v", err)
	}
}

func TestRebuildQueueIndexRestoresQueuedContacts(t *testing.T) {
	h := newHarness(t, nil)
	agentID := h.addAgent(nil, agents.PresenceOnline)
	queued := h.receive(t, nil)
	owned := h.receive(t, nil)
	if _, err := h.svc.Assign(context.Background(), owned.ID, agentID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// A fresh index simulates a restart.
	h.index.Rebuild(nil)
	if err := h.svc.RebuildQueueIndex(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !h.index.Contains(queued.ID) {
		t.Fatalf("queued contact missing after rebuild")
	}
	if h.index.Contains(owned.ID) {
		t.Fatalf("owned contact must not be in the rebuilt index")
	}
}
