package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"oims/internal/gateway/repository"
	"oims/internal/workflow"
	"oims/internal/workflow/validator"
	"oims/pkg/kafka"
	"oims/pkg/logger"
	"oims/pkg/model"
)

type stubDirectory struct {
	equipment  []model.Equipment
	workspaces []model.Workspace
	projects   []model.Project
	err        error
}

func (d *stubDirectory) ListEquipment(ctx context.Context, filter model.EquipmentFilter) ([]model.Equipment, error) {
	return d.equipment, d.err
}

func (d *stubDirectory) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return d.workspaces, d.err
}

func (d *stubDirectory) ListProjects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error) {
	return d.projects, d.err
}

type stubOracle struct {
	available bool
	err       error
}

func (o *stubOracle) CheckAvailability(ctx context.Context, rt model.ResourceType, id int, start, end string) (bool, error) {
	return o.available, o.err
}

type stubStore struct {
	booking *model.Booking
	getErr  error
}

func (s *stubStore) FindOrCreateSlot(ctx context.Context, req model.SlotRequest) (*model.Slot, error) {
	return &model.Slot{ID: 55, Date: req.Date, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

func (s *stubStore) CreateEquipmentBooking(ctx context.Context, req model.EquipmentBookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: 77, Equipment: &req.Equipment, Slot: &req.Slot, Purpose: req.Purpose, Status: model.BookingPending}, nil
}

func (s *stubStore) UpdateEquipmentBooking(ctx context.Context, id int, req model.EquipmentBookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: id, Equipment: &req.Equipment, Slot: &req.Slot, Purpose: req.Purpose, Status: model.BookingPending}, nil
}

func (s *stubStore) CreateWorkspaceBooking(ctx context.Context, req model.WorkspaceBookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: 78, Workspace: &req.Workspace, Slot: &req.Slot, Purpose: req.Purpose, Status: model.BookingPending}, nil
}

func (s *stubStore) UpdateWorkspaceBooking(ctx context.Context, id int, req model.WorkspaceBookingRequest) (*model.Booking, error) {
	return &model.Booking{ID: id, Workspace: &req.Workspace, Slot: &req.Slot, Purpose: req.Purpose, Status: model.BookingPending}, nil
}

func (s *stubStore) GetBookingByID(ctx context.Context, id int) (*model.Booking, error) {
	return s.booking, s.getErr
}

type mockSessionRepo struct {
	upsertFunc        func(ctx context.Context, record *repository.SessionRecord) error
	findByIDFunc      func(ctx context.Context, id string) (*repository.SessionRecord, error)
	deleteFunc        func(ctx context.Context, id string) error
	deleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockSessionRepo) Upsert(ctx context.Context, record *repository.SessionRecord) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, record)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*repository.SessionRecord, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

type capturePublisher struct {
	messages []kafka.Message
	err      error
}

func (p *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.messages = append(p.messages, msg)
	return p.err
}

func newTestManager(t *testing.T, deps Deps) *SessionManager {
	t.Helper()
	if deps.Validator == nil {
		deps.Validator = validator.NewDraftValidator(nil)
	}
	if deps.Log == nil {
		deps.Log = logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Output: io.Discard})
	}
	m := NewSessionManager(deps)
	t.Cleanup(m.Stop)
	return m
}

func baseDeps() Deps {
	return Deps{
		Directory: &stubDirectory{
			equipment:  []model.Equipment{{ID: 5, Name: "Laser Cutter"}},
			workspaces: []model.Workspace{{ID: 3, Name: "Studio B", Capacity: 8}},
			projects:   []model.Project{{ID: 2, Title: "Prototype"}},
		},
		Oracle: &stubOracle{available: true},
		Store:  &stubStore{},
		TTL:    time.Hour,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestSessionManager_CreateAndGet(t *testing.T) {
	var persisted *repository.SessionRecord
	deps := baseDeps()
	deps.Repo = &mockSessionRepo{
		upsertFunc: func(ctx context.Context, record *repository.SessionRecord) error {
			persisted = record
			return nil
		},
	}
	m := newTestManager(t, deps)

	id, view, err := m.Create(context.Background(), 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}
	if view.State != workflow.StateEditing {
		t.Errorf("new session state = %s, want %s", view.State, workflow.StateEditing)
	}
	if persisted == nil || persisted.ID != id {
		t.Error("session should be persisted on create")
	}

	got, err := m.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.State != workflow.StateEditing {
		t.Errorf("state = %s, want %s", got.State, workflow.StateEditing)
	}
}

func TestSessionManager_GetUnknownSession(t *testing.T) {
	m := newTestManager(t, baseDeps())

	if _, err := m.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestSessionManager_ApplyResolvesResources(t *testing.T) {
	m := newTestManager(t, baseDeps())

	id, _, err := m.Create(context.Background(), 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	view, err := m.Apply(context.Background(), id, DraftPatch{
		EquipmentID: intPtr(5),
		StartTime:   strPtr("2030-06-01T10:00:00"),
		EndTime:     strPtr("2030-06-01T11:00:00"),
		Purpose:     strPtr("Test"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if view.Draft.Equipment == nil || view.Draft.Equipment.Name != "Laser Cutter" {
		t.Error("equipment id should resolve to the full directory entry")
	}
	if view.Draft.Purpose != "Test" {
		t.Errorf("purpose = %q, want Test", view.Draft.Purpose)
	}
	want := time.Date(2030, 6, 1, 10, 0, 0, 0, time.Local)
	if !view.Draft.StartTime.Equal(want) {
		t.Errorf("start = %v, want %v", view.Draft.StartTime, want)
	}
}

func TestSessionManager_ApplyUnknownEquipment(t *testing.T) {
	m := newTestManager(t, baseDeps())

	id, _, _ := m.Create(context.Background(), 0)

	if _, err := m.Apply(context.Background(), id, DraftPatch{EquipmentID: intPtr(999)}); err == nil {
		t.Fatal("expected error for unknown equipment id")
	}
}

func TestSessionManager_ApplyInvalidTimestamp(t *testing.T) {
	m := newTestManager(t, baseDeps())

	id, _, _ := m.Create(context.Background(), 0)

	if _, err := m.Apply(context.Background(), id, DraftPatch{StartTime: strPtr("junk")}); err == nil {
		t.Fatal("expected error for malformed start_time")
	}
}

func TestSessionManager_RestoreFromRepository(t *testing.T) {
	draft := model.BookingDraft{
		ResourceType:      model.ResourceEquipment,
		Equipment:         &model.Equipment{ID: 5},
		StartTime:         time.Date(2030, 6, 1, 10, 0, 0, 0, time.Local),
		EndTime:           time.Date(2030, 6, 1, 11, 0, 0, 0, time.Local),
		Purpose:           "Restored",
		ParticipantsCount: 1,
	}

	deps := baseDeps()
	deps.Repo = &mockSessionRepo{
		findByIDFunc: func(ctx context.Context, id string) (*repository.SessionRecord, error) {
			return &repository.SessionRecord{
				ID:        id,
				State:     string(workflow.StateAvailabilityConfirmed),
				Draft:     draft,
				CreatedAt: time.Now().Add(-time.Hour),
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	m := newTestManager(t, deps)

	view, err := m.Get(context.Background(), "restored-session")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if view.Draft.Purpose != "Restored" {
		t.Errorf("purpose = %q, want Restored", view.Draft.Purpose)
	}
	// Persisted verdicts never survive a restore.
	if view.Availability.Checked {
		t.Error("restored session must come back with availability unchecked")
	}
	if view.State != workflow.StateEditing {
		t.Errorf("restored state = %s, want %s", view.State, workflow.StateEditing)
	}
}

func TestSessionManager_ExpiredRecordNotRestored(t *testing.T) {
	deps := baseDeps()
	deps.Repo = &mockSessionRepo{
		findByIDFunc: func(ctx context.Context, id string) (*repository.SessionRecord, error) {
			return &repository.SessionRecord{
				ID:        id,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	m := newTestManager(t, deps)

	if _, err := m.Get(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestSessionManager_SubmitPublishesEvent(t *testing.T) {
	publisher := &capturePublisher{}
	deps := baseDeps()
	deps.Producer = publisher
	m := newTestManager(t, deps)

	id, _, _ := m.Create(context.Background(), 0)
	if _, err := m.Apply(context.Background(), id, DraftPatch{
		EquipmentID: intPtr(5),
		StartTime:   strPtr("2030-06-01T10:00:00"),
		EndTime:     strPtr("2030-06-01T11:00:00"),
		Purpose:     strPtr("Test"),
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if _, err := m.CheckAvailability(context.Background(), id); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	view, err := m.Submit(context.Background(), id)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if view.State != workflow.StateSubmitted {
		t.Errorf("state = %s, want %s", view.State, workflow.StateSubmitted)
	}

	if len(publisher.messages) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.Key != id {
		t.Errorf("event key = %q, want the session id", msg.Key)
	}
	if msg.GetEventType() != EventTypeBookingSubmitted {
		t.Errorf("event type = %q, want %s", msg.GetEventType(), EventTypeBookingSubmitted)
	}

	var event SubmissionEvent
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.BookingID != 77 || event.ResourceID != 5 {
		t.Errorf("event = %+v, want booking 77 for equipment 5", event)
	}
}

func TestSessionManager_SubmitWithoutVerdictPublishesNothing(t *testing.T) {
	publisher := &capturePublisher{}
	deps := baseDeps()
	deps.Producer = publisher
	m := newTestManager(t, deps)

	id, _, _ := m.Create(context.Background(), 0)
	if _, err := m.Apply(context.Background(), id, DraftPatch{
		EquipmentID: intPtr(5),
		StartTime:   strPtr("2030-06-01T10:00:00"),
		EndTime:     strPtr("2030-06-01T11:00:00"),
		Purpose:     strPtr("Test"),
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if _, err := m.Submit(context.Background(), id); !errors.Is(err, workflow.ErrAvailabilityNotConfirmed) {
		t.Fatalf("expected ErrAvailabilityNotConfirmed, got %v", err)
	}
	if len(publisher.messages) != 0 {
		t.Error("no event may be published for a rejected submit")
	}
}

func TestSessionManager_PublishFailureDoesNotFailSubmit(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("broker down")}
	deps := baseDeps()
	deps.Producer = publisher
	m := newTestManager(t, deps)

	id, _, _ := m.Create(context.Background(), 0)
	if _, err := m.Apply(context.Background(), id, DraftPatch{
		EquipmentID: intPtr(5),
		StartTime:   strPtr("2030-06-01T10:00:00"),
		EndTime:     strPtr("2030-06-01T11:00:00"),
		Purpose:     strPtr("Test"),
	}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, err := m.CheckAvailability(context.Background(), id); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	view, err := m.Submit(context.Background(), id)
	if err != nil {
		t.Fatalf("a broker outage must not fail the submit: %v", err)
	}
	if view.State != workflow.StateSubmitted {
		t.Errorf("state = %s, want %s", view.State, workflow.StateSubmitted)
	}
}

func TestSessionManager_Delete(t *testing.T) {
	m := newTestManager(t, baseDeps())

	id, _, _ := m.Create(context.Background(), 0)

	if err := m.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := m.Get(context.Background(), id); err == nil {
		t.Fatal("expected error after delete")
	}
	if err := m.Delete(context.Background(), id); err == nil {
		t.Fatal("expected error deleting twice")
	}
}

func TestSessionManager_CreateInEditModeHydrates(t *testing.T) {
	eqID := 5
	slotID := 9
	deps := baseDeps()
	deps.Store = &stubStore{
		booking: &model.Booking{
			ID:        42,
			Equipment: &eqID,
			Slot:      &slotID,
			SlotDetails: &model.Slot{
				ID:        slotID,
				Date:      "2030-07-01",
				StartTime: "14:00:00",
				EndTime:   "15:00:00",
			},
			Purpose: "Milling",
		},
	}
	m := newTestManager(t, deps)

	_, view, err := m.Create(context.Background(), 42)
	if err != nil {
		t.Fatalf("create in edit mode failed: %v", err)
	}

	if view.EditBookingID != 42 {
		t.Errorf("edit booking id = %d, want 42", view.EditBookingID)
	}
	if view.Draft.Purpose != "Milling" {
		t.Errorf("purpose = %q, want Milling", view.Draft.Purpose)
	}
	if view.State != workflow.StateAvailabilityConfirmed {
		t.Errorf("state = %s, want %s after hydration", view.State, workflow.StateAvailabilityConfirmed)
	}
}

func TestSessionManager_CreateInEditModeFetchFailure(t *testing.T) {
	deps := baseDeps()
	deps.Store = &stubStore{getErr: errors.New("backend down")}
	m := newTestManager(t, deps)

	if _, _, err := m.Create(context.Background(), 42); err == nil {
		t.Fatal("expected error when the booking cannot be fetched")
	}
}
