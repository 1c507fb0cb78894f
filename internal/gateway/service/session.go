package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"oims/internal/gateway/repository"
	"oims/internal/workflow"
	"oims/internal/workflow/validator"
	apperrors "oims/pkg/errors"
	"oims/pkg/kafka"
	"oims/pkg/logger"
	"oims/pkg/model"

	"github.com/google/uuid"
)

const (
	sweepInterval = 10 * time.Minute

	EventTypeBookingSubmitted = "booking.submitted"
	eventSchemaVersion        = "1"
	eventSource               = "oims-gateway"
)

// Publisher is the slice of the Kafka producer the manager needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// SubmissionEvent is emitted after a booking request is accepted by the
// backend.
type SubmissionEvent struct {
	SessionID    string             `json:"session_id"`
	BookingID    int                `json:"booking_id"`
	SlotID       int                `json:"slot_id,omitempty"`
	ResourceType model.ResourceType `json:"resource_type"`
	ResourceID   int                `json:"resource_id"`
	StartTime    string             `json:"start_time"`
	EndTime      string             `json:"end_time"`
	Purpose      string             `json:"purpose"`
	EditMode     bool               `json:"edit_mode"`
	SubmittedAt  time.Time          `json:"submitted_at"`
}

type Deps struct {
	Directory workflow.ResourceDirectory
	Oracle    workflow.AvailabilityOracle
	Store     workflow.BookingStore
	Repo      repository.SessionRepository
	Producer  Publisher
	Validator *validator.DraftValidator
	Log       *logger.Logger
	TTL       time.Duration
}

type session struct {
	wf        *workflow.Workflow
	createdAt time.Time
	expiresAt time.Time
}

// SessionManager owns the live booking request workflows, keyed by session
// id. Sessions live in memory for the hot path and are mirrored to the
// repository so a draft survives a restart; restored drafts always come
// back with an unchecked availability cache.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	deps   Deps
	now    func() time.Time
	stopCh chan struct{}
}

func NewSessionManager(deps Deps) *SessionManager {
	m := &SessionManager{
		sessions: make(map[string]*session),
		deps:     deps,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go m.sweep()

	return m
}

func (m *SessionManager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stopCh:
			return
		}
	}
}

func (m *SessionManager) evictExpired() {
	now := m.now()

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.After(s.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if m.deps.Repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		deleted, err := m.deps.Repo.DeleteExpired(ctx, now)
		if err != nil {
			m.deps.Log.Error("Failed to delete expired sessions", "error", err)
			return
		}
		if deleted > 0 {
			m.deps.Log.Info("Deleted expired sessions", "count", deleted)
		}
	}
}

func (m *SessionManager) Stop() {
	close(m.stopCh)
}

func (m *SessionManager) workflowDeps() workflow.Deps {
	return workflow.Deps{
		Directory: m.deps.Directory,
		Oracle:    m.deps.Oracle,
		Store:     m.deps.Store,
		Validator: m.deps.Validator,
		Log:       m.deps.Log,
	}
}

// Create opens a new booking request session. When editBookingID is set the
// workflow hydrates from the existing booking before the session is handed
// out.
func (m *SessionManager) Create(ctx context.Context, editBookingID int) (string, workflow.View, error) {
	var opts []workflow.Option
	if editBookingID != 0 {
		opts = append(opts, workflow.WithEditBooking(editBookingID))
	}

	wf := workflow.New(m.workflowDeps(), opts...)

	if editBookingID != 0 {
		if err := wf.Hydrate(ctx); err != nil {
			return "", workflow.View{}, err
		}
	}

	id := uuid.New().String()
	now := m.now()

	m.mu.Lock()
	m.sessions[id] = &session{
		wf:        wf,
		createdAt: now,
		expiresAt: now.Add(m.deps.TTL),
	}
	m.mu.Unlock()

	m.persist(ctx, id, wf)

	m.deps.Log.Info("Booking request session created",
		"session_id", id,
		"edit_booking_id", editBookingID,
	)

	return id, wf.View(), nil
}

// Get returns the session's current view, restoring it from the repository
// if this instance has not seen it yet.
func (m *SessionManager) Get(ctx context.Context, id string) (workflow.View, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return workflow.View{}, err
	}
	return s.wf.View(), nil
}

func (m *SessionManager) lookup(ctx context.Context, id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		if m.now().After(s.expiresAt) {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
			return nil, apperrors.NotFoundWithID("booking request session", id)
		}
		return s, nil
	}

	return m.restore(ctx, id)
}

func (m *SessionManager) restore(ctx context.Context, id string) (*session, error) {
	if m.deps.Repo == nil {
		return nil, apperrors.NotFoundWithID("booking request session", id)
	}

	record, err := m.deps.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundWithID("booking request session", id)
	}
	if m.now().After(record.ExpiresAt) {
		return nil, apperrors.NotFoundWithID("booking request session", id)
	}

	opts := []workflow.Option{workflow.WithDraft(record.Draft)}
	if record.EditBookingID != 0 {
		opts = append(opts, workflow.WithEditBooking(record.EditBookingID))
	}

	// A restored session reopens in editing mode with availability
	// unchecked; any verdict from a previous process is stale.
	s := &session{
		wf:        workflow.New(m.workflowDeps(), opts...),
		createdAt: record.CreatedAt,
		expiresAt: record.ExpiresAt,
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		s = existing
	} else {
		m.sessions[id] = s
	}
	m.mu.Unlock()

	m.deps.Log.Info("Booking request session restored", "session_id", id)
	return s, nil
}

// DraftPatch carries the fields a PATCH request may change. Nil means
// leave the field alone.
type DraftPatch struct {
	ResourceType      *model.ResourceType `json:"resource_type,omitempty"`
	EquipmentID       *int                `json:"equipment,omitempty"`
	WorkspaceID       *int                `json:"workspace,omitempty"`
	ProjectID         *int                `json:"project,omitempty"`
	StartTime         *string             `json:"start_time,omitempty"`
	EndTime           *string             `json:"end_time,omitempty"`
	Purpose           *string             `json:"purpose,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	ParticipantsCount *int                `json:"participants_count,omitempty"`
}

// Apply mutates the session draft field by field. Resource references are
// resolved against the directory so the draft carries full objects, not
// bare ids.
func (m *SessionManager) Apply(ctx context.Context, id string, patch DraftPatch) (workflow.View, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return workflow.View{}, err
	}

	if patch.ResourceType != nil {
		if err := s.wf.SetResourceType(*patch.ResourceType); err != nil {
			return workflow.View{}, err
		}
	}

	if patch.EquipmentID != nil {
		eq, err := m.resolveEquipment(ctx, *patch.EquipmentID)
		if err != nil {
			return workflow.View{}, err
		}
		s.wf.SetEquipment(eq)
	}

	if patch.WorkspaceID != nil {
		ws, err := m.resolveWorkspace(ctx, *patch.WorkspaceID)
		if err != nil {
			return workflow.View{}, err
		}
		s.wf.SetWorkspace(ws)
	}

	if patch.ProjectID != nil {
		if *patch.ProjectID == 0 {
			s.wf.SetProject(nil)
		} else {
			p, err := m.resolveProject(ctx, *patch.ProjectID)
			if err != nil {
				return workflow.View{}, err
			}
			s.wf.SetProject(p)
		}
	}

	if patch.StartTime != nil {
		t, err := model.ParseTimestamp(*patch.StartTime)
		if err != nil {
			return workflow.View{}, apperrors.Validation("invalid start_time", map[string]any{
				"start_time": *patch.StartTime,
			})
		}
		s.wf.SetStartTime(t)
	}

	if patch.EndTime != nil {
		t, err := model.ParseTimestamp(*patch.EndTime)
		if err != nil {
			return workflow.View{}, apperrors.Validation("invalid end_time", map[string]any{
				"end_time": *patch.EndTime,
			})
		}
		s.wf.SetEndTime(t)
	}

	if patch.Purpose != nil {
		s.wf.SetPurpose(*patch.Purpose)
	}
	if patch.Notes != nil {
		s.wf.SetNotes(*patch.Notes)
	}
	if patch.ParticipantsCount != nil {
		s.wf.SetParticipantsCount(*patch.ParticipantsCount)
	}

	m.persist(ctx, id, s.wf)

	return s.wf.View(), nil
}

func (m *SessionManager) resolveEquipment(ctx context.Context, id int) (*model.Equipment, error) {
	items, err := m.deps.Directory.ListEquipment(ctx, model.EquipmentFilter{})
	if err != nil {
		return nil, apperrors.Transport("inventory service", err)
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, apperrors.NotFoundWithID("equipment", strconv.Itoa(id))
}

func (m *SessionManager) resolveWorkspace(ctx context.Context, id int) (*model.Workspace, error) {
	items, err := m.deps.Directory.ListWorkspaces(ctx)
	if err != nil {
		return nil, apperrors.Transport("booking service", err)
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, apperrors.NotFoundWithID("workspace", strconv.Itoa(id))
}

func (m *SessionManager) resolveProject(ctx context.Context, id int) (*model.Project, error) {
	items, err := m.deps.Directory.ListProjects(ctx, model.ProjectFilter{})
	if err != nil {
		return nil, apperrors.Transport("project service", err)
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, apperrors.NotFoundWithID("project", strconv.Itoa(id))
}

// CheckAvailability runs the availability check for the session.
func (m *SessionManager) CheckAvailability(ctx context.Context, id string) (workflow.View, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return workflow.View{}, err
	}

	err = s.wf.CheckAvailability(ctx)
	m.persist(ctx, id, s.wf)
	return s.wf.View(), err
}

// Submit submits the session's booking request. On success a submission
// event is published; publishing is best effort and never fails the
// request itself.
func (m *SessionManager) Submit(ctx context.Context, id string) (workflow.View, error) {
	s, err := m.lookup(ctx, id)
	if err != nil {
		return workflow.View{}, err
	}

	err = s.wf.Submit(ctx)
	m.persist(ctx, id, s.wf)

	view := s.wf.View()
	if err == nil && view.Result != nil {
		m.publishSubmission(ctx, id, view)
	}
	return view, err
}

func (m *SessionManager) publishSubmission(ctx context.Context, id string, view workflow.View) {
	if m.deps.Producer == nil {
		return
	}

	resourceID, _ := view.Draft.ResourceID()
	event := SubmissionEvent{
		SessionID:    id,
		BookingID:    view.Result.ID,
		ResourceType: view.Draft.ResourceType,
		ResourceID:   resourceID,
		StartTime:    model.FormatTimestamp(view.Draft.StartTime),
		EndTime:      model.FormatTimestamp(view.Draft.EndTime),
		Purpose:      view.Draft.Purpose,
		EditMode:     view.EditBookingID != 0,
		SubmittedAt:  m.now(),
	}
	if view.Result.Slot != nil {
		event.SlotID = *view.Result.Slot
	}

	msg := kafka.NewMessage().
		WithKey(id).
		WithValue(event).
		WithEventType(EventTypeBookingSubmitted).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(eventSource).
		Build()

	if err := m.deps.Producer.Publish(ctx, msg); err != nil {
		m.deps.Log.Error("Failed to publish submission event",
			"session_id", id,
			"booking_id", view.Result.ID,
			"error", err,
		)
	}
}

// Delete removes the session from memory and the repository.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.deps.Repo != nil {
		if err := m.deps.Repo.Delete(ctx, id); err != nil {
			// In-memory removal already happened; a repo miss only matters
			// when the session was unknown on both sides.
			if !ok {
				return apperrors.NotFoundWithID("booking request session", id)
			}
			m.deps.Log.Warn("Failed to delete persisted session", "session_id", id, "error", err)
		}
		return nil
	}

	if !ok {
		return apperrors.NotFoundWithID("booking request session", id)
	}
	return nil
}

func (m *SessionManager) persist(ctx context.Context, id string, wf *workflow.Workflow) {
	if m.deps.Repo == nil {
		return
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	view := wf.View()
	record := &repository.SessionRecord{
		ID:            id,
		State:         string(view.State),
		Draft:         view.Draft,
		EditBookingID: view.EditBookingID,
		CreatedAt:     s.createdAt,
		ExpiresAt:     s.expiresAt,
	}
	if view.Result != nil {
		record.ResultID = view.Result.ID
	}

	if err := m.deps.Repo.Upsert(ctx, record); err != nil {
		m.deps.Log.Error("Failed to persist session", "session_id", id, "error", err)
	}
}

// Resources exposes the directory listings for the form's pickers.
func (m *SessionManager) Equipment(ctx context.Context, filter model.EquipmentFilter) ([]model.Equipment, error) {
	items, err := m.deps.Directory.ListEquipment(ctx, filter)
	if err != nil {
		return nil, apperrors.Transport("inventory service", err)
	}
	return items, nil
}

func (m *SessionManager) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	items, err := m.deps.Directory.ListWorkspaces(ctx)
	if err != nil {
		return nil, apperrors.Transport("booking service", err)
	}
	return items, nil
}

func (m *SessionManager) Projects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error) {
	items, err := m.deps.Directory.ListProjects(ctx, filter)
	if err != nil {
		return nil, apperrors.Transport("project service", err)
	}
	return items, nil
}
