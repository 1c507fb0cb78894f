package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oims/internal/workflow/validator"
	apperrors "oims/pkg/errors"
	"oims/pkg/logger"
	"oims/pkg/model"
)

type State string

const (
	StateEditing               State = "EDITING"
	StateAvailabilityPending   State = "AVAILABILITY_PENDING"
	StateAvailabilityConfirmed State = "AVAILABILITY_CONFIRMED"
	StateAvailabilityRejected  State = "AVAILABILITY_REJECTED"
	StateSubmitting            State = "SUBMITTING"
	StateSubmitted             State = "SUBMITTED"
	StateSubmitFailed          State = "SUBMIT_FAILED"
)

// requestSnapshot freezes the fields an availability verdict or submission
// depends on. A verdict only counts if its snapshot still equals the draft
// at the moment it is used.
type requestSnapshot struct {
	resourceType model.ResourceType
	resourceID   int
	start        time.Time
	end          time.Time
}

func (s requestSnapshot) matches(other requestSnapshot) bool {
	return s.resourceType == other.resourceType &&
		s.resourceID == other.resourceID &&
		s.start.Equal(other.start) &&
		s.end.Equal(other.end)
}

type Deps struct {
	Directory ResourceDirectory
	Oracle    AvailabilityOracle
	Store     BookingStore
	Validator *validator.DraftValidator
	Log       *logger.Logger
}

// Workflow drives a single booking request from resource selection through
// availability confirmation to submission. Field mutations are synchronous
// and always permitted; CheckAvailability and Submit are single-flight, and
// a verdict that arrives after the draft changed underneath it is discarded.
type Workflow struct {
	mu sync.Mutex

	state        State
	draft        model.BookingDraft
	availability model.AvailabilityResult
	verdictSnap  *requestSnapshot
	fieldErrors  map[string]string
	message      string
	inFlight     bool

	editBookingID int
	result        *model.Booking

	deps Deps
	now  func() time.Time
}

type Option func(*Workflow)

// WithEditBooking puts the workflow in edit mode for an existing booking.
// Hydrate fetches the booking and rebuilds the draft from it.
func WithEditBooking(id int) Option {
	return func(w *Workflow) {
		w.editBookingID = id
	}
}

// WithClock overrides the time source used for defaults and the
// past-start validation rule.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// WithDraft seeds the draft, e.g. when restoring a persisted session. The
// availability cache deliberately starts unchecked: a restored verdict
// could be stale.
func WithDraft(d model.BookingDraft) Option {
	return func(w *Workflow) {
		w.draft = d
	}
}

func New(deps Deps, opts ...Option) *Workflow {
	w := &Workflow{
		state:       StateEditing,
		fieldErrors: map[string]string{},
		deps:        deps,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.draft.ResourceType == "" {
		w.draft = defaultDraft(w.now())
	}

	return w
}

func defaultDraft(now time.Time) model.BookingDraft {
	return model.BookingDraft{
		ResourceType:      model.ResourceEquipment,
		StartTime:         now.Add(time.Hour),
		EndTime:           now.Add(3 * time.Hour),
		ParticipantsCount: 1,
	}
}

// View is a point-in-time copy of the workflow for callers to render.
type View struct {
	State         State                    `json:"state"`
	Draft         model.BookingDraft       `json:"draft"`
	Availability  model.AvailabilityResult `json:"availability"`
	FieldErrors   map[string]string        `json:"field_errors,omitempty"`
	Message       string                   `json:"message,omitempty"`
	EditBookingID int                      `json:"edit_booking_id,omitempty"`
	Result        *model.Booking           `json:"result,omitempty"`
}

func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	fieldErrors := make(map[string]string, len(w.fieldErrors))
	for k, v := range w.fieldErrors {
		fieldErrors[k] = v
	}

	return View{
		State:         w.state,
		Draft:         w.draft,
		Availability:  w.availability,
		FieldErrors:   fieldErrors,
		Message:       w.message,
		EditBookingID: w.editBookingID,
		Result:        w.result,
	}
}

func (w *Workflow) EditMode() bool {
	return w.editBookingID != 0
}

// SetResourceType switches between equipment and workspace. The reference
// not matching the new type is cleared; the availability cache resets.
func (w *Workflow) SetResourceType(rt model.ResourceType) error {
	if !rt.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown resource type %q", rt))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.ResourceType = rt
	if rt == model.ResourceEquipment {
		w.draft.Workspace = nil
	} else {
		w.draft.Equipment = nil
	}
	delete(w.fieldErrors, validator.FieldResourceType)
	w.invalidateLocked()
	return nil
}

func (w *Workflow) SetEquipment(eq *model.Equipment) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.Equipment = eq
	delete(w.fieldErrors, validator.FieldEquipment)
	w.invalidateLocked()
}

func (w *Workflow) SetWorkspace(ws *model.Workspace) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.Workspace = ws
	delete(w.fieldErrors, validator.FieldWorkspace)
	w.invalidateLocked()
}

func (w *Workflow) SetProject(p *model.Project) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Project association never affects availability.
	w.draft.Project = p
}

func (w *Workflow) SetStartTime(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.StartTime = t
	delete(w.fieldErrors, validator.FieldStartTime)
	w.invalidateLocked()
}

func (w *Workflow) SetEndTime(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.EndTime = t
	delete(w.fieldErrors, validator.FieldEndTime)
	w.invalidateLocked()
}

func (w *Workflow) SetPurpose(purpose string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.Purpose = purpose
	delete(w.fieldErrors, validator.FieldPurpose)
}

func (w *Workflow) SetNotes(notes string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.Notes = notes
}

func (w *Workflow) SetParticipantsCount(count int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.draft.ParticipantsCount = count
	delete(w.fieldErrors, validator.FieldParticipantsCount)
}

// invalidateLocked resets the availability verdict after a relevant field
// change. A pending oracle call keeps running against its own snapshot; its
// result will be discarded on arrival because the snapshots no longer match.
func (w *Workflow) invalidateLocked() {
	w.availability = model.AvailabilityResult{}
	w.verdictSnap = nil
	if w.state != StateSubmitting && w.state != StateSubmitted {
		w.state = StateEditing
	}
}

func (w *Workflow) snapshotLocked() requestSnapshot {
	id, _ := w.draft.ResourceID()
	return requestSnapshot{
		resourceType: w.draft.ResourceType,
		resourceID:   id,
		start:        w.draft.StartTime,
		end:          w.draft.EndTime,
	}
}

// CheckAvailability asks the oracle whether the selected resource is free
// for the draft's window. The draft must name a resource and a valid
// window; otherwise a field-keyed ValidationErrors is returned and the
// oracle is never called.
func (w *Workflow) CheckAvailability(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateSubmitted {
		w.mu.Unlock()
		return ErrAlreadySubmitted
	}
	if w.inFlight {
		w.mu.Unlock()
		return ErrRequestInFlight
	}

	if errs := w.deps.Validator.ValidateWindow(&w.draft); len(errs) > 0 {
		w.applyFieldErrorsLocked(errs)
		w.state = StateEditing
		w.mu.Unlock()
		return errs
	}

	snap := w.snapshotLocked()
	w.inFlight = true
	w.state = StateAvailabilityPending
	w.mu.Unlock()

	available, err := w.deps.Oracle.CheckAvailability(
		ctx,
		snap.resourceType,
		snap.resourceID,
		model.FormatTimestamp(snap.start),
		model.FormatTimestamp(snap.end),
	)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		w.state = StateEditing
		w.message = "Failed to check availability. Please try again."
		return apperrors.Transport("availability oracle", err)
	}

	if !snap.matches(w.snapshotLocked()) {
		// The draft moved while the check was on the wire. The verdict is
		// stale and silently dropped.
		if w.deps.Log != nil {
			w.deps.Log.Debug("Discarding stale availability verdict",
				"resource_type", snap.resourceType,
				"resource_id", snap.resourceID,
			)
		}
		if w.state == StateAvailabilityPending {
			w.state = StateEditing
		}
		return nil
	}

	w.availability = model.AvailabilityResult{Checked: true, Available: available}
	w.verdictSnap = &snap

	if available {
		w.state = StateAvailabilityConfirmed
		w.message = ""
	} else {
		w.state = StateAvailabilityRejected
		w.message = fmt.Sprintf("The selected %s is not available during the requested time period.", resourceNoun(snap.resourceType))
	}
	return nil
}

// Submit creates (or, in edit mode, updates) the booking. It refuses to run
// without a checked, positive availability verdict whose snapshot still
// equals the current draft; no collaborator is called in that case.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateSubmitted {
		w.mu.Unlock()
		return ErrAlreadySubmitted
	}
	if w.inFlight {
		w.mu.Unlock()
		return ErrRequestInFlight
	}

	if errs := w.deps.Validator.Validate(&w.draft, w.EditMode(), w.now()); len(errs) > 0 {
		w.applyFieldErrorsLocked(errs)
		w.state = StateEditing
		w.mu.Unlock()
		return errs
	}

	snap := w.snapshotLocked()
	verdictHolds := w.state == StateAvailabilityConfirmed &&
		w.availability.Checked && w.availability.Available &&
		w.verdictSnap != nil && w.verdictSnap.matches(snap)

	if !verdictHolds {
		w.availability = model.AvailabilityResult{}
		w.verdictSnap = nil
		w.state = StateEditing
		w.message = "Availability must be confirmed for the current selection before submitting."
		w.mu.Unlock()
		return ErrAvailabilityNotConfirmed
	}

	draft := w.draft
	editID := w.editBookingID
	w.inFlight = true
	w.state = StateSubmitting
	w.mu.Unlock()

	booking, err := w.performSubmit(ctx, snap, draft, editID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		// Draft and verdict survive so the user can retry without
		// re-entering anything.
		w.state = StateSubmitFailed
		w.message = "Failed to save the booking. Please try again."
		return err
	}

	w.result = booking
	w.state = StateSubmitted
	w.message = ""
	return nil
}

func (w *Workflow) performSubmit(ctx context.Context, snap requestSnapshot, draft model.BookingDraft, editID int) (*model.Booking, error) {
	slot, err := w.deps.Store.FindOrCreateSlot(ctx, model.SlotRequest{
		Date:      snap.start.Format(model.DateLayout),
		StartTime: snap.start.Format(model.ClockLayout),
		EndTime:   snap.end.Format(model.ClockLayout),
	})
	if err != nil {
		return nil, apperrors.Transport("booking store", fmt.Errorf("failed to create booking slot: %w", err))
	}

	switch snap.resourceType {
	case model.ResourceEquipment:
		req := model.EquipmentBookingRequest{
			Slot:      slot.ID,
			Equipment: snap.resourceID,
			Purpose:   draft.Purpose,
			Notes:     draft.Notes,
		}
		if editID != 0 {
			booking, err := w.deps.Store.UpdateEquipmentBooking(ctx, editID, req)
			if err != nil {
				return nil, apperrors.Transport("booking store", err)
			}
			return booking, nil
		}
		booking, err := w.deps.Store.CreateEquipmentBooking(ctx, req)
		if err != nil {
			return nil, apperrors.Transport("booking store", err)
		}
		return booking, nil

	case model.ResourceWorkspace:
		req := model.WorkspaceBookingRequest{
			Slot:              slot.ID,
			Workspace:         snap.resourceID,
			Purpose:           draft.Purpose,
			Notes:             draft.Notes,
			ParticipantsCount: draft.ParticipantsCount,
		}
		if editID != 0 {
			booking, err := w.deps.Store.UpdateWorkspaceBooking(ctx, editID, req)
			if err != nil {
				return nil, apperrors.Transport("booking store", err)
			}
			return booking, nil
		}
		booking, err := w.deps.Store.CreateWorkspaceBooking(ctx, req)
		if err != nil {
			return nil, apperrors.Transport("booking store", err)
		}
		return booking, nil

	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown resource type %q", snap.resourceType))
	}
}

func (w *Workflow) applyFieldErrorsLocked(errs validator.ValidationErrors) {
	for field, message := range errs.Fields() {
		w.fieldErrors[field] = message
	}
}

func resourceNoun(rt model.ResourceType) string {
	if rt == model.ResourceWorkspace {
		return "workspace"
	}
	return "equipment"
}
