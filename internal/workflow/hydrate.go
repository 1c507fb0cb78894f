package workflow

import (
	"context"
	"fmt"
	"time"

	apperrors "oims/pkg/errors"
	"oims/pkg/model"
)

// Hydrate rebuilds the draft from the booking this workflow was opened to
// edit: the resource type is inferred from whichever reference the booking
// carries, the resource object is resolved against the directory (falling
// back to the embedded detail object), and the window comes either from the
// booking's direct timestamps or from its slot's (date, start, end) triple.
// The availability verdict is then re-established with a fresh check so the
// edit never starts from a stale one.
func (w *Workflow) Hydrate(ctx context.Context) error {
	if w.editBookingID == 0 {
		return ErrNotEditing
	}

	booking, err := w.deps.Store.GetBookingByID(ctx, w.editBookingID)
	if err != nil {
		return apperrors.Transport("booking store", err)
	}

	kind, err := booking.Kind()
	if err != nil {
		return apperrors.Internal("could not determine booking resource type", err)
	}

	draft := model.BookingDraft{
		ResourceType:      kind,
		Purpose:           booking.Purpose,
		Notes:             booking.Notes,
		ParticipantsCount: booking.ParticipantsCount,
	}

	switch kind {
	case model.ResourceEquipment:
		draft.Equipment, err = w.resolveEquipment(ctx, booking)
	case model.ResourceWorkspace:
		draft.Workspace, err = w.resolveWorkspace(ctx, booking)
		if draft.ParticipantsCount < 1 {
			draft.ParticipantsCount = 1
		}
	}
	if err != nil {
		return err
	}

	draft.StartTime, draft.EndTime, err = bookingWindow(booking)
	if err != nil {
		return apperrors.Internal("could not derive booking time window", err)
	}

	w.mu.Lock()
	w.draft = draft
	w.availability = model.AvailabilityResult{}
	w.verdictSnap = nil
	w.fieldErrors = map[string]string{}
	w.state = StateEditing
	w.mu.Unlock()

	return w.CheckAvailability(ctx)
}

func (w *Workflow) resolveEquipment(ctx context.Context, booking *model.Booking) (*model.Equipment, error) {
	items, err := w.deps.Directory.ListEquipment(ctx, model.EquipmentFilter{Status: model.EquipmentAvailable})
	if err != nil {
		return nil, apperrors.Transport("resource directory", err)
	}
	for i := range items {
		if items[i].ID == *booking.Equipment {
			return &items[i], nil
		}
	}
	if booking.EquipmentDetails != nil {
		return booking.EquipmentDetails, nil
	}
	return nil, apperrors.NotFoundWithID("equipment", fmt.Sprintf("%d", *booking.Equipment))
}

func (w *Workflow) resolveWorkspace(ctx context.Context, booking *model.Booking) (*model.Workspace, error) {
	items, err := w.deps.Directory.ListWorkspaces(ctx)
	if err != nil {
		return nil, apperrors.Transport("resource directory", err)
	}
	for i := range items {
		if items[i].ID == *booking.Workspace {
			return &items[i], nil
		}
	}
	if booking.WorkspaceDetails != nil {
		return booking.WorkspaceDetails, nil
	}
	return nil, apperrors.NotFoundWithID("workspace", fmt.Sprintf("%d", *booking.Workspace))
}

func bookingWindow(booking *model.Booking) (time.Time, time.Time, error) {
	if booking.StartTime != "" && booking.EndTime != "" {
		start, err := parseBookingTime(booking.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := parseBookingTime(booking.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	if booking.SlotDetails != nil {
		start, err := model.CombineSlotTimes(booking.SlotDetails.Date, booking.SlotDetails.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := model.CombineSlotTimes(booking.SlotDetails.Date, booking.SlotDetails.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("booking %d has neither direct times nor slot details", booking.ID)
}

// parseBookingTime accepts the backend's local ISO-8601 timestamps and, for
// older records, RFC3339 with an offset.
func parseBookingTime(s string) (time.Time, error) {
	if t, err := model.ParseTimestamp(s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
