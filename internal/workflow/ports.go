package workflow

import (
	"context"

	"oims/pkg/model"
)

// ResourceDirectory lists the resources a booking can reserve and the
// projects a booking can be attached to.
type ResourceDirectory interface {
	ListEquipment(ctx context.Context, filter model.EquipmentFilter) ([]model.Equipment, error)
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	ListProjects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error)
}

// AvailabilityOracle answers whether a resource is free for a time window.
// Timestamps are ISO-8601 local time strings without an offset.
type AvailabilityOracle interface {
	CheckAvailability(ctx context.Context, resourceType model.ResourceType, resourceID int, startTime, endTime string) (bool, error)
}

// BookingStore creates and updates slot and booking records. FindOrCreateSlot
// is at-least-once, not atomic: two callers racing on the same window can
// both create a slot.
type BookingStore interface {
	FindOrCreateSlot(ctx context.Context, req model.SlotRequest) (*model.Slot, error)
	CreateEquipmentBooking(ctx context.Context, req model.EquipmentBookingRequest) (*model.Booking, error)
	UpdateEquipmentBooking(ctx context.Context, id int, req model.EquipmentBookingRequest) (*model.Booking, error)
	CreateWorkspaceBooking(ctx context.Context, req model.WorkspaceBookingRequest) (*model.Booking, error)
	UpdateWorkspaceBooking(ctx context.Context, id int, req model.WorkspaceBookingRequest) (*model.Booking, error)
	GetBookingByID(ctx context.Context, id int) (*model.Booking, error)
}
