package service

import (
	"context"

	"oims/pkg/client"
	"oims/pkg/model"
)

// Backend adapts the typed OIMS API clients to the collaborator interfaces
// the booking workflow depends on.
type Backend struct {
	client *client.Client
}

func NewBackend(c *client.Client) *Backend {
	return &Backend{client: c}
}

func (b *Backend) ListEquipment(ctx context.Context, filter model.EquipmentFilter) ([]model.Equipment, error) {
	resp, err := b.client.Inventory.GetEquipment(ctx, filter)
	if err != nil {
		return nil, err
	}
	return b.client.Inventory.DecodeEquipmentList(resp)
}

func (b *Backend) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	resp, err := b.client.Booking.GetWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeWorkspaces(resp)
}

func (b *Backend) ListProjects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error) {
	resp, err := b.client.Project.GetProjects(ctx, filter)
	if err != nil {
		return nil, err
	}
	return b.client.Project.DecodeProjects(resp)
}

func (b *Backend) CheckAvailability(ctx context.Context, resourceType model.ResourceType, resourceID int, startTime, endTime string) (bool, error) {
	resp, err := b.client.Booking.CheckAvailability(ctx, resourceType, resourceID, startTime, endTime)
	if err != nil {
		return false, err
	}
	availability, err := b.client.Booking.DecodeAvailability(resp)
	if err != nil {
		return false, err
	}
	return availability.Available, nil
}

func (b *Backend) FindOrCreateSlot(ctx context.Context, req model.SlotRequest) (*model.Slot, error) {
	return b.client.Booking.FindOrCreateSlot(ctx, req)
}

func (b *Backend) CreateEquipmentBooking(ctx context.Context, req model.EquipmentBookingRequest) (*model.Booking, error) {
	resp, err := b.client.Booking.CreateEquipmentBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeBooking(resp)
}

func (b *Backend) UpdateEquipmentBooking(ctx context.Context, id int, req model.EquipmentBookingRequest) (*model.Booking, error) {
	resp, err := b.client.Booking.UpdateEquipmentBooking(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeBooking(resp)
}

func (b *Backend) CreateWorkspaceBooking(ctx context.Context, req model.WorkspaceBookingRequest) (*model.Booking, error) {
	resp, err := b.client.Booking.CreateWorkspaceBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeBooking(resp)
}

func (b *Backend) UpdateWorkspaceBooking(ctx context.Context, id int, req model.WorkspaceBookingRequest) (*model.Booking, error) {
	resp, err := b.client.Booking.UpdateWorkspaceBooking(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeBooking(resp)
}

func (b *Backend) GetBookingByID(ctx context.Context, id int) (*model.Booking, error) {
	resp, err := b.client.Booking.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.client.Booking.DecodeBooking(resp)
}
