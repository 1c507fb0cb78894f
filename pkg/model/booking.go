package model

import "fmt"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Slot is a reusable (date, start_time, end_time) window shared by bookings
// occupying the same period. Slots are looked up by exact match and created
// lazily when absent.
type Slot struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04:05"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04:05"`
}

// Booking is the persisted reservation as the backend returns it. It is a
// tagged variant: exactly one of Equipment/Workspace is populated, and that
// reference is the discriminant. Times come either as direct start_time and
// end_time fields or through the referenced slot's details.
type Booking struct {
	ID                int           `json:"id"`
	Equipment         *int          `json:"equipment,omitempty"`
	Workspace         *int          `json:"workspace,omitempty"`
	EquipmentDetails  *Equipment    `json:"equipment_details,omitempty"`
	WorkspaceDetails  *Workspace    `json:"workspace_details,omitempty"`
	Slot              *int          `json:"slot,omitempty"`
	SlotDetails       *Slot         `json:"slot_details,omitempty"`
	StartTime         string        `json:"start_time,omitempty"`
	EndTime           string        `json:"end_time,omitempty"`
	Purpose           string        `json:"purpose"`
	Notes             string        `json:"notes,omitempty"`
	ParticipantsCount int           `json:"participants_count,omitempty"`
	ProjectName       string        `json:"project_name,omitempty"`
	Status            BookingStatus `json:"status,omitempty"`
	User              int           `json:"user,omitempty"`
	CreatedAt         string        `json:"created_at,omitempty"`
}

// Kind resolves the booking's resource type from whichever resource
// reference is populated. When both are set (a backend inconsistency),
// equipment wins.
func (b *Booking) Kind() (ResourceType, error) {
	switch {
	case b.Equipment != nil:
		return ResourceEquipment, nil
	case b.Workspace != nil:
		return ResourceWorkspace, nil
	default:
		return "", fmt.Errorf("booking %d references neither equipment nor workspace", b.ID)
	}
}

// ResourceID returns the id of whichever resource the booking reserves.
func (b *Booking) ResourceID() int {
	if b.Equipment != nil {
		return *b.Equipment
	}
	if b.Workspace != nil {
		return *b.Workspace
	}
	return 0
}

type EquipmentBookingRequest struct {
	Slot      int    `json:"slot" validate:"required"`
	Equipment int    `json:"equipment" validate:"required"`
	Purpose   string `json:"purpose" validate:"required,min=1,max=500"`
	Notes     string `json:"notes"`
}

type WorkspaceBookingRequest struct {
	Slot              int    `json:"slot" validate:"required"`
	Workspace         int    `json:"workspace" validate:"required"`
	Purpose           string `json:"purpose" validate:"required,min=1,max=500"`
	Notes             string `json:"notes"`
	ParticipantsCount int    `json:"participants_count" validate:"required,min=1"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}
