package model

import "time"

// BookingDraft is the in-progress booking form. Exactly one of
// Equipment/Workspace is set, determined by ResourceType; switching the
// type clears the other reference. ParticipantsCount only applies to
// workspace bookings.
type BookingDraft struct {
	ResourceType      ResourceType `json:"resource_type" bson:"resource_type"`
	Equipment         *Equipment   `json:"equipment,omitempty" bson:"equipment,omitempty"`
	Workspace         *Workspace   `json:"workspace,omitempty" bson:"workspace,omitempty"`
	Project           *Project     `json:"project,omitempty" bson:"project,omitempty"`
	StartTime         time.Time    `json:"start_time,omitempty" bson:"start_time,omitempty"`
	EndTime           time.Time    `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Purpose           string       `json:"purpose" bson:"purpose"`
	Notes             string       `json:"notes,omitempty" bson:"notes,omitempty"`
	ParticipantsCount int          `json:"participants_count,omitempty" bson:"participants_count,omitempty"`
}

// ResourceID returns the id of the resource selected for the active
// resource type, or false when none is selected yet.
func (d *BookingDraft) ResourceID() (int, bool) {
	switch d.ResourceType {
	case ResourceEquipment:
		if d.Equipment != nil {
			return d.Equipment.ID, true
		}
	case ResourceWorkspace:
		if d.Workspace != nil {
			return d.Workspace.ID, true
		}
	}
	return 0, false
}

// AvailabilityResult caches the last availability verdict. It is only
// trustworthy for the exact (resource type, resource, window) tuple that
// produced it; any change to those fields must reset Checked.
type AvailabilityResult struct {
	Checked   bool `json:"checked" bson:"checked"`
	Available bool `json:"available" bson:"available"`
}
