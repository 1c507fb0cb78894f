package model

type ResourceType string

const (
	ResourceEquipment ResourceType = "EQUIPMENT"
	ResourceWorkspace ResourceType = "WORKSPACE"
)

func (rt ResourceType) Valid() bool {
	return rt == ResourceEquipment || rt == ResourceWorkspace
}

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "AVAILABLE"
	EquipmentInUse       EquipmentStatus = "IN_USE"
	EquipmentMaintenance EquipmentStatus = "MAINTENANCE"
	EquipmentRetired     EquipmentStatus = "RETIRED"
)

type Equipment struct {
	ID           int             `json:"id"`
	Name         string          `json:"name" validate:"required,min=2,max=200"`
	SerialNumber string          `json:"serial_number,omitempty"`
	Category     int             `json:"category,omitempty"`
	Lab          string          `json:"lab,omitempty"`
	Status       EquipmentStatus `json:"status,omitempty"`
	Description  string          `json:"description,omitempty"`
	ImageURL     string          `json:"image,omitempty"`
}

type Workspace struct {
	ID       int    `json:"id"`
	Name     string `json:"name" validate:"required,min=2,max=200"`
	Lab      string `json:"lab,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// DisplayName prefers the project title when the backend populates it; older
// records only carry a name.
func (p *Project) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

type MaintenanceRecord struct {
	ID            int    `json:"id"`
	Equipment     int    `json:"equipment"`
	ScheduledDate string `json:"scheduled_date,omitempty"`
	CompletedDate string `json:"completed_date,omitempty"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status,omitempty"`
}

type Document struct {
	ID          int    `json:"id"`
	Project     int    `json:"project"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	FileURL     string `json:"file,omitempty"`
}

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	Lab       string `json:"lab,omitempty"`
}

// UserActivity is one entry of a user's audit trail.
type UserActivity struct {
	ID        int    `json:"id"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Paginated is the wrapper the backend returns for list endpoints. Some
// endpoints return a bare array instead; decoders must tolerate both.
type Paginated[T any] struct {
	Count    int64  `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

// EquipmentFilter narrows equipment list queries. Zero values are omitted
// from the query string.
type EquipmentFilter struct {
	Status   EquipmentStatus
	Category int
	Lab      string
	Search   string
}

type ProjectFilter struct {
	UserID int
	Status string
}
