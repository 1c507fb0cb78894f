package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"oims/pkg/logger"
	"oims/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Field keys mirror the form field names the backend and UI use, so a
// ValidationError attaches to the exact input that caused it.
const (
	FieldResourceType      = "resource_type"
	FieldEquipment         = "equipment"
	FieldWorkspace         = "workspace"
	FieldStartTime         = "start_time"
	FieldEndTime           = "end_time"
	FieldPurpose           = "purpose"
	FieldParticipantsCount = "participants_count"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns the errors keyed by field name. The first error per field
// wins.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		if _, taken := fields[err.Field]; !taken {
			fields[err.Field] = err.Message
		}
	}
	return fields
}

// draftFields is the tag-validatable projection of a booking draft.
type draftFields struct {
	Purpose           string `validate:"max=500"`
	Notes             string `validate:"max=2000"`
	ParticipantsCount int    `validate:"min=0,max=200"`
}

type DraftValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewDraftValidator(log *logger.Logger) *DraftValidator {
	return &DraftValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// Validate runs the full-field rules a draft must pass before submission:
// required resource type with a matching resource selected, both times set
// with end strictly after start, a non-empty purpose, and (when creating,
// not editing) a start that is not in the past. Workspace drafts also need
// a positive participant count.
func (v *DraftValidator) Validate(d *model.BookingDraft, editMode bool, now time.Time) ValidationErrors {
	var errs ValidationErrors

	if err := v.validate.Struct(draftFields{
		Purpose:           d.Purpose,
		Notes:             d.Notes,
		ParticipantsCount: d.ParticipantsCount,
	}); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			errs = append(errs, translate(fieldErrs)...)
		}
	}

	errs = append(errs, v.resourceErrors(d)...)

	switch d.ResourceType {
	case model.ResourceWorkspace:
		if d.ParticipantsCount < 1 {
			errs = append(errs, ValidationError{FieldParticipantsCount, "Participants count must be at least 1"})
		}
	}

	if d.StartTime.IsZero() {
		errs = append(errs, ValidationError{FieldStartTime, "Start time is required"})
	}
	if d.EndTime.IsZero() {
		errs = append(errs, ValidationError{FieldEndTime, "End time is required"})
	}

	if !d.StartTime.IsZero() && !d.EndTime.IsZero() {
		if !d.EndTime.After(d.StartTime) {
			errs = append(errs, ValidationError{FieldEndTime, "End time must be after start time"})
		}
		if !editMode && d.StartTime.Before(now) {
			errs = append(errs, ValidationError{FieldStartTime, "Cannot book in the past"})
		}
	}

	if strings.TrimSpace(d.Purpose) == "" {
		errs = append(errs, ValidationError{FieldPurpose, "Purpose is required"})
	}

	if len(errs) > 0 && v.logger != nil {
		v.logger.Debug("Draft validation failed", "errors", errs.Error())
	}

	return errs
}

// ValidateWindow runs only the guards an availability check needs: a
// selected resource and a sane time window. Purpose and the past-start rule
// are deliberately not checked here.
func (v *DraftValidator) ValidateWindow(d *model.BookingDraft) ValidationErrors {
	var errs ValidationErrors

	if d.StartTime.IsZero() {
		errs = append(errs, ValidationError{FieldStartTime, "Start time is required"})
	}
	if d.EndTime.IsZero() {
		errs = append(errs, ValidationError{FieldEndTime, "End time is required"})
	}
	if !d.StartTime.IsZero() && !d.EndTime.IsZero() && !d.EndTime.After(d.StartTime) {
		errs = append(errs, ValidationError{FieldEndTime, "End time must be after start time"})
	}

	errs = append(errs, v.resourceErrors(d)...)

	return errs
}

func (v *DraftValidator) resourceErrors(d *model.BookingDraft) ValidationErrors {
	switch d.ResourceType {
	case model.ResourceEquipment:
		if d.Equipment == nil {
			return ValidationErrors{{FieldEquipment, "Please select an equipment"}}
		}
	case model.ResourceWorkspace:
		if d.Workspace == nil {
			return ValidationErrors{{FieldWorkspace, "Please select a workspace"}}
		}
	default:
		return ValidationErrors{{FieldResourceType, "Resource type is required"}}
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		message := err.Error()
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}
		out = append(out, ValidationError{
			Field:   fieldKey(err.Field()),
			Message: message,
		})
	}
	return out
}

func fieldKey(structField string) string {
	switch structField {
	case "Purpose":
		return FieldPurpose
	case "Notes":
		return "notes"
	case "ParticipantsCount":
		return FieldParticipantsCount
	default:
		return strings.ToLower(structField)
	}
}
