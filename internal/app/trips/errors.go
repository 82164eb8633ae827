package trips

import (
	"errors"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// Error kinds. Match them with errors.Is on any error returned by the service.
var (
	ErrNotFound           = errors.New("not found")
	ErrCycleConflict      = errors.New("dependency cycle")
	ErrLockedItemConflict = errors.New("item is locked")
	ErrValidation         = errors.New("validation failed")
	ErrOwnershipConflict  = errors.New("ownership conflict")
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	// Kind is one of the Err* sentinels.
	Kind error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func TripNotFound(id domain.TripID) *Error {
	return &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found", Details: map[string]any{"tripId": string(id)}, Kind: ErrNotFound}
}

func DayNotFound(id domain.DayID) *Error {
	return &Error{Status: 404, Code: "DAY_NOT_FOUND", Message: "day not found", Details: map[string]any{"dayId": string(id)}, Kind: ErrNotFound}
}

func ItemNotFound(id domain.ItemID) *Error {
	return &Error{Status: 404, Code: "ITEM_NOT_FOUND", Message: "item not found", Details: map[string]any{"itemId": string(id)}, Kind: ErrNotFound}
}

func DependencyNotFound(id domain.DependencyID) *Error {
	return &Error{Status: 404, Code: "DEPENDENCY_NOT_FOUND", Message: "dependency not found", Details: map[string]any{"dependencyId": string(id)}, Kind: ErrNotFound}
}

// Validation builds a 422. details maps the offending field or id to a reason.
func Validation(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: message, Details: details, Kind: ErrValidation}
}

func cycleConflict(dependent, prerequisite domain.ItemID) *Error {
	return &Error{
		Status:  409,
		Code:    "DEPENDENCY_CYCLE",
		Message: "dependency would create a cycle",
		Details: map[string]any{"dependentId": string(dependent), "prerequisiteId": string(prerequisite)},
		Kind:    ErrCycleConflict,
	}
}

func itemLocked(id domain.ItemID, field string) *Error {
	return &Error{
		Status:  409,
		Code:    "ITEM_LOCKED",
		Message: "item is locked; its time window cannot change",
		Details: map[string]any{"itemId": string(id), field: "locked"},
		Kind:    ErrLockedItemConflict,
	}
}

func ownershipConflict(id domain.TripID) *Error {
	return &Error{
		Status:  403,
		Code:    "OWNERSHIP_CONFLICT",
		Message: "trip belongs to another member",
		Details: map[string]any{"tripId": string(id)},
		Kind:    ErrOwnershipConflict,
	}
}
