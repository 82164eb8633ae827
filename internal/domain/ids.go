package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// MemberID identifies the traveler that owns a trip.
// Owners are keyed by their authenticated subject.
type MemberID string

// TripID is an internal identifier for a trip record.
type TripID string

// DayID is an internal identifier for one calendar day of a trip.
type DayID string

// ItemID is an internal identifier for a scheduled item.
type ItemID string

// DependencyID is an internal identifier for an ordering edge between two items.
type DependencyID string

// SessionID identifies an anonymous voting session.
type SessionID string

// PlaceID is the opaque identifier assigned by the candidate supply service.
type PlaceID string

// MemberFromSubject maps an authenticated subject onto the owner key.
func MemberFromSubject(sub SubjectID) MemberID {
	return MemberID(sub)
}
