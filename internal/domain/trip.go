package domain

import (
	"strings"
	"time"
)

// BudgetTier is the ordered budget classification of a trip.
type BudgetTier string

const (
	BudgetEconomy  BudgetTier = "ECONOMY"
	BudgetModerate BudgetTier = "MODERATE"
	BudgetLuxury   BudgetTier = "LUXURY"
)

// Rank orders budget tiers: economy < moderate < luxury. Unknown tiers rank 0.
func (b BudgetTier) Rank() int {
	switch b {
	case BudgetEconomy:
		return 1
	case BudgetModerate:
		return 2
	case BudgetLuxury:
		return 3
	default:
		return 0
	}
}

func (b BudgetTier) Valid() bool { return b.Rank() > 0 }

func ParseBudgetTier(s string) BudgetTier {
	return BudgetTier(strings.ToUpper(strings.TrimSpace(s)))
}

type TravelStyle string

const (
	TravelStyleSolo     TravelStyle = "SOLO"
	TravelStyleCouple   TravelStyle = "COUPLE"
	TravelStyleFamily   TravelStyle = "FAMILY"
	TravelStyleFriends  TravelStyle = "FRIENDS"
	TravelStyleBusiness TravelStyle = "BUSINESS"
)

func (s TravelStyle) Valid() bool {
	switch s {
	case TravelStyleSolo, TravelStyleCouple, TravelStyleFamily, TravelStyleFriends, TravelStyleBusiness:
		return true
	default:
		return false
	}
}

type TripStatus string

const (
	TripStatusDraft     TripStatus = "DRAFT"
	TripStatusFinalized TripStatus = "FINALIZED"
)

// Trip is the root planning aggregate.
type Trip struct {
	ID         TripID
	OwnerID    *MemberID
	CopiedFrom *TripID

	Title    string
	Origin   string
	Province string
	City     string

	// StartDate is a calendar date stored at UTC midnight.
	StartDate    time.Time
	DurationDays int

	Budget      BudgetTier
	TravelStyle TravelStyle
	Interests   []Interest
	Status      TripStatus

	// TotalEstimatedCost is derived from the items and only authoritative after a recompute.
	TotalEstimatedCost *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndDate returns the last calendar day of the trip.
func (t Trip) EndDate() time.Time {
	return t.StartDate.AddDate(0, 0, t.DurationDays-1)
}

// IsOwnedBy reports whether the trip has been claimed by the given member.
func (t Trip) IsOwnedBy(m MemberID) bool {
	return t.OwnerID != nil && *t.OwnerID == m
}

// IsGuest reports whether the trip has no owner yet.
func (t Trip) IsGuest() bool { return t.OwnerID == nil }

// TripDay is one calendar day within a trip.
type TripDay struct {
	ID     DayID
	TripID TripID
	// Index is 1-based and unique per trip.
	Index int
	Date  time.Time
}

// DayDate returns the calendar date of a 1-based day index.
func DayDate(start time.Time, index int) time.Time {
	return DateOnly(start).AddDate(0, 0, index-1)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ItemKind string

const (
	ItemKindVisit     ItemKind = "VISIT"
	ItemKindMeal      ItemKind = "MEAL"
	ItemKindStay      ItemKind = "STAY"
	ItemKindTransport ItemKind = "TRANSPORT"
)

func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindVisit, ItemKindMeal, ItemKindStay, ItemKindTransport:
		return true
	default:
		return false
	}
}

// TripItem is one scheduled entry within a day.
type TripItem struct {
	ID     ItemID
	TripID TripID
	DayID  DayID

	Kind     ItemKind
	PlaceRef PlaceID
	Title    string
	Category Category
	Address  string
	Lat      *float64
	Lng      *float64
	Notes    string

	StartAt time.Time
	EndAt   time.Time

	SortOrder int
	Locked    bool

	PriceTier     PriceTier
	EstimatedCost int64
}

// Duration is always derived from the time window.
func (i TripItem) Duration() time.Duration {
	return i.EndAt.Sub(i.StartAt)
}

type DependencyType string

const DependencyFinishToStart DependencyType = "FINISH_TO_START"

// ViolationAction describes how callers should react when an edge is violated in time.
type ViolationAction string

const (
	ViolationWarn  ViolationAction = "WARN"
	ViolationBlock ViolationAction = "BLOCK"
)

func (a ViolationAction) Valid() bool {
	return a == ViolationWarn || a == ViolationBlock
}

// ItemDependency is a directed prerequisite -> dependent edge inside one trip.
type ItemDependency struct {
	ID             DependencyID
	TripID         TripID
	DependentID    ItemID
	PrerequisiteID ItemID
	Type           DependencyType
	Action         ViolationAction
	CreatedAt      time.Time
}

// Vote is one anonymous session's opinion on an item.
type Vote struct {
	ItemID    ItemID
	SessionID SessionID
	Upvote    bool
	UpdatedAt time.Time
}

// VoteSummary aggregates the votes of a single item.
type VoteSummary struct {
	ItemID ItemID
	Up     int
	Down   int
}
