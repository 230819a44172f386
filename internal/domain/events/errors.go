package events

import "errors"

var (
	ErrNotFound  = errors.New("event not found")
	ErrNotOwner  = errors.New("event belongs to another organizer")
	ErrBadInvite = errors.New("invalid invite code")
	ErrBadStatus = errors.New("invalid event status")
)

// Statuses an event moves through. Upcoming is the default on create.
const (
	StatusUpcoming  = "Upcoming"
	StatusOngoing   = "Ongoing"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

var validStatuses = map[string]bool{
	StatusUpcoming:  true,
	StatusOngoing:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}
