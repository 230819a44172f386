package events

import (
	"context"
	"time"
)

// Event is an organizer-owned event that participants join by invite
// code.
type Event struct {
	ID              int64          `json:"id"`
	OrganizerID     int64          `json:"organizer_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	ScheduleDate    time.Time      `json:"schedule_date"`
	MaxParticipants int            `json:"max_participants"`
	InviteCode      string         `json:"invite_code"`
	Image           string         `json:"image,omitempty"`
	Status          string         `json:"status"`
	Speakers        []EventSpeaker `json:"speakers,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// EventSpeaker is a speaker attached to an event together with the
// topic they are speaking on at that event.
type EventSpeaker struct {
	SpeakerID      int64  `json:"speaker_id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	PhotoPath      string `json:"photo_path,omitempty"`
	Topic          string `json:"topic,omitempty"`
}

// Stats summarizes registration activity for a single event. SlotsTaken
// counts registrations whose payment is settled (Paid or Free);
// WaitlistCapacity is floor(10% of max participants) and is advisory
// only.
type Stats struct {
	TotalRegistered  int `json:"total_registered"`
	SlotsTaken       int `json:"slots_taken"`
	WaitlistCapacity int `json:"waitlist_capacity"`
	PresentCount     int `json:"present_count"`
	AbsentCount      int `json:"absent_count"`
	WaitlistedCount  int `json:"waitlisted_count"`
	PaidCount        int `json:"paid_count"`
}

// DashboardStats aggregates counts across all of an organizer's events.
type DashboardStats struct {
	TotalEvents        int `json:"total_events"`
	UpcomingEvents     int `json:"upcoming_events"`
	TotalRegistrations int `json:"total_registrations"`
	TotalCheckedIn     int `json:"total_checked_in"`
	TotalSpeakers      int `json:"total_speakers"`
}

type CreateParams struct {
	OrganizerID     int64
	Title           string
	Description     string
	Location        string
	ScheduleDate    time.Time
	MaxParticipants int
	InviteCode      string
	Image           string
	Status          string
}

type UpdateParams struct {
	Title           string
	Description     string
	Location        string
	ScheduleDate    time.Time
	MaxParticipants int
	Image           string
	Status          string
}

// SpeakerLink pairs a speaker with the topic for one event.
type SpeakerLink struct {
	SpeakerID int64
	Topic     string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	GetByInviteCode(ctx context.Context, code string) (*Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]Event, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id int64) error

	// SyncSpeakers replaces the event's speaker links with the given
	// set, preserving topics.
	SyncSpeakers(ctx context.Context, eventID int64, links []SpeakerLink) error
	ListSpeakers(ctx context.Context, eventID int64) ([]EventSpeaker, error)

	Stats(ctx context.Context, eventID int64) (*Stats, error)

	CountEvents(ctx context.Context, organizerID int64) (int, error)
	CountUpcomingEvents(ctx context.Context, organizerID int64) (int, error)
	CountRegistrations(ctx context.Context, organizerID int64) (int, error)
	CountCheckedIn(ctx context.Context, organizerID int64) (int, error)
	CountSpeakers(ctx context.Context, organizerID int64) (int, error)
}
