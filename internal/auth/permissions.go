package auth

import "strings"

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleVolunteer   Role = "volunteer"
	RoleParticipant Role = "participant"
)

// Permission names a capability checked at an endpoint. Every handler
// that needs authorization asks for a permission rather than comparing
// role strings inline.
type Permission string

const (
	PermManageEvents    Permission = "events:manage"
	PermManageSpeakers  Permission = "speakers:manage"
	PermManageTeam      Permission = "team:manage"
	PermCheckIn         Permission = "registrations:checkin"
	PermManageAttendees Permission = "registrations:manage"
	PermExportReports   Permission = "reports:export"
	PermJoinEvents      Permission = "events:join"
	PermSubmitFeedback  Permission = "feedback:submit"
)

var permissionsByRole = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermManageEvents:    true,
		PermManageSpeakers:  true,
		PermManageTeam:      true,
		PermCheckIn:         true,
		PermManageAttendees: true,
		PermExportReports:   true,
		PermJoinEvents:      true,
		PermSubmitFeedback:  true,
	},
	RoleOrganizer: {
		PermManageEvents:    true,
		PermManageSpeakers:  true,
		PermManageTeam:      true,
		PermCheckIn:         true,
		PermManageAttendees: true,
		PermExportReports:   true,
	},
	RoleVolunteer: {
		PermCheckIn:         true,
		PermManageAttendees: true,
	},
	RoleParticipant: {
		PermJoinEvents:     true,
		PermSubmitFeedback: true,
	},
}

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleOrganizer):
		return RoleOrganizer
	case string(RoleVolunteer):
		return RoleVolunteer
	default:
		return RoleParticipant
	}
}

// Can reports whether the given role holds the permission.
func Can(role string, perm Permission) bool {
	perms, ok := permissionsByRole[NormalizeRole(role)]
	if !ok {
		return false
	}
	return perms[perm]
}

func IsStaff(role string) bool {
	switch NormalizeRole(role) {
	case RoleAdmin, RoleOrganizer, RoleVolunteer:
		return true
	default:
		return false
	}
}
