package rbac

import (
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

// Permission names an action a role may perform against the API
type Permission string

const (
	PermReadTelemetry  Permission = "telemetry:read"
	PermEditOwnProfile Permission = "profile:edit"
	PermManageDevices  Permission = "devices:manage"
	PermManageUsers    Permission = "users:manage"
)

// Service resolves roles to the permissions they grant
type Service struct {
	grants map[string]map[Permission]bool
}

// NewService returns the flood API role table. Admins hold every
// permission; users may read telemetry and edit their own profile.
func NewService() *Service {
	s := &Service{grants: make(map[string]map[Permission]bool)}
	s.grant(auth_models.RoleUser, PermReadTelemetry, PermEditOwnProfile)
	s.grant(auth_models.RoleAdmin, PermReadTelemetry, PermEditOwnProfile, PermManageDevices, PermManageUsers)
	return s
}

func (s *Service) grant(role string, perms ...Permission) {
	set, ok := s.grants[role]
	if !ok {
		set = make(map[Permission]bool, len(perms))
		s.grants[role] = set
	}
	for _, p := range perms {
		set[p] = true
	}
}

// Can reports whether role grants perm. Unknown roles grant nothing.
func (s *Service) Can(role string, perm Permission) bool {
	return s.grants[role][perm]
}
