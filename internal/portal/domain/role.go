package domain

import "strings"

// Role is the canonical role of an authenticated account. Every raw role
// string coming from the upstream collections is normalized into exactly one
// of these values before anything else looks at it.
type Role string

const (
	RoleNone       Role = "none" // anonymous / unrecognized
	RoleCandidate  Role = "candidate"
	RoleVolunteer  Role = "volunteer"
	RolePartner    Role = "partner"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// roleAliases maps folded spellings to their canonical role. The upstream data
// carries several historical spellings (including the French ones the portal
// started with), so matching is an explicit enumeration rather than substring
// probing.
var roleAliases = map[string]Role{
	"candidate":      RoleCandidate,
	"candidat":       RoleCandidate,
	"volunteer":      RoleVolunteer,
	"volontaire":     RoleVolunteer,
	"partner":        RolePartner,
	"partenaire":     RolePartner,
	"admin":          RoleAdmin,
	"administrator":  RoleAdmin,
	"administrateur": RoleAdmin,
	"super-admin":    RoleSuperAdmin,
	"superadmin":     RoleSuperAdmin,
}

// NormalizeRole maps a raw role string to its canonical Role. Unknown or
// empty input maps to RoleNone. The function is pure and idempotent: every
// canonical value folds back onto itself.
func NormalizeRole(raw string) Role {
	folded := foldRole(raw)
	if folded == "" {
		return RoleNone
	}
	if role, ok := roleAliases[folded]; ok {
		return role
	}
	return RoleNone
}

// foldRole lowercases and collapses the separator soup seen in stored roles
// ("super admin", "SUPER_ADMIN", "superAdmin", ...) into hyphenated form.
func foldRole(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.Join(strings.Fields(s), "-")
	return s
}

// String returns the canonical string form.
func (r Role) String() string { return string(r) }

// IsAdmin reports whether the role carries administrator privileges.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// In reports whether r is a member of the given role set.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
