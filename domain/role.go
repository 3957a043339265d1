package domain

import (
	"sort"
	"strings"
)

// Role is a seeded authority granted to a user.
type Role string

const (
	RoleUser      Role = "ROLE_USER"
	RoleModerator Role = "ROLE_MODERATOR"
	RoleAdmin     Role = "ROLE_ADMIN"
)

// AllRoles lists the seeded roles in ascending privilege.
var AllRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

// Valid reports whether r is one of the seeded roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// Short returns the role name without the ROLE_ prefix.
func (r Role) Short() string {
	return strings.TrimPrefix(string(r), "ROLE_")
}

// RoleFromToken maps a client role token to a role. Unrecognized tokens
// resolve to RoleUser.
func RoleFromToken(token string) Role {
	switch token {
	case "admin":
		return RoleAdmin
	case "mod":
		return RoleModerator
	default:
		return RoleUser
	}
}

// RolesFromTokens maps role tokens into a deduplicated, sorted role set.
// An empty input yields {RoleUser}.
func RolesFromTokens(tokens []string) []Role {
	if len(tokens) == 0 {
		return []Role{RoleUser}
	}
	set := make(map[Role]struct{}, len(tokens))
	for _, t := range tokens {
		set[RoleFromToken(t)] = struct{}{}
	}
	return roleSet(set)
}

// ParseRoleName resolves "admin", "ADMIN" or "ROLE_ADMIN" style names.
func ParseRoleName(name string) (Role, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return "", ErrUnknownRole
	}
	if !strings.HasPrefix(n, "ROLE_") {
		n = "ROLE_" + n
	}
	r := Role(n)
	if !r.Valid() {
		return "", NewError(ErrCodeInvalid, "unknown role: "+name)
	}
	return r, nil
}

// NormalizeRoles drops invalid and duplicate roles and sorts the rest.
func NormalizeRoles(roles []Role) []Role {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r.Valid() {
			set[r] = struct{}{}
		}
	}
	return roleSet(set)
}

func roleSet(set map[Role]struct{}) []Role {
	out := make([]Role, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
