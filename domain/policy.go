package domain

// Authorization predicates. They are pure functions of the principal and the
// resource owner; callers evaluate them before touching the store.

// IsAdmin reports whether p holds the admin role.
func IsAdmin(p *Principal) bool {
	return p.HasRole(RoleAdmin)
}

// HasAnyRole reports whether p holds at least one of roles.
func HasAnyRole(p *Principal, roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// IsSelf reports whether p is the user identified by userID.
func IsSelf(p *Principal, userID string) bool {
	return p != nil && userID != "" && p.ID == userID
}

// IsSelfOrAdmin reports whether p targets its own account or is an admin.
func IsSelfOrAdmin(p *Principal, userID string) bool {
	return IsAdmin(p) || IsSelf(p, userID)
}

// IsOwner reports whether p owns a resource owned by ownerID.
func IsOwner(p *Principal, ownerID string) bool {
	return IsSelf(p, ownerID)
}

// IsOwnerOrAdmin reports whether p owns the resource or is an admin.
func IsOwnerOrAdmin(p *Principal, ownerID string) bool {
	return IsAdmin(p) || IsOwner(p, ownerID)
}

// RequirePrincipal fails with ErrUnauthenticated when p is nil.
func RequirePrincipal(p *Principal) error {
	if p == nil || p.ID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// Require turns a predicate result into an access decision for operation.
func Require(p *Principal, allowed bool, operation string) error {
	if err := RequirePrincipal(p); err != nil {
		return err
	}
	if !allowed {
		return Deny(operation)
	}
	return nil
}
