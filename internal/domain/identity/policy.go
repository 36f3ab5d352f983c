package identity

// The decision functions below are the single source of truth for role-based
// permissions. Every mutating operation consults them with the resolved actor
// passed explicitly; denial is a normal false return, never an error.

// CanCreateIdentity decides whether actor may create a record with the target
// role. same means the new record carries the actor's own username.
func CanCreateIdentity(actor, target Role, same bool) bool {
	switch actor {
	case RoleSuper:
		// A super may create anyone except a duplicate of themself.
		return !same
	case RoleAdmin:
		return same || target == RoleReader
	default:
		return false
	}
}

// CanUpdateIdentity decides whether actor may modify the target identity.
func CanUpdateIdentity(actor, target Role, same bool) bool {
	switch actor {
	case RoleSuper:
		return !same
	case RoleAdmin:
		return same || target == RoleReader
	case RoleReader:
		return same
	default:
		return false
	}
}

// CanDeleteIdentity decides whether actor may delete the target identity.
// The policy is intentionally identical to update.
func CanDeleteIdentity(actor, target Role, same bool) bool {
	return CanUpdateIdentity(actor, target, same)
}

// CanMutateBooks decides whether actor may create, update or delete catalog
// entries. No ownership nuance: supers and admins only.
func CanMutateBooks(actor Role) bool {
	return actor == RoleSuper || actor == RoleAdmin
}

// CanMutateShelf decides whether an identity may change its own membership
// set. The synthetic guest has no persisted record to attach books to.
func CanMutateShelf(actor *Identity) bool {
	return actor != nil && actor.ID != 0 && actor.Role != RoleGuest
}
