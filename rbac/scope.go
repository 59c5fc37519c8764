package rbac

// ScopeKind identifies how wide a visibility scope is.
type ScopeKind string

const (
	// ScopeAll grants visibility over every record.
	ScopeAll ScopeKind = "all"

	// ScopeDepartment grants visibility over one department's records.
	ScopeDepartment ScopeKind = "department"

	// ScopeOwned grants visibility over the user's own records only.
	ScopeOwned ScopeKind = "owned"
)

// Scope is a visibility decision. It carries the narrowing parameter for
// its kind: the department name for ScopeDepartment, the owner's user ID
// for ScopeOwned.
type Scope struct {
	Kind       ScopeKind
	Department string
	OwnerID    string
}

// All returns the unrestricted scope.
func All() Scope {
	return Scope{Kind: ScopeAll}
}

// Department returns a scope restricted to one department. An empty name
// yields a scope that matches no record.
func Department(name string) Scope {
	return Scope{Kind: ScopeDepartment, Department: name}
}

// OwnedOnly returns a scope restricted to records owned by the given user.
func OwnedOnly(ownerID string) Scope {
	return Scope{Kind: ScopeOwned, OwnerID: ownerID}
}

// Allows reports whether a record with the given owner and department is
// visible under the scope. Records with an empty department never match a
// department scope, and an empty-department scope matches nothing.
func (s Scope) Allows(ownerID, department string) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeDepartment:
		return s.Department != "" && department == s.Department
	case ScopeOwned:
		return s.OwnerID != "" && ownerID == s.OwnerID
	default:
		return false
	}
}
