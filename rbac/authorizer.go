package rbac

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/taskauth/auth"
)

// ErrForbidden is the sentinel every denial matches via errors.Is.
var ErrForbidden = errors.New("rbac: access denied")

// Action is a privileged operation gated by role.
type Action string

const (
	// ActionAssignOther is assigning a record to someone other than
	// oneself.
	ActionAssignOther Action = "assign_to_other"

	// ActionChangeDepartment is moving a record between departments.
	ActionChangeDepartment Action = "change_department"
)

// ForbiddenError describes an authorization denial.
type ForbiddenError struct {
	// UserID identifies the denied user, if known.
	UserID string

	// Action is the action that was denied.
	Action Action

	// Reason explains why access was denied.
	Reason string
}

// Error returns the error message.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied: user=%q action=%q reason=%q",
		e.UserID, e.Action, e.Reason)
}

// Is reports whether this error matches the target.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// actionRoles maps each privileged action to the roles that may take it.
// An action absent from this map is denied for everyone.
var actionRoles = map[Action][]auth.Role{
	ActionAssignOther:      {auth.RoleAdmin, auth.RoleManager},
	ActionChangeDepartment: {auth.RoleAdmin},
}

// Authorizer derives visibility scopes and enforces privileged actions
// from a user's verified roles.
type Authorizer struct{}

// NewAuthorizer creates an authorizer.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// ScopeFor returns the widest visibility scope the user's roles grant.
// Admin wins over manager, manager over everything else. A nil user or a
// user with no recognized roles gets the narrowest possible scope.
func (a *Authorizer) ScopeFor(user *auth.AuthenticatedUser) Scope {
	if user == nil {
		return OwnedOnly("")
	}
	if user.HasRole(auth.RoleAdmin) {
		return All()
	}
	if user.HasRole(auth.RoleManager) {
		// A manager without a department sees nothing beyond the scope's
		// empty-name behavior. Widening here would leak across departments.
		return Department(user.Department)
	}
	return OwnedOnly(user.UserID)
}

// Enforce checks that the user's roles permit the action. Unknown actions
// and nil users are denied.
func (a *Authorizer) Enforce(user *auth.AuthenticatedUser, action Action) error {
	if user == nil {
		return &ForbiddenError{Action: action, Reason: "no authenticated user"}
	}

	for _, role := range actionRoles[action] {
		if user.HasRole(role) {
			return nil
		}
	}

	return &ForbiddenError{
		UserID: user.UserID,
		Action: action,
		Reason: "no role permits this action",
	}
}

// EnforceAssign checks that the user may assign a record to assigneeID.
// Assigning to oneself is always allowed.
func (a *Authorizer) EnforceAssign(user *auth.AuthenticatedUser, assigneeID string) error {
	if user != nil && assigneeID == user.UserID {
		return nil
	}
	return a.Enforce(user, ActionAssignOther)
}

// EnforceDepartmentChange checks that the user may move a record from one
// department to another. A no-op change is allowed for anyone.
func (a *Authorizer) EnforceDepartmentChange(user *auth.AuthenticatedUser, from, to string) error {
	if from == to {
		return nil
	}
	return a.Enforce(user, ActionChangeDepartment)
}
