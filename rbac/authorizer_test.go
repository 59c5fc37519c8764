package rbac

import (
	"errors"
	"testing"

	"github.com/jonwraymond/taskauth/auth"
)

func TestAuthorizer_ScopeFor(t *testing.T) {
	az := NewAuthorizer()

	tests := []struct {
		name string
		user *auth.AuthenticatedUser
		want Scope
	}{
		{
			name: "admin sees everything",
			user: &auth.AuthenticatedUser{UserID: "u-1", Roles: []auth.Role{auth.RoleAdmin}},
			want: All(),
		},
		{
			name: "admin outranks manager",
			user: &auth.AuthenticatedUser{
				UserID:     "u-1",
				Roles:      []auth.Role{auth.RoleManager, auth.RoleAdmin},
				Department: "engineering",
			},
			want: All(),
		},
		{
			name: "manager sees department",
			user: &auth.AuthenticatedUser{
				UserID:     "u-2",
				Roles:      []auth.Role{auth.RoleManager},
				Department: "engineering",
			},
			want: Department("engineering"),
		},
		{
			name: "manager without department",
			user: &auth.AuthenticatedUser{UserID: "u-2", Roles: []auth.Role{auth.RoleManager}},
			want: Department(""),
		},
		{
			name: "plain user sees own records",
			user: &auth.AuthenticatedUser{UserID: "u-3", Roles: []auth.Role{auth.RoleUser}},
			want: OwnedOnly("u-3"),
		},
		{
			name: "no recognized roles",
			user: &auth.AuthenticatedUser{UserID: "u-4", Roles: []auth.Role{auth.RoleUnknown}},
			want: OwnedOnly("u-4"),
		},
		{
			name: "empty role set",
			user: &auth.AuthenticatedUser{UserID: "u-5", Roles: []auth.Role{}},
			want: OwnedOnly("u-5"),
		},
		{
			name: "nil user",
			user: nil,
			want: OwnedOnly(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := az.ScopeFor(tt.user); got != tt.want {
				t.Errorf("ScopeFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScope_Allows(t *testing.T) {
	tests := []struct {
		name       string
		scope      Scope
		ownerID    string
		department string
		want       bool
	}{
		{"all allows anything", All(), "someone", "sales", true},
		{"department match", Department("engineering"), "someone", "engineering", true},
		{"department mismatch", Department("engineering"), "someone", "sales", false},
		{"record without department", Department("engineering"), "someone", "", false},
		{"empty department scope matches nothing", Department(""), "someone", "", false},
		{"owner match", OwnedOnly("u-1"), "u-1", "engineering", true},
		{"owner mismatch", OwnedOnly("u-1"), "u-2", "engineering", false},
		{"empty owner scope matches nothing", OwnedOnly(""), "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Allows(tt.ownerID, tt.department); got != tt.want {
				t.Errorf("Allows(%q, %q) = %v, want %v", tt.ownerID, tt.department, got, tt.want)
			}
		})
	}
}

func TestAuthorizer_Enforce(t *testing.T) {
	az := NewAuthorizer()

	admin := &auth.AuthenticatedUser{UserID: "a", Roles: []auth.Role{auth.RoleAdmin}}
	manager := &auth.AuthenticatedUser{UserID: "m", Roles: []auth.Role{auth.RoleManager}}
	user := &auth.AuthenticatedUser{UserID: "u", Roles: []auth.Role{auth.RoleUser}}

	tests := []struct {
		name    string
		user    *auth.AuthenticatedUser
		action  Action
		allowed bool
	}{
		{"admin assigns to others", admin, ActionAssignOther, true},
		{"manager assigns to others", manager, ActionAssignOther, true},
		{"user cannot assign to others", user, ActionAssignOther, false},
		{"admin changes department", admin, ActionChangeDepartment, true},
		{"manager cannot change department", manager, ActionChangeDepartment, false},
		{"user cannot change department", user, ActionChangeDepartment, false},
		{"nil user denied", nil, ActionAssignOther, false},
		{"unknown action denied for admin", admin, Action("delete_everything"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := az.Enforce(tt.user, tt.action)
			if tt.allowed && err != nil {
				t.Errorf("Enforce() error = %v, want nil", err)
			}
			if !tt.allowed && !errors.Is(err, ErrForbidden) {
				t.Errorf("Enforce() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestAuthorizer_EnforceAssign(t *testing.T) {
	az := NewAuthorizer()
	user := &auth.AuthenticatedUser{UserID: "u", Roles: []auth.Role{auth.RoleUser}}

	if err := az.EnforceAssign(user, "u"); err != nil {
		t.Errorf("self-assignment error = %v, want nil", err)
	}
	if err := az.EnforceAssign(user, "someone-else"); !errors.Is(err, ErrForbidden) {
		t.Errorf("assignment to other error = %v, want ErrForbidden", err)
	}
}

func TestAuthorizer_EnforceDepartmentChange(t *testing.T) {
	az := NewAuthorizer()
	user := &auth.AuthenticatedUser{UserID: "u", Roles: []auth.Role{auth.RoleUser}}

	if err := az.EnforceDepartmentChange(user, "sales", "sales"); err != nil {
		t.Errorf("no-op change error = %v, want nil", err)
	}
	if err := az.EnforceDepartmentChange(user, "sales", "engineering"); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-department change error = %v, want ErrForbidden", err)
	}
}

func TestForbiddenError_Message(t *testing.T) {
	err := &ForbiddenError{UserID: "u-1", Action: ActionAssignOther, Reason: "no role permits this action"}
	want := `access denied: user="u-1" action="assign_to_other" reason="no role permits this action"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
