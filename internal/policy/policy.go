// Package policy decides who may read or change what. Every rule is a
// small predicate over an actor, an action and an optional target, and
// routes combine them with Any and All.
package policy

import (
	"errors"
	"net/http"
	"slices"

	"github.com/erazemk/popis/internal/model"
)

// ErrForbidden is returned when a predicate denies an action.
var ErrForbidden = errors.New("forbidden")

// Action is the category of a request.
type Action int

const (
	Read Action = iota
	Write
)

func (a Action) String() string {
	if a == Read {
		return "read"
	}
	return "write"
}

// ActionFor maps an HTTP method to an action. GET, HEAD and OPTIONS are
// safe reads; everything else mutates.
func ActionFor(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	default:
		return Write
	}
}

// Actor is the authenticated identity a decision is made for. Offices is
// only ever non-empty for staff.
type Actor struct {
	UserID   int64
	Username string
	Role     string
	Offices  []int64
}

// NewActor builds an actor from a freshly loaded user.
func NewActor(u *model.User) *Actor {
	a := &Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
	if u.Role == model.RoleStaff {
		a.Offices = slices.Clone(u.OfficeIDs)
	}
	return a
}

// Elevated reports whether the actor is an admin or super admin.
func (a *Actor) Elevated() bool {
	return a != nil && model.IsElevated(a.Role)
}

// HasOffice reports whether the office is in the actor's assignment.
func (a *Actor) HasOffice(officeID int64) bool {
	return a != nil && slices.Contains(a.Offices, officeID)
}

// Target is the object an action applies to. Zero fields mean the object
// has no such relation.
type Target struct {
	OfficeID int64
	UserID   int64
}

// Predicate is a single authorization rule. A nil target means the check
// runs at collection level, before any object is loaded.
type Predicate func(a *Actor, act Action, t *Target) bool

// Any passes when at least one predicate passes.
func Any(ps ...Predicate) Predicate {
	return func(a *Actor, act Action, t *Target) bool {
		for _, p := range ps {
			if p(a, act, t) {
				return true
			}
		}
		return false
	}
}

// All passes when every predicate passes.
func All(ps ...Predicate) Predicate {
	return func(a *Actor, act Action, t *Target) bool {
		for _, p := range ps {
			if !p(a, act, t) {
				return false
			}
		}
		return true
	}
}

// Check evaluates p and returns ErrForbidden when it fails.
func Check(p Predicate, a *Actor, act Action, t *Target) error {
	if a == nil || !p(a, act, t) {
		return ErrForbidden
	}
	return nil
}

// ReadOnlyOrElevated lets everyone read and any known role write.
func ReadOnlyOrElevated(a *Actor, act Action, _ *Target) bool {
	if act == Read {
		return true
	}
	return a != nil && model.ValidRole(a.Role)
}

// SuperAdminOnly passes only for super admins.
func SuperAdminOnly(a *Actor, _ Action, _ *Target) bool {
	return a != nil && a.Role == model.RoleSuperAdmin
}

// AdminOrSuperAdmin passes for admins and super admins.
func AdminOrSuperAdmin(a *Actor, _ Action, _ *Target) bool {
	return a.Elevated()
}

// OwnerOrElevated lets everyone read; writes pass for the object's author
// or any known role.
func OwnerOrElevated(a *Actor, act Action, t *Target) bool {
	if act == Read {
		return true
	}
	if a == nil {
		return false
	}
	if t != nil && t.UserID != 0 && t.UserID == a.UserID {
		return true
	}
	return model.ValidRole(a.Role)
}

// OfficeScopedStaff passes for elevated roles. Staff pass only for targets
// in one of their offices; at collection level staff pass and the object
// check follows once the target is known.
func OfficeScopedStaff(a *Actor, _ Action, t *Target) bool {
	if a == nil {
		return false
	}
	if a.Elevated() {
		return true
	}
	if a.Role != model.RoleStaff {
		return false
	}
	if t == nil {
		return true
	}
	return t.OfficeID != 0 && a.HasOffice(t.OfficeID)
}

// OfficeScopedStaffReadOnly lets everyone read and applies
// OfficeScopedStaff to writes.
func OfficeScopedStaffReadOnly(a *Actor, act Action, t *Target) bool {
	if act == Read {
		return true
	}
	return OfficeScopedStaff(a, act, t)
}

// Scope restricts an inventory query. All means no office filter;
// otherwise only records in OfficeIDs match, and an empty set matches
// nothing.
type Scope struct {
	All       bool
	OfficeIDs []int64
}

// Empty reports whether the scope can match no record at all.
func (s Scope) Empty() bool {
	return !s.All && len(s.OfficeIDs) == 0
}

// Allows reports whether a record in the office is inside the scope.
func (s Scope) Allows(officeID int64) bool {
	return s.All || slices.Contains(s.OfficeIDs, officeID)
}

// InventoryScope resolves which offices a list or export may cover. An
// officeID of zero means no filter was requested. Staff asking for an
// office outside their assignment get ErrForbidden; staff without a filter
// get their assigned offices, possibly none.
func (a *Actor) InventoryScope(officeID int64) (Scope, error) {
	if a == nil {
		return Scope{}, ErrForbidden
	}
	if a.Elevated() {
		if officeID == 0 {
			return Scope{All: true}, nil
		}
		return Scope{OfficeIDs: []int64{officeID}}, nil
	}
	if a.Role != model.RoleStaff {
		return Scope{}, ErrForbidden
	}
	if officeID != 0 {
		if !a.HasOffice(officeID) {
			return Scope{}, ErrForbidden
		}
		return Scope{OfficeIDs: []int64{officeID}}, nil
	}
	return Scope{OfficeIDs: slices.Clone(a.Offices)}, nil
}
