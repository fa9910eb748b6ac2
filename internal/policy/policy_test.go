package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/popis/internal/model"
)

var (
	superAdmin = &Actor{UserID: 1, Username: "root", Role: model.RoleSuperAdmin}
	admin      = &Actor{UserID: 2, Username: "admin", Role: model.RoleAdmin}
	staffA     = &Actor{UserID: 3, Username: "janitor", Role: model.RoleStaff, Offices: []int64{10}}
	staffNone  = &Actor{UserID: 4, Username: "idle", Role: model.RoleStaff}
	unknown    = &Actor{UserID: 5, Username: "ghost", Role: "visitor"}
)

func TestActionFor(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.Equal(t, Read, ActionFor(m), m)
	}
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Equal(t, Write, ActionFor(m), m)
	}
}

func TestPredicates(t *testing.T) {
	inA := &Target{OfficeID: 10}
	inB := &Target{OfficeID: 20}
	ownedByGhost := &Target{UserID: 5}

	tests := []struct {
		name   string
		pred   Predicate
		actor  *Actor
		action Action
		target *Target
		want   bool
	}{
		{"read-only read unknown", ReadOnlyOrElevated, unknown, Read, nil, true},
		{"read-only write unknown", ReadOnlyOrElevated, unknown, Write, nil, false},
		{"read-only write staff", ReadOnlyOrElevated, staffA, Write, nil, true},
		{"read-only write admin", ReadOnlyOrElevated, admin, Write, nil, true},

		{"super only super", SuperAdminOnly, superAdmin, Read, nil, true},
		{"super only admin", SuperAdminOnly, admin, Read, nil, false},
		{"super only staff", SuperAdminOnly, staffA, Write, nil, false},

		{"admin or super admin", AdminOrSuperAdmin, admin, Write, nil, true},
		{"admin or super super", AdminOrSuperAdmin, superAdmin, Write, nil, true},
		{"admin or super staff", AdminOrSuperAdmin, staffA, Read, nil, false},

		{"owner read", OwnerOrElevated, unknown, Read, inB, true},
		{"owner write as author", OwnerOrElevated, unknown, Write, ownedByGhost, true},
		{"owner write stranger", OwnerOrElevated, unknown, Write, inB, false},
		{"owner write staff", OwnerOrElevated, staffA, Write, ownedByGhost, true},

		{"scoped admin any office", OfficeScopedStaff, admin, Write, inB, true},
		{"scoped staff own office", OfficeScopedStaff, staffA, Write, inA, true},
		{"scoped staff other office", OfficeScopedStaff, staffA, Read, inB, false},
		{"scoped staff no office relation", OfficeScopedStaff, staffA, Write, &Target{UserID: 3}, false},
		{"scoped staff collection", OfficeScopedStaff, staffA, Read, nil, true},
		{"scoped unknown role", OfficeScopedStaff, unknown, Read, nil, false},
		{"scoped staff without offices", OfficeScopedStaff, staffNone, Write, inA, false},

		{"scoped ro read other office", OfficeScopedStaffReadOnly, staffA, Read, inB, true},
		{"scoped ro write other office", OfficeScopedStaffReadOnly, staffA, Write, inB, false},
		{"scoped ro write own office", OfficeScopedStaffReadOnly, staffA, Write, inA, true},
		{"scoped ro write super", OfficeScopedStaffReadOnly, superAdmin, Write, inB, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.actor, tt.action, tt.target))
		})
	}
}

func TestCombinators(t *testing.T) {
	always := func(*Actor, Action, *Target) bool { return true }
	never := func(*Actor, Action, *Target) bool { return false }

	assert.True(t, Any(never, always)(admin, Read, nil))
	assert.False(t, Any(never, never)(admin, Read, nil))
	assert.False(t, Any()(admin, Read, nil))

	assert.True(t, All(always, always)(admin, Read, nil))
	assert.False(t, All(always, never)(admin, Read, nil))
	assert.True(t, All()(admin, Read, nil))

	staffOrSuper := Any(SuperAdminOnly, All(OfficeScopedStaff, ReadOnlyOrElevated))
	assert.True(t, staffOrSuper(superAdmin, Write, &Target{OfficeID: 99}))
	assert.True(t, staffOrSuper(staffA, Write, &Target{OfficeID: 10}))
	assert.False(t, staffOrSuper(staffA, Write, &Target{OfficeID: 20}))
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(AdminOrSuperAdmin, admin, Write, nil))
	assert.ErrorIs(t, Check(AdminOrSuperAdmin, staffA, Write, nil), ErrForbidden)
	assert.ErrorIs(t, Check(ReadOnlyOrElevated, nil, Read, nil), ErrForbidden)
}

func TestNewActor(t *testing.T) {
	staff := NewActor(&model.User{ID: 7, Username: "s", Role: model.RoleStaff, OfficeIDs: []int64{1, 2}})
	assert.Equal(t, []int64{1, 2}, staff.Offices)

	// Stale assignments on a non-staff user never widen access.
	promoted := NewActor(&model.User{ID: 8, Username: "a", Role: model.RoleAdmin, OfficeIDs: []int64{1}})
	assert.Empty(t, promoted.Offices)
	assert.True(t, promoted.Elevated())
}

func TestInventoryScope(t *testing.T) {
	t.Run("admin unfiltered", func(t *testing.T) {
		s, err := admin.InventoryScope(0)
		require.NoError(t, err)
		assert.True(t, s.All)
		assert.True(t, s.Allows(10))
		assert.True(t, s.Allows(20))
	})

	t.Run("admin filtered", func(t *testing.T) {
		s, err := superAdmin.InventoryScope(20)
		require.NoError(t, err)
		assert.False(t, s.All)
		assert.Equal(t, []int64{20}, s.OfficeIDs)
	})

	t.Run("staff unfiltered gets assignment", func(t *testing.T) {
		s, err := staffA.InventoryScope(0)
		require.NoError(t, err)
		assert.False(t, s.All)
		assert.Equal(t, []int64{10}, s.OfficeIDs)
		assert.True(t, s.Allows(10))
		assert.False(t, s.Allows(20))
	})

	t.Run("staff own office", func(t *testing.T) {
		s, err := staffA.InventoryScope(10)
		require.NoError(t, err)
		assert.Equal(t, []int64{10}, s.OfficeIDs)
	})

	t.Run("staff foreign office", func(t *testing.T) {
		_, err := staffA.InventoryScope(20)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff without offices sees nothing", func(t *testing.T) {
		s, err := staffNone.InventoryScope(0)
		require.NoError(t, err)
		assert.True(t, s.Empty())
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := unknown.InventoryScope(0)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
