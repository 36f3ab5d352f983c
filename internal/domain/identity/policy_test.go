package identity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allRoles = []Role{RoleSuper, RoleAdmin, RoleReader, RoleGuest}

// The full 4x4x2 decision table. Update and delete share one policy; create
// differs only for readers (who may never create) and in the super self
// duplication guard.
var policyTable = []struct {
	actor  Role
	target Role
	same   bool
	update bool
	create bool
}{
	{RoleSuper, RoleSuper, false, true, true},
	{RoleSuper, RoleSuper, true, false, false},
	{RoleSuper, RoleAdmin, false, true, true},
	{RoleSuper, RoleAdmin, true, false, false},
	{RoleSuper, RoleReader, false, true, true},
	{RoleSuper, RoleReader, true, false, false},
	{RoleSuper, RoleGuest, false, true, true},
	{RoleSuper, RoleGuest, true, false, false},

	{RoleAdmin, RoleSuper, false, false, false},
	{RoleAdmin, RoleSuper, true, true, true},
	{RoleAdmin, RoleAdmin, false, false, false},
	{RoleAdmin, RoleAdmin, true, true, true},
	{RoleAdmin, RoleReader, false, true, true},
	{RoleAdmin, RoleReader, true, true, true},
	{RoleAdmin, RoleGuest, false, false, false},
	{RoleAdmin, RoleGuest, true, true, true},

	{RoleReader, RoleSuper, false, false, false},
	{RoleReader, RoleSuper, true, true, false},
	{RoleReader, RoleAdmin, false, false, false},
	{RoleReader, RoleAdmin, true, true, false},
	{RoleReader, RoleReader, false, false, false},
	{RoleReader, RoleReader, true, true, false},
	{RoleReader, RoleGuest, false, false, false},
	{RoleReader, RoleGuest, true, true, false},

	{RoleGuest, RoleSuper, false, false, false},
	{RoleGuest, RoleSuper, true, false, false},
	{RoleGuest, RoleAdmin, false, false, false},
	{RoleGuest, RoleAdmin, true, false, false},
	{RoleGuest, RoleReader, false, false, false},
	{RoleGuest, RoleReader, true, false, false},
	{RoleGuest, RoleGuest, false, false, false},
	{RoleGuest, RoleGuest, true, false, false},
}

func TestPolicyTableIsExhaustive(t *testing.T) {
	assert.Len(t, policyTable, len(allRoles)*len(allRoles)*2)
	seen := map[string]bool{}
	for _, tc := range policyTable {
		seen[fmt.Sprintf("%s/%s/%t", tc.actor, tc.target, tc.same)] = true
	}
	assert.Len(t, seen, 32)
}

func TestCanUpdateIdentity(t *testing.T) {
	for _, tc := range policyTable {
		name := fmt.Sprintf("%s on %s same=%t", tc.actor, tc.target, tc.same)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.update, CanUpdateIdentity(tc.actor, tc.target, tc.same))
		})
	}
}

func TestCanDeleteIdentityMatchesUpdatePolicy(t *testing.T) {
	for _, tc := range policyTable {
		name := fmt.Sprintf("%s on %s same=%t", tc.actor, tc.target, tc.same)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.update, CanDeleteIdentity(tc.actor, tc.target, tc.same))
		})
	}
}

func TestCanCreateIdentity(t *testing.T) {
	for _, tc := range policyTable {
		name := fmt.Sprintf("%s on %s same=%t", tc.actor, tc.target, tc.same)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.create, CanCreateIdentity(tc.actor, tc.target, tc.same))
		})
	}
}

func TestCanMutateBooks(t *testing.T) {
	assert.True(t, CanMutateBooks(RoleSuper))
	assert.True(t, CanMutateBooks(RoleAdmin))
	assert.False(t, CanMutateBooks(RoleReader))
	assert.False(t, CanMutateBooks(RoleGuest))
}

func TestCanMutateShelf(t *testing.T) {
	assert.True(t, CanMutateShelf(&Identity{ID: 7, Role: RoleReader}))
	assert.True(t, CanMutateShelf(&Identity{ID: 3, Role: RoleAdmin}))
	assert.False(t, CanMutateShelf(NewGuest("")))
	assert.False(t, CanMutateShelf(nil))
	assert.False(t, CanMutateShelf(&Identity{Role: RoleReader}))
}

func TestRoleRankOrdering(t *testing.T) {
	assert.Greater(t, RoleSuper.Rank(), RoleAdmin.Rank())
	assert.Greater(t, RoleAdmin.Rank(), RoleReader.Rank())
	assert.Greater(t, RoleReader.Rank(), RoleGuest.Rank())
	assert.Equal(t, 0, Role("owner").Rank())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Admin ")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
