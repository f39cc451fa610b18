package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	err := m.Register(Role{
		Name: "Buyer",
		Permissions: PermissionMatrix{
			EntityTransaction: EntityPermissions{
				"get":    RelationGrants{RelationOwn: Star()},
				"create": RelationGrants{RelationOwn: Attributes("from", "subTransactions")},
			},
		},
		Assignment: func(u AssignmentUser) bool { return u.Active },
	})
	require.NoError(t, err)
	err = m.Register(Role{
		Name: "Auditor",
		Permissions: PermissionMatrix{
			EntityTransaction: EntityPermissions{
				"get": RelationGrants{RelationAll: Star()},
			},
		},
		Assignment: func(u AssignmentUser) bool { return u.Type == "AUDITOR" },
	})
	require.NoError(t, err)
	return m
}

func TestRegisterDuplicate(t *testing.T) {
	m := testManager(t)
	err := m.Register(Role{Name: "Buyer"})
	require.ErrorIs(t, err, ErrDuplicateRole)
}

func TestRegisterAfterSeal(t *testing.T) {
	m := testManager(t)
	m.Seal()
	require.Error(t, m.Register(Role{Name: "Late"}))
}

func TestCanFirstMatch(t *testing.T) {
	m := testManager(t)

	require.True(t, m.Can([]string{"Buyer"}, "get", RelationOwn, EntityTransaction, []string{"*"}))
	require.True(t, m.Can([]string{"Buyer", "Auditor"}, "get", RelationAll, EntityTransaction, []string{"*"}))
	require.True(t, m.Can([]string{"Auditor"}, "get", RelationAll, EntityTransaction, []string{"anything"}))
}

func TestCanAttributeSubset(t *testing.T) {
	m := testManager(t)

	require.True(t, m.Can([]string{"Buyer"}, "create", RelationOwn, EntityTransaction, []string{"from"}))
	require.True(t, m.Can([]string{"Buyer"}, "create", RelationOwn, EntityTransaction, []string{"from", "subTransactions"}))
	require.False(t, m.Can([]string{"Buyer"}, "create", RelationOwn, EntityTransaction, []string{"from", "to"}))
	// Requesting the wildcard needs a wildcard grant.
	require.False(t, m.Can([]string{"Buyer"}, "create", RelationOwn, EntityTransaction, []string{"*"}))
}

func TestRelationsAreIndependent(t *testing.T) {
	m := testManager(t)

	// Buyer holds "own" on get, not "all" or "organ".
	require.False(t, m.Can([]string{"Buyer"}, "get", RelationAll, EntityTransaction, []string{"*"}))
	require.False(t, m.Can([]string{"Buyer"}, "get", RelationOrgan, EntityTransaction, []string{"*"}))
	// And "all" on Auditor does not imply "own".
	require.False(t, m.Can([]string{"Auditor"}, "get", RelationOwn, EntityTransaction, []string{"*"}))
}

func TestCanDeniesByDefault(t *testing.T) {
	m := testManager(t)

	require.False(t, m.Can(nil, "get", RelationOwn, EntityTransaction, []string{"*"}))
	require.False(t, m.Can([]string{"Unknown"}, "get", RelationOwn, EntityTransaction, []string{"*"}))
	require.False(t, m.Can([]string{"Buyer"}, "get", RelationOwn, "NoSuchEntity", []string{"*"}))
	require.False(t, m.Can([]string{"Buyer"}, "explode", RelationOwn, EntityTransaction, []string{"*"}))
}

func TestRolesOf(t *testing.T) {
	m := testManager(t)

	roles := m.RolesOf(AssignmentUser{ID: 1, Type: "AUDITOR", Active: true})
	require.ElementsMatch(t, []string{"Buyer", "Auditor"}, roles)

	roles = m.RolesOf(AssignmentUser{ID: 2, Type: "MEMBER", Active: true})
	require.ElementsMatch(t, []string{"Buyer"}, roles)

	require.Empty(t, m.RolesOf(AssignmentUser{ID: 3, Active: false}))
}

func TestDefaultRoles(t *testing.T) {
	m := NewManager()
	require.NoError(t, RegisterDefaultRoles(m))
	m.Seal()

	admin := m.RolesOf(AssignmentUser{ID: 1, Type: "LOCAL_ADMIN", Active: true})
	require.Contains(t, admin, "Local Admin")
	require.True(t, m.Can(admin, "create", RelationAll, EntityFine, []string{"*"}))

	member := m.RolesOf(AssignmentUser{ID: 2, Type: "MEMBER", Active: true})
	require.Contains(t, member, "User")
	require.False(t, m.Can(member, "create", RelationAll, EntityFine, []string{"*"}))
	require.True(t, m.Can(member, "get", RelationOwn, EntityBalance, []string{"*"}))
	require.False(t, m.Can(member, "update", RelationOwn, EntityUser, []string{"type"}))
	require.True(t, m.Can(member, "update", RelationOwn, EntityUser, []string{"firstName"}))
}
