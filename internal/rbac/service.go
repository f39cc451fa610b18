package rbac

import (
	"errors"
	"fmt"
)

// ErrDuplicateRole indicates a role name that was already registered.
var ErrDuplicateRole = errors.New("rbac: duplicate role")

// Manager holds the registered role set and answers permission checks.
// Registration happens at startup only; Can and RolesOf perform
// lock-free reads afterwards.
type Manager struct {
	roles  map[string]Role
	sealed bool
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{roles: make(map[string]Role)}
}

// Register adds a role definition. Fails with ErrDuplicateRole when the
// name was registered before, and rejects registration after Seal.
func (m *Manager) Register(role Role) error {
	if m.sealed {
		return errors.New("rbac: manager sealed")
	}
	if role.Name == "" {
		return errors.New("rbac: role name required")
	}
	if _, ok := m.roles[role.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRole, role.Name)
	}
	m.roles[role.Name] = role
	return nil
}

// Seal marks registration as finished. Concurrent readers are only safe
// once no further writes can occur.
func (m *Manager) Seal() {
	m.sealed = true
}

// Can reports whether any of the caller's roles grants the requested
// action on the entity type for the given relation and attribute set.
// Absence of a matching rule yields false, never an error.
func (m *Manager) Can(roles []string, action Action, relation Relation, entity string, attributes []string) bool {
	for _, name := range roles {
		role, ok := m.roles[name]
		if !ok {
			continue
		}
		if roleAllows(role, action, relation, entity, attributes) {
			return true
		}
	}
	return false
}

// RolesOf evaluates every assignment predicate against the user and
// returns the names of the roles the user holds.
func (m *Manager) RolesOf(u AssignmentUser) []string {
	var names []string
	for name, role := range m.roles {
		if role.Assignment != nil && role.Assignment(u) {
			names = append(names, name)
		}
	}
	return names
}

func roleAllows(role Role, action Action, relation Relation, entity string, attributes []string) bool {
	perms, ok := role.Permissions[entity]
	if !ok {
		return false
	}
	grants, ok := perms[action]
	if !ok {
		return false
	}
	allowed, ok := grants[relation]
	if !ok {
		return false
	}
	if _, wildcard := allowed[AttributeWildcard]; wildcard {
		return true
	}
	for _, attr := range attributes {
		if _, ok := allowed[attr]; !ok {
			return false
		}
	}
	return true
}
