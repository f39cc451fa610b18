package rbac

// Action is a verb applied to an entity, e.g. "get", "create", "update".
type Action = string

// Relation expresses the caller's relationship to the resource. Each
// relation must be granted on its own; a broader relation never implies
// a narrower one.
type Relation string

// Supported relations.
const (
	RelationOwn    Relation = "own"
	RelationOrgan  Relation = "organ"
	RelationPublic Relation = "public"
	RelationAll    Relation = "all"
)

// AttributeWildcard grants access to every attribute of an entity.
const AttributeWildcard = "*"

// AllowedAttributes is the set of entity attributes a grant covers.
type AllowedAttributes map[string]struct{}

// Attributes builds an AllowedAttributes set from field names.
func Attributes(names ...string) AllowedAttributes {
	set := make(AllowedAttributes, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Star is shorthand for the wildcard attribute grant.
func Star() AllowedAttributes {
	return Attributes(AttributeWildcard)
}

// RelationGrants maps each granted relation to its allowed attributes.
type RelationGrants map[Relation]AllowedAttributes

// EntityPermissions maps actions on one entity type to relation grants.
type EntityPermissions map[Action]RelationGrants

// PermissionMatrix maps entity type names to their permissions.
type PermissionMatrix map[string]EntityPermissions

// AssignmentUser is the subset of a user account that assignment
// predicates may inspect.
type AssignmentUser struct {
	ID     int64
	Type   string
	Active bool
}

// Role couples a unique name, a permission matrix and a predicate that
// decides whether a given user holds the role. Roles are process-wide
// configuration: registered once at startup, immutable afterwards.
type Role struct {
	Name        string
	Permissions PermissionMatrix
	Assignment  func(u AssignmentUser) bool
}
