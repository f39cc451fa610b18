package rbac

// Entity type names used throughout the permission matrices.
const (
	EntityUser        = "User"
	EntityBalance     = "Balance"
	EntityFine        = "Fine"
	EntityTransfer    = "Transfer"
	EntityTransaction = "Transaction"
	EntityProduct     = "Product"
	EntityContainer   = "Container"
	EntityPointOfSale = "PointOfSale"
)

// User type names matching users.UserType values.
const (
	typeMember     = "MEMBER"
	typeLocalAdmin = "LOCAL_ADMIN"
	typeOrgan      = "ORGAN"
)

func star(actions ...Action) EntityPermissions {
	perms := make(EntityPermissions, len(actions))
	for _, a := range actions {
		perms[a] = RelationGrants{RelationAll: Star()}
	}
	return perms
}

// RegisterDefaultRoles installs the deployment's built-in roles: an
// administrator role holding unrestricted grants on every entity, and a
// member role limited to its own records.
func RegisterDefaultRoles(m *Manager) error {
	admin := Role{
		Name: "Local Admin",
		Permissions: PermissionMatrix{
			EntityUser:        star("get", "create", "update", "delete"),
			EntityBalance:     star("get"),
			EntityFine:        star("get", "create", "update", "delete", "notify"),
			EntityTransfer:    star("get", "create"),
			EntityTransaction: star("get", "create"),
			EntityProduct:     star("get", "create", "update", "delete"),
			EntityContainer:   star("get", "create", "update", "delete"),
			EntityPointOfSale: star("get", "create", "update", "delete"),
		},
		Assignment: func(u AssignmentUser) bool {
			return u.Active && u.Type == typeLocalAdmin
		},
	}

	member := Role{
		Name: "User",
		Permissions: PermissionMatrix{
			EntityUser: EntityPermissions{
				"get": RelationGrants{RelationOwn: Star()},
				"update": RelationGrants{
					RelationOwn: Attributes("firstName", "lastName", "email"),
				},
			},
			EntityBalance: EntityPermissions{
				"get": RelationGrants{RelationOwn: Star()},
			},
			EntityFine: EntityPermissions{
				"get": RelationGrants{RelationOwn: Star()},
			},
			EntityTransfer: EntityPermissions{
				"get":    RelationGrants{RelationOwn: Star()},
				"create": RelationGrants{RelationOwn: Star()},
			},
			EntityTransaction: EntityPermissions{
				"get":    RelationGrants{RelationOwn: Star()},
				"create": RelationGrants{RelationOwn: Star()},
			},
			EntityProduct: EntityPermissions{
				"get": RelationGrants{RelationPublic: Star()},
			},
			EntityContainer: EntityPermissions{
				"get": RelationGrants{RelationPublic: Star()},
			},
			EntityPointOfSale: EntityPermissions{
				"get": RelationGrants{RelationPublic: Star()},
			},
		},
		Assignment: func(u AssignmentUser) bool {
			return u.Active && u.Type == typeMember
		},
	}

	organ := Role{
		Name: "Seller",
		Permissions: PermissionMatrix{
			EntityProduct:     star("get", "create", "update"),
			EntityContainer:   star("get", "create", "update"),
			EntityPointOfSale: star("get", "update"),
			EntityTransaction: EntityPermissions{
				"get": RelationGrants{RelationOrgan: Star()},
			},
		},
		Assignment: func(u AssignmentUser) bool {
			return u.Active && u.Type == typeOrgan
		},
	}

	for _, role := range []Role{admin, member, organ} {
		if err := m.Register(role); err != nil {
			return err
		}
	}
	return nil
}
