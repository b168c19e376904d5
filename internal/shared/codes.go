package shared

// Core platform permission codes.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermDepartmentsView   = "departments.view"
	PermDepartmentsCreate = "departments.create"
	PermDepartmentsEdit   = "departments.edit"
	PermDepartmentsDelete = "departments.delete"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermSelfView = "self.view"
	PermSelfEdit = "self.edit"
)

// CoreCodes lists every permission the platform seeds.
func CoreCodes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermDepartmentsView,
		PermDepartmentsCreate,
		PermDepartmentsEdit,
		PermDepartmentsDelete,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermSelfView,
		PermSelfEdit,
	}
}
