// Package permissions centralizes the role matrix. Handlers never compare
// role strings directly; they ask for a permission tag.
package permissions

// Role is the operator's role as established by the auth layer.
type Role string

const (
	RoleResident Role = "resident"
	RoleOffice   Role = "office"
	RoleBoard    Role = "board"
	RoleAdmin    Role = "admin"
)

// Permission tags one guarded capability.
type Permission string

const (
	PermViewDebts       Permission = "debts.view"
	PermManageTariffs   Permission = "tariffs.manage"
	PermManagePeriods   Permission = "periods.manage"
	PermImportStatement Permission = "imports.statement"
	PermManageRegistry  Permission = "registry.manage"
	PermViewAudit       Permission = "audit.view"
)

var matrix = map[Role]map[Permission]bool{
	RoleResident: {},
	RoleOffice: {
		PermViewDebts:       true,
		PermImportStatement: true,
		PermManageRegistry:  true,
	},
	RoleBoard: {
		PermViewDebts:     true,
		PermViewAudit:     true,
		PermManagePeriods: true,
	},
	RoleAdmin: {
		PermViewDebts:       true,
		PermManageTariffs:   true,
		PermManagePeriods:   true,
		PermImportStatement: true,
		PermManageRegistry:  true,
		PermViewAudit:       true,
	},
}

// Allowed reports whether the role carries the permission. Unknown roles
// have no permissions.
func Allowed(role Role, perm Permission) bool {
	return matrix[role][perm]
}
