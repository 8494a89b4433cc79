package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(RoleAdmin, PermManageTariffs))
	assert.True(t, Allowed(RoleOffice, PermImportStatement))
	assert.True(t, Allowed(RoleBoard, PermManagePeriods))

	assert.False(t, Allowed(RoleOffice, PermManageTariffs))
	assert.False(t, Allowed(RoleResident, PermViewDebts))
	assert.False(t, Allowed(RoleBoard, PermImportStatement))
	assert.False(t, Allowed(Role("ghost"), PermViewDebts), "unknown role has nothing")
	assert.False(t, Allowed("", PermViewDebts))
}
