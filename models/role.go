package models

import "strings"

// Role menentukan siapa yang boleh memicu transisi workflow.
type Role string

const (
	RoleWarehouse Role = "warehouse"
	RoleSale      Role = "sale"
	RoleSource    Role = "source"
	RoleViewer    Role = "viewer" // read only
	RoleAdmin     Role = "admin"  // full access
)

// ParseRole -> case-insensitive, returns ok=false for unknown values
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warehouse", "kho":
		return RoleWarehouse, true
	case "sale":
		return RoleSale, true
	case "source":
		return RoleSource, true
	case "viewer":
		return RoleViewer, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Department -> role mapping. Unlisted departments fall through to the
// keyword rules below, then to admin.
var departmentRoleMap = map[string]Role{
	"SOURCING":             RoleSource,
	"LOGISTICS":            RoleWarehouse,
	"FULLFILLMENT":         RoleWarehouse,
	"QUALITY CONTROL":      RoleWarehouse,
	"BUSINESS DEVELOPMENT": RoleSale,
	"TECH":                 RoleAdmin,
	"BOARD OF DIRECTOR":    RoleViewer,
	"MARKETING":            RoleViewer,
	"HUMAN RESOURCE":       RoleViewer,
	"PRODUCT DESIGN":       RoleViewer,
	"FINANCE & ACCOUNT":    RoleViewer,
}

// DepartmentRole -> resolve workflow role dari nama department
func DepartmentRole(department string) Role {
	if department == "" {
		return RoleAdmin
	}
	normalized := strings.ToUpper(strings.TrimSpace(department))
	if role, ok := departmentRoleMap[normalized]; ok {
		return role
	}
	switch {
	case strings.Contains(normalized, "SALE") || strings.Contains(normalized, "BUSINESS"):
		return RoleSale
	case strings.Contains(normalized, "SOURCE") || strings.Contains(normalized, "PURCHASING"):
		return RoleSource
	case strings.Contains(normalized, "KHO") || strings.Contains(normalized, "WAREHOUSE"):
		return RoleWarehouse
	}
	return RoleAdmin
}
