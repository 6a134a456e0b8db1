package rbac

// Simple default policy for provisioned site roles. Expand as needed.
var RolePermissions = map[string][]string{
	"access": {
		"site:visit",
		"tool:launch",
	},
	"student": {
		"site:visit",
		"tool:launch",
	},
	"maintain": {
		"site:visit",
		"site:update",
		"tool:*",
	},
	"instructor": {
		"site:visit",
		"site:update",
		"tool:*",
	},
	"admin": {
		"*", // everything
	},
}
