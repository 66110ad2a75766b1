package rbac

const (
	RoleExaminer = "examiner"
	RoleAdmin    = "admin"
)

const (
	PermScore    = "norms:score"
	PermRead     = "norms:read"
	PermPopulate = "norms:populate"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleExaminer: {
		PermScore,
		PermRead,
	},
	RoleAdmin: {
		"*", // everything
	},
}
