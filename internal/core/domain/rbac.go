package domain

// Resource is a coarse noun the RBAC policy grants actions on.
type Resource string

const (
	ResourceUsers    Resource = "users"
	ResourceSessions Resource = "sessions"
	ResourceSecurity Resource = "security"
	ResourceContent  Resource = "content"
	ResourceLogs     Resource = "logs"
)

// Action is a coarse verb. ActionManage implies every other action on the
// same resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// policy is the static role → resource → actions grant table. It is defined
// at deployment time and never mutated at runtime; absence of a grant is a
// deny.
var policy = map[Role]map[Resource][]Action{
	RoleAdmin: {
		ResourceUsers:    {ActionManage},
		ResourceSessions: {ActionManage},
		ResourceSecurity: {ActionManage},
		ResourceContent:  {ActionManage},
		ResourceLogs:     {ActionManage},
	},
	RoleEditor: {
		ResourceContent: {ActionManage},
		ResourceLogs:    {ActionRead},
	},
	RoleContributor: {
		ResourceContent: {ActionRead, ActionCreate, ActionUpdate},
	},
	RoleViewer: {
		ResourceContent: {ActionRead},
	},
}

// HasPermission reports whether role may perform action on resource.
// Pure function over the static policy table: no I/O, default-deny.
func HasPermission(role Role, resource Resource, action Action) bool {
	grants, ok := policy[role]
	if !ok {
		return false
	}
	actions, ok := grants[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == ActionManage || a == action {
			return true
		}
	}
	return false
}
