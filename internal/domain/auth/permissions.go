package auth

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

const (
	PermUsersRead         = "users.read"
	PermUsersWrite        = "users.write"
	PermGoalsRead         = "goals.read"
	PermGoalsWrite        = "goals.write"
	PermGoalsApprove      = "goals.approve"
	PermEvaluationsRead   = "evaluations.read"
	PermEvaluationsWrite  = "evaluations.write"
	PermEvaluationsSelf   = "evaluations.self"
	PermCyclesWrite       = "cycles.write"
	PermCoursesRead       = "courses.read"
	PermCoursesWrite      = "courses.write"
	PermCoursesEnroll     = "courses.enroll"
	PermReportsRead       = "reports.read"
	PermAuditRead         = "audit.read"
	PermNotificationsRead = "notifications.read"
)

var DefaultPermissions = []string{
	PermUsersRead,
	PermUsersWrite,
	PermGoalsRead,
	PermGoalsWrite,
	PermGoalsApprove,
	PermEvaluationsRead,
	PermEvaluationsWrite,
	PermEvaluationsSelf,
	PermCyclesWrite,
	PermCoursesRead,
	PermCoursesWrite,
	PermCoursesEnroll,
	PermReportsRead,
	PermAuditRead,
	PermNotificationsRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermUsersRead,
		PermGoalsRead,
		PermGoalsWrite,
		PermEvaluationsRead,
		PermEvaluationsSelf,
		PermCoursesRead,
		PermCoursesEnroll,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleManager: {
		PermUsersRead,
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsApprove,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsSelf,
		PermCoursesRead,
		PermCoursesEnroll,
		PermReportsRead,
		PermNotificationsRead,
	},
	RoleAdmin: DefaultPermissions,
}
