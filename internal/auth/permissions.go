package auth

// Роли выдает identity-провайдер, здесь они только читаются
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	PermEventsReadAll   = "events:read:all"
	PermMetricsCompute  = "metrics:compute"
	PermCatalogManage   = "catalog:manage"
	PermMetricsReadSelf = "metrics:read:self"
)

// Permissions список разрешений
var Permissions = map[string][]string{
	RoleOwner: {
		PermEventsReadAll,
		PermMetricsCompute,
		PermMetricsReadSelf,
	},
	RoleAdmin: {
		PermMetricsCompute,
		PermMetricsReadSelf,
	},
	RoleMember: {
		PermMetricsReadSelf,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CanPerformAction: суперпользователю можно все
func CanPerformAction(claims *Claims, permission string) bool {
	if claims == nil {
		return false
	}
	return claims.IsSuperuser || HasPermission(claims.Role, permission)
}

// CanReadUser - свои данные читает каждый, чужие только суперпользователь
func CanReadUser(claims *Claims, userID string) bool {
	if claims == nil {
		return false
	}
	return claims.IsSuperuser || claims.UserID == userID
}
