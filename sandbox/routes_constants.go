package sandbox

// Route path constants
const (
	RouteIndex     = "/{$}"
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteLogout    = "/logout"
	RouteRegister  = "/register"

	RouteAuthRefresh    = "/auth/refresh"
	RouteChangePassword = "/change-password"
	RouteForgotPassword = "/forgot-password"

	RouteChat            = "/chat"
	RouteChatMessage     = "/chat/message"
	RouteChatHealth      = "/chat/health"
	RouteChatIcebreakers = "/chat/daily/icebreakers"
)
