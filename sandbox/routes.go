package sandbox

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, s.IndexHandler())

	// Legacy HTML flow
	s.RegisterRouteFunc("GET "+RouteLogin, s.LoginPageHandler())
	s.RegisterRouteFunc("POST "+RouteLogin, s.LoginSubmissionHandler())
	s.RegisterRouteFunc("GET "+RouteDashboard, s.DashboardHandler())
	s.RegisterRouteFunc("GET "+RouteLogout, s.LogoutHandler())

	// Account API
	s.RegisterRouteFunc("POST "+RouteRegister, s.RegisterHandler())
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, s.RefreshHandler())
	s.RegisterRouteFunc("POST "+RouteChangePassword, s.ChangePasswordHandler())
	s.RegisterRouteFunc("POST "+RouteForgotPassword, s.ForgotPasswordHandler())

	// Chat API
	s.RegisterRouteFunc("GET "+RouteChat, s.ChatHistoryHandler())
	s.RegisterRouteFunc("POST "+RouteChatMessage, s.ChatMessageHandler())
	s.RegisterRouteFunc("GET "+RouteChatHealth, s.ChatHealthHandler())
	s.RegisterRouteFunc("GET "+RouteChatIcebreakers, s.IcebreakersHandler())
}
