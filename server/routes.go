package server

func (s *Server) initRoutes() {
	// Share target: the OS posts here, the browser follows the redirect
	s.RegisterRouteHandler("POST "+RouteShareTarget, ChainMiddleware(s.relay.ServeHTTP, s.PageMiddleware()...))

	// Payment registration with a shared attachment
	s.RegisterRouteHandler("GET "+s.paymentRoute, ChainMiddleware(s.PaymentAttachmentHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+s.paymentRoute, ChainMiddleware(s.PaymentSubmitHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+s.paymentRoute, ChainMiddleware(noContent, s.APIMiddleware()...))

	// Auth
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.LoginCallbackHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginRedirectHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteLogout, ChainMiddleware(noContent, s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))

	// The websocket upgrade needs the raw writer, so it skips the logging wrapper
	s.RegisterRouteHandler("GET "+RouteWS, ChainMiddleware(s.WebSocketHandler(), s.RecoverMiddleware))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}
