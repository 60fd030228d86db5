package server

// Route path constants
// All companion routes are defined here to ensure consistency and prevent typos
const (
	// Share target, registered in the web app manifest
	RouteShareTarget = "/share-target"

	// Payment registration page. The actual path comes from config, this is the default.
	RoutePaymentNew = "/payments/new"

	// Auth
	RouteAuthCallback = "/auth/callback"
	RouteLogin        = "/login"
	RouteLogout       = "/logout"
	RouteStatus       = "/status"

	// Message channel to open tabs
	RouteWS = "/ws"

	RouteMetrics = "/metrics"
)
