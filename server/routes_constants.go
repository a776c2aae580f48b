package server

const (
	contentTypeJSON = "application/json"

	RouteSession        = "/session"
	RouteSessionLogin   = "/session/login"
	RouteSessionLogout  = "/session/logout"
	RouteSessionRefresh = "/session/refresh"
	RouteSessionToken   = "/session/token"
	RouteSessionStaff   = "/session/staff"
	RouteMetrics        = "/metrics"
	RouteHealth         = "/health"
)
