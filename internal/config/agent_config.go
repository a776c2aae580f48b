package config

import "strings"

type AgentConfig interface {
	GetAgentAddr() string
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type Agent struct{}

var _ AgentConfig = Agent{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (Agent) GetAgentAddr() string {
	return GetEnv("AGENT_ADDR", "127.0.0.1:7777")
}

// GetAllowedOrigins parses AGENT_ALLOWED_ORIGINS as a comma separated list.
// The default admits the front end's local dev server.
func (Agent) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range strings.Split(GetEnv("AGENT_ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (Agent) GetAllowedMethods() string {
	return "GET, POST"
}

func (Agent) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
