package config

type Config interface {
	EnvConfig
	SessionConfig
	StoreConfig
	AgentConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIURL() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Storage
	Agent
}

func New() Config {
	return mainConfig{}
}
