package config

import "path/filepath"

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
}

type Storage struct{}

var _ StoreConfig = Storage{}

func (Storage) GetStoreDriver() string {
	return GetEnv("STORE_DRIVER", StoreDriverFile)
}

// GetStorePath returns the file or database path used by the configured driver
func (s Storage) GetStorePath() string {
	folder := EnvVars{}.GetDataFolder()
	switch s.GetStoreDriver() {
	case StoreDriverSQLite:
		return GetEnv("STORE_PATH", filepath.Join(folder, "session.db"))
	default:
		return GetEnv("STORE_PATH", folder)
	}
}
