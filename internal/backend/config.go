package backend

import (
	"fmt"

	"extrato/internal/config"
	"extrato/internal/services"
	ports "extrato/internal/sheets"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	StatementTitle    string
	StatementFile     string
	ColumnAliasesFile string
	StrictDates       bool

	// Fetcher, when set, replaces the Google or workbook fetcher.
	Fetcher ports.MatrixFetcher
	// Observer receives per-row sync outcomes.
	Observer func(services.RowOutcome)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = config.BackendSQLite
	PostgresBackend BackendType = config.BackendPostgres
	MemoryBackend   BackendType = config.BackendMemory
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		StatementTitle:    appConfig.StatementTitle,
		StatementFile:     appConfig.StatementFile,
		ColumnAliasesFile: appConfig.ColumnAliasesFile,
		StrictDates:       appConfig.StrictDates,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}

	return nil
}
