package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Service:  ServiceConfig{Name: "user", Port: "8080", Version: "dev", Env: "development"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{Driver: DriverMemory},
		Auth:     AuthConfig{JWTSecret: "secret", BcryptCost: 10},
		Query:    QueryConfig{DefaultLimit: 10, MaxLimit: 100},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("QUERY_DEFAULT_LIMIT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, 10, cfg.Query.DefaultLimit)
	assert.Equal(t, 100, cfg.Query.MaxLimit)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeoutDuration())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com, ,https://admin.example.com")
	t.Setenv("QUERY_MAX_LIMIT", "50")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Load()

	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 50, cfg.Query.MaxLimit)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

func TestLoadLogFormatByEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")

	t.Setenv("ENV", "development")
	assert.Equal(t, "console", Load().Logging.Format)

	t.Setenv("ENV", "production")
	assert.Equal(t, "json", Load().Logging.Format)

	t.Setenv("ENV", "dev")
	t.Setenv("LOG_FORMAT", "json")
	assert.Equal(t, "json", Load().Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid memory", mutate: func(*Config) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "sqlite" },
			wantErr: "DB_DRIVER must be one of",
		},
		{
			name:    "postgres needs host",
			mutate:  func(c *Config) { c.Database = DatabaseConfig{Driver: DriverPostgres, Name: "users", User: "u", Password: "p"} },
			wantErr: "DB_HOST is required",
		},
		{
			name:    "mongo needs uri",
			mutate:  func(c *Config) { c.Database.Driver = DriverMongo; c.Mongo.Database = "users" },
			wantErr: "MONGO_URI is required",
		},
		{
			name:    "memory rejected in production",
			mutate:  func(c *Config) { c.Service.Env = "production" },
			wantErr: "not allowed in production",
		},
		{
			name:    "no auth source",
			mutate:  func(c *Config) { c.Auth = AuthConfig{} },
			wantErr: "AUTH_JWT_SECRET or AUTH_SERVICE_URL",
		},
		{
			name:    "max below default",
			mutate:  func(c *Config) { c.Query.MaxLimit = 5 },
			wantErr: "QUERY_MAX_LIMIT (5)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "LOG_LEVEL must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", Name: "users", User: "app", Password: "pw", SSLMode: "disable"}
	assert.Equal(t, "postgresql://app:pw@db:5432/users?sslmode=disable", db.BuildDSN())
}
