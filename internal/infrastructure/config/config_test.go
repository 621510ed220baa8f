package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"PRODUCTSYNC_APP_NAME",
	"PRODUCTSYNC_APP_ENV",
	"PRODUCTSYNC_APP_PORT",
	"PRODUCTSYNC_DATABASE_DRIVER",
	"PRODUCTSYNC_DATABASE_HOST",
	"PRODUCTSYNC_DATABASE_PORT",
	"PRODUCTSYNC_DATABASE_PASSWORD",
	"PRODUCTSYNC_DATABASE_MAX_OPEN_CONNS",
	"PRODUCTSYNC_DATABASE_MAX_IDLE_CONNS",
	"PRODUCTSYNC_LOCK_BACKEND",
	"PRODUCTSYNC_ERP_PROVIDER",
	"PRODUCTSYNC_ERP_REGISTRY_BILLYDK_API_TOKEN",
	"PRODUCTSYNC_ERP_REGISTRY_BILLYDK_ORGANIZATION_ID",
	"PRODUCTSYNC_AUTH_ENABLED",
	"PRODUCTSYNC_AUTH_SECRET",
	"PRODUCTSYNC_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv unsets every variable the tests touch and restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "productsync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "memory", cfg.Lock.Backend)
		assert.Equal(t, 10*time.Second, cfg.Lock.WaitTimeout)
		assert.Equal(t, DefaultErpProvider, cfg.Erp.Provider)
		assert.Equal(t, "https://api.billysbilling.com/v2", cfg.Erp.APIBaseURL)
		assert.Equal(t, 30*time.Second, cfg.Erp.ERPTimeout())
		assert.Equal(t, 100, cfg.Erp.PageSize)
		assert.Empty(t, cfg.Erp.Registry)
		assert.False(t, cfg.Auth.Enabled)
	})

	t.Run("loads values from environment variables with PRODUCTSYNC prefix", func(t *testing.T) {
		clearEnv(t)
		os.Setenv("PRODUCTSYNC_APP_PORT", "9000")
		os.Setenv("PRODUCTSYNC_DATABASE_DRIVER", "sqlite")
		os.Setenv("PRODUCTSYNC_LOCK_BACKEND", "redis")
		os.Setenv("PRODUCTSYNC_ERP_REGISTRY_BILLYDK_API_TOKEN", "env-token")
		os.Setenv("PRODUCTSYNC_ERP_REGISTRY_BILLYDK_ORGANIZATION_ID", "org-1")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "redis", cfg.Lock.Backend)

		creds, err := cfg.Erp.ActiveCredentials()
		require.NoError(t, err)
		assert.Equal(t, "env-token", creds.APIToken)
		assert.Equal(t, "org-1", creds.OrganizationID)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		os.Setenv("PRODUCTSYNC_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("PRODUCTSYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		os.Setenv("PRODUCTSYNC_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("requires long secret when auth is enabled", func(t *testing.T) {
		clearEnv(t)
		os.Setenv("PRODUCTSYNC_AUTH_ENABLED", "true")
		os.Setenv("PRODUCTSYNC_AUTH_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret must be at least 32 characters")
	})

	t.Run("validates sampling ratio range", func(t *testing.T) {
		clearEnv(t)
		os.Setenv("PRODUCTSYNC_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoadFile_ErpRegistry(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[erp]
provider = "BillyDk"

[erp.registry.BillyDk]
api_token = "file-token"
organization_id = "org-1"
account_id = "acc-1"
sales_tax_ruleset_id = "tax-1"

[erp.registry.Sandbox]
api_token = "sandbox-token"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	creds, err := cfg.Erp.ActiveCredentials()
	require.NoError(t, err)
	assert.Equal(t, ErpCredentials{
		APIToken:          "file-token",
		OrganizationID:    "org-1",
		AccountID:         "acc-1",
		SalesTaxRulesetID: "tax-1",
	}, creds)

	sandbox, err := cfg.Erp.Credentials("sandbox")
	require.NoError(t, err)
	assert.Equal(t, "sandbox-token", sandbox.APIToken)

	_, err = cfg.Erp.Credentials("missing")
	assert.ErrorIs(t, err, ErrErpCredentialsNotFound)

	t.Run("environment overrides file token", func(t *testing.T) {
		os.Setenv("PRODUCTSYNC_ERP_REGISTRY_BILLYDK_API_TOKEN", "env-token")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		creds, err := cfg.Erp.ActiveCredentials()
		require.NoError(t, err)
		assert.Equal(t, "env-token", creds.APIToken)
		assert.Equal(t, "acc-1", creds.AccountID)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("PRODUCTSYNC_APP_ENV", "production")
		os.Setenv("PRODUCTSYNC_DATABASE_PASSWORD", "secure-password")
		os.Setenv("PRODUCTSYNC_AUTH_ENABLED", "true")
		os.Setenv("PRODUCTSYNC_AUTH_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("PRODUCTSYNC_ERP_REGISTRY_BILLYDK_API_TOKEN", "token")
	}

	t.Run("requires ERP token in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase()
		os.Unsetenv("PRODUCTSYNC_ERP_REGISTRY_BILLYDK_API_TOKEN")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "erp.registry.billydk.api_token is required in production")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase()
		os.Unsetenv("PRODUCTSYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires auth in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase()
		os.Setenv("PRODUCTSYNC_AUTH_ENABLED", "false")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.enabled must be true in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
