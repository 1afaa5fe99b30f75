package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dues-engine/config"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), writeFile(t, "config.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 500, cfg.Reconciler.MaxPeriods)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: A config file setting port and database
	//   and an env var overriding the port
	// WHEN: Loading
	// THEN: The file sets the database, the env var wins for the port

	path := writeFile(t, "config.yaml", `
server:
  port: 9000
database:
  path: /tmp/dues-test.db
logging:
  format: json
`)
	t.Setenv("DUES_SERVER_PORT", "9100")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/tmp/dues-test.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("DUES_LOGGING_LEVEL", "verbose")

	_, err := config.Load(viper.New(), writeFile(t, "config.yaml", "{}\n"))
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLoadDotEnv(t *testing.T) {
	const key = "DUES_DOTENV_PROBE"
	t.Cleanup(func() { os.Unsetenv(key) })

	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	require.NoError(t, config.LoadDotEnv(writeFile(t, ".env", key+"=from-dotenv\n")))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}
