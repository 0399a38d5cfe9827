package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[data]
drop_columns = ["index", "Unnamed: 22"]

[data.dtype_columns]
qty = "int"
"ship-postal-code" = "int"

[data.status_mapping]
"Shipped - Delivered to Buyer" = "delivered"
"Shipped.Returned" = "returned"

[input]
paths = ["a.csv", "b.csv"]
encoding = "latin1"

[server]
shutdown_timeout = "3s"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"index", "Unnamed: 22"}, cfg.Data.DropColumns)
	assert.Equal(t, "int", cfg.Data.DtypeMap["ship-postal-code"])
	// viper lowercases keys; status matching is case-insensitive
	assert.Equal(t, "delivered", cfg.Data.StatusMapping["shipped - delivered to buyer"])
	assert.Equal(t, "returned", cfg.Data.StatusMapping["shipped.returned"])

	sources := cfg.Input.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "b.csv", sources[1].Path)
	assert.Equal(t, "latin1", sources[1].Encoding)
	assert.Equal(t, ",", sources[1].Delimiter)

	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Output.TopN)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RIE_SERVER_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("RIE_OUTPUT_TOP_N", "25")
	t.Setenv("RIE_STORE_PATH", "/tmp/runs.db")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.ListenAddr)
	assert.Equal(t, 25, cfg.Output.TopN)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
}

func TestLoadEnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("RIE_LOG_VERBOSE=true\n"), 0644))
	t.Setenv("RIE_LOG_VERBOSE", "")
	require.NoError(t, os.Unsetenv("RIE_LOG_VERBOSE"))

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env"), env))
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[data]\ndrop_columns = []\n"))
	assert.ErrorContains(t, err, "data.status_mapping")

	_, err = Load(writeConfig(t, sampleConfig+"\n[output]\ntop_n = 500\n"))
	assert.ErrorContains(t, err, "top_n")

	bad := `
[data]
drop_columns = []
[data.dtype_columns]
qty = "complex128"
[data.status_mapping]
a = "b"
`
	_, err = Load(writeConfig(t, bad))
	assert.ErrorContains(t, err, "complex128")
}
