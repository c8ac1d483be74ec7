package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseFile_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "client.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server_url":"http://json:1","request_timeout":"3s"}`), 0o600))
	yamlPath := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("server_url: http://yaml:2\ncache_path: /var/c.db\n"), 0o600))

	t.Run("json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", jsonPath}
		cfg := &Config{CachePath: "keep"}
		parseFile(cfg)

		assert.Equal(t, "http://json:1", cfg.ServerURL)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "keep", cfg.CachePath)
	})

	t.Run("yaml", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", yamlPath}
		cfg := &Config{}
		parseFile(cfg)

		assert.Equal(t, "http://yaml:2", cfg.ServerURL)
		assert.Equal(t, "/var/c.db", cfg.CachePath)
	})

	t.Run("no file → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerURL: "defaults"}
		parseFile(cfg)
		assert.Equal(t, "defaults", cfg.ServerURL)
	})

	t.Run("invalid file → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}
		require.Panics(t, func() { parseFile(&Config{}) })
	})
}
