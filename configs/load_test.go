package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "shardman.json", `{
		"shardlord":            true,
		"shardlord_connstring": "host=lord dbname=meta",
		"unique_two_phase_gid": true,
		"finalize_timeout_ms":  1500,
		"directory":            {"driver": "sqlite", "dsn": "/tmp/nodes.db"},
		"journal":              {"enabled": true, "path": "/tmp/journal"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Shardlord)
	assert.Equal(t, "host=lord dbname=meta", cfg.CoordinatorConnString)
	assert.True(t, cfg.UniqueTwoPhaseGID)
	assert.Equal(t, DefaultTwoPhaseGID, cfg.GID())
	assert.Equal(t, 1500*time.Millisecond, cfg.FinalizeTimeout())
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout())
	assert.Equal(t, SQLite, cfg.Directory.Driver)
	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadProperties(t *testing.T) {
	path := writeFile(t, "shardman.properties", `
shardman.shardlord = true
shardman.sync_replication = true
shardman.shardlord_connstring = host=lord dbname=meta
shardman.two_phase_gid = bcst
shardman.connect_timeout_ms = 250
shardman.listen_address = 0.0.0.0:6000
log.level = debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Shardlord)
	assert.True(t, cfg.SyncReplication)
	assert.Equal(t, "bcst", cfg.GID())
	assert.Equal(t, 250*time.Millisecond, cfg.ConnectTimeout())
	assert.Equal(t, "0.0.0.0:6000", cfg.ListenAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	// the node directory defaults to the shardlord database.
	assert.Equal(t, PostgreSQL, cfg.Directory.Driver)
	assert.Equal(t, "host=lord dbname=meta", cfg.Directory.DSN)
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"missing_dsn.json": `{"directory": {"driver": "sqlite"}}`,
		"no_lord.json":     `{"directory": {"driver": "postgres"}}`,
		"bad_driver.json":  `{"directory": {"driver": "etcd"}}`,
		"bad_gid.json":     `{"shardlord_connstring": "host=x", "two_phase_gid": "it's"}`,
		"journal.json":     `{"shardlord_connstring": "host=x", "journal": {"enabled": true, "path": ""}}`,
		"syntax.json":      `{"shardlord": tru`,
		"bad.properties":   "directory.driver = etcd\n",
	} {
		_, err := Load(writeFile(t, name, content))
		assert.Error(t, err, name)
	}
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestNextBroadcastID(t *testing.T) {
	a := NextBroadcastID()
	b := NextBroadcastID()
	assert.Equal(t, (a+1)%MaxBroadcastID, b)
}
