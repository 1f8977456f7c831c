package configs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// Load reads a configuration file on top of Default().
// Files ending in .properties use key=value syntax, everything else is JSON.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".properties") {
		p, err := properties.LoadFile(path, properties.UTF8)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
		applyProperties(cfg, p)
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyProperties(cfg *Config, p *properties.Properties) {
	cfg.Shardlord = p.GetBool("shardman.shardlord", cfg.Shardlord)
	cfg.SyncReplication = p.GetBool("shardman.sync_replication", cfg.SyncReplication)
	cfg.CoordinatorConnString = p.GetString("shardman.shardlord_connstring", cfg.CoordinatorConnString)
	cfg.TwoPhaseGID = p.GetString("shardman.two_phase_gid", cfg.TwoPhaseGID)
	cfg.UniqueTwoPhaseGID = p.GetBool("shardman.unique_two_phase_gid", cfg.UniqueTwoPhaseGID)
	cfg.FinalizeTimeoutMs = p.GetInt("shardman.finalize_timeout_ms", cfg.FinalizeTimeoutMs)
	cfg.ConnectTimeoutMs = p.GetInt("shardman.connect_timeout_ms", cfg.ConnectTimeoutMs)
	cfg.ListenAddress = p.GetString("shardman.listen_address", cfg.ListenAddress)
	cfg.Directory.Driver = p.GetString("directory.driver", cfg.Directory.Driver)
	cfg.Directory.DSN = p.GetString("directory.dsn", cfg.Directory.DSN)
	cfg.Journal.Enabled = p.GetBool("journal.enabled", cfg.Journal.Enabled)
	cfg.Journal.Path = p.GetString("journal.path", cfg.Journal.Path)
	cfg.Log.Level = p.GetString("log.level", cfg.Log.Level)
	cfg.Log.ToFile = p.GetBool("log.to_file", cfg.Log.ToFile)
	cfg.Log.Path = p.GetString("log.path", cfg.Log.Path)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Directory.Driver {
	case PostgreSQL:
		// shardman.nodes lives on the shardlord by default.
		if c.Directory.DSN == "" {
			c.Directory.DSN = c.CoordinatorConnString
		}
		if c.Directory.DSN == "" {
			return errors.Errorf("directory driver %q needs a dsn or shardlord_connstring", c.Directory.Driver)
		}
	case SQLite:
		if c.Directory.DSN == "" {
			return errors.Errorf("directory driver %q needs a dsn", c.Directory.Driver)
		}
	case NoDir, "":
	default:
		return errors.Errorf("unknown directory driver %q", c.Directory.Driver)
	}
	if strings.ContainsAny(c.GID(), "'\\") {
		return errors.Errorf("invalid two phase gid %q", c.TwoPhaseGID)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal is enabled without a path")
	}
	return nil
}
