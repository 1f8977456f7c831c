package configs

import (
	"time"
)

// Statements issued around node commands.
const (
	// DefaultTwoPhaseGID is the prepared transaction name shared by all participants of one broadcast.
	DefaultTwoPhaseGID = "shardlord"

	BeginStmt          = "BEGIN"
	PrepareStmt        = "PREPARE TRANSACTION '%s'"
	CommitPreparedStmt = "COMMIT PREPARED '%s'"
	AbortPreparedStmt  = "ROLLBACK PREPARED '%s'"
	LocalCommitStmt    = "SET SESSION synchronous_commit TO local"

	// AmbiguousValue marks a scalar command that did not return exactly one non-null value.
	AmbiguousValue = "?"
	// ResultSeparator joins node outcomes in a response.
	ResultSeparator = ","

	// CoordinatorNode addresses the coordinator itself.
	CoordinatorNode = 0

	// Directory drivers.
	PostgreSQL = "postgres"
	SQLite     = "sqlite"
	NoDir      = "none"
)

// System parameters.
const (
	MaxConnectionHandler   = 16
	DefaultFinalizeTimeout = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	CloseTimeout           = 5 * time.Second
	LogBatchInterval       = 10 * time.Millisecond
	DefaultListenAddress   = "127.0.0.1:5433"
)

// Config carries the process-wide role and connection settings of a coordinator.
// It is read-only once handed to a Manager.
type Config struct {
	// Shardlord tells whether this process is the cluster coordinator.
	Shardlord bool `json:"shardlord"`
	// SyncReplication mirrors the cluster's synchronous replication setting.
	// Broadcasts without sync commit warn once when it is on.
	SyncReplication bool `json:"sync_replication"`
	// CoordinatorConnString is used for node 0.
	CoordinatorConnString string `json:"shardlord_connstring"`

	TwoPhaseGID       string `json:"two_phase_gid"`
	UniqueTwoPhaseGID bool   `json:"unique_two_phase_gid"`

	FinalizeTimeoutMs int `json:"finalize_timeout_ms"`
	ConnectTimeoutMs  int `json:"connect_timeout_ms"`

	ListenAddress string `json:"listen_address"`

	Directory DirectoryConfig `json:"directory"`
	Journal   JournalConfig   `json:"journal"`
	Log       LogConfig       `json:"log"`
}

type DirectoryConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LogConfig struct {
	Level  string `json:"level"`
	ToFile bool   `json:"to_file"`
	Path   string `json:"path"`
}

// Default returns a configuration with every optional knob set.
func Default() *Config {
	return &Config{
		TwoPhaseGID:       DefaultTwoPhaseGID,
		FinalizeTimeoutMs: int(DefaultFinalizeTimeout / time.Millisecond),
		ConnectTimeoutMs:  int(DefaultConnectTimeout / time.Millisecond),
		ListenAddress:     DefaultListenAddress,
		Directory:         DirectoryConfig{Driver: PostgreSQL},
		Journal:           JournalConfig{Path: "./logs/journal"},
		Log:               LogConfig{Level: "info", Path: "./logs"},
	}
}

func (c *Config) FinalizeTimeout() time.Duration {
	if c.FinalizeTimeoutMs <= 0 {
		return DefaultFinalizeTimeout
	}
	return time.Duration(c.FinalizeTimeoutMs) * time.Millisecond
}

func (c *Config) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutMs <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c *Config) GID() string {
	if c.TwoPhaseGID == "" {
		return DefaultTwoPhaseGID
	}
	return c.TwoPhaseGID
}
