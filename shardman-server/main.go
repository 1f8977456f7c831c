package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"shardman/configs"
	"shardman/network/coordinator"
	"shardman/network/participant"
	"shardman/storage"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	configFile string
	addr       string
	debug      bool
	cmd        string
	nodes      string
	ignore     bool
	twoPhase   bool
	syncCommit bool
	sequential bool
	super      bool
	history    int
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s -config <file> [-cmd '<node>:<sql>;...' [options]]\n", os.Args[0])
	flag.PrintDefaults()
}

func init() {
	flag.StringVar(&configFile, "config", "", "the configuration file (.json or .properties)")
	flag.StringVar(&addr, "addr", "", "the address to serve broadcasts on, overrides listen_address")
	flag.BoolVar(&debug, "debug", false, "log debug info into a log file")
	flag.StringVar(&cmd, "cmd", "", "run a single broadcast and exit")
	flag.StringVar(&nodes, "nodes", "", "comma separated node ids, -cmd is sent unchanged to each of them")
	flag.BoolVar(&ignore, "ignore", false, "embed node failures in the result instead of failing")
	flag.BoolVar(&twoPhase, "2pc", false, "run the commands as one two-phase transaction")
	flag.BoolVar(&syncCommit, "sync", false, "keep synchronous commit on the nodes")
	flag.BoolVar(&sequential, "seq", false, "wait for each node before sending to the next one")
	flag.BoolVar(&super, "super", false, "connect with the nodes' super user connection strings")
	flag.IntVar(&history, "history", 0, "print the last n journaled broadcasts and exit")
	flag.Usage = usage
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg := configs.Default()
	if configFile != "" {
		var err error
		if cfg, err = configs.Load(configFile); err != nil {
			configs.Logger.Fatalf("%v", err)
		}
	}
	if addr != "" {
		cfg.ListenAddress = addr
	}
	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.ToFile = true
	}
	if err := cfg.Validate(); err != nil {
		configs.Logger.Fatalf("%v", err)
	}
	if err := configs.SetupLogger(cfg.Log); err != nil {
		configs.Logger.Fatalf("%v", err)
	}
	if cfg.CoordinatorConnString != "" {
		opts, err := participant.ParseConnString(cfg.CoordinatorConnString)
		if err != nil {
			configs.Logger.Fatalf("invalid shardlord_connstring: %v", err)
		}
		for _, o := range opts {
			if o.Keyword != "password" {
				configs.DPrintf("shardlord %s=%s", o.Keyword, o.Value)
			}
		}
	}
	if !cfg.Shardlord {
		configs.Logger.Warn("shardman.shardlord is off, broadcasts are expected to run on the shardlord")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := storage.OpenDirectory(ctx, cfg)
	if err != nil {
		configs.Logger.Fatalf("failed to open node directory: %v", err)
	}
	if dir != nil {
		defer dir.Close()
	}
	var journal *storage.Journal
	if cfg.Journal.Enabled {
		if journal, err = storage.OpenJournal(cfg.Journal.Path); err != nil {
			configs.Logger.Fatalf("failed to open journal: %v", err)
		}
		defer journal.Close()
	}

	switch {
	case history > 0:
		return printHistory(journal, history)
	case cmd != "":
		return runOnce(ctx, cfg, dir, journal)
	default:
		serve(ctx, cfg, dir, journal)
		return 0
	}
}

func printHistory(journal *storage.Journal, n int) int {
	if journal == nil {
		configs.Logger.Error("journal is not enabled")
		return 1
	}
	entries, err := journal.Tail(n)
	if err != nil {
		configs.Logger.Errorf("failed to read journal: %v", err)
		return 1
	}
	for _, e := range entries {
		fmt.Println(configs.JToString(e))
	}
	return 0
}

func runOnce(ctx context.Context, cfg *configs.Config, dir storage.Directory, journal *storage.Journal) int {
	commands := cmd
	if nodes != "" {
		var err error
		if commands, err = sameCommand(nodes, cmd); err != nil {
			configs.Logger.Errorf("%v", err)
			return 2
		}
	}
	manager := coordinator.NewManager(cfg, dir, participant.NewDialer(cfg), journal)
	start := time.Now()
	res, err := manager.Broadcast(ctx, commands, coordinator.Options{
		IgnoreErrors:    ignore,
		TwoPhase:        twoPhase,
		SyncCommit:      syncCommit,
		Sequential:      sequential,
		SuperConnString: super,
	})
	configs.DPrintf("broadcast took %s", time.Since(start))
	if err != nil {
		configs.Logger.Errorf("%v", err)
		return 1
	}
	fmt.Println(res)
	return 0
}

func serve(ctx context.Context, cfg *configs.Config, dir storage.Directory, journal *storage.Journal) {
	stmt, err := coordinator.NewContext(ctx, cfg, dir, participant.NewDialer(cfg), journal)
	if err != nil {
		configs.Logger.Fatalf("%v", err)
	}
	stmt.Main()
	configs.Logger.Info(stmt.Manager.Stat().Range())
	configs.Logger.Info(stmt.Manager.Stat().Log())
}

// sameCommand builds a command list sending sql to every node in list.
func sameCommand(list string, sql string) (string, error) {
	var cmds []coordinator.NodeCommand
	for _, s := range strings.Split(list, ",") {
		node, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || node < 0 {
			return "", fmt.Errorf("invalid node id %q in -nodes", s)
		}
		cmds = append(cmds, coordinator.NodeCommand{Node: node, SQL: sql})
	}
	return coordinator.FormatCommands(cmds), nil
}
