// Package main provides the kvgraph CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/orneryd/kvgraph/pkg/config"
	"github.com/orneryd/kvgraph/pkg/graph"
	"github.com/orneryd/kvgraph/pkg/kvgraph"
	"github.com/orneryd/kvgraph/pkg/logging"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kvgraph",
		Short: "kvgraph - property graph on an ordered key-value store",
		Long: `kvgraph stores a directed, labeled property graph in BadgerDB.

Features:
  • Vertices and edges with typed properties
  • Automatic key indexes for exact-match lookups
  • Named indexes with explicit membership
  • Encryption at rest, backups and consistency checks`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: search ~/.kvgraph, ./kvgraph.yaml, ~/.config/kvgraph)")
	pf.String("data-dir", "", "Data directory (overrides config and KVGRAPH_DATA_DIR)")
	pf.Bool("in-memory", false, "Run against a throwaway in-memory store")
	pf.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kvgraph v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize a new kvgraph database and config file",
		RunE:  runInit,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show element counts, indexes and disk usage",
		RunE:  runStats,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the consistency of adjacency and index structures",
		RunE:  runCheck,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "backup [file]",
		Short: "Write a full backup of the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackup,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "restore [file]",
		Short: "Load a backup into an empty database",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestore,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "gc",
		Short: "Reclaim value log space",
		RunE:  runGC,
	})

	// Key index commands
	keyIndexCmd := &cobra.Command{
		Use:   "keyindex",
		Short: "Manage automatic key indexes",
	}
	keyIndexCmd.PersistentFlags().String("kind", "vertex", "Element kind: vertex or edge")
	keyIndexCmd.AddCommand(&cobra.Command{
		Use:   "create [key]",
		Short: "Index a property key (existing elements are backfilled)",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyIndexCreate,
	})
	keyIndexCmd.AddCommand(&cobra.Command{
		Use:   "drop [key]",
		Short: "Stop indexing a property key",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyIndexDrop,
	})
	keyIndexCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List indexed property keys",
		RunE:  runKeyIndexList,
	})
	rootCmd.AddCommand(keyIndexCmd)

	// Named index commands
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Manage named indexes",
	}
	indexCreateCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a named index",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexCreate,
	}
	indexCreateCmd.Flags().String("kind", "vertex", "Element kind: vertex or edge")
	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List named indexes",
		RunE:  runIndexList,
	})
	indexCmd.AddCommand(&cobra.Command{
		Use:   "drop [name]",
		Short: "Drop a named index of either kind",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexDrop,
	})
	rootCmd.AddCommand(indexCmd)

	return rootCmd
}

// loadConfig resolves configuration: defaults, config file, KVGRAPH_* env vars,
// then command-line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		cfg.Database.DataDir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("in-memory"); f != nil && f.Changed {
		cfg.Database.InMemory, _ = cmd.Flags().GetBool("in-memory")
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = f.Value.String()
	}
	return cfg, nil
}

// withDB opens the configured database, runs fn and closes the database again.
func withDB(cmd *cobra.Command, fn func(db *kvgraph.DB) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closer := logging.Setup(cfg.Logging)
	defer closer.Close()

	db, err := kvgraph.Open(cfg)
	if err != nil {
		return err
	}
	runErr := fn(db)
	if err := db.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	dataDir := cfg.Database.DataDir

	fmt.Fprintf(out, "📂 Initializing kvgraph database in %s\n", dataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dataDir, err)
	}

	configPath := filepath.Join(dataDir, "kvgraph.yaml")
	configContent := fmt.Sprintf(`# kvgraph Configuration
database:
  data_dir: %s
  sync_writes: false
  low_memory: false
  high_performance: false
  encryption_enabled: false
  sequence_bandwidth: %d
  scan_page_size: %d
  compression_threshold: "%d"

logging:
  level: %s
  file: ""
  max_size_mb: %d
  max_backups: %d
  max_age_days: %d
`, dataDir, cfg.Database.SequenceBandwidth, cfg.Database.ScanPageSize, cfg.Database.CompressionThreshold,
		cfg.Logging.Level, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	cfg.Database.InMemory = false
	db, err := kvgraph.Open(cfg)
	if err != nil {
		return err
	}
	id := db.ID()
	if err := db.Close(); err != nil {
		return err
	}

	fmt.Fprintln(out, "✅ Database initialized successfully")
	fmt.Fprintf(out, "   Store id: %s\n", id)
	fmt.Fprintf(out, "   Config:   %s\n", configPath)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		st, err := db.Stats()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Store:      %s\n", db.ID())
		fmt.Fprintf(out, "Encrypted:  %v\n", db.Encrypted())
		fmt.Fprintf(out, "Vertices:   %s\n", humanize.Comma(st.Vertices))
		fmt.Fprintf(out, "Edges:      %s\n", humanize.Comma(st.Edges))
		fmt.Fprintf(out, "Key indexes (vertex): %s\n", listOrNone(st.VertexKeyIndexes))
		fmt.Fprintf(out, "Key indexes (edge):   %s\n", listOrNone(st.EdgeKeyIndexes))
		fmt.Fprintf(out, "Named indexes:        %s\n", listOrNone(st.Indexes))
		fmt.Fprintf(out, "Disk usage: %s (LSM %s, value log %s)\n",
			humanize.IBytes(uint64(st.LSMBytes+st.VlogBytes)),
			humanize.IBytes(uint64(st.LSMBytes)),
			humanize.IBytes(uint64(st.VlogBytes)))
		return nil
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		report, err := db.Check(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range report.Problems {
			fmt.Fprintf(out, "  ⚠️  %s\n", p)
		}
		if !report.OK() {
			return fmt.Errorf("consistency check failed: %d orphan properties, %d missing adjacency, %d dangling adjacency, %d missing value tuples, %d stale value tuples",
				report.OrphanProperties, report.MissingAdjacency, report.DanglingAdjacency,
				report.MissingValueTuples, report.StaleValueTuples)
		}
		fmt.Fprintln(out, "✅ No problems found")
		return nil
	})
}

func runBackup(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		if err := db.BackupToFile(args[0]); err != nil {
			return err
		}
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Backup written to %s (%s)\n", args[0], humanize.IBytes(uint64(info.Size())))
		return nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		if err := db.RestoreFromFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Restored %s (store id %s)\n", db.Graph(), db.ID())
		return nil
	})
}

func runGC(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		return db.RunGC()
	})
}

func kindFlag(cmd *cobra.Command) (graph.Kind, error) {
	s, _ := cmd.Flags().GetString("kind")
	return graph.ParseKind(s)
}

func runKeyIndexCreate(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withDB(cmd, func(db *kvgraph.DB) error {
		return db.Graph().CreateKeyIndex(args[0], kind)
	})
}

func runKeyIndexDrop(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withDB(cmd, func(db *kvgraph.DB) error {
		return db.Graph().DropKeyIndex(args[0], kind)
	})
}

func runKeyIndexList(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withDB(cmd, func(db *kvgraph.DB) error {
		keys, err := db.Graph().IndexedKeys(kind)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	})
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	kind, err := kindFlag(cmd)
	if err != nil {
		return err
	}
	return withDB(cmd, func(db *kvgraph.DB) error {
		_, err := db.Graph().CreateIndex(args[0], kind)
		return err
	})
}

func runIndexList(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		indexes, err := db.Graph().Indices()
		if err != nil {
			return err
		}
		for _, ix := range indexes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ix.Name(), ix.Kind())
		}
		return nil
	})
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	return withDB(cmd, func(db *kvgraph.DB) error {
		return db.Graph().DropIndex(args[0])
	})
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
