// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the integrity-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE once flags are parsed.
var logger = zap.NewNop()

// rootCmd is the base command for the integrity-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "integrity-engine",
	Short: "Index a knowledge graph and audit its link integrity",
	Long: `integrity-engine indexes a corpus of knowledge nodes. It builds the
explicit and inferred link graph, a chronology, resolved entities, and
semantic layers, then audits every reference and repairs the ones it can.

Corpora are JSON or YAML node lists, Markdown notes with YAML frontmatter,
or directories of either. Results can be persisted in a SQLite store that
supports full-text search and applying repairs back to the nodes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./integrity-engine.yaml or ~/.config/integrity-engine/integrity-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("integrity-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "integrity-engine"))
		}
	}

	setConfigDefaults()

	viper.SetEnvPrefix("INTEGRITY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// setConfigDefaults registers every config key so environment variables
// are seen by Unmarshal.
func setConfigDefaults() {
	d := types.DefaultEngineConfig()
	viper.SetDefault("engine.temporal.scan_content", d.Temporal.ScanContent)
	viper.SetDefault("engine.entity.max_edit_distance", d.Entity.EditDistance())
	viper.SetDefault("engine.semantic.cross_domain_threshold", d.Semantic.Threshold())
	viper.SetDefault("engine.diagnostics.repair_threshold", d.Diagnostics.Threshold())
	viper.SetDefault("engine.diagnostics.string_weight", d.Diagnostics.StringWeight)
	viper.SetDefault("engine.diagnostics.anchor_weight", d.Diagnostics.AnchorWeight)
	viper.SetDefault("store.dir", "graph")
	viper.SetDefault("store.search_limit", 20)
	viper.SetDefault("cache.dir", "")
}

// loadConfig reads the merged configuration and applies any flags the
// command defines and the user set.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("store-dir") {
		cfg.Store.Dir, _ = flags.GetString("store-dir")
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir, _ = flags.GetString("cache-dir")
	}
	if flags.Changed("repair-threshold") {
		v, _ := flags.GetFloat64("repair-threshold")
		cfg.Engine.Diagnostics.RepairThreshold = types.Float64(v)
	}
	if flags.Changed("cross-domain-threshold") {
		v, _ := flags.GetFloat64("cross-domain-threshold")
		cfg.Engine.Semantic.CrossDomainThreshold = types.Float64(v)
	}
	if flags.Changed("max-edit-distance") {
		v, _ := flags.GetInt("max-edit-distance")
		cfg.Engine.Entity.MaxEditDistance = types.Int(v)
	}
	if flags.Changed("scan-content") {
		cfg.Engine.Temporal.ScanContent, _ = flags.GetBool("scan-content")
	}
	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Engine = cfg.Engine.WithDefaults()
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
