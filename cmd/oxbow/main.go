// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/internal/log"
	"github.com/oxbow-labs/oxbow/internal/version"
	"github.com/oxbow-labs/oxbow/pkg/config"
	"github.com/oxbow-labs/oxbow/pkg/datasource"
	"github.com/oxbow-labs/oxbow/pkg/drivers"
	"github.com/oxbow-labs/oxbow/pkg/duck"
)

var (
	cfgFile   string
	workspace string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "oxbow",
	Short: "Oxbow - conversation-scoped analytical databases",
	Long: `Oxbow gives every conversation its own embedded analytical database and
federates external datasources into it: relational databases attach as
read-only catalogs, spreadsheets materialize as semantically named tables,
and single files become views. All of it is queryable with plain SQL.`,
	Version: version.Get(),
}

func init() {
	// Assigned here rather than in the literal above to avoid an
	// initialization cycle: initConfig refers back to rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.oxbow/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (default ~/.oxbow)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(datasourcesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.GetWorkspaceRoot())
	}

	viper.SetEnvPrefix("OXBOW")
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("pool.max_connections", 8)
	viper.SetDefault("schema.cache_ttl", "60s")
	viper.SetDefault("sync.freshness", "5s")

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		// A missing default config file is fine; flags and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if workspace == "" {
		workspace = config.GetWorkspaceRoot()
	}
	if flagLevel := rootCmd.PersistentFlags().Lookup("log-level"); flagLevel != nil && !flagLevel.Changed {
		logLevel = viper.GetString("log.level")
	}
	return setupLogger()
}

func setupLogger() error {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log.SetLogger(logger)
	return nil
}

// newManager builds a manager from viper settings.
func newManager() *duck.Manager {
	return duck.NewManager(duck.ManagerConfig{
		MaxConnections: viper.GetInt("pool.max_connections"),
		SchemaCacheTTL: viperDuration("schema.cache_ttl", 60*time.Second),
		SyncFreshness:  viperDuration("sync.freshness", 5*time.Second),
		Registry:       drivers.NewDefaultRegistry(),
		Logger:         log.Logger(),
	})
}

func viperDuration(key string, def time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// openStore opens the workspace-level datasource store.
func openStore() (*datasource.Store, error) {
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", workspace, err)
	}
	return datasource.NewStore(config.DatasourceDBPath(workspace))
}
