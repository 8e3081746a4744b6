package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document chunking and retrieval for RAG pipelines",
	Long: `docrag ingests local documents, splits them into overlapping chunks,
indexes them for keyword and vector search and assembles token-budgeted
context for LLM prompts.

Example usage:
  docrag ingest ./docs                  # Ingest a directory
  docrag search -q "chunk overlap"      # Search indexed chunks
  docrag context -q "how overlap works" # Build prompt context`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadEnv(rootDir); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logCfg := logger.DefaultConfig()
		logCfg.Level = logger.ParseLevel(cfg.Logging.Level)
		logCfg.JSON = cfg.Logging.JSON
		if cmd.Flags().Changed("log-level") {
			logCfg.Level = logger.ParseLevel(logLevel)
		}
		if cmd.Flags().Changed("log-json") {
			logCfg.JSON = logJSON
		}
		log := logger.NewLogger(logCfg)
		logger.SetDefault(log)
		cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
