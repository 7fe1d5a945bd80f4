package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"minirag/config"
	"minirag/internal/app"
	"minirag/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "minirag",
	Short: "minirag - Answer questions from a small document collection",
	Long: `minirag stores short documents with their embeddings, retrieves the most
similar ones for a question, and asks a language model to answer from them.
Every conversation is logged per user and can be summarized.

Example usage:
  minirag ingest data/docs               # Embed and store every .txt/.md file
  minirag query -q "reset password"      # Show the top matching documents
  minirag ask -q "How do I reset it?"    # Answer from the retrieved context
  minirag chat                           # Interactive /ask, /summarize, /history`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// Existing environment variables win over .env entries.
		_ = godotenv.Load(filepath.Join(rootDir, ".env"))

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyEnv()

		return cfg.Validate()
	},
}

// ExecuteContext runs the root command. Cancelling ctx aborts in-flight
// provider calls.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./minirag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// GetRootDir returns the root directory.
func GetRootDir() string {
	return rootDir
}

// openApp builds the application for one command. The returned func closes
// the store and the log file.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	logger, err := logging.New(cfg.Logging, rootDir, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, rootDir, logger.Logger, app.Options{})
	if err != nil {
		logger.Close()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		logger.Close()
	}, nil
}
