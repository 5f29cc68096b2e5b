// Package cli provides the vortex command-line client.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vortextau-chat/internal/chatstore"
	"vortextau-chat/internal/client"
	"vortextau-chat/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	serverURL  string
	modelFlag  string
	tokenFlag  string
	verbose    bool

	cfg config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:   "vortex",
	Short: "Terminal client for the vortextau chat server",
	Long: `Vortex talks to a vortextau chat server: stream answers from local models,
augment time-sensitive questions with web results, and share conversations.

Chats are kept in the data directory (default ~/.vortex) and reloaded when
another vortex process changes them.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(config.SetupLoggerWithWriters(os.Stderr, io.Discard, level))

		var err error
		cfg, err = config.LoadClientConfig(configPath)
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if modelFlag != "" {
			cfg.Model = modelFlag
		}
		if tokenFlag != "" {
			cfg.Token = tokenFlag
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultClientConfigPath(), "client config file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "model to chat with (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "bearer token (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(tokenCmd)
}

func newClient() *client.Client {
	return client.New(cfg.ServerURL, cfg.Token, nil)
}

// openChatStore loads the local chat collection. Unreadable copies are
// reported; the next save rewrites them.
func openChatStore() (*chatstore.Store, error) {
	durable, err := chatstore.NewFileKV(filepath.Join(cfg.DataDir, "chats"))
	if err != nil {
		return nil, fmt.Errorf("opening chat data: %w", err)
	}
	store := chatstore.New(durable, chatstore.NewMemoryKV())
	if err := store.Load(); err != nil {
		slog.Warn("some stored chats could not be read", "error", err)
	}
	return store, nil
}
