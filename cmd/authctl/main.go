// Command authctl manages secrets, tokens and accounts for the stateless auth module.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-stateless-auth"
)

const appName = "authctl"

type globals struct {
	configPath string
	logLevel   string
	logger     *slog.Logger
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Stateless auth token and account tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.logger = newSlogLogger(g.logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		keygenCmd(),
		issueCmd(g),
		inspectCmd(g),
		migrateCmd(g),
		bootstrapAdminCmd(g),
	)

	return cmd
}

func (g *globals) options() (auth.Options, error) {
	return auth.LoadOptions(g.configPath)
}

func (g *globals) authLogger() auth.Logger {
	return slogAdapter{logger: g.logger}
}

func newSlogLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// slogAdapter adapts a slog.Logger to auth.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(format string, args ...any) { a.logger.Debug(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Info(format string, args ...any)  { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Warn(format string, args ...any)  { a.logger.Warn(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Error(format string, args ...any) { a.logger.Error(fmt.Sprintf(format, args...)) }
