// Package cmd implements the corpus command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonesrussell/north-cloud/corpus/cmd/ingest"
	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// Exit codes.
const (
	ExitOK         = 0
	ExitRuntime    = 1
	ExitConfig     = 2
	ExitFilesystem = 3
)

// errUsage marks bad flags or arguments; they count as configuration errors.
var errUsage = errors.New("usage error")

var (
	// cfgFile holds the path to an optional YAML configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           "corpus",
		Short:         "Build deduplicated on-disk corpora from the web, URL lists, git repositories and MediaWiki",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(viper.GetViper())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML file with flag defaults (keys are flag names)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "corpus version %s\n", Version)
		},
	})
	rootCmd.AddCommand(ingest.Commands(viper.GetViper())...)

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	// .env is optional; existing variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(os.Stderr, Describe(err))
	return ExitCode(err)
}

// initConfig wires environment overrides and the optional config file into v.
func initConfig(v *viper.Viper) error {
	ingest.ConfigureEnv(v)
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return &domain.FilesystemError{Op: "read config", Path: cfgFile, Err: err}
	}
	return nil
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalidJob), errors.Is(err, errUsage):
		return ExitConfig
	case errors.Is(err, domain.ErrFilesystem):
		return ExitFilesystem
	default:
		return ExitRuntime
	}
}

// Describe renders err with a prefix naming its category.
func Describe(err error) string {
	switch {
	case errors.Is(err, config.ErrInvalidJob):
		return "configuration error:\n" + err.Error()
	case errors.Is(err, errUsage):
		return "configuration error: " + err.Error()
	case errors.Is(err, domain.ErrFilesystem):
		return "filesystem error: " + err.Error()
	case errors.Is(err, domain.ErrEnvironment):
		return "environment error: " + err.Error()
	default:
		return "runtime error: " + err.Error()
	}
}
