// Package ingest implements the crawl, list, repo and mediawiki commands that
// build a job from flags and run it through the ingestion pipeline.
package ingest

import (
	"fmt"
	"io"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
	"github.com/jonesrussell/north-cloud/corpus/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunnerFactory builds the pipeline runner for a job's logger. Tests swap it
// to inject fakes.
type RunnerFactory func(log logger.Interface) *pipeline.Runner

func defaultRunner(log logger.Interface) *pipeline.Runner {
	return pipeline.NewRunner(log)
}

// Commands returns one subcommand per ingestion mode, all reading through v.
func Commands(v *viper.Viper) []*cobra.Command {
	return CommandsWithRunner(v, defaultRunner)
}

// CommandsWithRunner is Commands with a custom runner factory.
func CommandsWithRunner(v *viper.Viper, newRunner RunnerFactory) []*cobra.Command {
	return []*cobra.Command{
		newModeCommand(v, newRunner, config.ModeCrawl,
			"Discover pages by following links from a start URL", addCrawlFlags),
		newModeCommand(v, newRunner, config.ModeList,
			"Fetch every URL listed in a file", addListFlags),
		newModeCommand(v, newRunner, config.ModeRepo,
			"Ingest files from a git repository snapshot", addRepoFlags),
		newModeCommand(v, newRunner, config.ModeMediaWiki,
			"Fetch pages listed by the MediaWiki API", addMediaWikiFlags),
	}
}

func newModeCommand(
	v *viper.Viper,
	newRunner RunnerFactory,
	mode config.Mode,
	short string,
	addModeFlags func(*pflag.FlagSet),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:           string(mode),
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}
			return run(cmd, mode, v, newRunner)
		},
	}
	addCommonFlags(cmd.Flags())
	addModeFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, mode config.Mode, v *viper.Viper, newRunner RunnerFactory) error {
	job := BuildJob(mode, v)

	log, err := logger.New(logger.Config{
		Level:    logger.ParseLevel(job.Common.LogLevel),
		Encoding: v.GetString(flagLogEncoding),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	result, err := newRunner(log).Run(cmd.Context(), job)
	if err != nil {
		if result != nil {
			RenderSummary(cmd.ErrOrStderr(), result)
		}
		return err
	}

	if !result.DryRun {
		RenderSummary(cmd.ErrOrStderr(), result)
	}
	return printJob(cmd.OutOrStdout(), job)
}

func printJob(w io.Writer, job *config.Job) error {
	data, err := config.Materialize(job)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
