package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tim48-robot/disgitbot/internal/collector"
	"github.com/tim48-robot/disgitbot/internal/guild"
	"github.com/tim48-robot/disgitbot/internal/pipeline"
	"github.com/tim48-robot/disgitbot/internal/roles"
)

var manualTrigger bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long: `Collect and aggregate every configured organization, persist the snapshots
and reconcile roles and stats channels in all linked Discord servers.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

var collectCmd = &cobra.Command{
	Use:   "collect [org|user]",
	Short: "Collect and aggregate one organization",
	Long:  `Collect contribution data of a GitHub organization or user account and store the snapshot without touching Discord.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCollect,
}

func init() {
	runCmd.Flags().BoolVar(&manualTrigger, "manual", false, "record the run as manually triggered")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
}

func newRunner(e *env, updater pipeline.ServerUpdater) *pipeline.Runner {
	factory := func(token string) collector.Collector {
		return collector.NewGitHubCollector(token, e.cfg.CollectConcurrency, e.logger)
	}
	trigger := pipeline.TriggerSchedule
	if manualTrigger {
		trigger = pipeline.TriggerManual
	}
	return pipeline.NewRunner(e.store, factory, collector.StaticTokenSource(e.cfg.GitHubToken), updater,
		roles.NewResolver(), e.logger,
		pipeline.WithOverlapWindow(e.cfg.RunOverlapWindow),
		pipeline.WithTrigger(trigger))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.cfg.ValidatePipeline(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.PipelineTimeout)
	defer cancel()

	resolver := roles.NewResolver()
	connector := guild.NewDiscordConnector(e.cfg.DiscordBotToken, e.cfg.DiscordReadyTimeout, e.logger)
	reconciler := guild.NewReconciler(connector, resolver, e.logger)

	report, runErr := newRunner(e, reconciler).Run(ctx)
	if report != nil {
		if outputJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}
	}
	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	return nil
}

func printReport(report *pipeline.Report) {
	fmt.Printf("\nPipeline run at %s\n\n", report.RunAt.Format("2006-01-02 15:04:05 MST"))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Organization", "Run ID", "Contributors", "Failed Repos"})
	for _, org := range report.Organizations {
		table.Append([]string{
			org.Org,
			org.RunID,
			humanize.Comma(int64(len(org.Snapshot.Contributors))),
			fmt.Sprintf("%d", len(org.FailedRepositories)),
		})
	}
	table.Render()

	ids := make([]string, 0, len(report.Tenants))
	for id := range report.Tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println()
	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Discord Server", "Result"})
	for _, id := range ids {
		result := "failed"
		if report.Tenants[id] {
			result = "ok"
		}
		table.Append([]string{id, result})
	}
	table.Render()
	fmt.Printf("\n%d of %d servers updated\n", report.Succeeded(), len(report.Tenants))
}

func runCollect(cmd *cobra.Command, args []string) error {
	target := args[0] // org or user

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.GitHubToken == "" {
		return fmt.Errorf("invalid config: GITHUB_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.PipelineTimeout)
	defer cancel()

	fmt.Printf("Collecting data for: %s\n", target)
	result, err := newRunner(e, nil).RunOrganization(ctx, target, e.cfg.GitHubToken)
	if err != nil {
		return fmt.Errorf("failed to collect data: %w", err)
	}

	if outputJSON {
		return printJSON(result.Snapshot)
	}

	fmt.Printf("Run %s: %s contributors, %d skipped facts\n",
		result.RunID, humanize.Comma(int64(len(result.Snapshot.Contributors))), result.Skipped)
	for _, repo := range result.FailedRepositories {
		fmt.Printf("Warning: failed to collect repository %s\n", repo)
	}
	fmt.Println("Data collection complete!")
	return nil
}
