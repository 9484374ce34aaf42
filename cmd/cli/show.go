package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tim48-robot/disgitbot/internal/config"
	"github.com/tim48-robot/disgitbot/internal/domain"
	"github.com/tim48-robot/disgitbot/internal/ranker"
	"github.com/tim48-robot/disgitbot/internal/roles"
	"github.com/tim48-robot/disgitbot/pkg/client"
)

var (
	remote           bool
	leaderboardKey   string
	leaderboardLimit int
)

var showCmd = &cobra.Command{
	Use:   "show [org]",
	Short: "Show organization metrics",
	Long:  `Display the repository totals and the all-time leaders of the latest snapshot.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowOrg,
}

var showMemberCmd = &cobra.Command{
	Use:   "member [org] [username]",
	Short: "Show stats for a specific contributor",
	Long:  `Display per-kind stats, rankings and role progress of one contributor.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runShowMember,
}

var showLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard [org]",
	Short: "Show one leaderboard",
	Long:  `Display a leaderboard such as pr, pr_monthly or commit_weekly.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowLeaderboard,
}

func init() {
	showCmd.PersistentFlags().BoolVar(&remote, "remote", false, "read from the API server instead of local storage")
	showLeaderboardCmd.Flags().StringVar(&leaderboardKey, "key", string(domain.KindPullRequest), "ranking key")
	showLeaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", ranker.DefaultHallOfFameSize, "number of entries")

	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showMemberCmd)
	showCmd.AddCommand(showLeaderboardCmd)
}

// snapshotSource reads snapshots either locally or from the API server
type snapshotSource interface {
	snapshot(org string) (*domain.Snapshot, error)
	close()
}

type localSource struct{ e *env }

func (s localSource) snapshot(org string) (*domain.Snapshot, error) {
	return s.e.store.GetSnapshot(context.Background(), org)
}

func (s localSource) close() { s.e.Close() }

type remoteSource struct{ c *client.Client }

func (s remoteSource) snapshot(org string) (*domain.Snapshot, error) {
	contributors, err := s.c.GetContributors(org)
	if err != nil {
		return nil, err
	}
	metrics, err := s.c.GetRepositoryMetrics(org)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{
		Org:          org,
		RunID:        contributors.RunID,
		LastUpdated:  contributors.LastUpdated,
		Contributors: contributors.Data,
		Metrics:      *metrics,
	}, nil
}

func (s remoteSource) close() {}

func openSource() (snapshotSource, error) {
	if remote {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return remoteSource{c: client.NewClient(cfg.APIEndpoint)}, nil
	}
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return localSource{e: e}, nil
}

func runShowOrg(cmd *cobra.Command, args []string) error {
	org := args[0]

	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.close()

	snapshot, err := src.snapshot(org)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	if outputJSON {
		return printJSON(snapshot.Metrics)
	}

	m := snapshot.Metrics
	fmt.Printf("\nOrganization Metrics: %s\n", org)
	fmt.Printf("Last Updated: %s\n\n", humanize.Time(snapshot.LastUpdated))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Stars", humanize.Comma(int64(m.Stars))})
	table.Append([]string{"Forks", humanize.Comma(int64(m.Forks))})
	table.Append([]string{"Contributors", humanize.Comma(int64(m.Contributors))})
	table.Append([]string{"Pull Requests", humanize.Comma(int64(m.PullRequests))})
	table.Append([]string{"Issues", humanize.Comma(int64(m.Issues))})
	table.Append([]string{"Commits", humanize.Comma(int64(m.Commits))})
	table.Render()

	fmt.Println("\nTop Contributors (all-time PRs)")
	renderLeaderboard(ranker.LeaderboardOf(snapshot.Contributors, domain.NewRankingKey(domain.KindPullRequest, domain.WindowAllTime), 5))
	return nil
}

func runShowMember(cmd *cobra.Command, args []string) error {
	org, username := args[0], args[1]

	src, err := openSource()
	if err != nil {
		return err
	}
	defer src.close()

	snapshot, err := src.snapshot(org)
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}
	contributor, ok := snapshot.Contributor(username)
	if !ok {
		return fmt.Errorf("contributor %s not found in %s", username, org)
	}

	if outputJSON {
		return printJSON(contributor)
	}

	fmt.Printf("\nContributor: %s (%s)\n", contributor.Username, org)
	fmt.Printf("Total Activity: %s across %d repositories\n\n", humanize.Comma(int64(contributor.TotalActivity)), len(contributor.Repositories))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "All Time", "Today", "Week", "Month", "Streak", "Best", "Avg/Day", "Rank"})
	for _, kind := range domain.ActivityKinds {
		s := contributor.For(kind)
		rank := "-"
		if r, ok := contributor.Rankings[domain.NewRankingKey(kind, domain.WindowAllTime)]; ok {
			rank = "#" + strconv.Itoa(r)
		}
		table.Append([]string{
			string(kind),
			humanize.Comma(int64(s.AllTime)),
			strconv.Itoa(s.Daily),
			strconv.Itoa(s.Weekly),
			strconv.Itoa(s.Monthly),
			strconv.Itoa(s.CurrentStreak),
			strconv.Itoa(s.LongestStreak),
			strconv.FormatFloat(s.AvgPerDay, 'f', 1, 64),
			rank,
		})
	}
	table.Render()

	resolver := roles.NewResolver()
	current := resolver.DetermineRoles(contributor.Counts())
	fmt.Println()
	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Current Role", "Next Role"})
	for _, kind := range domain.ActivityKinds {
		next := "-"
		if tier, ok := resolver.NextRole(kind, current[kind]); ok && tier.Name == "" {
			next = "top tier reached"
		} else if ok {
			next = fmt.Sprintf("%s (%d to go)", tier.Name, tier.Threshold-contributor.Count(kind))
		}
		role := current[kind]
		if role == "" {
			role = "-"
		}
		table.Append([]string{string(kind), role, next})
	}
	table.Render()
	return nil
}

func runShowLeaderboard(cmd *cobra.Command, args []string) error {
	org := args[0]
	key := domain.RankingKey(leaderboardKey)
	if _, _, ok := key.Parse(); !ok {
		return fmt.Errorf("unknown ranking key: %s", leaderboardKey)
	}

	var entries []domain.LeaderboardEntry
	if remote {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		entries, err = client.NewClient(cfg.APIEndpoint).GetLeaderboard(org, key, leaderboardLimit)
		if err != nil {
			return fmt.Errorf("failed to get leaderboard: %w", err)
		}
	} else {
		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.close()

		snapshot, err := src.snapshot(org)
		if err != nil {
			return fmt.Errorf("failed to get snapshot: %w", err)
		}
		entries = ranker.LeaderboardOf(snapshot.Contributors, key, leaderboardLimit)
	}

	if outputJSON {
		return printJSON(entries)
	}

	fmt.Printf("\nLeaderboard %s: %s\n\n", key, org)
	renderLeaderboard(entries)
	return nil
}

func renderLeaderboard(entries []domain.LeaderboardEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Username", "Value"})
	for _, entry := range entries {
		table.Append([]string{
			strconv.Itoa(entry.Rank),
			entry.Username,
			humanize.Comma(int64(entry.Value)),
		})
	}
	table.Render()
}
