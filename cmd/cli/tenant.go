package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
)

var (
	installationID int64
	ruleRoleID     string
	ruleRoleName   string
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage Discord server configuration",
}

var tenantAddCmd = &cobra.Command{
	Use:   "add [server-id] [org]",
	Short: "Link a Discord server to a GitHub organization",
	Args:  cobra.ExactArgs(2),
	RunE:  runTenantAdd,
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured Discord servers",
	Args:  cobra.NoArgs,
	RunE:  runTenantList,
}

var tenantLinkCmd = &cobra.Command{
	Use:   "link [discord-user-id] [github-username]",
	Short: "Link a Discord user to a GitHub account",
	Args:  cobra.ExactArgs(2),
	RunE:  runTenantLink,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage custom role rules of a server",
}

var rulesListCmd = &cobra.Command{
	Use:   "list [server-id]",
	Short: "List custom role rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add [server-id] [pr|issue|commit] [threshold]",
	Short: "Grant a role once a metric reaches a threshold",
	Args:  cobra.ExactArgs(3),
	RunE:  runRulesAdd,
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove [server-id] [role-id|role-name]",
	Short: "Remove every rule targeting a role",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesRemove,
}

var rulesResetCmd = &cobra.Command{
	Use:   "reset [server-id]",
	Short: "Remove all custom role rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesReset,
}

func init() {
	tenantAddCmd.Flags().Int64Var(&installationID, "installation-id", 0, "GitHub App installation id")
	rulesAddCmd.Flags().StringVar(&ruleRoleID, "role-id", "", "Discord role id")
	rulesAddCmd.Flags().StringVar(&ruleRoleName, "role-name", "", "Discord role name, used when the id is unknown")

	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantAddCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantLinkCmd)
	tenantCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
	rulesCmd.AddCommand(rulesResetCmd)
}

func runTenantAdd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	tenant, err := e.store.GetTenant(ctx, args[0])
	if apperrors.IsNotFound(err) {
		tenant = &domain.TenantConfig{DiscordServerID: args[0]}
	} else if err != nil {
		return fmt.Errorf("failed to load tenant: %w", err)
	}

	tenant.GitHubOrg = args[1]
	if installationID != 0 {
		tenant.InstallationID = installationID
	}
	tenant.SetupCompleted = true
	if err := e.store.SaveTenant(ctx, tenant); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	fmt.Printf("Server %s linked to %s\n", tenant.DiscordServerID, tenant.GitHubOrg)
	return nil
}

func runTenantList(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	tenants, err := e.store.ListTenants(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputJSON {
		return printJSON(tenants)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Discord Server", "Organization", "Installation", "Ready", "Rules", "Updated"})
	for _, t := range tenants {
		rules := 0
		for _, r := range t.RoleRules {
			rules += len(r)
		}
		table.Append([]string{
			t.DiscordServerID,
			t.GitHubOrg,
			strconv.FormatInt(t.InstallationID, 10),
			strconv.FormatBool(t.SetupCompleted),
			strconv.Itoa(rules),
			humanize.Time(t.UpdatedAt),
		})
	}
	table.Render()
	return nil
}

func runTenantLink(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	mapping := &domain.UserMapping{DiscordID: args[0], GitHubUsername: args[1]}
	if err := e.store.SaveUserMapping(context.Background(), mapping); err != nil {
		return fmt.Errorf("failed to link user: %w", err)
	}

	fmt.Printf("Discord user %s linked to GitHub %s\n", mapping.DiscordID, mapping.GitHubUsername)
	return nil
}

// updateRules loads a tenant, applies fn to its rules and saves it back
func updateRules(serverID string, fn func(domain.RoleRules) (domain.RoleRules, error)) (domain.RoleRules, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	defer e.Close()

	ctx := context.Background()
	tenant, err := e.store.GetTenant(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	rules, err := fn(tenant.RoleRules)
	if err != nil {
		return nil, err
	}
	tenant.RoleRules = rules
	if err := e.store.SaveTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}
	return rules, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	tenant, err := e.store.GetTenant(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load tenant: %w", err)
	}

	if outputJSON {
		return printJSON(tenant.RoleRules)
	}
	renderRules(tenant.RoleRules)
	return nil
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	metric := domain.ActivityKind(args[1])
	if !metric.Valid() {
		return fmt.Errorf("unknown metric %q: use pr, issue or commit", args[1])
	}
	threshold, err := strconv.Atoi(args[2])
	if err != nil || threshold < 1 {
		return fmt.Errorf("threshold must be a positive integer")
	}
	if ruleRoleID == "" && ruleRoleName == "" {
		return fmt.Errorf("--role-id or --role-name is required")
	}

	rule := domain.RoleRule{Threshold: threshold, RoleID: ruleRoleID, RoleName: ruleRoleName}
	rules, err := updateRules(args[0], func(r domain.RoleRules) (domain.RoleRules, error) {
		return r.Add(metric, rule), nil
	})
	if err != nil {
		return err
	}
	renderRules(rules)
	return nil
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	rules, err := updateRules(args[0], func(r domain.RoleRules) (domain.RoleRules, error) {
		if !r.Remove(args[1]) {
			return nil, fmt.Errorf("no rule targets role %s", args[1])
		}
		return r, nil
	})
	if err != nil {
		return err
	}
	renderRules(rules)
	return nil
}

func runRulesReset(cmd *cobra.Command, args []string) error {
	_, err := updateRules(args[0], func(r domain.RoleRules) (domain.RoleRules, error) {
		return r.Reset(), nil
	})
	if err != nil {
		return err
	}
	fmt.Println("Custom role rules cleared")
	return nil
}

func renderRules(rules domain.RoleRules) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Threshold", "Role ID", "Role Name"})
	for _, kind := range domain.ActivityKinds {
		for _, rule := range rules[kind] {
			table.Append([]string{string(kind), strconv.Itoa(rule.Threshold), rule.RoleID, rule.RoleName})
		}
	}
	table.Render()
}
