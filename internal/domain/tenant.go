package domain

import (
	"sort"
	"time"
)

// RoleRule grants a tenant-defined role once a metric reaches Threshold.
// RoleID takes precedence over RoleName when resolving the guild role.
type RoleRule struct {
	Threshold int    `json:"threshold"`
	RoleID    string `json:"role_id,omitempty"`
	RoleName  string `json:"role_name,omitempty"`
}

// RoleRules are the custom rules of a tenant, keyed by metric
type RoleRules map[ActivityKind][]RoleRule

// Add stores rule for metric, replacing any rule that targets the same role.
// Rules stay sorted by ascending threshold.
func (r RoleRules) Add(metric ActivityKind, rule RoleRule) RoleRules {
	if r == nil {
		r = RoleRules{}
	}
	kept := make([]RoleRule, 0, len(r[metric])+1)
	for _, existing := range r[metric] {
		if existing.sameRole(rule) {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, rule)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Threshold < kept[j].Threshold })
	r[metric] = kept
	return r
}

// sameRole reports whether both rules target the same role: by id when
// either carries one, by name otherwise
func (rule RoleRule) sameRole(other RoleRule) bool {
	if rule.RoleID != "" || other.RoleID != "" {
		return rule.RoleID == other.RoleID
	}
	return rule.RoleName != "" && rule.RoleName == other.RoleName
}

// Remove drops every rule targeting role, given as a role id or name, and
// reports whether any existed
func (r RoleRules) Remove(role string) bool {
	if role == "" {
		return false
	}
	removed := false
	for metric, rules := range r {
		kept := make([]RoleRule, 0, len(rules))
		for _, rule := range rules {
			if rule.RoleID == role || rule.RoleName == role {
				removed = true
				continue
			}
			kept = append(kept, rule)
		}
		r[metric] = kept
	}
	return removed
}

// Reset returns an empty rule set with every metric present
func (RoleRules) Reset() RoleRules {
	out := RoleRules{}
	for _, kind := range ActivityKinds {
		out[kind] = []RoleRule{}
	}
	return out
}

// RoleIDs returns every role id referenced by the rules
func (r RoleRules) RoleIDs() map[string]struct{} {
	out := map[string]struct{}{}
	for _, rules := range r {
		for _, rule := range rules {
			if rule.RoleID != "" {
				out[rule.RoleID] = struct{}{}
			}
		}
	}
	return out
}

// RoleNames returns every role name referenced by the rules
func (r RoleRules) RoleNames() map[string]struct{} {
	out := map[string]struct{}{}
	for _, rules := range r {
		for _, rule := range rules {
			if rule.RoleName != "" {
				out[rule.RoleName] = struct{}{}
			}
		}
	}
	return out
}

// TenantConfig binds one Discord server to a GitHub organization or account
type TenantConfig struct {
	DiscordServerID string    `json:"discord_server_id"`
	GitHubOrg       string    `json:"github_org"`
	InstallationID  int64     `json:"installation_id"`
	RoleRules       RoleRules `json:"role_rules"`
	SetupCompleted  bool      `json:"setup_completed"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserMapping links a Discord user to a GitHub login
type UserMapping struct {
	DiscordID      string    `json:"discord_id"`
	GitHubUsername string    `json:"github_id"`
	LinkedAt       time.Time `json:"linked_at"`
}
