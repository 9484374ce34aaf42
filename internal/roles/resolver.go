// Package roles maps contribution counts to guild role names.
package roles

import (
	"sort"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// Assignment is the resolved role of one metric. Custom, when set, takes
// precedence over Ladder as long as the guild has the role it names.
type Assignment struct {
	Ladder string
	Custom *domain.RoleRule
}

// Resolver determines the roles a contributor is entitled to
type Resolver struct {
	ladders  map[domain.ActivityKind][]Tier
	medals   []Tier
	obsolete map[string]struct{}
	colors   map[string]RGB
}

// NewResolver creates a resolver with the built-in ladders and medals
func NewResolver() *Resolver {
	r := &Resolver{
		ladders:  defaultLadders,
		medals:   defaultMedals,
		obsolete: make(map[string]struct{}, len(defaultObsolete)),
		colors:   map[string]RGB{},
	}
	for _, name := range defaultObsolete {
		r.obsolete[name] = struct{}{}
	}
	for _, tiers := range r.ladders {
		for _, tier := range tiers {
			r.colors[tier.Name] = tier.Color
		}
	}
	for _, medal := range r.medals {
		r.colors[medal.Name] = medal.Color
	}
	return r
}

// DetermineRoles returns the highest ladder tier reached per metric.
// Metrics below the first tier are absent from the result.
func (r *Resolver) DetermineRoles(counts map[domain.ActivityKind]int) map[domain.ActivityKind]string {
	out := make(map[domain.ActivityKind]string, len(r.ladders))
	for kind, tiers := range r.ladders {
		if name := highestTier(tiers, counts[kind]); name != "" {
			out[kind] = name
		}
	}
	return out
}

func highestTier(tiers []Tier, count int) string {
	for i := len(tiers) - 1; i >= 0; i-- {
		if count >= tiers[i].Threshold {
			return tiers[i].Name
		}
	}
	return ""
}

// DetermineCustomRoles returns, per metric, the highest-threshold tenant rule
// that count satisfies
func (r *Resolver) DetermineCustomRoles(counts map[domain.ActivityKind]int, rules domain.RoleRules) map[domain.ActivityKind]domain.RoleRule {
	out := map[domain.ActivityKind]domain.RoleRule{}
	for kind, kindRules := range rules {
		best := -1
		for i, rule := range kindRules {
			if rule.RoleID == "" && rule.RoleName == "" {
				continue
			}
			if counts[kind] >= rule.Threshold && (best < 0 || rule.Threshold >= kindRules[best].Threshold) {
				best = i
			}
		}
		if best >= 0 {
			out[kind] = kindRules[best]
		}
	}
	return out
}

// Resolve combines ladder and custom roles for every metric
func (r *Resolver) Resolve(counts map[domain.ActivityKind]int, rules domain.RoleRules) map[domain.ActivityKind]Assignment {
	ladder := r.DetermineRoles(counts)
	custom := r.DetermineCustomRoles(counts, rules)

	out := make(map[domain.ActivityKind]Assignment, len(domain.ActivityKinds))
	for _, kind := range domain.ActivityKinds {
		a := Assignment{Ladder: ladder[kind]}
		if rule, ok := custom[kind]; ok {
			a.Custom = &rule
		}
		if a.Ladder != "" || a.Custom != nil {
			out[kind] = a
		}
	}
	return out
}

// MedalAssignments maps the top three all-time PR contributors to the medal roles
func (r *Resolver) MedalAssignments(hof *domain.HallOfFame) map[string]string {
	out := map[string]string{}
	top := hof.Top(domain.KindPullRequest, domain.WindowAllTime)
	for i, entry := range top {
		if i >= len(r.medals) {
			break
		}
		if entry.Username == "" || entry.Value <= 0 {
			continue
		}
		out[entry.Username] = r.medals[i].Name
	}
	return out
}

// LadderRoleNames returns every ladder and medal role name, sorted
func (r *Resolver) LadderRoleNames() []string {
	seen := map[string]struct{}{}
	var names []string
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, kind := range domain.ActivityKinds {
		for _, tier := range r.ladders[kind] {
			add(tier.Name)
		}
	}
	for _, medal := range r.medals {
		add(medal.Name)
	}
	sort.Strings(names)
	return names
}

// MedalRoleNames returns the medal roles in podium order
func (r *Resolver) MedalRoleNames() []string {
	names := make([]string, len(r.medals))
	for i, medal := range r.medals {
		names[i] = medal.Name
	}
	return names
}

// ObsoleteRoleNames returns the legacy role names
func (r *Resolver) ObsoleteRoleNames() map[string]struct{} {
	out := make(map[string]struct{}, len(r.obsolete))
	for name := range r.obsolete {
		out[name] = struct{}{}
	}
	return out
}

// IsObsolete reports whether name is a legacy role name
func (r *Resolver) IsObsolete(name string) bool {
	_, ok := r.obsolete[name]
	return ok
}

// Color returns the palette color of a ladder or medal role
func (r *Resolver) Color(name string) (RGB, bool) {
	c, ok := r.colors[name]
	return c, ok
}

// Ladder returns the tiers of kind in ascending order
func (r *Resolver) Ladder(kind domain.ActivityKind) []Tier {
	return r.ladders[kind]
}

// NextRole returns the tier after current on the ladder of kind. An empty
// current yields the first tier; the top tier yields "". ok is false when
// current is not on the ladder.
func (r *Resolver) NextRole(kind domain.ActivityKind, current string) (next Tier, ok bool) {
	tiers := r.ladders[kind]
	if len(tiers) == 0 {
		return Tier{}, false
	}
	if current == "" {
		return tiers[0], true
	}
	for i, tier := range tiers {
		if tier.Name != current {
			continue
		}
		if i == len(tiers)-1 {
			return Tier{}, true
		}
		return tiers[i+1], true
	}
	return Tier{}, false
}
