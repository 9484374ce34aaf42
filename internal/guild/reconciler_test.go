package guild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/roles"
)

func contributor(name string, prs, issues, commits int) *domain.ContributorAggregate {
	agg := domain.NewContributorAggregate(name)
	agg.Stats.PR.AllTime = prs
	agg.Stats.Issue.AllTime = issues
	agg.Stats.Commit.AllTime = commits
	return agg
}

func newJob(serverID string) domain.ReconciliationJob {
	return domain.ReconciliationJob{
		DiscordServerID: serverID,
		UserMappings: map[string]string{
			"u-alice": "alice",
			"u-bob":   "bob",
			"u-carol": "carol",
		},
		Contributions: map[string]*domain.ContributorAggregate{
			"alice": contributor("alice", 10, 0, 0),
			"bob":   contributor("bob", 60, 2, 120),
			"carol": contributor("carol", 0, 0, 0),
		},
		Metrics: domain.RepositoryMetrics{Stars: 5, Forks: 1, Contributors: 2, PullRequests: 70, Issues: 2, Commits: 120},
		Medals:  map[string]string{"bob": "✨ PR Champion", "alice": "💫 PR Runner-up"},
	}
}

func seedMembers(g *fakeGuild) {
	g.members = []*Member{
		{ID: "u-alice", Username: "alice"},
		{ID: "u-bob", Username: "bob"},
		{ID: "u-carol", Username: "carol"},
		{ID: "u-dave", Username: "dave"},
	}
}

func newTestReconciler(p *fakePlatform) *Reconciler {
	return NewReconciler(p, roles.NewResolver(), zap.NewNop())
}

func TestUpdateMultipleServersAssignsRoles(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	seedMembers(g)

	results, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"g1": true}, results)
	assert.Equal(t, 1, p.closed)

	assert.Equal(t, []string{"🌺 6+ PRs", "💫 PR Runner-up"}, g.roleNames("u-alice"))
	assert.Equal(t, []string{"✨ PR Champion", "🌈 101+ Commits", "🌹 51+ PRs", "🍃 1+ GitHub Issues Reported"}, g.roleNames("u-bob"))
	assert.Empty(t, g.roleNames("u-carol"))
	assert.Empty(t, g.roleNames("u-dave"))
	assert.Len(t, g.roles, 18)
}

func TestUpdateMultipleServersIsIdempotent(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	seedMembers(g)
	r := newTestReconciler(p)
	jobs := []domain.ReconciliationJob{newJob("g1")}

	_, err := r.UpdateMultipleServers(context.Background(), jobs)
	require.NoError(t, err)
	require.Positive(t, p.roleMutations())

	p.resetCalls()
	results, err := r.UpdateMultipleServers(context.Background(), jobs)
	require.NoError(t, err)
	assert.True(t, results["g1"])
	assert.Zero(t, p.roleMutations())
	assert.Zero(t, p.channelMutations())
}

func TestUpdateRemovesOutgrownAndObsoleteRoles(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.roles = []Role{
		{ID: "r-old", Name: "🌸 1+ PRs"},
		{ID: "r-legacy", Name: "Master (51+ PRs)"},
		{ID: "r-mod", Name: "Moderator"},
	}
	g.members = []*Member{
		{ID: "u-alice", Username: "alice", RoleIDs: []string{"r-old", "r-legacy", "r-mod"}},
	}

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Moderator", "🌺 6+ PRs", "💫 PR Runner-up"}, g.roleNames("u-alice"))
	for _, role := range g.roles {
		assert.NotEqual(t, "Master (51+ PRs)", role.Name)
	}
}

func TestUpdateLeavesUnmanagedRolesAlone(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.roles = []Role{{ID: "r-mod", Name: "Moderator"}}
	g.members = []*Member{{ID: "u-carol", Username: "carol", RoleIDs: []string{"r-mod"}}}

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Moderator"}, g.roleNames("u-carol"))
	assert.Zero(t, p.calls["member_remove"])
}

func TestUpdateAppliesCustomRules(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.roles = []Role{{ID: "r-vet", Name: "Veteran"}, {ID: "r-reg", Name: "Regular"}}
	g.members = []*Member{
		{ID: "u-alice", Username: "alice", RoleIDs: []string{"r-vet"}},
		{ID: "u-bob", Username: "bob"},
	}

	job := newJob("g1")
	job.Medals = nil
	job.RoleRules = domain.RoleRules{}.
		Add(domain.KindPullRequest, domain.RoleRule{Threshold: 5, RoleID: "r-reg"}).
		Add(domain.KindPullRequest, domain.RoleRule{Threshold: 50, RoleName: "Veteran"}).
		Add(domain.KindCommit, domain.RoleRule{Threshold: 1, RoleID: "r-missing"})

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{job})
	require.NoError(t, err)

	assert.Equal(t, []string{"Regular"}, g.roleNames("u-alice"))
	// The commit rule names a role the guild lacks, so the ladder role applies
	assert.Equal(t, []string{"Veteran", "🌈 101+ Commits", "🍃 1+ GitHub Issues Reported"}, g.roleNames("u-bob"))
}

func TestUpdateSyncsStatsChannels(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.channels = []Channel{
		{ID: "cat-1", Name: roles.StatsCategoryName, Type: ChannelTypeCategory},
		{ID: "v-stars", Name: "Stars: 1", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-notes", Name: "general", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "cat-2", Name: roles.StatsCategoryName, Type: ChannelTypeCategory},
		{ID: "v-dup", Name: "Stars: 1", Type: ChannelTypeVoice, ParentID: "cat-2"},
	}

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	categories := g.categories(roles.StatsCategoryName)
	require.Len(t, categories, 1)
	assert.Equal(t, "cat-1", categories[0].ID)
	assert.Equal(t, []string{
		"Commits: 120", "Contributors: 2", "Forks: 1", "Issues: 2", "PRs: 70", "Stars: 5", "general",
	}, g.channelsIn("cat-1"))
	assert.Empty(t, g.channelsIn("cat-2"))
}

func TestUpdateDeletesDuplicateStatsChannels(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.channels = []Channel{
		{ID: "cat-1", Name: roles.StatsCategoryName, Type: ChannelTypeCategory},
		{ID: "v-stars-1", Name: "Stars: 1", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-stars-2", Name: "Stars: 2", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-forks-1", Name: "Forks: 1", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-forks-9", Name: "Forks: 9", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-issues-7", Name: "Issues: 7", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-issues-2", Name: "Issues: 2", Type: ChannelTypeVoice, ParentID: "cat-1"},
		{ID: "v-room", Name: "Room: 1", Type: ChannelTypeVoice, ParentID: "cat-1"},
	}

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Commits: 120", "Contributors: 2", "Forks: 1", "Issues: 2", "PRs: 70", "Room: 1", "Stars: 5",
	}, g.channelsIn("cat-1"))

	ids := map[string]bool{}
	for _, ch := range g.channels {
		ids[ch.ID] = true
	}
	assert.True(t, ids["v-stars-1"], "first channel of a keyword is renamed in place")
	assert.True(t, ids["v-issues-2"], "a channel already showing the value is preferred")
	assert.False(t, ids["v-issues-7"])

	p.mu.Lock()
	assert.Equal(t, 3, p.calls["channel_delete"])
	assert.Equal(t, 1, p.calls["channel_rename"])
	p.mu.Unlock()

	p.resetCalls()
	_, err = newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)
	assert.Zero(t, p.channelMutations())
}

func TestUpdateCreatesStatsCategory(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")

	_, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	categories := g.categories(roles.StatsCategoryName)
	require.Len(t, categories, 1)
	assert.Len(t, g.channelsIn(categories[0].ID), 6)
}

func TestChannelFailureDoesNotStopOthers(t *testing.T) {
	p := newFakePlatform()
	g := p.addGuild("g1")
	g.channels = []Channel{
		{ID: "cat", Name: roles.StatsCategoryName, Type: ChannelTypeCategory},
		{ID: "v-stars", Name: "Stars: 0", Type: ChannelTypeVoice, ParentID: "cat"},
		{ID: "v-forks", Name: "Forks: 0", Type: ChannelTypeVoice, ParentID: "cat"},
	}
	p.failRename["v-stars"] = true

	results, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.NoError(t, err)

	assert.True(t, results["g1"])
	assert.Contains(t, g.channelsIn("cat"), "Stars: 0")
	assert.Contains(t, g.channelsIn("cat"), "Forks: 1")
	assert.Contains(t, g.channelsIn("cat"), "Commits: 120")
}

func TestGuildFailureIsIsolated(t *testing.T) {
	p := newFakePlatform()
	seedMembers(p.addGuild("g1"))
	seedMembers(p.addGuild("g2"))
	g3 := p.addGuild("g3")
	seedMembers(g3)
	p.addGuild("unrelated")
	p.failRoles["g2"] = true

	jobs := []domain.ReconciliationJob{newJob("g1"), newJob("g2"), newJob("g3"), newJob("gone")}
	results, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), jobs)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"g1": true, "g2": false, "g3": true, "gone": false}, results)
	assert.NotEmpty(t, g3.roleNames("u-bob"))
	assert.Empty(t, p.guilds["unrelated"].roles)
	assert.Equal(t, 1, p.closed)
}

func TestConnectFailureFailsBatch(t *testing.T) {
	p := newFakePlatform()
	p.addGuild("g1")
	p.connectErr = errors.New("gateway down")

	results, err := newTestReconciler(p).UpdateMultipleServers(context.Background(), []domain.ReconciliationJob{newJob("g1")})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, map[string]bool{"g1": false}, results)
}

func TestUpdateServer(t *testing.T) {
	p := newFakePlatform()
	seedMembers(p.addGuild("g1"))

	ok, err := newTestReconciler(p).UpdateServer(context.Background(), newJob("g1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsChannelNames(t *testing.T) {
	names := StatsChannelNames(domain.RepositoryMetrics{Stars: 1, Forks: 2, Contributors: 3, PullRequests: 4, Issues: 5, Commits: 6})
	assert.Equal(t, []string{"Stars: 1", "Forks: 2", "Contributors: 3", "PRs: 4", "Issues: 5", "Commits: 6"}, names)
	assert.Equal(t, "PRs:", channelKeyword(names[3]))
}
