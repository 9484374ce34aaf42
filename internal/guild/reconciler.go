package guild

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/metrics"
	"github.com/tim48-robot/disgitbot/internal/roles"
)

const tracerName = "github.com/tim48-robot/disgitbot/internal/guild"

// Reconciler applies role and channel state to guilds
type Reconciler struct {
	connector Connector
	resolver  *roles.Resolver
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewReconciler creates a reconciler
func NewReconciler(connector Connector, resolver *roles.Resolver, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		connector: connector,
		resolver:  resolver,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// UpdateMultipleServers reconciles every job over a single session and
// reports success per Discord server id. An error is returned only when no
// session could be established; every job is then reported as failed.
func (r *Reconciler) UpdateMultipleServers(ctx context.Context, jobs []domain.ReconciliationJob) (map[string]bool, error) {
	results := make(map[string]bool, len(jobs))
	byServer := make(map[string]domain.ReconciliationJob, len(jobs))
	for _, job := range jobs {
		results[job.DiscordServerID] = false
		byServer[job.DiscordServerID] = job
	}
	if len(jobs) == 0 {
		return results, nil
	}

	session, err := r.connector.Connect(ctx)
	if err != nil {
		metrics.TenantOutcomesTotal.WithLabelValues("failed").Add(float64(len(jobs)))
		if apperrors.IsConfiguration(err) || apperrors.IsUnavailable(err) {
			return results, err
		}
		return results, apperrors.NewUnavailableError("failed to connect to guild platform", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("Failed to close guild session", zap.Error(err))
		}
	}()

	guildIDs := session.GuildIDs()
	if len(guildIDs) == 0 {
		r.logger.Warn("Bot is not connected to any guild")
	}

	for _, guildID := range guildIDs {
		job, ok := byServer[guildID]
		if !ok {
			r.logger.Debug("Skipping guild without a job", zap.String("guild_id", guildID))
			continue
		}
		if ctx.Err() != nil {
			r.logger.Warn("Reconciliation cancelled", zap.Error(ctx.Err()))
			break
		}

		if err := r.updateGuild(ctx, session, job); err != nil {
			r.logger.Error("Failed to update guild",
				zap.String("guild_id", guildID),
				zap.Error(err))
			continue
		}
		results[guildID] = true
	}

	for serverID, ok := range results {
		if ok {
			metrics.TenantOutcomesTotal.WithLabelValues("success").Inc()
			continue
		}
		metrics.TenantOutcomesTotal.WithLabelValues("failed").Inc()
		if !slices.Contains(guildIDs, serverID) {
			r.logger.Warn("Bot is not a member of the tenant guild", zap.String("guild_id", serverID))
		}
	}

	return results, nil
}

// UpdateServer reconciles a single guild in its own session
func (r *Reconciler) UpdateServer(ctx context.Context, job domain.ReconciliationJob) (bool, error) {
	results, err := r.UpdateMultipleServers(ctx, []domain.ReconciliationJob{job})
	return results[job.DiscordServerID], err
}

func (r *Reconciler) updateGuild(ctx context.Context, s Session, job domain.ReconciliationJob) (err error) {
	ctx, span := r.tracer.Start(ctx, "guild.update",
		trace.WithAttributes(
			attribute.String("guild.id", job.DiscordServerID),
			attribute.Int("guild.linked_users", len(job.UserMappings)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	updated, err := r.syncRoles(ctx, s, job)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("guild.members_updated", updated))

	if err := r.syncChannels(ctx, s, job.DiscordServerID, job.Metrics); err != nil {
		return fmt.Errorf("failed to update stats channels: %w", err)
	}

	r.logger.Info("Guild updated",
		zap.String("guild_id", job.DiscordServerID),
		zap.Int("members_updated", updated))
	return nil
}

// roleIndex is the role state of one guild
type roleIndex struct {
	byID   map[string]Role
	byName map[string]Role
}

func (idx *roleIndex) add(role Role) {
	idx.byID[role.ID] = role
	if _, ok := idx.byName[role.Name]; !ok {
		idx.byName[role.Name] = role
	}
}

func (idx *roleIndex) remove(role Role) {
	delete(idx.byID, role.ID)
	if idx.byName[role.Name].ID == role.ID {
		delete(idx.byName, role.Name)
	}
}

// syncRoles materializes ladder roles, drops obsolete ones and applies the
// per-member diff. It returns the number of members that changed.
func (r *Reconciler) syncRoles(ctx context.Context, s Session, job domain.ReconciliationJob) (int, error) {
	guildID := job.DiscordServerID

	existing, err := s.Roles(ctx, guildID)
	if err != nil {
		return 0, err
	}
	idx := &roleIndex{byID: map[string]Role{}, byName: map[string]Role{}}
	for _, role := range existing {
		idx.add(role)
	}

	for _, role := range existing {
		if !r.resolver.IsObsolete(role.Name) {
			continue
		}
		if err := s.DeleteRole(ctx, guildID, role.ID); err != nil {
			r.logger.Warn("Failed to delete obsolete role",
				zap.String("guild_id", guildID),
				zap.String("role", role.Name),
				zap.Error(err))
			continue
		}
		idx.remove(role)
		metrics.RoleMutationsTotal.WithLabelValues("delete").Inc()
	}

	for _, name := range r.resolver.LadderRoleNames() {
		if _, ok := idx.byName[name]; ok {
			continue
		}
		color, _ := r.resolver.Color(name)
		role, err := s.CreateRole(ctx, guildID, name, color.Int())
		if err != nil {
			r.logger.Warn("Failed to create role",
				zap.String("guild_id", guildID),
				zap.String("role", name),
				zap.Error(err))
			continue
		}
		idx.add(role)
		metrics.RoleMutationsTotal.WithLabelValues("create").Inc()
	}

	// The member list must be complete before diffing
	members, err := s.Members(ctx, guildID)
	if err != nil {
		return 0, err
	}

	managedNames := r.resolver.ObsoleteRoleNames()
	for _, name := range r.resolver.LadderRoleNames() {
		managedNames[name] = struct{}{}
	}
	for name := range job.RoleRules.RoleNames() {
		managedNames[name] = struct{}{}
	}
	managedIDs := job.RoleRules.RoleIDs()

	isManaged := func(role Role) bool {
		if _, ok := managedIDs[role.ID]; ok {
			return true
		}
		_, ok := managedNames[role.Name]
		return ok
	}

	updated := 0
	for _, member := range members {
		username, ok := job.UserMappings[member.ID]
		if !ok || username == "" {
			continue
		}
		agg, ok := job.Contributions[username]
		if !ok || agg == nil {
			continue
		}

		desired := r.desiredRoles(idx, agg, job)
		if r.applyMemberDiff(ctx, s, guildID, member, desired, idx, isManaged) {
			updated++
		}
	}

	return updated, nil
}

// desiredRoles returns the ordered role ids a contributor should hold
func (r *Reconciler) desiredRoles(idx *roleIndex, agg *domain.ContributorAggregate, job domain.ReconciliationJob) []string {
	var desired []string
	seen := map[string]struct{}{}
	add := func(role Role, ok bool) {
		if !ok {
			return
		}
		if _, dup := seen[role.ID]; dup {
			return
		}
		seen[role.ID] = struct{}{}
		desired = append(desired, role.ID)
	}

	assignments := r.resolver.Resolve(agg.Counts(), job.RoleRules)
	for _, kind := range domain.ActivityKinds {
		a, ok := assignments[kind]
		if !ok {
			continue
		}
		if a.Custom != nil {
			if role, found := resolveCustomRole(idx, *a.Custom); found {
				add(role, true)
				continue
			}
		}
		if a.Ladder != "" {
			role, found := idx.byName[a.Ladder]
			add(role, found)
		}
	}

	if medal, ok := job.Medals[agg.Username]; ok {
		role, found := idx.byName[medal]
		add(role, found)
	}

	return desired
}

func resolveCustomRole(idx *roleIndex, rule domain.RoleRule) (Role, bool) {
	if rule.RoleID != "" {
		if role, ok := idx.byID[rule.RoleID]; ok {
			return role, true
		}
	}
	if rule.RoleName != "" {
		if role, ok := idx.byName[rule.RoleName]; ok {
			return role, true
		}
	}
	return Role{}, false
}

// applyMemberDiff issues exactly the removals and additions needed. Roles
// outside the managed namespace are never touched.
func (r *Reconciler) applyMemberDiff(ctx context.Context, s Session, guildID string, member Member, desired []string, idx *roleIndex, isManaged func(Role) bool) bool {
	want := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}
	has := make(map[string]struct{}, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		has[id] = struct{}{}
	}

	changed := false
	for _, id := range member.RoleIDs {
		role, ok := idx.byID[id]
		if !ok || !isManaged(role) {
			continue
		}
		if _, keep := want[id]; keep {
			continue
		}
		if err := s.RemoveMemberRole(ctx, guildID, member.ID, id); err != nil {
			r.logger.Warn("Failed to remove role",
				zap.String("guild_id", guildID),
				zap.String("member", member.Username),
				zap.String("role", role.Name),
				zap.Error(err))
			continue
		}
		metrics.RoleMutationsTotal.WithLabelValues("remove").Inc()
		changed = true
	}

	for _, id := range desired {
		if _, ok := has[id]; ok {
			continue
		}
		if err := s.AddMemberRole(ctx, guildID, member.ID, id); err != nil {
			r.logger.Warn("Failed to add role",
				zap.String("guild_id", guildID),
				zap.String("member", member.Username),
				zap.String("role", idx.byID[id].Name),
				zap.Error(err))
			continue
		}
		metrics.RoleMutationsTotal.WithLabelValues("add").Inc()
		changed = true
	}

	if changed {
		r.logger.Debug("Member roles updated",
			zap.String("guild_id", guildID),
			zap.String("member", member.Username))
	}
	return changed
}
