package guild

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/domain"
	"github.com/tim48-robot/disgitbot/internal/metrics"
	"github.com/tim48-robot/disgitbot/internal/roles"
)

// StatsChannelNames returns the voice channel names that display metrics.
// Each name starts with a stable "Keyword:" prefix.
func StatsChannelNames(m domain.RepositoryMetrics) []string {
	return []string{
		fmt.Sprintf("Stars: %d", m.Stars),
		fmt.Sprintf("Forks: %d", m.Forks),
		fmt.Sprintf("Contributors: %d", m.Contributors),
		fmt.Sprintf("PRs: %d", m.PullRequests),
		fmt.Sprintf("Issues: %d", m.Issues),
		fmt.Sprintf("Commits: %d", m.Commits),
	}
}

func channelKeyword(name string) string {
	i := strings.Index(name, ":")
	if i < 0 {
		return ""
	}
	return name[:i+1]
}

// syncChannels keeps exactly one stats category holding one voice channel per
// metric, renaming, creating or deleting channels as needed. Failing to establish the category fails the guild; a
// failing channel only logs.
func (r *Reconciler) syncChannels(ctx context.Context, s Session, guildID string, m domain.RepositoryMetrics) error {
	channels, err := s.Channels(ctx, guildID)
	if err != nil {
		return err
	}

	var categories []Channel
	for _, ch := range channels {
		if ch.Type == ChannelTypeCategory && ch.Name == roles.StatsCategoryName {
			categories = append(categories, ch)
		}
	}

	var category Channel
	if len(categories) == 0 {
		category, err = s.CreateCategory(ctx, guildID, roles.StatsCategoryName)
		if err != nil {
			return fmt.Errorf("failed to create stats category: %w", err)
		}
		metrics.ChannelUpdatesTotal.WithLabelValues("create").Inc()
	} else {
		category = categories[0]
		for _, dup := range categories[1:] {
			r.deleteCategory(ctx, s, guildID, dup, channels)
		}
	}

	targets := map[string]string{}
	for _, target := range StatsChannelNames(m) {
		targets[channelKeyword(target)] = target
	}

	existing := map[string]Channel{}
	var extras []Channel
	for _, ch := range channels {
		if ch.ParentID != category.ID || ch.Type != ChannelTypeVoice {
			continue
		}
		keyword := channelKeyword(ch.Name)
		target, ok := targets[keyword]
		if !ok {
			continue
		}
		kept, ok := existing[keyword]
		switch {
		case !ok:
			existing[keyword] = ch
		case ch.Name == target && kept.Name != target:
			existing[keyword] = ch
			extras = append(extras, kept)
		default:
			extras = append(extras, ch)
		}
	}

	for _, ch := range extras {
		if err := s.DeleteChannel(ctx, ch.ID); err != nil {
			r.logger.Warn("Failed to delete duplicate stats channel",
				zap.String("guild_id", guildID),
				zap.String("channel", ch.Name),
				zap.Error(err))
			continue
		}
		metrics.ChannelUpdatesTotal.WithLabelValues("delete").Inc()
	}

	for _, target := range StatsChannelNames(m) {
		keyword := channelKeyword(target)
		ch, ok := existing[keyword]
		switch {
		case ok && ch.Name == target:
			continue
		case ok:
			if err := s.RenameChannel(ctx, ch.ID, target); err != nil {
				r.logger.Warn("Failed to rename stats channel",
					zap.String("guild_id", guildID),
					zap.String("channel", target),
					zap.Error(err))
				continue
			}
			metrics.ChannelUpdatesTotal.WithLabelValues("rename").Inc()
		default:
			if _, err := s.CreateVoiceChannel(ctx, guildID, category.ID, target); err != nil {
				r.logger.Warn("Failed to create stats channel",
					zap.String("guild_id", guildID),
					zap.String("channel", target),
					zap.Error(err))
				continue
			}
			metrics.ChannelUpdatesTotal.WithLabelValues("create").Inc()
		}
	}

	return nil
}

// deleteCategory removes a duplicate stats category and its children
func (r *Reconciler) deleteCategory(ctx context.Context, s Session, guildID string, category Channel, channels []Channel) {
	for _, ch := range channels {
		if ch.ParentID != category.ID {
			continue
		}
		if err := s.DeleteChannel(ctx, ch.ID); err != nil {
			r.logger.Warn("Failed to delete channel of duplicate stats category",
				zap.String("guild_id", guildID),
				zap.String("channel", ch.Name),
				zap.Error(err))
			continue
		}
		metrics.ChannelUpdatesTotal.WithLabelValues("delete").Inc()
	}
	if err := s.DeleteChannel(ctx, category.ID); err != nil {
		r.logger.Warn("Failed to delete duplicate stats category",
			zap.String("guild_id", guildID),
			zap.Error(err))
		return
	}
	metrics.ChannelUpdatesTotal.WithLabelValues("delete").Inc()
	r.logger.Info("Deleted duplicate stats category", zap.String("guild_id", guildID))
}
