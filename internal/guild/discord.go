package guild

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
)

const membersPageSize = 1000

// DiscordConnector connects to Discord with a bot token
type DiscordConnector struct {
	token        string
	readyTimeout time.Duration
	logger       *zap.Logger
}

// NewDiscordConnector creates a connector. readyTimeout bounds the wait for
// the gateway READY event.
func NewDiscordConnector(token string, readyTimeout time.Duration, logger *zap.Logger) *DiscordConnector {
	return &DiscordConnector{token: token, readyTimeout: readyTimeout, logger: logger}
}

// Connect opens a gateway session and waits until it is ready
func (c *DiscordConnector) Connect(ctx context.Context) (Session, error) {
	if c.token == "" {
		return nil, apperrors.NewConfigurationError("Discord bot token is not set")
	}

	dg, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to create Discord session", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	ready := make(chan *discordgo.Ready, 1)
	dg.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		ready <- r
	})

	if err := dg.Open(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to connect to Discord", err)
	}

	timer := time.NewTimer(c.readyTimeout)
	defer timer.Stop()

	select {
	case r := <-ready:
		ids := make([]string, 0, len(r.Guilds))
		for _, g := range r.Guilds {
			ids = append(ids, g.ID)
		}
		fields := []zap.Field{zap.Int("guilds", len(ids))}
		if r.User != nil {
			fields = append(fields, zap.String("user", r.User.Username))
		}
		c.logger.Info("Connected to Discord", fields...)
		return &discordSession{dg: dg, guildIDs: ids}, nil
	case <-timer.C:
		_ = dg.Close()
		return nil, apperrors.NewUnavailableError("timed out waiting for Discord READY", nil)
	case <-ctx.Done():
		_ = dg.Close()
		return nil, ctx.Err()
	}
}

// discordSession implements Session over discordgo
type discordSession struct {
	dg       *discordgo.Session
	guildIDs []string
}

func (s *discordSession) GuildIDs() []string {
	return s.guildIDs
}

func (s *discordSession) Members(ctx context.Context, guildID string) ([]Member, error) {
	var all []Member
	after := ""
	for {
		page, err := s.dg.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list members of guild %s: %w", guildID, err)
		}
		members, lastID := convertMembers(page)
		all = append(all, members...)
		if len(page) < membersPageSize || lastID == "" {
			break
		}
		after = lastID
	}
	return all, nil
}

// convertMembers returns the page's members that carry a user, along with the
// id of the last of them for cursoring
func convertMembers(page []*discordgo.Member) ([]Member, string) {
	members := make([]Member, 0, len(page))
	lastID := ""
	for _, m := range page {
		if m == nil || m.User == nil {
			continue
		}
		members = append(members, Member{ID: m.User.ID, Username: m.User.Username, RoleIDs: m.Roles})
		lastID = m.User.ID
	}
	return members, lastID
}

func (s *discordSession) Roles(ctx context.Context, guildID string) ([]Role, error) {
	roles, err := s.dg.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list roles of guild %s: %w", guildID, err)
	}
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *discordSession) CreateRole(ctx context.Context, guildID, name string, color int) (Role, error) {
	r, err := s.dg.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name, Color: &color}, discordgo.WithContext(ctx))
	if err != nil {
		return Role{}, err
	}
	return Role{ID: r.ID, Name: r.Name}, nil
}

func (s *discordSession) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return s.dg.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx))
}

func (s *discordSession) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return s.dg.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (s *discordSession) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return s.dg.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (s *discordSession) Channels(ctx context.Context, guildID string) ([]Channel, error) {
	channels, err := s.dg.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list channels of guild %s: %w", guildID, err)
	}
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, toChannel(ch))
	}
	return out, nil
}

func (s *discordSession) CreateCategory(ctx context.Context, guildID, name string) (Channel, error) {
	ch, err := s.dg.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, err
	}
	return toChannel(ch), nil
}

func (s *discordSession) CreateVoiceChannel(ctx context.Context, guildID, parentID, name string) (Channel, error) {
	ch, err := s.dg.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, err
	}
	return toChannel(ch), nil
}

func (s *discordSession) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := s.dg.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return err
}

func (s *discordSession) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := s.dg.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (s *discordSession) Close() error {
	return s.dg.Close()
}

func toChannel(ch *discordgo.Channel) Channel {
	out := Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID}
	switch ch.Type {
	case discordgo.ChannelTypeGuildCategory:
		out.Type = ChannelTypeCategory
	case discordgo.ChannelTypeGuildVoice:
		out.Type = ChannelTypeVoice
	}
	return out
}
