// Package guild keeps Discord guild roles and stats channels in sync with
// contribution statistics.
package guild

import "context"

// ChannelType classifies guild channels
type ChannelType int

const (
	ChannelTypeOther ChannelType = iota
	ChannelTypeCategory
	ChannelTypeVoice
)

// Member is a guild member and the ids of the roles it holds
type Member struct {
	ID       string
	Username string
	RoleIDs  []string
}

// Role is a guild role
type Role struct {
	ID   string
	Name string
}

// Channel is a guild channel or category
type Channel struct {
	ID       string
	Name     string
	Type     ChannelType
	ParentID string
}

// Connector opens one platform session for a whole batch of guilds
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is a connected guild platform client. Rate limiting is the
// implementation's concern.
type Session interface {
	// GuildIDs lists the guilds the bot is in once the session is ready
	GuildIDs() []string

	// Members fetches the complete member list of a guild
	Members(ctx context.Context, guildID string) ([]Member, error)

	Roles(ctx context.Context, guildID string) ([]Role, error)
	CreateRole(ctx context.Context, guildID, name string, color int) (Role, error)
	DeleteRole(ctx context.Context, guildID, roleID string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error

	Channels(ctx context.Context, guildID string) ([]Channel, error)
	CreateCategory(ctx context.Context, guildID, name string) (Channel, error)
	CreateVoiceChannel(ctx context.Context, guildID, parentID, name string) (Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID string) error

	Close() error
}
