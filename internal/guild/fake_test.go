package guild

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// fakeGuild is the server-side state of one guild
type fakeGuild struct {
	roles    []Role
	members  []*Member
	channels []Channel
}

// fakePlatform is a stateful in-memory guild platform. Every mutating call
// is counted so tests can assert idempotence.
type fakePlatform struct {
	mu         sync.Mutex
	guilds     map[string]*fakeGuild
	order      []string
	nextID     int
	connectErr error
	failRoles  map[string]bool
	failRename map[string]bool
	calls      map[string]int
	closed     int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guilds:     map[string]*fakeGuild{},
		failRoles:  map[string]bool{},
		failRename: map[string]bool{},
		calls:      map[string]int{},
	}
}

func (p *fakePlatform) addGuild(id string) *fakeGuild {
	g := &fakeGuild{}
	p.guilds[id] = g
	p.order = append(p.order, id)
	return g
}

func (p *fakePlatform) id() string {
	p.nextID++
	return fmt.Sprintf("id-%d", p.nextID)
}

func (p *fakePlatform) roleMutations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls["role_create"] + p.calls["role_delete"] + p.calls["member_add"] + p.calls["member_remove"]
}

func (p *fakePlatform) channelMutations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls["channel_create"] + p.calls["channel_rename"] + p.calls["channel_delete"]
}

func (p *fakePlatform) resetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = map[string]int{}
}

// Connect implements Connector
func (p *fakePlatform) Connect(context.Context) (Session, error) {
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	return &fakeSession{p: p}, nil
}

type fakeSession struct {
	p *fakePlatform
}

func (s *fakeSession) guild(id string) (*fakeGuild, error) {
	g, ok := s.p.guilds[id]
	if !ok {
		return nil, errors.New("unknown guild")
	}
	return g, nil
}

func (s *fakeSession) GuildIDs() []string {
	return append([]string(nil), s.p.order...)
}

func (s *fakeSession) Members(_ context.Context, guildID string) ([]Member, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	g, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, Member{ID: m.ID, Username: m.Username, RoleIDs: append([]string(nil), m.RoleIDs...)})
	}
	return out, nil
}

func (s *fakeSession) Roles(_ context.Context, guildID string) ([]Role, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.failRoles[guildID] {
		return nil, errors.New("roles unavailable")
	}
	g, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	return append([]Role(nil), g.roles...), nil
}

func (s *fakeSession) CreateRole(_ context.Context, guildID, name string, _ int) (Role, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	g, err := s.guild(guildID)
	if err != nil {
		return Role{}, err
	}
	role := Role{ID: s.p.id(), Name: name}
	g.roles = append(g.roles, role)
	s.p.calls["role_create"]++
	return role, nil
}

func (s *fakeSession) DeleteRole(_ context.Context, guildID, roleID string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	g, err := s.guild(guildID)
	if err != nil {
		return err
	}
	kept := g.roles[:0]
	for _, r := range g.roles {
		if r.ID != roleID {
			kept = append(kept, r)
		}
	}
	g.roles = kept
	for _, m := range g.members {
		m.RoleIDs = without(m.RoleIDs, roleID)
	}
	s.p.calls["role_delete"]++
	return nil
}

func (s *fakeSession) member(guildID, userID string) (*Member, error) {
	g, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	for _, m := range g.members {
		if m.ID == userID {
			return m, nil
		}
	}
	return nil, errors.New("unknown member")
}

func (s *fakeSession) AddMemberRole(_ context.Context, guildID, userID, roleID string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	m, err := s.member(guildID, userID)
	if err != nil {
		return err
	}
	m.RoleIDs = append(m.RoleIDs, roleID)
	s.p.calls["member_add"]++
	return nil
}

func (s *fakeSession) RemoveMemberRole(_ context.Context, guildID, userID, roleID string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	m, err := s.member(guildID, userID)
	if err != nil {
		return err
	}
	m.RoleIDs = without(m.RoleIDs, roleID)
	s.p.calls["member_remove"]++
	return nil
}

func (s *fakeSession) Channels(_ context.Context, guildID string) ([]Channel, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	g, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	return append([]Channel(nil), g.channels...), nil
}

func (s *fakeSession) createChannel(guildID string, ch Channel) (Channel, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	g, err := s.guild(guildID)
	if err != nil {
		return Channel{}, err
	}
	ch.ID = s.p.id()
	g.channels = append(g.channels, ch)
	s.p.calls["channel_create"]++
	return ch, nil
}

func (s *fakeSession) CreateCategory(_ context.Context, guildID, name string) (Channel, error) {
	return s.createChannel(guildID, Channel{Name: name, Type: ChannelTypeCategory})
}

func (s *fakeSession) CreateVoiceChannel(_ context.Context, guildID, parentID, name string) (Channel, error) {
	return s.createChannel(guildID, Channel{Name: name, Type: ChannelTypeVoice, ParentID: parentID})
}

func (s *fakeSession) RenameChannel(_ context.Context, channelID, name string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.failRename[channelID] {
		return errors.New("missing permissions")
	}
	for _, g := range s.p.guilds {
		for i := range g.channels {
			if g.channels[i].ID == channelID {
				g.channels[i].Name = name
				s.p.calls["channel_rename"]++
				return nil
			}
		}
	}
	return errors.New("unknown channel")
}

func (s *fakeSession) DeleteChannel(_ context.Context, channelID string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	for _, g := range s.p.guilds {
		for i := range g.channels {
			if g.channels[i].ID == channelID {
				g.channels = append(g.channels[:i], g.channels[i+1:]...)
				s.p.calls["channel_delete"]++
				return nil
			}
		}
	}
	return errors.New("unknown channel")
}

func (s *fakeSession) Close() error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.closed++
	return nil
}

func without(ids []string, target string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// roleNames returns the sorted names of the roles a member holds
func (g *fakeGuild) roleNames(memberID string) []string {
	byID := map[string]string{}
	for _, r := range g.roles {
		byID[r.ID] = r.Name
	}
	var names []string
	for _, m := range g.members {
		if m.ID != memberID {
			continue
		}
		for _, id := range m.RoleIDs {
			names = append(names, byID[id])
		}
	}
	sort.Strings(names)
	return names
}

func (g *fakeGuild) channelsIn(parentID string) []string {
	var names []string
	for _, ch := range g.channels {
		if ch.ParentID == parentID {
			names = append(names, ch.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (g *fakeGuild) categories(name string) []Channel {
	var out []Channel
	for _, ch := range g.channels {
		if ch.Type == ChannelTypeCategory && ch.Name == name {
			out = append(out, ch)
		}
	}
	return out
}
