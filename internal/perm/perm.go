// Package perm implements the permission authority: rooms, roles, members
// and channels.
//
// Every mutating operation except room creation is gated by the acting
// user's role in the target room. Rejected operations are still projected
// into the durable view with their reason, the same audit policy the
// currency ledger follows.
package perm

import (
	"context"
	"fmt"
	"sort"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
)

// Default role identifiers seeded into every room.
const (
	RoleMember    = "MEMBER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// DefaultChannel is created in every room at creation time.
const DefaultChannel = "general"

// Permissions are the capability flags a role grants.
type Permissions struct {
	CanRead              bool
	CanWrite             bool
	CanInvite            bool
	CanManagePermissions bool
	CanManageChannels    bool
	CanManageRoom        bool
}

// Role pairs an identifier with its capability flags.
type Role struct {
	ID          string
	Permissions Permissions
}

// Channel is a named conversation surface inside a room.
type Channel struct {
	ID   string
	Name string
}

type room struct {
	id       string
	name     string
	roles    map[string]Role
	members  map[string]string // userId -> roleId
	channels map[string]*Channel
}

// defaultRoles seeds the three-tier hierarchy every room starts with.
func defaultRoles() map[string]Role {
	return map[string]Role{
		RoleMember: {
			ID:          RoleMember,
			Permissions: Permissions{CanRead: true, CanWrite: true},
		},
		RoleModerator: {
			ID: RoleModerator,
			Permissions: Permissions{
				CanRead: true, CanWrite: true,
				CanInvite: true, CanManageChannels: true,
			},
		},
		RoleAdmin: {
			ID: RoleAdmin,
			Permissions: Permissions{
				CanRead: true, CanWrite: true,
				CanInvite: true, CanManagePermissions: true,
				CanManageChannels: true, CanManageRoom: true,
			},
		},
	}
}

// Authority is the permission domain state machine and its write path.
// Mutation happens only on the dispatcher's apply path.
type Authority struct {
	d     *dispatch.Dispatcher
	rooms map[string]*room
}

// New creates an authority attached to the dispatcher.
func New(d *dispatch.Dispatcher) *Authority {
	return &Authority{
		d:     d,
		rooms: make(map[string]*room),
	}
}

// System returns the permission tag.
func (a *Authority) System() op.System {
	return op.SystemPermission
}

// Reset clears all rooms ahead of a replay.
func (a *Authority) Reset() {
	a.rooms = make(map[string]*room)
}

// SetLog rebinds the underlying dispatcher to a new log instance.
// A plain mutator: in-memory rooms and memberships are untouched.
func (a *Authority) SetLog(l oplog.Log) {
	a.d.SetLog(l)
}

// Apply is the single transition function for permission operations.
func (a *Authority) Apply(env op.Envelope) dispatch.Result {
	switch p := env.Payload.(type) {
	case op.CreateRoom:
		return a.applyCreateRoom(p)
	case op.AddMember:
		return a.applyAddMember(p)
	case op.UpdateMemberRole:
		return a.applyUpdateMemberRole(p)
	case op.CreateChannel:
		return a.applyCreateChannel(p)
	case op.DeleteChannel:
		return a.applyDeleteChannel(p)
	case op.UpdateChannel:
		return a.applyUpdateChannel(p)
	default:
		return dispatch.Rejected(fmt.Sprintf("unhandled permission payload %T", env.Payload))
	}
}

func (a *Authority) applyCreateRoom(p op.CreateRoom) dispatch.Result {
	if _, exists := a.rooms[p.RoomID]; exists {
		return dispatch.Rejected("room already exists")
	}

	// Seeded roles, creator as admin and the default channel land in one
	// transition: a room is never observable half-constructed.
	r := &room{
		id:      p.RoomID,
		name:    p.Name,
		roles:   defaultRoles(),
		members: map[string]string{p.CreatorID: RoleAdmin},
		channels: map[string]*Channel{
			DefaultChannel: {ID: DefaultChannel, Name: DefaultChannel},
		},
	}
	a.rooms[p.RoomID] = r
	return dispatch.Applied()
}

// authorize resolves the actor's role in the room and checks one flag.
func (a *Authority) authorize(r *room, actorID string, allowed func(Permissions) bool) *dispatch.Result {
	roleID, member := r.members[actorID]
	if !member {
		res := dispatch.Rejected("actor is not a member")
		return &res
	}
	role, ok := r.roles[roleID]
	if !ok {
		res := dispatch.Rejected("actor role does not exist")
		return &res
	}
	if !allowed(role.Permissions) {
		res := dispatch.Rejected("not authorized")
		return &res
	}
	return nil
}

func (a *Authority) applyAddMember(p op.AddMember) dispatch.Result {
	r, ok := a.rooms[p.RoomID]
	if !ok {
		return dispatch.Rejected("unknown room")
	}
	if res := a.authorize(r, p.ActorID, func(perms Permissions) bool { return perms.CanInvite }); res != nil {
		return *res
	}
	if _, exists := r.members[p.UserID]; exists {
		return dispatch.Rejected("already a member")
	}
	roleID := p.RoleID
	if roleID == "" {
		roleID = RoleMember
	}
	if _, ok := r.roles[roleID]; !ok {
		return dispatch.Rejected("unknown role")
	}

	r.members[p.UserID] = roleID
	return dispatch.Applied()
}

func (a *Authority) applyUpdateMemberRole(p op.UpdateMemberRole) dispatch.Result {
	r, ok := a.rooms[p.RoomID]
	if !ok {
		return dispatch.Rejected("unknown room")
	}
	if res := a.authorize(r, p.ActorID, func(perms Permissions) bool { return perms.CanManagePermissions }); res != nil {
		return *res
	}
	if _, member := r.members[p.UserID]; !member {
		return dispatch.Rejected("user is not a member")
	}
	if _, ok := r.roles[p.RoleID]; !ok {
		return dispatch.Rejected("unknown role")
	}

	r.members[p.UserID] = p.RoleID
	return dispatch.Applied()
}

func (a *Authority) applyCreateChannel(p op.CreateChannel) dispatch.Result {
	r, ok := a.rooms[p.RoomID]
	if !ok {
		return dispatch.Rejected("unknown room")
	}
	if res := a.authorize(r, p.ActorID, func(perms Permissions) bool { return perms.CanManageChannels }); res != nil {
		return *res
	}
	if _, exists := r.channels[p.ChannelID]; exists {
		return dispatch.Rejected("channel already exists")
	}

	r.channels[p.ChannelID] = &Channel{ID: p.ChannelID, Name: p.Name}
	return dispatch.Applied()
}

func (a *Authority) applyDeleteChannel(p op.DeleteChannel) dispatch.Result {
	r, ok := a.rooms[p.RoomID]
	if !ok {
		return dispatch.Rejected("unknown room")
	}
	if res := a.authorize(r, p.ActorID, func(perms Permissions) bool { return perms.CanManageChannels }); res != nil {
		return *res
	}
	if _, exists := r.channels[p.ChannelID]; !exists {
		return dispatch.Rejected("unknown channel")
	}

	delete(r.channels, p.ChannelID)
	return dispatch.Applied()
}

func (a *Authority) applyUpdateChannel(p op.UpdateChannel) dispatch.Result {
	r, ok := a.rooms[p.RoomID]
	if !ok {
		return dispatch.Rejected("unknown room")
	}
	if res := a.authorize(r, p.ActorID, func(perms Permissions) bool { return perms.CanManageChannels }); res != nil {
		return *res
	}
	ch, exists := r.channels[p.ChannelID]
	if !exists {
		return dispatch.Rejected("unknown channel")
	}

	ch.Name = p.Name
	return dispatch.Applied()
}

// CreateRoom submits a room creation and returns the allocated room ID.
func (a *Authority) CreateRoom(ctx context.Context, name, creatorID string) (string, bool, error) {
	roomID := a.d.NewNonce()
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.CreateRoom{RoomID: roomID, Name: name, CreatorID: creatorID},
	})
	if err != nil {
		return "", false, fmt.Errorf("create room: %w", err)
	}
	return roomID, res.OK(), nil
}

// AddMember submits a membership grant. An empty roleID defaults to MEMBER.
func (a *Authority) AddMember(ctx context.Context, roomID, userID, roleID, actorID string) (bool, error) {
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.AddMember{RoomID: roomID, UserID: userID, RoleID: roleID, ActorID: actorID},
	})
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return res.OK(), nil
}

// UpdateMemberRole submits a role change for an existing member.
func (a *Authority) UpdateMemberRole(ctx context.Context, roomID, userID, roleID, actorID string) (bool, error) {
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.UpdateMemberRole{RoomID: roomID, UserID: userID, RoleID: roleID, ActorID: actorID},
	})
	if err != nil {
		return false, fmt.Errorf("update member role: %w", err)
	}
	return res.OK(), nil
}

// CreateChannel submits a channel creation and returns the allocated ID.
func (a *Authority) CreateChannel(ctx context.Context, roomID, name, actorID string) (string, bool, error) {
	channelID := a.d.NewNonce()
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.CreateChannel{RoomID: roomID, ChannelID: channelID, Name: name, ActorID: actorID},
	})
	if err != nil {
		return "", false, fmt.Errorf("create channel: %w", err)
	}
	return channelID, res.OK(), nil
}

// DeleteChannel submits a channel removal.
func (a *Authority) DeleteChannel(ctx context.Context, roomID, channelID, actorID string) (bool, error) {
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.DeleteChannel{RoomID: roomID, ChannelID: channelID, ActorID: actorID},
	})
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return res.OK(), nil
}

// UpdateChannel submits a channel rename.
func (a *Authority) UpdateChannel(ctx context.Context, roomID, channelID, name, actorID string) (bool, error) {
	res, err := a.d.Submit(ctx, op.Envelope{
		System:  op.SystemPermission,
		Payload: op.UpdateChannel{RoomID: roomID, ChannelID: channelID, Name: name, ActorID: actorID},
	})
	if err != nil {
		return false, fmt.Errorf("update channel: %w", err)
	}
	return res.OK(), nil
}

// RoleOf resolves a member's role in a room.
func (a *Authority) RoleOf(roomID, userID string) (Role, bool) {
	r, ok := a.rooms[roomID]
	if !ok {
		return Role{}, false
	}
	roleID, member := r.members[userID]
	if !member {
		return Role{}, false
	}
	role, ok := r.roles[roleID]
	return role, ok
}

// IsMember reports whether a user belongs to a room.
func (a *Authority) IsMember(roomID, userID string) bool {
	r, ok := a.rooms[roomID]
	if !ok {
		return false
	}
	_, member := r.members[userID]
	return member
}

// RoomName returns a room's display name.
func (a *Authority) RoomName(roomID string) (string, bool) {
	r, ok := a.rooms[roomID]
	if !ok {
		return "", false
	}
	return r.name, true
}

// Channels lists a room's channels ordered by ID.
func (a *Authority) Channels(roomID string) []Channel {
	r, ok := a.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ForceInitialize replays the log into this machine (and its siblings).
func (a *Authority) ForceInitialize(ctx context.Context) error {
	return a.d.ForceInitialize(ctx)
}
