package op

import (
	"encoding/json"
	"fmt"
)

// Permission authority operation types.
const (
	TypeCreateRoom       = "CREATE_ROOM"
	TypeAddMember        = "ADD_MEMBER"
	TypeUpdateMemberRole = "UPDATE_MEMBER_ROLE"
	TypeCreateChannel    = "CREATE_CHANNEL"
	TypeDeleteChannel    = "DELETE_CHANNEL"
	TypeUpdateChannel    = "UPDATE_CHANNEL"
)

// CreateRoom allocates a room, seeds the default roles, grants the creator
// ADMIN and creates the "general" channel - one atomic transition.
type CreateRoom struct {
	RoomID    string `json:"roomId"`
	Name      string `json:"name"`
	CreatorID string `json:"creatorId"`
}

func (c CreateRoom) Kind() string { return TypeCreateRoom }

func (c CreateRoom) fields() map[string]any {
	return map[string]any{
		"roomId":    c.RoomID,
		"name":      c.Name,
		"creatorId": c.CreatorID,
	}
}

func (c CreateRoom) identity() map[string]any {
	if c.RoomID == "" || c.CreatorID == "" {
		return nil
	}
	return map[string]any{"roomId": c.RoomID}
}

// AddMember adds a user to a room with a role. Requires canInvite.
type AddMember struct {
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
	RoleID  string `json:"roleId"`
	ActorID string `json:"actorId"`
}

func (a AddMember) Kind() string { return TypeAddMember }

func (a AddMember) fields() map[string]any {
	return map[string]any{
		"roomId":  a.RoomID,
		"userId":  a.UserID,
		"roleId":  a.RoleID,
		"actorId": a.ActorID,
	}
}

func (a AddMember) identity() map[string]any {
	if a.RoomID == "" || a.UserID == "" {
		return nil
	}
	return map[string]any{"roomId": a.RoomID, "userId": a.UserID}
}

// UpdateMemberRole changes a member's role. Requires canManagePermissions.
type UpdateMemberRole struct {
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
	RoleID  string `json:"roleId"`
	ActorID string `json:"actorId"`
}

func (u UpdateMemberRole) Kind() string { return TypeUpdateMemberRole }

func (u UpdateMemberRole) fields() map[string]any {
	return map[string]any{
		"roomId":  u.RoomID,
		"userId":  u.UserID,
		"roleId":  u.RoleID,
		"actorId": u.ActorID,
	}
}

func (u UpdateMemberRole) identity() map[string]any {
	if u.RoomID == "" || u.UserID == "" || u.RoleID == "" {
		return nil
	}
	return map[string]any{"roomId": u.RoomID, "userId": u.UserID, "roleId": u.RoleID}
}

// CreateChannel adds a channel to a room. Requires canManageChannels.
type CreateChannel struct {
	RoomID    string `json:"roomId"`
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	ActorID   string `json:"actorId"`
}

func (c CreateChannel) Kind() string { return TypeCreateChannel }

func (c CreateChannel) fields() map[string]any {
	return map[string]any{
		"roomId":    c.RoomID,
		"channelId": c.ChannelID,
		"name":      c.Name,
		"actorId":   c.ActorID,
	}
}

func (c CreateChannel) identity() map[string]any {
	if c.RoomID == "" || c.ChannelID == "" {
		return nil
	}
	return map[string]any{"roomId": c.RoomID, "channelId": c.ChannelID}
}

// DeleteChannel removes a channel from a room. Requires canManageChannels.
type DeleteChannel struct {
	RoomID    string `json:"roomId"`
	ChannelID string `json:"channelId"`
	ActorID   string `json:"actorId"`
}

func (d DeleteChannel) Kind() string { return TypeDeleteChannel }

func (d DeleteChannel) fields() map[string]any {
	return map[string]any{
		"roomId":    d.RoomID,
		"channelId": d.ChannelID,
		"actorId":   d.ActorID,
	}
}

func (d DeleteChannel) identity() map[string]any {
	if d.RoomID == "" || d.ChannelID == "" {
		return nil
	}
	return map[string]any{"roomId": d.RoomID, "channelId": d.ChannelID}
}

// UpdateChannel renames a channel. Requires canManageChannels.
type UpdateChannel struct {
	RoomID    string `json:"roomId"`
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	ActorID   string `json:"actorId"`
}

func (u UpdateChannel) Kind() string { return TypeUpdateChannel }

func (u UpdateChannel) fields() map[string]any {
	return map[string]any{
		"roomId":    u.RoomID,
		"channelId": u.ChannelID,
		"name":      u.Name,
		"actorId":   u.ActorID,
	}
}

func (u UpdateChannel) identity() map[string]any {
	if u.RoomID == "" || u.ChannelID == "" {
		return nil
	}
	return map[string]any{"roomId": u.RoomID, "channelId": u.ChannelID, "name": u.Name}
}

func decodePermissionPayload(opType string, data json.RawMessage) (Payload, error) {
	switch opType {
	case TypeCreateRoom:
		var p CreateRoom
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeAddMember:
		var p AddMember
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeUpdateMemberRole:
		var p UpdateMemberRole
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeCreateChannel:
		var p CreateChannel
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeDeleteChannel:
		var p DeleteChannel
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeUpdateChannel:
		var p UpdateChannel
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown permission operation %q", ErrMalformed, opType)
	}
}
