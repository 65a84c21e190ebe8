package engine

import (
	"context"

	"github.com/littlebee/portalbot/internal/metrics"
)

// --- Space Manager ---
// All methods in this file assume e.mu is already held by the caller.

// joinSpace validates existence, enabled flag, and capacity (in that
// order), then admits the client and emits joined_space / user_joined.
// extra allows the arbiter to fold robot-specific fields into the
// joining client's own joined_space payload without a second message.
func (e *Engine) joinSpace(ctx context.Context, c *Client, spaceID string, extra func(*joinedSpacePayload)) bool {
	space, ok := e.catalog.Get(spaceID)
	if !ok {
		c.sendError(ctx, "space does not exist")
		return false
	}
	if !space.Enabled {
		c.sendError(ctx, "space unavailable")
		return false
	}

	members := e.spaceMembers[spaceID]
	if len(members) >= space.MaxParticipants {
		c.sendError(ctx, "space is full")
		return false
	}

	if members == nil {
		members = make(map[string]struct{})
		e.spaceMembers[spaceID] = members
	}
	members[c.ID] = struct{}{}
	c.SpaceID = spaceID

	metrics.SpaceParticipants.WithLabelValues(spaceID).Set(float64(len(members)))
	metrics.ActiveSpaces.Set(float64(len(e.spaceMembers)))

	payload := joinedSpacePayload{Space: spaceID, Participants: e.participantIDs(spaceID)}
	if extra != nil {
		extra(&payload)
	}
	c.enqueue(ctx, TypeJoinedSpace, payload)

	e.broadcast(ctx, spaceID, TypeUserJoined, userJoinedPayload{Sid: c.ID, Participants: e.participantIDs(spaceID)}, c.ID)
	return true
}

// leaveSpace removes the client from its active space, if any. Idempotent.
func (e *Engine) leaveSpace(ctx context.Context, c *Client) {
	spaceID := c.SpaceID
	if spaceID == "" {
		return
	}

	members := e.spaceMembers[spaceID]
	if members != nil {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(e.spaceMembers, spaceID)
			metrics.SpaceParticipants.DeleteLabelValues(spaceID)
		} else {
			metrics.SpaceParticipants.WithLabelValues(spaceID).Set(float64(len(members)))
		}
	}
	metrics.ActiveSpaces.Set(float64(len(e.spaceMembers)))

	c.SpaceID = ""
	e.broadcast(ctx, spaceID, TypeUserLeft, userLeftPayload{Sid: c.ID}, "")
}

// broadcast sends to every member of spaceID except excludeID (pass "" to exclude no one).
func (e *Engine) broadcast(ctx context.Context, spaceID, msgType string, payload any, excludeID string) {
	for memberID := range e.spaceMembers[spaceID] {
		if memberID == excludeID {
			continue
		}
		e.sendTo(ctx, memberID, msgType, payload)
	}
}

func (e *Engine) participantIDs(spaceID string) []string {
	members := e.spaceMembers[spaceID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}
