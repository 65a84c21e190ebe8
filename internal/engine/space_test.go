package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSpace_CapacityBoundary(t *testing.T) {
	e := newTestEngine(t)

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "alpha") // capacity-1 succeeds
	joined, ok := lastOfType(drain(h1), TypeJoinedSpace)
	require.True(t, ok)
	var jp joinedSpacePayload
	require.NoError(t, json.Unmarshal(joined.Data, &jp))
	assert.Equal(t, "alpha", jp.Space)

	h2 := newTestClient(e, "h2")
	joinSpaceMsg(t, e, h2, "alpha") // exactly at capacity (2) succeeds
	_, ok = lastOfType(drain(h2), TypeJoinedSpace)
	require.True(t, ok)

	h3 := newTestClient(e, "h3")
	joinSpaceMsg(t, e, h3, "alpha") // now full
	errMsg, ok := lastOfType(drain(h3), TypeError)
	require.True(t, ok)
	var ep errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &ep))
	assert.Equal(t, "space is full", ep.Message)
}

func TestJoinSpace_UnknownSpace(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient(e, "h1")
	joinSpaceMsg(t, e, c, "nowhere")

	errMsg, ok := lastOfType(drain(c), TypeError)
	require.True(t, ok)
	var ep errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &ep))
	assert.Equal(t, "space does not exist", ep.Message)
}

func TestJoinSpace_DisabledSpace(t *testing.T) {
	e := newTestEngine(t)
	c := newTestClient(e, "h1")
	joinSpaceMsg(t, e, c, "disabled-space")

	errMsg, ok := lastOfType(drain(c), TypeError)
	require.True(t, ok)
	var ep errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &ep))
	assert.Equal(t, "space unavailable", ep.Message)
}

// join_space followed by leave_space restores the active-space set.
func TestJoinThenLeave_RestoresPriorState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c := newTestClient(e, "h1")
	joinSpaceMsg(t, e, c, "alpha")
	drain(c)

	e.mu.Lock()
	_, hadSpace := e.spaceMembers["alpha"]
	e.mu.Unlock()
	require.True(t, hadSpace)

	e.dispatch(ctx, c, TypeLeaveSpace, nil)

	e.mu.Lock()
	_, hasSpace := e.spaceMembers["alpha"]
	e.mu.Unlock()
	assert.False(t, hasSpace)
	assert.Equal(t, "", c.SpaceID)
}

func TestUserJoined_BroadcastsToOtherMembersOnly(t *testing.T) {
	e := newTestEngine(t)

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "alpha")
	drain(h1)

	h2 := newTestClient(e, "h2")
	joinSpaceMsg(t, e, h2, "alpha")
	h2Msgs := drain(h2)
	_, joinedOK := lastOfType(h2Msgs, TypeJoinedSpace)
	assert.True(t, joinedOK)

	h1Msgs := drain(h1)
	joinedMsg, joinedBroadcastOK := lastOfType(h1Msgs, TypeUserJoined)
	assert.True(t, joinedBroadcastOK)
	var up userJoinedPayload
	require.NoError(t, json.Unmarshal(joinedMsg.Data, &up))
	assert.Equal(t, "h2", up.Sid)
}
