package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleDisconnect_RemovesClientFromEveryIndex(t *testing.T) {
	e := newTestEngine(t)

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "alpha")
	drain(h1)

	e.handleDisconnect(h1)

	e.mu.Lock()
	defer e.mu.Unlock()

	_, clientStillKnown := e.clients["h1"]
	assert.False(t, clientStillKnown)

	members, spaceStillTracksIt := e.spaceMembers["alpha"]
	if spaceStillTracksIt {
		_, present := members["h1"]
		assert.False(t, present)
	}

	_, stillQueued := e.queueSpace["h1"]
	assert.False(t, stillQueued)
}

func TestHandleDisconnect_HumanControllerReleasesAndPromotes(t *testing.T) {
	e := newTestEngine(t)

	// beta (capacity 5) so the robot plus two humans can all join.
	robot := newTestClient(e, "robot-1")
	identifyRobot(t, e, robot, "beta")
	drain(robot)

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "beta")
	drain(h1)
	e.dispatch(context.Background(), h1, TypeControlRequest, nil)
	drain(h1)

	h2 := newTestClient(e, "h2")
	joinSpaceMsg(t, e, h2, "beta")
	drain(h2)
	e.dispatch(context.Background(), h2, TypeControlRequest, nil)
	drain(h2)

	e.handleDisconnect(h1)

	released, ok := lastOfType(drain(robot), TypeControlReleased)
	require.True(t, ok)
	var rp controlReleasedPayload
	require.NoError(t, json.Unmarshal(released.Data, &rp))
	assert.Equal(t, "h1", rp.ControllerID)
	assert.Equal(t, "Controller disconnected", rp.Reason)

	granted, ok := lastOfType(drain(h2), TypeControlGranted)
	require.True(t, ok)
	_ = granted
}
