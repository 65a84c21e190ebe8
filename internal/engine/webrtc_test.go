package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffer_BroadcastsToOtherSpaceMembers(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "alpha")
	drain(h1)

	h2 := newTestClient(e, "h2")
	joinSpaceMsg(t, e, h2, "alpha")
	drain(h1)
	drain(h2)

	offer, _ := json.Marshal(sdpPayload{Offer: json.RawMessage(`{"sdp":"x"}`)})
	e.dispatch(ctx, h1, TypeOffer, offer)

	msg, ok := lastOfType(drain(h2), TypeOffer)
	require.True(t, ok)
	var op sdpOutPayload
	require.NoError(t, json.Unmarshal(msg.Data, &op))
	assert.Equal(t, "h1", op.Sid)

	assert.Empty(t, drain(h1), "sender should not receive its own broadcast offer back")
}

func TestControlAnswer_DropsSilentlyWithNoController(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	robot := newTestClient(e, "robot-1")
	identifyRobot(t, e, robot, "alpha")
	drain(robot)

	answer, _ := json.Marshal(answerPayload{Answer: json.RawMessage(`{"sdp":"y"}`)})
	e.dispatch(ctx, robot, TypeControlAnswer, answer)

	assert.Empty(t, drain(robot))
}

func TestControlAnswer_RoutesToCurrentControllerOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	robot := newTestClient(e, "robot-1")
	identifyRobot(t, e, robot, "alpha")
	drain(robot)

	h1 := newTestClient(e, "h1")
	joinSpaceMsg(t, e, h1, "alpha")
	drain(h1)
	e.dispatch(ctx, h1, TypeControlRequest, nil)
	drain(h1)

	answer, _ := json.Marshal(answerPayload{Answer: json.RawMessage(`{"sdp":"y"}`)})
	e.dispatch(ctx, robot, TypeControlAnswer, answer)

	msg, ok := lastOfType(drain(h1), TypeControlAnswer)
	require.True(t, ok)
	var ap sdpOutPayload
	require.NoError(t, json.Unmarshal(msg.Data, &ap))
	assert.Equal(t, "robot-1", ap.Sid)
}
