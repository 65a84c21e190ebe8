package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/littlebee/portalbot/internal/logging"
	"github.com/littlebee/portalbot/internal/metrics"
)

// --- Message Dispatch Loop ---

// dispatch is the single entry point through which every inbound frame
// for every connection passes. It acquires the engine mutex once, so the
// handler it invokes runs as if nothing else could interleave — the
// atomicity the rest of the arbiter's logic depends on.
func (e *Engine) dispatch(ctx context.Context, c *Client, msgType string, data json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	status := "ok"
	defer func() {
		metrics.MessageProcessingDuration.WithLabelValues(msgType).Observe(time.Since(start).Seconds())
		metrics.WebsocketEvents.WithLabelValues(msgType, status).Inc()
	}()

	switch msgType {
	case TypePing:
		c.enqueue(ctx, TypePong, emptyPayload{})

	case TypeJoinSpace:
		var p joinSpacePayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.joinSpace(ctx, c, p.Space, nil)

	case TypeLeaveSpace:
		e.leaveSpace(ctx, c)

	case TypeOffer:
		var p sdpPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onOffer(ctx, c, p.Offer)

	case TypeAnswer:
		var p answerPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onAnswer(ctx, c, p.Answer)

	case TypeIceCandidate:
		var p iceCandidatePayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onIceCandidate(ctx, c, p.Candidate)

	case TypeControlOffer:
		var p sdpPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onControlOffer(ctx, c, p.Offer)

	case TypeControlAnswer:
		var p answerPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onControlAnswer(ctx, c, p.Answer)

	case TypeRobotIdentify:
		var p robotIdentifyPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onRobotIdentify(ctx, c, p)

	case TypeControlRequest:
		e.onControlRequest(ctx, c)

	case TypeControlRelease:
		e.onControlRelease(ctx, c)

	case TypeSetAngles:
		var p setAnglesPayload
		if !decode(data, &p) {
			status = "malformed"
			return
		}
		e.onSetAngles(ctx, c, p)

	case TypeControlGranted:
		e.onControlGranted(ctx, c)

	default:
		status = "unknown"
		logging.Warn(ctx, "unknown message type", zap.String("type", msgType), zap.String("client_id", c.ID))
	}
}

// handleDisconnect runs the fixed-order cascade exactly once for a client
// whose read loop has ended: role-specific release/flush, leave space,
// registry cleanup.
func (e *Engine) handleDisconnect(c *Client) {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch c.Role {
	case RoleRobot:
		e.robotDisconnectCascade(ctx, c)
	case RoleHuman:
		e.humanDisconnectCascade(ctx, c)
	}

	e.leaveSpace(ctx, c)
	e.cleanup(c.ID)

	close(c.send)
}

func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return true
	}
	return json.Unmarshal(data, v) == nil
}

func logControlGrantedSpoof(ctx context.Context, clientID string) {
	logging.Error(ctx, "rejected spoofed control_granted from client", zap.String("client_id", clientID))
}

func logNoControllerForAnswer(ctx context.Context, robotClientID string) {
	logging.Warn(ctx, "dropping control_answer, robot has no current controller", zap.String("client_id", robotClientID))
}

func logEmptyControlAnswer(ctx context.Context, robotClientID string) {
	logging.Warn(ctx, "dropping control_answer with empty answer field", zap.String("client_id", robotClientID))
}
