package engine

import "context"

// --- Signaling Router ---
// All methods in this file assume e.mu is already held by the caller.
// In all cases the sender must be in a space; messages missing their
// required payload field are dropped without a reply. Only control_answer
// logs a warning when it drops a message; offer, answer, ice_candidate
// and control_offer drop without logging.
//
// Generic offer/answer/ice_candidate broadcast to the rest of the space
// (preserving the retrieved source's behavior and the spec's own
// documented open question, §9). control_offer/control_answer are
// strictly targeted: control-plane signaling must never leak to queued
// waiters.

func (e *Engine) onOffer(ctx context.Context, c *Client, offer []byte) {
	if c.SpaceID == "" || len(offer) == 0 {
		return
	}
	e.broadcast(ctx, c.SpaceID, TypeOffer, sdpOutPayload{Offer: offer, Sid: c.ID}, c.ID)
}

func (e *Engine) onAnswer(ctx context.Context, c *Client, answer []byte) {
	if c.SpaceID == "" || len(answer) == 0 {
		return
	}
	e.broadcast(ctx, c.SpaceID, TypeAnswer, sdpOutPayload{Answer: answer, Sid: c.ID}, c.ID)
}

func (e *Engine) onIceCandidate(ctx context.Context, c *Client, candidate []byte) {
	if c.SpaceID == "" || len(candidate) == 0 {
		return
	}
	e.broadcast(ctx, c.SpaceID, TypeIceCandidate, sdpOutPayload{Candidate: candidate, Sid: c.ID}, c.ID)
}

// onControlOffer routes a control-plane offer from the current controller
// to its robot only.
func (e *Engine) onControlOffer(ctx context.Context, c *Client, offer []byte) {
	if c.SpaceID == "" || len(offer) == 0 {
		return
	}
	robotClientID, ok := e.findRobotInSpace(c.SpaceID)
	if !ok {
		c.sendError(ctx, "no robot in this space")
		return
	}
	profile, _ := e.robotProfileByClientID(robotClientID)
	if profile.ControllerID != c.ID {
		c.sendError(ctx, "You do not currently control this robot")
		return
	}
	e.sendTo(ctx, robotClientID, TypeControlOffer, sdpOutPayload{Offer: offer, Sid: c.ID})
}

// onControlAnswer routes a control-plane answer from a robot back to its
// current controller only; if there is no controller, it is dropped.
func (e *Engine) onControlAnswer(ctx context.Context, c *Client, answer []byte) {
	if c.Role != RoleRobot {
		c.sendError(ctx, "Only robot clients can send control answers")
		return
	}
	if len(answer) == 0 {
		logEmptyControlAnswer(ctx, c.ID)
		return
	}
	profile, ok := e.robotProfileByClientID(c.ID)
	if !ok || profile.ControllerID == "" {
		logNoControllerForAnswer(ctx, c.ID)
		return
	}
	e.sendTo(ctx, profile.ControllerID, TypeControlAnswer, sdpOutPayload{Answer: answer, Sid: c.ID})
}
