package engine

import (
	"container/list"
	"context"

	"github.com/littlebee/portalbot/internal/metrics"
)

// --- Control Arbiter ---
// All methods in this file assume e.mu is already held by the caller.
//
// Per robot the control lease is VACANT or HELD(controller_id); per
// space the queue is a FIFO of waiting human client ids. A client id
// never appears in more than one queue system-wide, and the controller
// of a robot is never simultaneously queued for it.

// onRobotIdentify authenticates a robot connection and binds it to a space.
func (e *Engine) onRobotIdentify(ctx context.Context, c *Client, p robotIdentifyPayload) {
	if p.RobotID == "" || p.RobotName == "" || p.Space == "" || p.SecretKey == "" {
		c.sendError(ctx, "robot_identify requires robot_id, robot_name, space, and secret_key")
		return
	}

	if _, ok := e.catalog.Get(p.Space); !ok {
		c.sendError(ctx, "space does not exist")
		return
	}
	if !e.catalog.IsRobotAuthorized(p.Space, p.RobotID) {
		c.sendError(ctx, "robot not authorized for space")
		return
	}
	if !e.secretStore.Validate(p.RobotID, p.SecretKey) {
		c.sendError(ctx, "invalid robot credentials")
		return
	}

	e.registerRobot(c, p.RobotID, p.RobotName, p.Space)

	joined := e.joinSpace(ctx, c, p.Space, func(jp *joinedSpacePayload) {
		jp.IsRobot = true
		jp.RobotID = p.RobotID
		jp.RobotName = p.RobotName
	})
	if !joined {
		delete(e.robots, p.Space)
		c.Role = RoleUnknown
		c.RobotID = ""
		return
	}

	e.broadcast(ctx, p.Space, TypeRobotJoined, robotJoinedPayload{
		RobotID:   p.RobotID,
		RobotName: p.RobotName,
		ClientID:  c.ID,
	}, c.ID)

	profile := e.robots[p.Space]
	if profile.ControllerID == "" {
		e.promote(ctx, p.Space)
	}
}

// onControlRequest enqueues or immediately grants control of the robot
// bound to the requester's current space.
func (e *Engine) onControlRequest(ctx context.Context, c *Client) {
	if c.SpaceID == "" {
		c.sendError(ctx, "must join a space first")
		return
	}

	if _, controls := e.findRobotControlledBy(c.ID); controls {
		c.sendError(ctx, "you already control a robot")
		return
	}

	robotClientID, hasRobot := e.findRobotInSpace(c.SpaceID)
	if !hasRobot {
		e.enqueueWaiter(ctx, c)
		return
	}

	profile := e.robots[c.SpaceID]
	if profile.ControllerID == "" && e.queueLen(c.SpaceID) == 0 {
		e.grant(ctx, robotClientID, c.ID, "immediate")
		return
	}

	e.enqueueWaiter(ctx, c)
}

// grant sets the lease to HELD(controllerID) and notifies the new controller.
// kind labels the Prometheus counter ("immediate" or "promoted") so queue
// fairness can be observed without re-deriving it from the queue-depth gauge.
func (e *Engine) grant(ctx context.Context, robotClientID, controllerID, kind string) {
	profile, ok := e.robotProfileByClientID(robotClientID)
	if !ok {
		return
	}
	profile.ControllerID = controllerID

	if c := e.lookupByID(controllerID); c != nil {
		e.registerHuman(c)
	}

	metrics.ControlGrants.WithLabelValues(kind).Inc()

	e.sendTo(ctx, controllerID, TypeControlGranted, controlGrantedPayload{
		RobotID:   profile.RobotID,
		RobotName: profile.RobotName,
	})
}

// onControlRelease releases a lease held by a robot or a controller, or
// dequeues a waiting human.
func (e *Engine) onControlRelease(ctx context.Context, c *Client) {
	if c.Role == RoleRobot {
		if profile, ok := e.robotProfileByClientID(c.ID); ok && profile.ControllerID != "" {
			controllerID := profile.ControllerID
			profile.ControllerID = ""
			e.sendTo(ctx, controllerID, TypeControlReleased, controlReleasedPayload{RobotID: profile.RobotID})
			e.promote(ctx, profile.SpaceID)
		}
		return
	}

	e.dequeue(c.ID)

	if robotClientID, ok := e.findRobotControlledBy(c.ID); ok {
		profile, _ := e.robotProfileByClientID(robotClientID)
		profile.ControllerID = ""
		e.sendTo(ctx, robotClientID, TypeControlReleased, controlReleasedPayload{ControllerID: c.ID})
		e.promote(ctx, profile.SpaceID)
	}
}

// promote grants the lease to the next live waiter in spaceID's queue,
// skipping anyone who disconnected while queued, until the lease is held
// or the queue runs dry.
func (e *Engine) promote(ctx context.Context, spaceID string) {
	robotClientID, hasRobot := e.findRobotInSpace(spaceID)
	if !hasRobot {
		return
	}
	profile, _ := e.robotProfileByClientID(robotClientID)

	q := e.queues[spaceID]
	for profile.ControllerID == "" && q != nil && q.Len() > 0 {
		front := q.Front()
		candidateID := front.Value.(string)
		q.Remove(front)
		delete(e.queueElems, candidateID)
		delete(e.queueSpace, candidateID)

		if e.lookupByID(candidateID) == nil {
			continue
		}
		e.grant(ctx, robotClientID, candidateID, "promoted")
	}

	if q != nil && q.Len() == 0 {
		delete(e.queues, spaceID)
	}
	e.reportQueueDepth(spaceID)
}

// onSetAngles forwards an angle command from the current controller to its robot.
func (e *Engine) onSetAngles(ctx context.Context, c *Client, p setAnglesPayload) {
	profile, ok := e.robots[e.spaceOfRobot(p.RobotID)]
	if !ok || len(p.Angles) == 0 || profile.ControllerID != c.ID {
		c.sendError(ctx, "not the current controller of this robot")
		return
	}
	e.sendTo(ctx, profile.ClientID, TypeSetAngles, setAnglesOutPayload{Angles: p.Angles})
}

// onControlGranted rejects any client-originated control_granted: grants
// are an internal transition only, never produced by a client message.
func (e *Engine) onControlGranted(ctx context.Context, c *Client) {
	logControlGrantedSpoof(ctx, c.ID)
	c.sendError(ctx, "control_granted is not a client-originated message")
}

// --- disconnect cascade, steps 1-2 of 4 (space leave and registry cleanup are run by router.go's handleDisconnect) ---

// robotDisconnectCascade releases the lease (if held) and flushes the
// queue, notifying every waiter that the robot disconnected.
func (e *Engine) robotDisconnectCascade(ctx context.Context, c *Client) {
	profile, ok := e.robotProfileByClientID(c.ID)
	if !ok {
		return
	}

	if profile.ControllerID != "" {
		e.sendTo(ctx, profile.ControllerID, TypeControlReleased, controlReleasedPayload{
			RobotID: profile.RobotID,
			Reason:  "Robot disconnected",
		})
		profile.ControllerID = ""
	}

	if q := e.queues[profile.SpaceID]; q != nil {
		for el := q.Front(); el != nil; el = el.Next() {
			waiterID := el.Value.(string)
			delete(e.queueElems, waiterID)
			delete(e.queueSpace, waiterID)
			e.sendTo(ctx, waiterID, TypeControlReleased, controlReleasedPayload{
				RobotID: profile.RobotID,
				Reason:  "Robot disconnected",
			})
		}
		delete(e.queues, profile.SpaceID)
	}
	e.reportQueueDepth(profile.SpaceID)

	delete(e.robots, profile.SpaceID)
}

// humanDisconnectCascade dequeues the client and releases any robot it controlled.
func (e *Engine) humanDisconnectCascade(ctx context.Context, c *Client) {
	e.dequeue(c.ID)

	if robotClientID, ok := e.findRobotControlledBy(c.ID); ok {
		profile, _ := e.robotProfileByClientID(robotClientID)
		profile.ControllerID = ""
		e.sendTo(ctx, robotClientID, TypeControlReleased, controlReleasedPayload{
			ControllerID: c.ID,
			Reason:       "Controller disconnected",
		})
		e.promote(ctx, profile.SpaceID)
	}
}

// --- queue helpers ---

func (e *Engine) enqueueWaiter(ctx context.Context, c *Client) {
	if _, already := e.queueSpace[c.ID]; already {
		return
	}

	q, ok := e.queues[c.SpaceID]
	if !ok {
		q = list.New()
		e.queues[c.SpaceID] = q
	}
	el := q.PushBack(c.ID)
	e.queueElems[c.ID] = el
	e.queueSpace[c.ID] = c.SpaceID
	e.reportQueueDepth(c.SpaceID)

	c.enqueue(ctx, TypeControlPending, controlPendingPayload{Position: e.queuePosition(c.ID)})
}

// dequeue removes clientID from whatever queue it's in, if any. No-op if absent.
func (e *Engine) dequeue(clientID string) {
	el, ok := e.queueElems[clientID]
	if !ok {
		return
	}
	spaceID := e.queueSpace[clientID]
	if q := e.queues[spaceID]; q != nil {
		q.Remove(el)
		if q.Len() == 0 {
			delete(e.queues, spaceID)
		}
	}
	delete(e.queueElems, clientID)
	delete(e.queueSpace, clientID)
	e.reportQueueDepth(spaceID)
}

func (e *Engine) queueLen(spaceID string) int {
	if q := e.queues[spaceID]; q != nil {
		return q.Len()
	}
	return 0
}

// queuePosition returns clientID's 1-based position in its queue.
func (e *Engine) queuePosition(clientID string) int {
	spaceID := e.queueSpace[clientID]
	q := e.queues[spaceID]
	if q == nil {
		return 0
	}
	pos := 1
	for el := q.Front(); el != nil; el = el.Next() {
		if el.Value.(string) == clientID {
			return pos
		}
		pos++
	}
	return 0
}

func (e *Engine) reportQueueDepth(spaceID string) {
	metrics.ControlQueueDepth.WithLabelValues(spaceID).Set(float64(e.queueLen(spaceID)))
}

// spaceOfRobot returns the space id whose bound robot has robot id robotID.
func (e *Engine) spaceOfRobot(robotID string) string {
	for spaceID, p := range e.robots {
		if p.RobotID == robotID {
			return spaceID
		}
	}
	return ""
}
