package engine

import "context"

// --- Connection Registry ---
// All methods in this file assume e.mu is already held by the caller.

// addClient registers a newly-accepted connection and returns its client.
func (e *Engine) addClient(id string, conn wsConnection) *Client {
	c := newClient(id, conn, e)
	e.clients[id] = c
	return c
}

// lookupByID returns the client for id, or nil if it's not (or no longer) connected.
func (e *Engine) lookupByID(id string) *Client {
	return e.clients[id]
}

// sendTo is a best-effort send to one client by id; a missing client is
// silently ignored, matching the registry's "send failure never propagates"
// contract — the disconnect path is what reaps a dead peer.
func (e *Engine) sendTo(ctx context.Context, clientID, msgType string, payload any) {
	if c := e.clients[clientID]; c != nil {
		c.enqueue(ctx, msgType, payload)
	}
}

// registerRobot binds a client as the robot of a space.
func (e *Engine) registerRobot(c *Client, robotID, robotName, spaceID string) {
	c.Role = RoleRobot
	c.RobotID = robotID
	e.robots[spaceID] = &robotProfile{
		RobotID:   robotID,
		RobotName: robotName,
		SpaceID:   spaceID,
		ClientID:  c.ID,
	}
}

// registerHuman marks a client as an authenticated human participant.
// Humans in this system are never challenged for credentials; this only
// records that the client is not (and will never become) a robot.
func (e *Engine) registerHuman(c *Client) {
	if c.Role == RoleUnknown {
		c.Role = RoleHuman
	}
}

// findRobotInSpace returns the client id of the robot bound to spaceID, if any.
func (e *Engine) findRobotInSpace(spaceID string) (string, bool) {
	p, ok := e.robots[spaceID]
	if !ok {
		return "", false
	}
	return p.ClientID, true
}

// findRobotControlledBy returns the robot client id controlled by controllerID, if any.
func (e *Engine) findRobotControlledBy(controllerID string) (string, bool) {
	for _, p := range e.robots {
		if p.ControllerID == controllerID {
			return p.ClientID, true
		}
	}
	return "", false
}

// robotProfileByClientID returns the profile for a client known to be a robot.
func (e *Engine) robotProfileByClientID(clientID string) (*robotProfile, bool) {
	for _, p := range e.robots {
		if p.ClientID == clientID {
			return p, true
		}
	}
	return nil, false
}

// cleanup is idempotent: it removes clientID from every index. It emits
// no messages — that is the disconnect cascade's job, not the registry's.
func (e *Engine) cleanup(clientID string) {
	delete(e.clients, clientID)
	e.dequeue(clientID)
	for spaceID, members := range e.spaceMembers {
		if _, ok := members[clientID]; ok {
			delete(members, clientID)
			if len(members) == 0 {
				delete(e.spaceMembers, spaceID)
			}
		}
	}
}
