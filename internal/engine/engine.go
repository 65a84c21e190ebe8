// Package engine implements the signaling and control-arbitration core:
// the connection registry, space manager, control arbiter, and WebRTC
// signaling router all live here, guarded by one mutex so that a single
// inbound frame is handled atomically — no other frame's handler ever
// interleaves mid-handler, mirroring the cooperative single-task model
// this server's behavior is specified against.
package engine

import (
	"container/list"
	"sync"

	"github.com/littlebee/portalbot/internal/catalog"
	"github.com/littlebee/portalbot/internal/health"
	"github.com/littlebee/portalbot/internal/secrets"
)

// robotProfile is the runtime state of a robot bound to a space.
type robotProfile struct {
	RobotID       string
	RobotName     string
	SpaceID       string
	ClientID      string
	ControllerID  string // "" means the lease is VACANT
}

// Engine owns every piece of mutable runtime state: connected clients,
// space membership, robot profiles, and control queues. All mutating
// methods assume mu is already held by the caller (dispatch, ServeWs,
// or handleDisconnect acquire it once per operation); this mirrors the
// teacher's pattern of centralizing lock acquisition in one entry point
// and letting internal helpers assume the lock is held.
type Engine struct {
	mu sync.Mutex

	catalog     *catalog.Catalog
	secretStore *secrets.Store

	clients      map[string]*Client
	spaceMembers map[string]map[string]struct{} // spaceID -> member client ids
	robots       map[string]*robotProfile        // spaceID -> its robot profile

	queues     map[string]*list.List          // spaceID -> FIFO of waiting client ids
	queueElems map[string]*list.Element        // clientID -> its element, for O(1) removal
	queueSpace map[string]string               // clientID -> spaceID of the queue it's in
}

// New builds an Engine over an immutable catalog and secret store.
func New(cat *catalog.Catalog, store *secrets.Store) *Engine {
	return &Engine{
		catalog:      cat,
		secretStore:  store,
		clients:      make(map[string]*Client),
		spaceMembers: make(map[string]map[string]struct{}),
		robots:       make(map[string]*robotProfile),
		queues:       make(map[string]*list.List),
		queueElems:   make(map[string]*list.Element),
		queueSpace:   make(map[string]string),
	}
}

// Stats reports the live snapshot used by GET /health.
func (e *Engine) Stats() health.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, members := range e.spaceMembers {
		total += len(members)
	}

	return health.Stats{
		ActiveSpaces:      len(e.spaceMembers),
		TotalParticipants: total,
		ConnectedClients:  len(e.clients),
	}
}
