package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/littlebee/portalbot/internal/catalog"
	"github.com/littlebee/portalbot/internal/secrets"
)

// fakeConn is a no-op wsConnection; tests exercise dispatch/handleDisconnect
// directly rather than driving the read/write pumps over a real socket.
type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error)     { return 0, nil, nil }
func (fakeConn) WriteMessage(int, []byte) error        { return nil }
func (fakeConn) Close() error                          { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error       { return nil }

const testCatalogYAML = `
version: "1"
default_image_url: "https://example.com/default.png"
spaces:
  - id: alpha
    display_name: "Alpha"
    max_participants: 2
    enabled: true
    robot_ids: ["r2d2"]
  - id: beta
    display_name: "Beta"
    max_participants: 5
    enabled: true
    robot_ids: ["r2d2"]
  - id: disabled-space
    display_name: "Disabled"
    max_participants: 2
    enabled: false
    robot_ids: []
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "spaces.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalogYAML), 0o600))
	cat, err := catalog.LoadCatalog(catalogPath)
	require.NoError(t, err)

	secretsDir := filepath.Join(dir, "secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "r2d2.key"), []byte("beep-boop-secret"), 0o600))
	store, err := secrets.LoadStore(secretsDir)
	require.NoError(t, err)

	return New(cat, store)
}

// newTestClient registers a fresh client id with the engine and returns it.
func newTestClient(e *Engine, id string) *Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addClient(id, fakeConn{})
}

// drain collects every pending outbound message currently queued for c.
func drain(c *Client) []envelope {
	var out []envelope
	for {
		select {
		case msg := <-c.send:
			var env envelope
			_ = json.Unmarshal(msg, &env)
			out = append(out, env)
		default:
			return out
		}
	}
}

func lastOfType(msgs []envelope, msgType string) (envelope, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i], true
		}
	}
	return envelope{}, false
}

func identifyRobot(t *testing.T, e *Engine, c *Client, space string) {
	t.Helper()
	payload, err := json.Marshal(robotIdentifyPayload{
		RobotID: "r2d2", RobotName: "R2-D2", Space: space, SecretKey: "beep-boop-secret",
	})
	require.NoError(t, err)
	e.dispatch(context.Background(), c, TypeRobotIdentify, payload)
}

func joinSpaceMsg(t *testing.T, e *Engine, c *Client, space string) {
	t.Helper()
	payload, err := json.Marshal(joinSpacePayload{Space: space})
	require.NoError(t, err)
	e.dispatch(context.Background(), c, TypeJoinSpace, payload)
}
