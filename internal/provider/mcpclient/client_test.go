package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillworks/sigil/internal/catalog"
)

// fakeServer answers newline-delimited JSON-RPC requests with canned results
// keyed by method name.
type fakeServer struct {
	results map[string]any
	errs    map[string]*RPCError

	notifications chan string
}

func (s *fakeServer) serve(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if req.ID == "" {
			select {
			case s.notifications <- req.Method:
			default:
			}
			continue
		}
		resp := map[string]any{"jsonrpc": JSONRPCVersion, "id": req.ID}
		if rpcErr, ok := s.errs[req.Method]; ok {
			resp["error"] = rpcErr
		} else {
			resp["result"] = s.results[req.Method]
		}
		data, _ := json.Marshal(resp)
		_, _ = w.Write(append(data, '\n'))
	}
}

// newTestClient wires a client to a fakeServer over in-memory pipes.
func newTestClient(t *testing.T, server *fakeServer) *Client {
	t.Helper()
	clientReads, serverWrites := io.Pipe()
	serverReads, clientWrites := io.Pipe()

	if server.results == nil {
		server.results = map[string]any{}
	}
	if _, ok := server.results[methodInitialize]; !ok && server.errs[methodInitialize] == nil {
		server.results[methodInitialize] = map[string]any{"protocolVersion": ProtocolVersion}
	}
	if server.notifications == nil {
		server.notifications = make(chan string, 8)
	}
	go server.serve(serverReads, serverWrites)

	c := New(clientReads, clientWrites)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ============================================================================
// Handshake
// ============================================================================

func TestConnect_Handshake(t *testing.T) {
	server := &fakeServer{notifications: make(chan string, 8)}
	c := newTestClient(t, server)

	require.NoError(t, c.Connect(context.Background()))

	select {
	case method := <-server.notifications:
		require.Equal(t, methodInitialized, method)
	case <-time.After(time.Second):
		require.Fail(t, "initialized notification never arrived")
	}
}

func TestConnect_ServerError(t *testing.T) {
	server := &fakeServer{
		errs: map[string]*RPCError{
			methodInitialize: {Code: -32600, Message: "unsupported"},
		},
	}
	c := newTestClient(t, server)
	require.Error(t, c.Connect(context.Background()))
}

// ============================================================================
// Fetches
// ============================================================================

func TestListResources(t *testing.T) {
	server := &fakeServer{results: map[string]any{
		methodListRes: map[string]any{
			"resources": []map[string]any{
				{"uri": "github://repo", "name": "Repo", "description": "main repo", "mimeType": "text/plain"},
				{"uri": "db://users", "name": "Users"},
			},
		},
	}}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	entries, err := c.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "github://repo", entries[0].Identifier)
	require.Equal(t, "Repo", entries[0].DisplayName)
	require.Equal(t, "main repo", entries[0].Description)
	require.Equal(t, "text/plain", entries[0].MIMEType)
	require.Equal(t, "db://users", entries[1].Identifier)
}

func TestListResources_MissingListIsEmpty(t *testing.T) {
	server := &fakeServer{results: map[string]any{
		methodListRes: map[string]any{},
	}}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	entries, err := c.ListResources(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListResources_MalformedPayloadIsEmpty(t *testing.T) {
	server := &fakeServer{results: map[string]any{
		methodListRes: "definitely not an object",
	}}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	entries, err := c.ListResources(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListResources_RPCErrorIsDistinctFromEmpty(t *testing.T) {
	server := &fakeServer{
		errs: map[string]*RPCError{
			methodListRes: {Code: -32603, Message: "backend down"},
		},
	}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.ListResources(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "backend down")
}

func TestListPrompts(t *testing.T) {
	server := &fakeServer{results: map[string]any{
		methodListPrompts: map[string]any{
			"prompts": []map[string]any{
				{"name": "review", "description": "code review", "arguments": []map[string]any{
					{"name": "file", "required": true},
				}},
			},
		},
	}}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	prompts, err := c.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	require.Equal(t, "review", prompts[0].Name)
	require.Len(t, prompts[0].Arguments, 1)
	require.True(t, prompts[0].Arguments[0].Required)
}

func TestGetPrompt(t *testing.T) {
	server := &fakeServer{results: map[string]any{
		methodGetPrompt: map[string]any{
			"messages": []map[string]any{
				{"role": "user", "content": map[string]any{"type": "text", "text": "hello"}},
				{"role": "assistant", "content": map[string]any{"type": "text", "text": "hi"}},
			},
		},
	}}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))

	messages, err := c.GetPrompt(context.Background(), "greet")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, catalog.RoleUser, messages[0].Role)
	require.Equal(t, "hello", messages[0].Text)
	require.Equal(t, catalog.RoleAssistant, messages[1].Role)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestCallAfterCloseFails(t *testing.T) {
	server := &fakeServer{}
	c := newTestClient(t, server)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	_, err := c.ListResources(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestFetchBeforeConnectFails(t *testing.T) {
	server := &fakeServer{}
	c := newTestClient(t, server)

	_, err := c.ListResources(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	_, err = c.ListResources(context.Background())
	require.NoError(t, err)
}

func TestCallRespectsContext(t *testing.T) {
	// A server that consumes requests but never answers.
	serverReads, clientWrites := io.Pipe()
	clientReads, _ := io.Pipe()
	go func() { _, _ = io.Copy(io.Discard, serverReads) }()
	c := New(clientReads, clientWrites)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Connect(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// ============================================================================
// Wire Conversion
// ============================================================================

func TestWireRoundTrip(t *testing.T) {
	original := wireResource{
		URI:         "github://repo",
		Name:        "Repo",
		Description: "the main repo",
		MIMEType:    "text/plain",
	}
	require.Equal(t, original, entryToWire(entryFromWire(original)))
}
