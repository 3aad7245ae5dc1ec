package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
	"github.com/quillworks/sigil/internal/tracing"
)

// ErrNotConnected is returned by fetches attempted before a successful
// Connect, or after the transport has shut down.
var ErrNotConnected = errors.New("mcpclient: not connected")

// maxLineBytes bounds a single newline-delimited server message.
const maxLineBytes = 4 * 1024 * 1024

// Client speaks the resources/prompts subset of MCP to one server over a
// reader/writer pair (normally the server process's stdio). It implements
// catalog.Provider, and editor.Connectable via Connect.
type Client struct {
	info   ImplementationInfo
	tracer *tracing.Provider

	writer  io.Writer
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *Response

	connected atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once

	// cmd is set when the client owns a spawned server process.
	cmd *exec.Cmd
}

// Option configures a Client.
type Option func(*Client)

// WithTracer attaches a tracing provider; fetches are wrapped in spans.
func WithTracer(tp *tracing.Provider) Option {
	return func(c *Client) { c.tracer = tp }
}

// New creates a client over an established transport. Connect must be called
// before any fetch.
func New(r io.Reader, w io.Writer, opts ...Option) *Client {
	c := &Client{
		info:    ImplementationInfo{Name: "sigil", Version: "0.1.0"},
		writer:  w,
		pending: make(map[string]chan *Response),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(r)
	return c
}

// Spawn starts the given server command and returns a client wired to its
// stdio. The process is terminated when the client closes.
func Spawn(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting provider %q: %w", command, err)
	}
	log.Info(log.CatProvider, "provider process started", "command", command, "pid", cmd.Process.Pid)

	c := New(stdout, stdin, opts...)
	c.cmd = cmd
	return c, nil
}

// Connect performs the MCP initialization handshake. Callers are expected to
// invoke it once; the completion source memoizes the outcome either way.
func (c *Client) Connect(ctx context.Context) error {
	var result json.RawMessage
	err := c.call(ctx, methodInitialize, InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      c.info,
	}, &result)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.notify(methodInitialized, nil); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	c.connected.Store(true)
	log.Info(log.CatProvider, "provider connected", "protocol", ProtocolVersion)
	return nil
}

// ListResources implements catalog.Provider.
func (c *Client) ListResources(ctx context.Context) ([]catalog.ResourceEntry, error) {
	ctx, span := c.startSpan(ctx, "provider.resources.list")
	defer span.End()

	var result listResourcesResult
	if err := c.call(ctx, methodListRes, nil, &result); err != nil {
		return nil, err
	}
	if result.Resources == nil {
		// Missing/non-list payload: zero results, not fatal.
		log.Warn(log.CatProvider, "resources/list returned no list payload")
		return nil, nil
	}
	entries := make([]catalog.ResourceEntry, len(result.Resources))
	for i, r := range result.Resources {
		entries[i] = entryFromWire(r)
	}
	return entries, nil
}

// ListPrompts implements catalog.Provider.
func (c *Client) ListPrompts(ctx context.Context) ([]catalog.PromptEntry, error) {
	ctx, span := c.startSpan(ctx, "provider.prompts.list")
	defer span.End()

	var result listPromptsResult
	if err := c.call(ctx, methodListPrompts, nil, &result); err != nil {
		return nil, err
	}
	if result.Prompts == nil {
		log.Warn(log.CatProvider, "prompts/list returned no list payload")
		return nil, nil
	}
	entries := make([]catalog.PromptEntry, len(result.Prompts))
	for i, p := range result.Prompts {
		entries[i] = promptFromWire(p)
	}
	return entries, nil
}

// GetPrompt implements catalog.Provider.
func (c *Client) GetPrompt(ctx context.Context, name string) ([]catalog.PromptMessage, error) {
	ctx, span := c.startSpan(ctx, "provider.prompts.get")
	defer span.End()

	var result getPromptResult
	if err := c.call(ctx, methodGetPrompt, getPromptParams{Name: name}, &result); err != nil {
		return nil, err
	}
	messages := make([]catalog.PromptMessage, len(result.Messages))
	for i, m := range result.Messages {
		messages[i] = messageFromWire(m)
	}
	return messages, nil
}

// Close shuts down the transport and, when the client spawned the server
// process, terminates it.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.failPending(ErrNotConnected)
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
			_ = c.cmd.Wait()
		}
	})
	return nil
}

// call sends a request and decodes the matching response's result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	select {
	case <-c.closed:
		return ErrNotConnected
	default:
	}
	// Everything but the handshake itself requires a completed handshake.
	if method != methodInitialize && !c.connected.Load() {
		return ErrNotConnected
	}

	id := uuid.NewString()
	ch := make(chan *Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(Request{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrNotConnected
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			// Malformed result payloads degrade to the zero value; the
			// caller treats that as "nothing available".
			log.Warn(log.CatProvider, "malformed result payload", "method", method, "error", err)
		}
		return nil
	}
}

func (c *Client) notify(method string, params any) error {
	return c.write(Notification{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}

func (c *Client) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing to provider: %w", err)
	}
	return nil
}

// readLoop dispatches newline-delimited responses to pending calls until the
// transport fails or the client closes.
func (c *Client) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			log.Warn(log.CatProvider, "unparseable server message", "error", err)
			continue
		}
		if resp.ID == "" {
			// Server-initiated notification; this client ignores them.
			continue
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()
		if !ok {
			log.Debug(log.CatProvider, "response for unknown request", "id", resp.ID)
			continue
		}
		ch <- &resp
	}
	if err := scanner.Err(); err != nil {
		log.ErrorErr(log.CatProvider, "provider transport failed", err)
	}
	c.Close()
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		select {
		case ch <- &Response{ID: id, Error: &RPCError{Code: -1, Message: err.Error()}}:
		default:
		}
	}
}

func (c *Client) startSpan(ctx context.Context, name string) (context.Context, tracing.Span) {
	if c.tracer == nil {
		return ctx, tracing.NoopSpan()
	}
	return c.tracer.Start(ctx, name)
}
