// Package mcpclient implements the catalog provider over the Model Context
// Protocol: JSON-RPC 2.0, newline-delimited over a server process's stdio.
// Only the resources/prompts subset of the protocol is spoken; tools,
// sampling and the rest are out of scope here.
package mcpclient

import (
	"encoding/json"
	"fmt"

	"github.com/quillworks/sigil/internal/catalog"
)

// ProtocolVersion is the MCP protocol version this client speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 version string.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Notification represents a JSON-RPC 2.0 notification (no ID, no response).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Method names used by this client.
const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodListRes     = "resources/list"
	methodListPrompts = "prompts/list"
	methodGetPrompt   = "prompts/get"
)

// InitializeParams contains the client's initialization parameters.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    struct{}           `json:"capabilities"`
	ClientInfo      ImplementationInfo `json:"clientInfo"`
}

// ImplementationInfo identifies a protocol participant.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// wireResource is the provider-native resource record.
type wireResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// wirePrompt is the provider-native prompt record.
type wirePrompt struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Arguments   []wirePromptArgument `json:"arguments,omitempty"`
}

type wirePromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type listResourcesResult struct {
	Resources []wireResource `json:"resources"`
}

type listPromptsResult struct {
	Prompts []wirePrompt `json:"prompts"`
}

type getPromptParams struct {
	Name string `json:"name"`
}

type getPromptResult struct {
	Description string        `json:"description,omitempty"`
	Messages    []wireMessage `json:"messages"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content wireContent `json:"content"`
}

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// entryFromWire converts a provider-native resource record to the catalog
// entry form. The conversion round-trips: entryToWire(entryFromWire(r)) == r
// for identifier, display name, description and MIME type.
func entryFromWire(r wireResource) catalog.ResourceEntry {
	return catalog.ResourceEntry{
		Identifier:  r.URI,
		DisplayName: r.Name,
		Description: r.Description,
		MIMEType:    r.MIMEType,
		Payload:     r,
	}
}

// entryToWire converts a catalog entry back to the provider-native record.
// The opaque payload is deliberately excluded from the round trip.
func entryToWire(e catalog.ResourceEntry) wireResource {
	return wireResource{
		URI:         e.Identifier,
		Name:        e.DisplayName,
		Description: e.Description,
		MIMEType:    e.MIMEType,
	}
}

func promptFromWire(p wirePrompt) catalog.PromptEntry {
	entry := catalog.PromptEntry{Name: p.Name, Description: p.Description}
	for _, a := range p.Arguments {
		entry.Arguments = append(entry.Arguments, catalog.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}
	return entry
}

func messageFromWire(m wireMessage) catalog.PromptMessage {
	return catalog.PromptMessage{Role: catalog.Role(m.Role), Text: m.Content.Text}
}
