// Package catalog holds the session-scoped collection of resource and prompt
// metadata known to the editor, populated lazily from an external provider.
package catalog

// ResourceEntry describes one referenceable resource from the provider.
// Entries are immutable once created; a later merge with the same identifier
// replaces the whole entry, never patches individual fields.
type ResourceEntry struct {
	// Identifier is the unique key, e.g. "github://repo". It never carries
	// the leading sigil.
	Identifier string

	// DisplayName is the human-readable label. May be empty, in which case
	// consumers fall back to Identifier.
	DisplayName string

	// Description is optional free-form text about the resource.
	Description string

	// MIMEType is the resource's content type, when the provider reports one.
	MIMEType string

	// Payload carries provider-native data opaque to the editor. It is
	// excluded from round-trip guarantees.
	Payload any
}

// Label returns the display name, falling back to the identifier.
func (e ResourceEntry) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Identifier
}

// PromptEntry describes one invocable prompt from the provider. Prompts live
// in their own namespace: a prompt and a resource with the same name never
// collide.
type PromptEntry struct {
	// Name is the unique key within the prompt namespace.
	Name string

	// Description is optional free-form text about the prompt.
	Description string

	// Arguments describes the prompt's parameters, provider-defined.
	Arguments []PromptArgument
}

// PromptArgument is a single named parameter of a prompt.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// Role tags one part of a fetched prompt's content.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptMessage is one role-tagged text part of a prompt's full content,
// returned by the provider only after a prompt is explicitly selected.
type PromptMessage struct {
	Role Role
	Text string
}
