package catalog

// Store is an immutable snapshot of the known catalog. Merges return a new
// Store value rather than mutating in place, so dependent components can use
// pointer identity as a cheap change check: if the pointer didn't change,
// nothing observable changed.
//
// The store only grows over a session; entries are never deleted. Dropping
// the whole store and starting from NewStore is the only reset.
type Store struct {
	resources map[string]ResourceEntry
	prompts   map[string]PromptEntry
}

// NewStore returns an empty catalog snapshot.
func NewStore() *Store {
	return &Store{
		resources: map[string]ResourceEntry{},
		prompts:   map[string]PromptEntry{},
	}
}

// Resource looks up a resource entry by identifier.
func (s *Store) Resource(identifier string) (ResourceEntry, bool) {
	e, ok := s.resources[identifier]
	return e, ok
}

// Prompt looks up a prompt entry by name.
func (s *Store) Prompt(name string) (PromptEntry, bool) {
	e, ok := s.prompts[name]
	return e, ok
}

// ResourceCount returns the number of known resources.
func (s *Store) ResourceCount() int { return len(s.resources) }

// PromptCount returns the number of known prompts.
func (s *Store) PromptCount() int { return len(s.prompts) }

// Resources returns all resource entries in unspecified order.
func (s *Store) Resources() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(s.resources))
	for _, e := range s.resources {
		out = append(out, e)
	}
	return out
}

// Prompts returns all prompt entries in unspecified order.
func (s *Store) Prompts() []PromptEntry {
	out := make([]PromptEntry, 0, len(s.prompts))
	for _, e := range s.prompts {
		out = append(out, e)
	}
	return out
}

// MergeResources returns a new store equal to s plus the given entries, with
// new entries winning on identifier collision. s itself is never modified.
// An empty merge short-circuits and returns s unchanged, since no observable
// state would differ.
func (s *Store) MergeResources(entries []ResourceEntry) *Store {
	if len(entries) == 0 {
		return s
	}
	next := s.clone()
	for _, e := range entries {
		next.resources[e.Identifier] = e
	}
	return next
}

// MergePrompts returns a new store equal to s plus the given prompt entries,
// last write winning per name. s itself is never modified.
func (s *Store) MergePrompts(entries []PromptEntry) *Store {
	if len(entries) == 0 {
		return s
	}
	next := s.clone()
	for _, e := range entries {
		next.prompts[e.Name] = e
	}
	return next
}

func (s *Store) clone() *Store {
	next := &Store{
		resources: make(map[string]ResourceEntry, len(s.resources)),
		prompts:   make(map[string]PromptEntry, len(s.prompts)),
	}
	for k, v := range s.resources {
		next.resources[k] = v
	}
	for k, v := range s.prompts {
		next.prompts[k] = v
	}
	return next
}
