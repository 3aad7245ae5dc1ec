// Package fileprovider serves a catalog from a YAML file on disk. It backs
// the demo and tests, and doubles as a reference provider implementation:
// fetch-on-every-call, no caching, with fsnotify-driven change notification
// so open sessions can re-resolve against edited catalogs.
package fileprovider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/log"
)

// File is the on-disk catalog format.
type File struct {
	Resources []Resource `yaml:"resources"`
	Prompts   []Prompt   `yaml:"prompts"`
}

// Resource is one referenceable resource in the catalog file.
type Resource struct {
	URI         string `yaml:"uri"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	MIMEType    string `yaml:"mime_type,omitempty"`
}

// Prompt is one invocable prompt, with its content inline.
type Prompt struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Messages    []Message `yaml:"messages"`
}

// Message is one role-tagged part of a prompt's content.
type Message struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

// Provider implements catalog.Provider over a catalog file. Every fetch
// re-reads the file; the session's store is the only cache.
type Provider struct {
	path     string
	debounce time.Duration

	fsWatcher *fsnotify.Watcher
	onChange  chan struct{}
	done      chan struct{}
}

// New creates a provider for the given catalog file. The file must exist and
// parse at creation time so misconfiguration fails fast.
func New(path string) (*Provider, error) {
	p := &Provider{
		path:     path,
		debounce: 250 * time.Millisecond,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if _, err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// ListResources implements catalog.Provider.
func (p *Provider) ListResources(ctx context.Context) ([]catalog.ResourceEntry, error) {
	f, err := p.load()
	if err != nil {
		return nil, err
	}
	entries := make([]catalog.ResourceEntry, len(f.Resources))
	for i, r := range f.Resources {
		entries[i] = catalog.ResourceEntry{
			Identifier:  r.URI,
			DisplayName: r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		}
	}
	return entries, nil
}

// ListPrompts implements catalog.Provider.
func (p *Provider) ListPrompts(ctx context.Context) ([]catalog.PromptEntry, error) {
	f, err := p.load()
	if err != nil {
		return nil, err
	}
	entries := make([]catalog.PromptEntry, len(f.Prompts))
	for i, pr := range f.Prompts {
		entries[i] = catalog.PromptEntry{Name: pr.Name, Description: pr.Description}
	}
	return entries, nil
}

// GetPrompt implements catalog.Provider.
func (p *Provider) GetPrompt(ctx context.Context, name string) ([]catalog.PromptMessage, error) {
	f, err := p.load()
	if err != nil {
		return nil, err
	}
	for _, pr := range f.Prompts {
		if pr.Name != name {
			continue
		}
		messages := make([]catalog.PromptMessage, len(pr.Messages))
		for i, m := range pr.Messages {
			messages[i] = catalog.PromptMessage{Role: catalog.Role(m.Role), Text: m.Text}
		}
		return messages, nil
	}
	return nil, fmt.Errorf("prompt %q: %w", name, catalog.ErrNotFound)
}

func (p *Provider) load() (*File, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", p.path, err)
	}
	return &f, nil
}

// Watch begins watching the catalog file's directory and returns a channel
// that receives a debounced signal whenever the file changes. The channel
// has capacity one; coalesced signals are dropped, never queued.
func (p *Provider) Watch() (<-chan struct{}, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	p.fsWatcher = fsw

	// Watch the directory, not the file: editors replace files on save.
	if err := fsw.Add(filepath.Dir(p.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(p.path), err)
	}

	go p.loop()
	return p.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (p *Provider) Stop() error {
	close(p.done)
	if p.fsWatcher != nil {
		return p.fsWatcher.Close()
	}
	return nil
}

// loop processes file system events with debouncing.
func (p *Provider) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-p.fsWatcher.Events:
			if !ok {
				return
			}
			if !p.isRelevantEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(p.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				log.Debug(log.CatProvider, "catalog file changed", "path", p.path)
				select {
				case p.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case _, ok := <-p.fsWatcher.Errors:
			if !ok {
				return
			}

		case <-p.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (p *Provider) isRelevantEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(p.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}
