package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/quillworks/sigil/internal/catalog"
	"github.com/quillworks/sigil/internal/editor"

	"github.com/spf13/cobra"
)

// extractedRef is the JSON shape of one extracted reference.
type extractedRef struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract catalog references from text",
	Long: `Extract catalog-backed references from a text file (or stdin) as JSON.

Only references the configured catalog recognizes are reported; well-formed
but unknown references are skipped. Output is a JSON array ordered by
position in the input.

Examples:
  # Extract from a file
  sigil extract message.txt

  # Extract from stdin
  echo "see @github://repo" | sigil extract

  # Parse identifiers with jq
  sigil extract message.txt | jq '.[].identifier'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text []byte
		var err error
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
		} else {
			text, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		store, cleanup, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		refs := editor.Extract(string(text), store)
		out := make([]extractedRef, 0, len(refs))
		for _, r := range refs {
			out = append(out, extractedRef{
				Identifier:  r.Entry.Identifier,
				DisplayName: r.Entry.DisplayName,
				MIMEType:    r.Entry.MIMEType,
				Start:       r.Start,
				End:         r.End,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

// loadCatalog builds the configured provider, fetches its catalog once, and
// returns it as an immutable store.
func loadCatalog(cmd *cobra.Command) (*catalog.Store, func(), error) {
	provider, cleanup, err := newProvider(cmd)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if conn, ok := provider.(editor.Connectable); ok {
		if err := conn.Connect(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to provider: %w", err)
		}
	}

	resources, err := provider.ListResources(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("fetching resources: %w", err)
	}
	prompts, err := provider.ListPrompts(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("fetching prompts: %w", err)
	}

	store := catalog.NewStore().MergeResources(resources).MergePrompts(prompts)
	return store, cleanup, nil
}
