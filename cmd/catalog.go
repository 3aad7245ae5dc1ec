package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// catalogListing is the JSON shape of the catalog:list output.
type catalogListing struct {
	Resources []catalogResource `json:"resources"`
	Prompts   []catalogPrompt   `json:"prompts"`
}

type catalogResource struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
}

type catalogPrompt struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Arguments   []string `json:"arguments,omitempty"`
}

var catalogListCmd = &cobra.Command{
	Use:   "catalog:list",
	Short: "List the provider catalog",
	Long: `List all resources and prompts the configured provider serves, as JSON.

Examples:
  # List against the configured catalog file
  sigil catalog:list

  # List against an MCP server
  sigil catalog:list --mcp my-mcp-server

  # Parse resource identifiers with jq
  sigil catalog:list | jq '.resources[].identifier'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		listing := catalogListing{
			Resources: []catalogResource{},
			Prompts:   []catalogPrompt{},
		}
		for _, r := range store.Resources() {
			listing.Resources = append(listing.Resources, catalogResource{
				Identifier:  r.Identifier,
				DisplayName: r.DisplayName,
				Description: r.Description,
				MIMEType:    r.MIMEType,
			})
		}
		for _, p := range store.Prompts() {
			args := make([]string, 0, len(p.Arguments))
			for _, a := range p.Arguments {
				args = append(args, a.Name)
			}
			listing.Prompts = append(listing.Prompts, catalogPrompt{
				Name:        p.Name,
				Description: p.Description,
				Arguments:   args,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	},
}

func init() {
	rootCmd.AddCommand(catalogListCmd)
}
