package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// PageResult is the output of the page command.
type PageResult struct {
	URL      string `json:"url" yaml:"url"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	Hit      bool   `json:"hit" yaml:"hit"`
	Accesses int64  `json:"accesses" yaml:"accesses"`
}

// NewPageCommand creates the page command.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "page <url>",
		Short: "Fetch a page through the expiring page cache",
		Long: `Fetch a page through the cache. Every request increments the URL's access
counter; the body is fetched again only after the cached copy has expired.

Examples:
  callcache page https://example.com
  callcache page https://example.com --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			return rootOpts.withRuntime(cmd.Context(), func(ctx context.Context, stack *runtimeStack) error {
				out := rootOpts.formatter(cmd)
				if countOnly {
					n, err := stack.Pages.AccessCount(ctx, url)
					if err != nil {
						return err
					}
					return out.Print(PageResult{URL: url, Accesses: n}, func(w io.Writer) error {
						_, err := fmt.Fprintln(w, n)
						return err
					})
				}

				page, err := stack.Pages.Lookup(ctx, url)
				if err != nil {
					return err
				}
				return out.Print(PageResult(page), func(w io.Writer) error {
					_, err := io.WriteString(w, page.Content)
					return err
				})
			})
		},
	}

	cmd.Flags().BoolVar(&countOnly, "count", false, "print the access counter instead of fetching")
	return cmd
}
