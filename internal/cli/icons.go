package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
)

// iconsCommand creates the icons command.
func (c *CLI) iconsCommand() *cobra.Command {
	var (
		catalogPath string
		assets      string
		browse      bool
	)

	cmd := &cobra.Command{
		Use:   "icons [category]",
		Short: "List the icon catalog",
		Long: `List the categories and icon keys usable in documents.

With a category argument only that category is listed. --browse opens an
interactive browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := newResolver(catalogPath, assets)
			if err != nil {
				return err
			}
			if browse {
				_, err := tea.NewProgram(newIconBrowser(cat), tea.WithContext(cmd.Context())).Run()
				return err
			}
			var only diagram.Category
			if len(args) == 1 {
				only = diagram.Category(args[0])
			}
			return listIcons(cmd.OutOrStdout(), cat, only)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "icons", "", "icon catalog (TOML) merged over the built-in catalog")
	cmd.Flags().StringVar(&assets, "assets", "", "directory containing icon image files")
	cmd.Flags().BoolVar(&browse, "browse", false, "browse the catalog interactively")

	return cmd
}

// listIcons prints every category of cat, or only the given one, with its
// icon keys.
func listIcons(w io.Writer, cat *icons.Catalog, only diagram.Category) error {
	categories := cat.Categories()
	if only != "" {
		if len(cat.Keys(only)) == 0 {
			return errs.New(errs.ErrCodeNotFound, "unknown icon category %q", only)
		}
		categories = []diagram.Category{only}
	}

	for _, category := range categories {
		keys := cat.Keys(category)
		fmt.Fprintln(w, StyleTitle.Render(string(category))+" "+StyleDim.Render(fmt.Sprintf("(%d)", len(keys))))
		fmt.Fprintln(w, "  "+strings.Join(keys, StyleDim.Render(", ")))
	}
	if only == "" {
		fmt.Fprintln(w)
		printKeyValue(w, "categories", fmt.Sprint(len(categories)))
		printKeyValue(w, "icons", fmt.Sprint(cat.Len()))
	}
	return nil
}
