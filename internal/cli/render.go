package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archviz/pkg/diagram"
	"github.com/matzehuels/archviz/pkg/document"
	"github.com/matzehuels/archviz/pkg/render"
)

// renderOpts holds the render and watch flags.
type renderOpts struct {
	rendererOpts
	output  string
	formats string
	show    bool
}

func (o *renderOpts) register(cmd *cobra.Command) {
	o.rendererOpts.register(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output directory (default: working directory)")
	cmd.Flags().StringVarP(&o.formats, "format", "f", "", "output format(s), overriding the document: png, svg, jpg, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&o.show, "show", false, "open the first output when done")
}

// diagramOptions converts the flags that override document settings.
func (o *renderOpts) diagramOptions() ([]diagram.Option, error) {
	formats, err := parseFormats(o.formats)
	if err != nil {
		return nil, err
	}
	var opts []diagram.Option
	if len(formats) > 0 {
		opts = append(opts, diagram.WithFormats(formats...))
	}
	if o.show {
		opts = append(opts, diagram.WithShow(true))
	}
	return opts, nil
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render a diagram document to image files",
		Long: `Render a TOML or YAML diagram document.

The document's formats are rendered into the output directory as
<filename>.<format>. Artifacts are cached by the DOT text they were produced
from, so re-rendering an unchanged diagram skips the layout engine.`,
		Example: `  archviz render examples/ecs-cicd.toml
  archviz render web.yaml -f svg,png -o out/
  archviz render web.yaml --engine exec --assets ./icons`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := c.newRenderer(cmd.Context(), opts.rendererOpts)
			if err != nil {
				return err
			}
			defer cleanup()
			r.Dir = opts.output

			_, err = c.runRender(cmd.Context(), cmd.OutOrStdout(), r, args[0], &opts)
			return err
		},
	}
	opts.register(cmd)

	return cmd
}

// runRender loads the document at path and renders it with r. The renderer
// runs as the diagram's finalizer, so rendering happens when the document's
// diagram is closed.
func (c *CLI) runRender(ctx context.Context, w io.Writer, r *render.Renderer, path string, opts *renderOpts) ([]render.Output, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	dopts, err := opts.diagramOptions()
	if err != nil {
		return nil, err
	}

	var outputs []render.Output
	finalize := diagram.FinalizerFunc(func(ctx context.Context, d *diagram.Diagram) error {
		var err error
		outputs, err = r.Render(ctx, d)
		return err
	})

	spin := newSpinner(ctx, os.Stderr, "Rendering "+doc.Name+"...")
	spin.Start()
	d, err := doc.Build(ctx, append(dopts, diagram.WithFinalizer(finalize))...)
	spin.Stop()
	if err != nil {
		return outputs, err
	}

	prog.done("Rendered "+d.Name(), "nodes", len(d.Nodes()), "edges", len(d.Edges()))
	printSuccess(w, "Rendered %s", StyleValue.Render(d.Name()))
	for _, out := range outputs {
		printOutput(w, out.Path, out.Size, out.Cached)
	}
	return outputs, nil
}
