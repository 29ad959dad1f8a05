package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/render"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Re-render a diagram document whenever it changes",
		Long: `Render a document, then watch it (and the --icons catalog, if given) and
render again after every change. Errors are reported without stopping the
watch. Press Ctrl+C to exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := c.newRenderer(cmd.Context(), opts.rendererOpts)
			if err != nil {
				return err
			}
			defer cleanup()
			r.Dir = opts.output

			files := []string{args[0]}
			if opts.icons != "" {
				files = append(files, opts.icons)
			}
			return c.watch(cmd.Context(), cmd.OutOrStdout(), files, func(ctx context.Context) error {
				return c.rerender(ctx, cmd.OutOrStdout(), r, args[0], &opts)
			})
		},
	}
	opts.register(cmd)

	return cmd
}

// rerender reloads the icon catalog and renders path with r. A catalog
// that fails to load leaves r unchanged.
func (c *CLI) rerender(ctx context.Context, w io.Writer, r *render.Renderer, path string, opts *renderOpts) error {
	resolver, err := newResolver(opts.icons, opts.assets)
	if err != nil {
		return err
	}
	r.Resolver = resolver
	_, err = c.runRender(ctx, w, r, path, opts)
	return err
}

// watch calls fn once, then again each time one of files changes, until ctx
// is done. Parent directories are watched rather than the files themselves
// because many editors save by replacing the file.
func (c *CLI) watch(ctx context.Context, w io.Writer, files []string, fn func(context.Context) error) error {
	logger := loggerFromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if err := watcher.Add(dir); err != nil {
			return errs.Wrap(errs.ErrCodeFileNotFound, err, "watch %s", dir)
		}
		logger.Debug("watching", "file", abs)
	}

	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			printError(w, "%s", err)
		}
		printInfo(w, "Watching for changes (Ctrl+C to exit)")
	}
	run()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("file changed", "file", ev.Name, "op", ev.Op.String())
			pending = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-pending:
			pending = nil
			run()
		}
	}
}
