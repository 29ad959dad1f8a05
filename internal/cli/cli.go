package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/archviz/pkg/buildinfo"
	"github.com/matzehuels/archviz/pkg/cache"
	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
	"github.com/matzehuels/archviz/pkg/render"
)

const appName = "archviz"

// Log levels accepted by [New] and [CLI.SetLogLevel].
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Engine names accepted by --engine.
const (
	engineGraphviz = "graphviz"
	engineExec     = "exec"
)

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI logging to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel changes the level of the shared logger.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "archviz renders architecture diagrams from code and documents",
		Long: `archviz builds cloud architecture diagrams from nodes, clusters and edges
and lays them out with Graphviz.

Diagrams are described in TOML or YAML documents and rendered to PNG, SVG,
JPG, PDF or DOT.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.iconsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// rendererOpts are the flags shared by every command that renders.
type rendererOpts struct {
	engine  string
	icons   string
	assets  string
	noCache bool
	redis   string
	scale   float64
}

func (o *rendererOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.engine, "engine", engineGraphviz, "layout engine: graphviz (built in), exec (dot binary)")
	cmd.Flags().StringVar(&o.icons, "icons", "", "icon catalog (TOML) merged over the built-in catalog")
	cmd.Flags().StringVar(&o.assets, "assets", "", "directory containing icon image files")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().StringVar(&o.redis, "redis", "", "use the Redis server at this address as artifact cache")
	cmd.Flags().Float64Var(&o.scale, "scale", 0, "rasterize PNG output from SVG at this scale (graphviz engine)")
}

// newRenderer assembles a renderer from opts. The returned cleanup releases
// the cache and must be called once the renderer is no longer used.
func (c *CLI) newRenderer(ctx context.Context, opts rendererOpts) (*render.Renderer, func(), error) {
	engine, err := newEngine(opts.engine, opts.scale)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := newResolver(opts.icons, opts.assets)
	if err != nil {
		return nil, nil, err
	}
	store, err := newCache(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var keyer cache.Keyer
	if opts.scale > 0 {
		keyer = cache.NewScopedKeyer(nil, fmt.Sprintf("scale=%g:", opts.scale))
	}

	r := &render.Renderer{
		Engine:   engine,
		Resolver: resolver,
		Cache:    store,
		Keyer:    keyer,
		Logger:   c.Logger,
		Opener:   render.SystemOpener,
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			c.Logger.Warn("close cache", "err", err)
		}
	}
	return r, cleanup, nil
}

// newEngine returns the layout engine named by --engine.
func newEngine(name string, scale float64) (render.Engine, error) {
	switch name {
	case "", engineGraphviz:
		return &render.GraphvizEngine{Scale: scale}, nil
	case engineExec, "dot":
		return render.NewExecEngine(), nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "unknown engine %q (want %s or %s)", name, engineGraphviz, engineExec)
}

// newResolver returns the built-in icon catalog, optionally merged with the
// catalog at path and bound to an asset directory.
func newResolver(path, assets string) (*icons.Catalog, error) {
	cat := icons.Default()
	if path != "" {
		user, err := icons.Load(path)
		if err != nil {
			return nil, err
		}
		cat = cat.Merge(user)
	}
	if assets != "" {
		abs, err := filepath.Abs(assets)
		if err != nil {
			return nil, fmt.Errorf("resolve asset dir: %w", err)
		}
		cat = cat.WithAssetDir(abs)
	}
	return cat, nil
}

// newCache returns the artifact cache selected by the flags: none, Redis,
// or the file cache under [cacheDir].
func newCache(ctx context.Context, opts rendererOpts) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redis != "":
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: opts.redis, Prefix: appName + ":"})
	}
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns $XDG_CACHE_HOME/archviz, or ~/.cache/archviz.
func cacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseFormats parses a comma-separated --format value. An empty value
// returns nil so the document's formats apply.
func parseFormats(s string) ([]diagram.Format, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []diagram.Format
	for _, part := range strings.Split(s, ",") {
		f, err := diagram.ParseFormat(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
