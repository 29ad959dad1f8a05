package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/archviz/pkg/cache"
	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
	"github.com/matzehuels/archviz/pkg/observability"
	"github.com/matzehuels/archviz/pkg/render/dot"
)

const cacheKeyType = "artifact"

// Opener displays a rendered file, e.g. with the desktop's default viewer.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// OpenerFunc adapts a function to [Opener].
type OpenerFunc func(ctx context.Context, path string) error

// Open calls f(ctx, path).
func (f OpenerFunc) Open(ctx context.Context, path string) error { return f(ctx, path) }

// Output describes one written file.
type Output struct {
	Format diagram.Format
	Path   string
	Size   int
	// Cached reports that the engine was skipped.
	Cached bool
}

// Renderer writes diagrams to image files. The zero value is not usable:
// Engine and Resolver are required. Cache, Keyer, Logger and Opener are
// optional.
type Renderer struct {
	Engine   Engine
	Resolver icons.Resolver
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	// Dir is the output directory, created if missing. Empty means the
	// working directory.
	Dir    string
	Opener Opener
}

// Finalize implements [diagram.Finalizer] by rendering every format of d.
func (r *Renderer) Finalize(ctx context.Context, d *diagram.Diagram) error {
	_, err := r.Render(ctx, d)
	return err
}

// Render produces one file per format of the closed diagram d, in format
// order. Every format is rendered before any file is written, so a failing
// engine call leaves the output directory untouched.
func (r *Renderer) Render(ctx context.Context, d *diagram.Diagram) (outputs []Output, err error) {
	start := time.Now()
	formats := d.Formats()
	defer func() {
		observability.Render().OnRenderComplete(ctx, d.Name(), formatNames(formats), time.Since(start), err)
	}()

	src, err := r.Serialize(ctx, d)
	if err != nil {
		return nil, err
	}

	files := make([]pendingFile, 0, len(formats))
	for _, format := range formats {
		data, cached, err := r.artifact(ctx, src, format)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(r.Dir, d.Filename()+"."+string(format))
		files = append(files, pendingFile{path: path, data: data})
		outputs = append(outputs, Output{Format: format, Path: path, Size: len(data), Cached: cached})
	}
	if err := writeAll(files); err != nil {
		return nil, errs.Wrap(errs.ErrCodeRender, err, "write %s", d.Filename())
	}
	for _, o := range outputs {
		r.logger().Info("rendered", "diagram", d.Name(), "path", o.Path, "bytes", o.Size, "cached", o.Cached)
	}

	if d.Show() && r.Opener != nil && len(outputs) > 0 {
		if err := r.Opener.Open(ctx, outputs[0].Path); err != nil {
			r.logger().Warn("could not open output", "path", outputs[0].Path, "err", err)
		}
	}
	return outputs, nil
}

// Bytes renders d in a single format without touching the file system.
func (r *Renderer) Bytes(ctx context.Context, d *diagram.Diagram, format diagram.Format) ([]byte, error) {
	if !format.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	src, err := r.Serialize(ctx, d)
	if err != nil {
		return nil, err
	}
	data, _, err := r.artifact(ctx, src, format)
	return data, err
}

// Serialize converts d to DOT using the engine's capabilities.
func (r *Renderer) Serialize(ctx context.Context, d *diagram.Diagram) (string, error) {
	if r.Engine == nil {
		return "", errs.New(errs.ErrCodeRender, "no render engine configured")
	}
	start := time.Now()
	src, err := dot.ToDOT(d, r.Resolver, dot.Options{
		Capabilities: r.Engine.Capabilities(),
		Engine:       r.Engine.Name(),
	})
	observability.Render().OnSerialize(ctx, d.Name(), len(d.Nodes()), len(d.Edges()), time.Since(start), err)
	return src, err
}

// artifact returns the rendered bytes for src, from cache when possible.
func (r *Renderer) artifact(ctx context.Context, src string, format diagram.Format) ([]byte, bool, error) {
	key := r.keyer().ArtifactKey(cache.Hash([]byte(src)), cache.ArtifactKeyOpts{
		Format: string(format),
		Engine: r.Engine.Name(),
	})

	if r.Cache != nil {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.logger().Warn("cache lookup failed", "err", err)
		case hit:
			observability.Cache().OnCacheHit(ctx, cacheKeyType)
			r.logger().Debug("cache hit", "format", format, "bytes", len(data))
			return data, true, nil
		default:
			observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		}
	}

	engine := r.Engine.Name()
	r.logger().Debug("running engine", "engine", engine, "format", format)
	observability.Render().OnEngineStart(ctx, engine, string(format))
	start := time.Now()
	data, err := r.Engine.Render(ctx, src, format)
	if err == nil && len(data) == 0 {
		err = errs.New(errs.ErrCodeRender, "engine %s produced no %s output", engine, format)
	}
	observability.Render().OnEngineComplete(ctx, engine, string(format), len(data), time.Since(start), err)
	if err != nil {
		if errs.Is(err, errs.ErrCodeRender) {
			return nil, false, err
		}
		return nil, false, errs.Wrap(errs.ErrCodeRender, err, "engine %s: render %s", engine, format)
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, key, data, cache.ArtifactTTL); err != nil {
			r.logger().Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
		}
	}
	return data, false, nil
}

func (r *Renderer) keyer() cache.Keyer {
	if r.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return r.Keyer
}

func (r *Renderer) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

type pendingFile struct {
	path string
	data []byte
}

// writeAll writes files atomically. Each file is staged as a temporary file
// next to its target, and nothing is renamed into place until all of them
// are staged. Leftover temporary files are removed on any failure.
func writeAll(files []pendingFile) (err error) {
	tmps := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range tmps {
			if tmp != "" {
				os.Remove(tmp)
			}
		}
	}()

	for _, f := range files {
		tmp, err := stage(f.path, f.data)
		if err != nil {
			return fmt.Errorf("stage %s: %w", f.path, err)
		}
		tmps = append(tmps, tmp)
	}
	for i, f := range files {
		if err := os.Rename(tmps[i], f.path); err != nil {
			return err
		}
		tmps[i] = ""
	}
	return nil
}

// stage writes data to a new temporary file in the directory of path and
// returns its name.
func stage(path string, data []byte) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

func formatNames(formats []diagram.Format) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

var _ diagram.Finalizer = (*Renderer)(nil)
