package render

import (
	"context"

	"github.com/matzehuels/archviz/pkg/diagram"
	"github.com/matzehuels/archviz/pkg/render/dot"
)

// Capabilities describes what an engine can draw. See [dot.Capabilities].
type Capabilities = dot.Capabilities

// Engine lays out DOT text and produces an image.
type Engine interface {
	// Name identifies the engine in logs, errors and cache keys.
	Name() string
	Capabilities() Capabilities
	// Render blocks until the engine finishes or ctx is done.
	Render(ctx context.Context, dot string, format diagram.Format) ([]byte, error)
}
