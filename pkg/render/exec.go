package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/matzehuels/archviz/pkg/diagram"
)

// ExecEngine renders by piping DOT to an external Graphviz binary.
type ExecEngine struct {
	// Path is the binary to run; "dot" resolved through $PATH by default.
	Path string
}

// NewExecEngine returns an engine that runs the dot binary from $PATH.
func NewExecEngine() *ExecEngine { return &ExecEngine{Path: "dot"} }

// Name implements [Engine].
func (e *ExecEngine) Name() string { return "dot" }

// Capabilities implements [Engine].
func (e *ExecEngine) Capabilities() Capabilities {
	return Capabilities{ClusterEdges: true, Images: true}
}

// Render implements [Engine] by running `dot -T<format>` with the DOT text on
// stdin.
func (e *ExecEngine) Render(ctx context.Context, src string, format diagram.Format) ([]byte, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	bin := e.Path
	if bin == "" {
		bin = "dot"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("graphviz %q not found; install it with:\n  macOS:  brew install graphviz\n  Linux:  apt install graphviz", bin)
	}

	cmd := exec.CommandContext(ctx, path, "-T"+string(format))
	cmd.Stdin = strings.NewReader(src)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %v: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

var _ Engine = (*ExecEngine)(nil)
