package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/archviz/pkg/diagram"
)

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<?xml version="1.0"?><svg viewBox="10 20 800 600" width="800pt">content</svg>`,
			want: `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(normalizeViewBox([]byte(tt.svg))); got != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGraphvizEngineSVG(t *testing.T) {
	svg, err := NewGraphvizEngine().Render(context.Background(), `digraph G { a -> b; }`, diagram.FormatSVG)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("Render() output missing <svg> tag")
	}
}

func TestGraphvizEngineInvalidDOT(t *testing.T) {
	if _, err := NewGraphvizEngine().Render(context.Background(), `not valid DOT {{{`, diagram.FormatSVG); err == nil {
		t.Error("Render() accepted invalid DOT")
	}
}

func TestGraphvizEngineDOTPassthrough(t *testing.T) {
	src := `digraph G { a -> b; }`
	out, err := NewGraphvizEngine().Render(context.Background(), src, diagram.FormatDOT)
	if err != nil || string(out) != src {
		t.Errorf("Render(dot) = %q, %v; want input unchanged", out, err)
	}
}

func TestGraphvizEngineCapabilities(t *testing.T) {
	caps := NewGraphvizEngine().Capabilities()
	if !caps.ClusterEdges || caps.Images {
		t.Errorf("Capabilities() = %+v", caps)
	}
}
