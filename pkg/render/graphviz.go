package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/archviz/pkg/diagram"
)

// GraphvizEngine renders with Graphviz compiled to WebAssembly.
type GraphvizEngine struct {
	// Scale, when positive, produces PNG by rasterizing the SVG output with
	// rsvg-convert at that scale instead of using the built-in rasterizer.
	Scale float64
}

// NewGraphvizEngine returns the in-process engine.
func NewGraphvizEngine() *GraphvizEngine { return &GraphvizEngine{} }

// Name implements [Engine].
func (*GraphvizEngine) Name() string { return "graphviz" }

// Capabilities implements [Engine]. The sandboxed runtime cannot read image
// files from the host.
func (*GraphvizEngine) Capabilities() Capabilities {
	return Capabilities{ClusterEdges: true}
}

var graphvizFormats = map[diagram.Format]graphviz.Format{
	diagram.FormatSVG: graphviz.SVG,
	diagram.FormatPNG: graphviz.PNG,
	diagram.FormatJPG: graphviz.JPG,
}

// Render implements [Engine]. DOT output is the input unchanged; PDF is
// produced from SVG with rsvg-convert.
func (e *GraphvizEngine) Render(ctx context.Context, src string, format diagram.Format) ([]byte, error) {
	switch format {
	case diagram.FormatDOT:
		return []byte(src), nil
	case diagram.FormatPDF:
		svg, err := e.Render(ctx, src, diagram.FormatSVG)
		if err != nil {
			return nil, err
		}
		return ToPDF(ctx, svg)
	case diagram.FormatPNG:
		if e.Scale > 0 {
			svg, err := e.Render(ctx, src, diagram.FormatSVG)
			if err != nil {
				return nil, err
			}
			return ToPNG(ctx, svg, e.Scale)
		}
	}

	gvFormat, ok := graphvizFormats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	if format == diagram.FormatSVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root <svg> tag so the viewBox starts at the
// origin and width/height match it in user units. Graphviz emits point
// sizes and a translated viewBox, which browsers scale inconsistently.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	loc := svgTagRe.FindIndex(svg)
	out := make([]byte, 0, len(svg)+len(tag))
	out = append(out, svg[:loc[0]]...)
	out = append(out, tag...)
	return append(out, svg[loc[1]:]...)
}

var _ Engine = (*GraphvizEngine)(nil)
