package dot

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
)

// Capabilities describes what the layout engine can draw.
type Capabilities struct {
	// ClusterEdges reports support for edges clipped at cluster borders
	// (compound graphs with lhead/ltail).
	ClusterEdges bool
	// Images reports that the engine can load node image files.
	Images bool
}

// Options configures serialization.
type Options struct {
	Capabilities Capabilities
	// Engine names the target engine in error messages.
	Engine string
}

const fontName = "Sans-Serif"

// clusterColors cycle by nesting depth.
var clusterColors = []string{"#E5F5FD", "#EBF3E7", "#ECE8F6", "#FDF7E3"}

type attr struct{ key, value string }

type attrList []attr

// with returns l with values overridden by over; keys not already in l are
// appended in sorted order.
func (l attrList) with(over diagram.Attrs) attrList {
	out := slices.Clone(l)
	for _, k := range slices.Sorted(maps.Keys(over)) {
		if i := slices.IndexFunc(out, func(a attr) bool { return a.key == k }); i >= 0 {
			out[i].value = over[k]
			continue
		}
		out = append(out, attr{k, over[k]})
	}
	return out
}

func (l attrList) String() string {
	parts := make([]string, len(l))
	for i, a := range l {
		parts[i] = a.key + "=" + quote(a.value)
	}
	return strings.Join(parts, ", ")
}

// quote produces a DOT double-quoted string. Newlines become \n escapes so
// multi-line labels survive.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// ClusterID returns the subgraph name used for c. Graphviz only treats
// subgraphs named "cluster*" as clusters.
func ClusterID(c *diagram.Cluster) string { return "cluster_" + c.ID() }

// ToDOT converts a closed diagram to Graphviz DOT.
//
// Errors:
//   - SCOPE_ERROR when the diagram is still open
//   - ICON_RESOLUTION when a node's icon cannot be resolved
//   - UNSUPPORTED when an edge touches a cluster the engine cannot anchor
func ToDOT(d *diagram.Diagram, r icons.Resolver, opts Options) (string, error) {
	if !d.Closed() {
		return "", errs.New(errs.ErrCodeScope, "diagram %q must be closed before serialization", d.Name())
	}

	assets, err := resolveAssets(d, r)
	if err != nil {
		return "", err
	}
	edges, compound, err := resolveEdges(d, opts)
	if err != nil {
		return "", err
	}

	w := &writer{d: d, assets: assets, opts: opts}
	w.header(compound)
	w.children(d.Children(), 1)
	w.edges(edges)
	w.buf.WriteString("}\n")
	return w.buf.String(), nil
}

func resolveAssets(d *diagram.Diagram, r icons.Resolver) (map[*diagram.Node]icons.Asset, error) {
	if r == nil {
		return nil, errs.New(errs.ErrCodeIconResolution, "no icon resolver configured")
	}
	assets := make(map[*diagram.Node]icons.Asset)
	for _, n := range d.Nodes() {
		a, err := r.Resolve(n.Category(), n.Icon())
		if err != nil {
			if errs.Is(err, errs.ErrCodeIconResolution) {
				return nil, errs.Wrap(errs.ErrCodeIconResolution, err, "node %q", n.Label())
			}
			return nil, errs.Wrap(errs.ErrCodeIconResolution, err, "node %q: resolve %s/%s", n.Label(), n.Category(), n.Icon())
		}
		assets[n] = a
	}
	return assets, nil
}

// endpoint is one resolved end of an edge.
type endpoint struct {
	node    string
	cluster string // subgraph name for lhead/ltail, or ""
}

type resolvedEdge struct {
	edge     *diagram.Edge
	from, to endpoint
}

func resolveEdges(d *diagram.Diagram, opts Options) ([]resolvedEdge, bool, error) {
	var out []resolvedEdge
	compound := false
	for _, e := range d.Edges() {
		from, err := resolveEndpoint(e.From(), opts)
		if err != nil {
			return nil, false, err
		}
		to, err := resolveEndpoint(e.To(), opts)
		if err != nil {
			return nil, false, err
		}
		if from.cluster != "" || to.cluster != "" {
			compound = true
		}
		out = append(out, resolvedEdge{edge: e, from: from, to: to})
	}
	return out, compound, nil
}

func resolveEndpoint(el diagram.Connectable, opts Options) (endpoint, error) {
	switch v := el.(type) {
	case *diagram.Node:
		return endpoint{node: v.ID()}, nil
	case *diagram.Cluster:
		rep := v.Representative()
		if !opts.Capabilities.ClusterEdges {
			if rep == nil {
				return endpoint{}, errs.New(errs.ErrCodeUnsupported,
					"engine %s cannot draw edges to cluster %q: designate a representative node", engineName(opts), v.Label())
			}
			return endpoint{node: rep.ID()}, nil
		}
		if rep == nil {
			rep = v.FirstNode()
		}
		if rep == nil {
			return endpoint{}, errs.New(errs.ErrCodeUnsupported, "cluster %q has no nodes to anchor an edge", v.Label())
		}
		return endpoint{node: rep.ID(), cluster: ClusterID(v)}, nil
	}
	return endpoint{}, errs.New(errs.ErrCodeInternal, "unknown element type %T", el)
}

func engineName(opts Options) string {
	if opts.Engine == "" {
		return "(unnamed)"
	}
	return opts.Engine
}

type writer struct {
	buf    bytes.Buffer
	d      *diagram.Diagram
	assets map[*diagram.Node]icons.Asset
	opts   Options
}

func indent(depth int) string { return strings.Repeat("  ", depth) }

func (w *writer) header(compound bool) {
	d := w.d
	graph := attrList{
		{"pad", "2.0"},
		{"splines", string(d.CurveStyle())},
		{"nodesep", "0.60"},
		{"ranksep", "0.75"},
		{"fontname", fontName},
		{"fontsize", "15"},
		{"fontcolor", "#2D3436"},
		{"rankdir", string(d.Direction())},
		{"label", d.Name()},
	}
	if compound {
		graph = append(graph, attr{"compound", "true"})
	}
	node := attrList{
		{"shape", "box"},
		{"style", "rounded"},
		{"fixedsize", "true"},
		{"width", "1.4"},
		{"height", "1.4"},
		{"labelloc", "b"},
		{"imagescale", "true"},
		{"fontname", fontName},
		{"fontsize", "13"},
		{"fontcolor", "#2D3436"},
	}
	edge := attrList{
		{"color", "#7B8894"},
		{"fontname", fontName},
		{"fontsize", "13"},
		{"fontcolor", "#2D3436"},
	}

	fmt.Fprintf(&w.buf, "digraph %s {\n", quote(d.Name()))
	fmt.Fprintf(&w.buf, "  graph [%s];\n", graph.with(d.GraphAttrs()))
	fmt.Fprintf(&w.buf, "  node [%s];\n", node.with(d.NodeAttrs()))
	fmt.Fprintf(&w.buf, "  edge [%s];\n", edge.with(d.EdgeAttrs()))
	w.buf.WriteString("\n")
}

func (w *writer) children(children []diagram.Connectable, depth int) {
	for _, el := range children {
		switch v := el.(type) {
		case *diagram.Node:
			w.node(v, depth)
		case *diagram.Cluster:
			w.cluster(v, depth)
		}
	}
}

func (w *writer) node(n *diagram.Node, depth int) {
	fmt.Fprintf(&w.buf, "%s%s [%s];\n", indent(depth), quote(n.ID()), w.nodeAttrs(n))
}

func (w *writer) nodeAttrs(n *diagram.Node) attrList {
	asset := w.assets[n]
	lines := strings.Count(n.Label(), "\n")

	attrs := attrList{{"label", n.Label()}}
	if w.opts.Capabilities.Images && asset.Path != "" {
		attrs = append(attrs,
			attr{"image", asset.Path},
			attr{"shape", "none"},
			attr{"height", fmt.Sprintf("%.1f", 1.9+0.4*float64(lines))},
		)
	} else {
		attrs = append(attrs,
			attr{"style", "rounded,filled"},
			attr{"labelloc", "c"},
			attr{"tooltip", fmt.Sprintf("%s/%s", asset.Category, asset.Key)},
		)
		if asset.Color != "" {
			attrs = append(attrs, attr{"fillcolor", asset.Color}, attr{"fontcolor", "#FFFFFF"})
		}
		if lines > 0 {
			attrs = append(attrs, attr{"height", fmt.Sprintf("%.1f", 1.4+0.4*float64(lines))})
		}
	}
	return attrs.with(n.Attrs())
}

func (w *writer) cluster(c *diagram.Cluster, depth int) {
	attrs := attrList{
		{"label", c.Label()},
		{"labeljust", "l"},
		{"pencolor", "#AEB6BE"},
		{"style", "rounded"},
		{"fontname", fontName},
		{"fontsize", "12"},
		{"bgcolor", clusterColors[(c.Depth()-1)%len(clusterColors)]},
	}

	pad := indent(depth)
	fmt.Fprintf(&w.buf, "%ssubgraph %s {\n", pad, quote(ClusterID(c)))
	fmt.Fprintf(&w.buf, "%s  graph [%s];\n", pad, attrs.with(c.Attrs()))
	w.children(c.Children(), depth+1)
	w.directionHints(c, depth+1)
	fmt.Fprintf(&w.buf, "%s}\n", pad)
}

// directionHints makes the cluster's direct nodes follow its resolved
// direction when that differs from the graph's rankdir.
func (w *writer) directionHints(c *diagram.Cluster, depth int) {
	dir, global := c.Direction(), w.d.Direction()
	if dir == global {
		return
	}

	var ids []string
	for _, el := range c.Children() {
		if n, ok := el.(*diagram.Node); ok {
			ids = append(ids, quote(n.ID()))
		}
	}
	if len(ids) < 2 {
		return
	}

	pad := indent(depth)
	switch {
	case dir.Perpendicular(global):
		if dir == diagram.BottomToTop || dir == diagram.RightToLeft {
			slices.Reverse(ids)
		}
		fmt.Fprintf(&w.buf, "%s{ rank=same; %s; }\n", pad, strings.Join(ids, "; "))
		fmt.Fprintf(&w.buf, "%s%s [style=\"invis\"];\n", pad, strings.Join(ids, " -> "))
	case dir.Opposite(global):
		slices.Reverse(ids)
		fmt.Fprintf(&w.buf, "%s%s [style=\"invis\"];\n", pad, strings.Join(ids, " -> "))
	}
}

func (w *writer) edges(edges []resolvedEdge) {
	if len(edges) > 0 {
		w.buf.WriteString("\n")
	}
	for _, re := range edges {
		fmt.Fprintf(&w.buf, "  %s -> %s [%s];\n", quote(re.from.node), quote(re.to.node), edgeAttrs(re))
	}
}

func edgeAttrs(re resolvedEdge) attrList {
	e := re.edge
	attrs := attrList{{"dir", string(e.Arrow())}}
	if e.Label() != "" {
		attrs = append(attrs, attr{"label", e.Label()})
	}
	if e.Style() != diagram.StyleSolid {
		attrs = append(attrs, attr{"style", string(e.Style())})
	}
	if e.Color() != "" {
		attrs = append(attrs, attr{"color", e.Color()})
	}
	if e.FontColor() != "" {
		attrs = append(attrs, attr{"fontcolor", e.FontColor()})
	}
	if re.from.cluster != "" {
		attrs = append(attrs, attr{"ltail", re.from.cluster})
	}
	if re.to.cluster != "" {
		attrs = append(attrs, attr{"lhead", re.to.cluster})
	}
	return attrs.with(e.Attrs())
}
