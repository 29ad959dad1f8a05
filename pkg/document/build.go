package document

import (
	"context"
	"maps"
	"slices"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Options converts the document-level settings to diagram options.
func (d *Document) Options() ([]diagram.Option, error) {
	var opts []diagram.Option
	if d.Direction != "" {
		dir, err := diagram.ParseDirection(d.Direction)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diagram.WithDirection(dir))
	}
	if d.Curve != "" {
		opts = append(opts, diagram.WithCurveStyle(diagram.CurveStyle(d.Curve)))
	}
	if d.Filename != "" {
		opts = append(opts, diagram.WithFilename(d.Filename))
	}
	if len(d.Formats) > 0 {
		formats := make([]diagram.Format, 0, len(d.Formats))
		for _, s := range d.Formats {
			f, err := diagram.ParseFormat(s)
			if err != nil {
				return nil, err
			}
			formats = append(formats, f)
		}
		opts = append(opts, diagram.WithFormats(formats...))
	}
	if d.Show {
		opts = append(opts, diagram.WithShow(true))
	}
	for _, k := range slices.Sorted(maps.Keys(d.GraphAttr)) {
		opts = append(opts, diagram.WithGraphAttr(k, d.GraphAttr[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(d.NodeAttr)) {
		opts = append(opts, diagram.WithNodeAttr(k, d.NodeAttr[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(d.EdgeAttr)) {
		opts = append(opts, diagram.WithEdgeAttr(k, d.EdgeAttr[k]))
	}
	return opts, nil
}

// Build constructs and closes the diagram described by d. opts are applied
// after the document's own settings, so callers can override them or attach
// a finalizer.
func (d *Document) Build(ctx context.Context, opts ...diagram.Option) (*diagram.Diagram, error) {
	docOpts, err := d.Options()
	if err != nil {
		return nil, err
	}
	b := &builder{refs: make(map[string]diagram.Connectable)}
	return diagram.Build(ctx, d.Name, b.build(d), append(docOpts, opts...)...)
}

// scope is the part of the authoring API shared by *diagram.Diagram and
// *diagram.Cluster.
type scope interface {
	Node(label string, category diagram.Category, icon string, opts ...diagram.NodeOption) (*diagram.Node, error)
	Cluster(label string, fn func(*diagram.Cluster) error, opts ...diagram.ClusterOption) (*diagram.Cluster, error)
}

type builder struct {
	refs map[string]diagram.Connectable
}

func (b *builder) build(doc *Document) func(*diagram.Diagram) error {
	return func(d *diagram.Diagram) error {
		if err := b.scope(d, doc.Nodes, doc.Clusters); err != nil {
			return err
		}
		for i, e := range doc.Edges {
			if err := b.edge(d, e); err != nil {
				return wrap(err, "edges[%d] %s -> %s", i, e.From, e.To)
			}
		}
		return nil
	}
}

func (b *builder) scope(s scope, nodes []Node, clusters []Cluster) error {
	for _, n := range nodes {
		if err := b.node(s, n); err != nil {
			return err
		}
	}
	for _, c := range clusters {
		if err := b.cluster(s, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) register(id string, el diagram.Connectable) error {
	if _, dup := b.refs[id]; dup {
		return errs.New(errs.ErrCodeInvalidInput, "duplicate id %q", id)
	}
	b.refs[id] = el
	return nil
}

func (b *builder) node(s scope, n Node) error {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	var opts []diagram.NodeOption
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		opts = append(opts, diagram.NodeAttr(k, n.Attrs[k]))
	}
	node, err := s.Node(label, diagram.Category(n.Category), n.Icon, opts...)
	if err != nil {
		return wrap(err, "node %q", n.ID)
	}
	return b.register(n.ID, node)
}

func (b *builder) cluster(s scope, c Cluster) error {
	var opts []diagram.ClusterOption
	if c.Direction != "" {
		dir, err := diagram.ParseDirection(c.Direction)
		if err != nil {
			return wrap(err, "cluster %q", c.Label)
		}
		opts = append(opts, diagram.WithClusterDirection(dir))
	}
	for _, k := range slices.Sorted(maps.Keys(c.Attrs)) {
		opts = append(opts, diagram.ClusterAttr(k, c.Attrs[k]))
	}

	_, err := s.Cluster(c.Label, func(cl *diagram.Cluster) error {
		if c.ID != "" {
			if err := b.register(c.ID, cl); err != nil {
				return err
			}
		}
		if err := b.scope(cl, c.Nodes, c.Clusters); err != nil {
			return err
		}
		if c.Representative == "" {
			return nil
		}
		rep, err := b.lookup(c.Representative)
		if err != nil {
			return err
		}
		n, ok := rep.(*diagram.Node)
		if !ok {
			return errs.New(errs.ErrCodeInvalidInput, "representative %q is not a node", c.Representative)
		}
		return cl.SetRepresentative(n)
	}, opts...)
	if err != nil {
		return wrap(err, "cluster %q", c.Label)
	}
	return nil
}

func (b *builder) lookup(id string) (diagram.Connectable, error) {
	el, ok := b.refs[id]
	if !ok {
		return nil, errs.New(errs.ErrCodeDanglingReference, "unknown id %q", id)
	}
	return el, nil
}

func (b *builder) edge(d *diagram.Diagram, e Edge) error {
	from, err := b.lookup(e.From)
	if err != nil {
		return err
	}
	to, err := b.lookup(e.To)
	if err != nil {
		return err
	}

	var opts []diagram.EdgeOption
	if e.Label != "" {
		opts = append(opts, diagram.Label(e.Label))
	}
	if e.Style != "" {
		style, err := diagram.ParseEdgeStyle(e.Style)
		if err != nil {
			return err
		}
		opts = append(opts, diagram.Style(style))
	}
	if e.Color != "" {
		opts = append(opts, diagram.Color(e.Color))
	}
	if e.FontColor != "" {
		opts = append(opts, diagram.FontColor(e.FontColor))
	}
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		opts = append(opts, diagram.EdgeAttr(k, e.Attrs[k]))
	}

	arrow, err := diagram.ParseArrow(e.Arrow)
	if err != nil {
		return err
	}
	switch arrow {
	case diagram.ArrowBack:
		opts = append(opts, diagram.Reverse())
	case diagram.ArrowBoth:
		opts = append(opts, diagram.Bidirectional())
	case diagram.ArrowNone:
		opts = append(opts, diagram.Undirected())
	}
	_, err = d.Connect(from, to, opts...)
	return err
}

// wrap adds context to err, keeping its code.
func wrap(err error, format string, args ...any) error {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	return errs.Wrap(code, err, format, args...)
}
