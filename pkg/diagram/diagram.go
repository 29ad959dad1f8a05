package diagram

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Finalizer receives a diagram once its root scope closes.
// A renderer implements Finalizer to turn the closed diagram into an image.
type Finalizer interface {
	Finalize(ctx context.Context, d *Diagram) error
}

// FinalizerFunc adapts a function to the [Finalizer] interface.
type FinalizerFunc func(ctx context.Context, d *Diagram) error

// Finalize calls f(ctx, d).
func (f FinalizerFunc) Finalize(ctx context.Context, d *Diagram) error { return f(ctx, d) }

// Diagram is the root scope of an architecture diagram. It owns the element
// registry, the cluster tree and the edge list.
//
// The zero value is not usable; create diagrams with [New] or [Build].
type Diagram struct {
	name       string
	direction  Direction
	filename   string
	formats    []Format
	show       bool
	curve      CurveStyle
	graphAttrs Attrs
	nodeAttrs  Attrs
	edgeAttrs  Attrs
	finalizer  Finalizer

	children []Connectable
	edges    []*Edge
	registry map[string]Connectable
	stack    []*Cluster
	closed   bool

	namespace uuid.UUID
	seq       int
}

// Option configures a diagram.
type Option func(*Diagram)

// WithDirection sets the global layout direction. Default: [LeftToRight].
func WithDirection(dir Direction) Option {
	return func(d *Diagram) { d.direction = dir }
}

// WithFilename sets the output file name stem (no extension, no directory).
// Default: the diagram name lower-cased with spaces and slashes replaced by
// underscores.
func WithFilename(name string) Option {
	return func(d *Diagram) { d.filename = name }
}

// WithFormats sets the output formats. Default: png.
func WithFormats(formats ...Format) Option {
	return func(d *Diagram) { d.formats = append([]Format(nil), formats...) }
}

// WithShow requests that the rendered file be opened for display after it
// is written. Default: render to file only.
func WithShow(show bool) Option {
	return func(d *Diagram) { d.show = show }
}

// WithCurveStyle sets how edges are routed. Default: [CurveOrtho].
func WithCurveStyle(c CurveStyle) Option {
	return func(d *Diagram) { d.curve = c }
}

// WithGraphAttr overrides a graph-level Graphviz attribute.
func WithGraphAttr(key, value string) Option {
	return func(d *Diagram) { d.graphAttrs[key] = value }
}

// WithNodeAttr overrides a default node attribute for every node.
func WithNodeAttr(key, value string) Option {
	return func(d *Diagram) { d.nodeAttrs[key] = value }
}

// WithEdgeAttr overrides a default edge attribute for every edge.
func WithEdgeAttr(key, value string) Option {
	return func(d *Diagram) { d.edgeAttrs[key] = value }
}

// WithFinalizer sets the finalizer invoked by [Diagram.Close].
func WithFinalizer(f Finalizer) Option {
	return func(d *Diagram) { d.finalizer = f }
}

// New opens a diagram. The returned diagram is the active scope until a
// cluster is opened.
func New(name string, opts ...Option) (*Diagram, error) {
	if err := errs.ValidateLabel(name); err != nil {
		return nil, err
	}
	d := &Diagram{
		name:       name,
		direction:  LeftToRight,
		formats:    []Format{FormatPNG},
		curve:      CurveOrtho,
		graphAttrs: Attrs{},
		nodeAttrs:  Attrs{},
		edgeAttrs:  Attrs{},
		registry:   make(map[string]Connectable),
		namespace:  uuid.NewSHA1(uuid.NameSpaceURL, []byte("archviz:"+name)),
	}
	for _, opt := range opts {
		opt(d)
	}

	if !d.direction.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "invalid direction: %q", d.direction)
	}
	if !d.curve.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "invalid curve style: %q", d.curve)
	}
	if len(d.formats) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "at least one output format is required")
	}
	for _, f := range d.formats {
		if !f.Valid() {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q", f)
		}
	}
	if err := d.graphAttrs.validate("graph"); err != nil {
		return nil, err
	}
	if err := d.nodeAttrs.validate("node defaults"); err != nil {
		return nil, err
	}
	if err := d.edgeAttrs.validate("edge defaults"); err != nil {
		return nil, err
	}
	if d.filename == "" {
		d.filename = defaultFilename(name)
	}
	if err := errs.ValidateFilename(d.filename); err != nil {
		return nil, err
	}
	return d, nil
}

// Build opens a diagram, runs fn to author it, and closes it, which
// triggers the finalizer. If fn fails, every open scope is unwound and the
// diagram is closed without finalizing, so nothing is rendered from a
// partially-built graph.
func Build(ctx context.Context, name string, fn func(*Diagram) error, opts ...Option) (*Diagram, error) {
	d, err := New(name, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.run(fn); err != nil {
		d.abandon()
		return d, err
	}
	return d, d.Close(ctx)
}

func (d *Diagram) run(fn func(*Diagram) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.abandon()
			panic(r)
		}
	}()
	return fn(d)
}

// abandon unwinds every open scope and closes the diagram without
// finalizing it.
func (d *Diagram) abandon() {
	for _, c := range d.stack {
		c.closed = true
	}
	d.stack = nil
	d.closed = true
}

func defaultFilename(name string) string {
	s := strings.ToLower(strings.Join(strings.Fields(name), "_"))
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}

// Name returns the diagram name, also used as the graph label.
func (d *Diagram) Name() string { return d.name }

// Direction returns the global layout direction.
func (d *Diagram) Direction() Direction { return d.direction }

// Filename returns the output file name stem.
func (d *Diagram) Filename() string { return d.filename }

// Formats returns the requested output formats.
func (d *Diagram) Formats() []Format { return append([]Format(nil), d.formats...) }

// Show reports whether the output should be opened after rendering.
func (d *Diagram) Show() bool { return d.show }

// CurveStyle returns the edge routing style.
func (d *Diagram) CurveStyle() CurveStyle { return d.curve }

// GraphAttrs returns a copy of the graph attribute overrides.
func (d *Diagram) GraphAttrs() Attrs { return maps.Clone(d.graphAttrs) }

// NodeAttrs returns a copy of the default node attribute overrides.
func (d *Diagram) NodeAttrs() Attrs { return maps.Clone(d.nodeAttrs) }

// EdgeAttrs returns a copy of the default edge attribute overrides.
func (d *Diagram) EdgeAttrs() Attrs { return maps.Clone(d.edgeAttrs) }

// Children returns the root-level elements in insertion order.
func (d *Diagram) Children() []Connectable { return append([]Connectable(nil), d.children...) }

// Edges returns all edges in creation order.
func (d *Diagram) Edges() []*Edge { return append([]*Edge(nil), d.edges...) }

// Closed reports whether the diagram has been closed.
func (d *Diagram) Closed() bool { return d.closed }

// Len returns the number of registered elements (nodes and clusters).
func (d *Diagram) Len() int { return len(d.registry) }

// Lookup returns the element registered under id.
func (d *Diagram) Lookup(id string) (Connectable, bool) {
	el, ok := d.registry[id]
	return el, ok
}

// Contains reports whether el was created in this diagram. Handles from
// another diagram never match, even when their identities collide.
func (d *Diagram) Contains(el Connectable) bool {
	if isNil(el) {
		return false
	}
	b := el.base()
	if b.diagram != d {
		return false
	}
	reg, ok := d.registry[b.id]
	return ok && reg.base() == b
}

// Nodes returns every node, depth-first in insertion order.
func (d *Diagram) Nodes() []*Node {
	var out []*Node
	walk(d.children, func(el Connectable) {
		if n, ok := el.(*Node); ok {
			out = append(out, n)
		}
	})
	return out
}

// Clusters returns every cluster, depth-first in insertion order.
func (d *Diagram) Clusters() []*Cluster {
	var out []*Cluster
	walk(d.children, func(el Connectable) {
		if c, ok := el.(*Cluster); ok {
			out = append(out, c)
		}
	})
	return out
}

func walk(children []Connectable, visit func(Connectable)) {
	for _, el := range children {
		visit(el)
		if c, ok := el.(*Cluster); ok {
			walk(c.children, visit)
		}
	}
}

// Node creates a leaf at root scope. The diagram must be the active scope,
// meaning no cluster is open.
func (d *Diagram) Node(label string, category Category, icon string, opts ...NodeOption) (*Node, error) {
	return d.addNode(nil, label, category, icon, opts)
}

// OpenCluster opens a root-level cluster. The caller must [Cluster.Close]
// it before closing the diagram.
func (d *Diagram) OpenCluster(label string, opts ...ClusterOption) (*Cluster, error) {
	return d.openCluster(nil, label, opts)
}

// Cluster opens a root-level cluster, runs fn with it, and closes it.
// The scope is closed on every exit path, including a panic in fn.
func (d *Diagram) Cluster(label string, fn func(*Cluster) error, opts ...ClusterOption) (*Cluster, error) {
	return d.withCluster(nil, label, fn, opts)
}

// Close closes the root scope and runs the finalizer, if any.
// Every cluster must already be closed.
func (d *Diagram) Close(ctx context.Context) error {
	if d.closed {
		return errs.New(errs.ErrCodeScope, "diagram %q is already closed", d.name)
	}
	if top := d.active(); top != nil {
		return errs.New(errs.ErrCodeScope, "diagram %q closed while cluster %q is still open", d.name, top.label)
	}
	d.closed = true
	if d.finalizer == nil {
		return nil
	}
	return d.finalizer.Finalize(ctx, d)
}

// active returns the innermost open cluster, or nil when the diagram root
// is the active scope.
func (d *Diagram) active() *Cluster {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

// checkActive verifies that parent (nil for root) may receive children.
func (d *Diagram) checkActive(parent *Cluster) error {
	if d.closed {
		return errs.New(errs.ErrCodeScope, "diagram %q is closed", d.name)
	}
	if parent != nil && parent.closed {
		return errs.New(errs.ErrCodeScope, "cluster %q is closed", parent.label)
	}
	if top := d.active(); top != parent {
		return errs.New(errs.ErrCodeScope, "%s is not the active scope (innermost open scope is cluster %q)", scopeName(d, parent), top.label)
	}
	return nil
}

func scopeName(d *Diagram, c *Cluster) string {
	if c == nil {
		return fmt.Sprintf("diagram %q", d.name)
	}
	return fmt.Sprintf("cluster %q", c.label)
}

func (d *Diagram) newElement(label string, parent *Cluster) element {
	d.seq++
	id := uuid.NewSHA1(d.namespace, []byte(strconv.Itoa(d.seq)))
	return element{
		id:      strings.ReplaceAll(id.String(), "-", ""),
		label:   label,
		parent:  parent,
		diagram: d,
	}
}

func (d *Diagram) attach(parent *Cluster, el Connectable) {
	d.registry[el.ID()] = el
	if parent == nil {
		d.children = append(d.children, el)
		return
	}
	parent.children = append(parent.children, el)
}

func (d *Diagram) addNode(parent *Cluster, label string, category Category, icon string, opts []NodeOption) (*Node, error) {
	if err := d.checkActive(parent); err != nil {
		return nil, err
	}
	if err := errs.ValidateLabel(label); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "node %q: category cannot be empty", label)
	}
	if icon == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "node %q: icon key cannot be empty", label)
	}

	n := &Node{
		element:  d.newElement(label, parent),
		category: category,
		icon:     icon,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.attrs.validate(fmt.Sprintf("node %q", label)); err != nil {
		return nil, err
	}
	d.attach(parent, n)
	return n, nil
}

func (d *Diagram) openCluster(parent *Cluster, label string, opts []ClusterOption) (*Cluster, error) {
	if err := d.checkActive(parent); err != nil {
		return nil, err
	}
	if err := errs.ValidateLabel(label); err != nil {
		return nil, err
	}

	c := &Cluster{element: d.newElement(label, parent), depth: 1}
	if parent != nil {
		c.depth = parent.depth + 1
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.direction != "" && !c.direction.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "cluster %q: invalid direction: %q", label, c.direction)
	}
	if err := c.attrs.validate(fmt.Sprintf("cluster %q", label)); err != nil {
		return nil, err
	}

	d.attach(parent, c)
	d.stack = append(d.stack, c)
	return c, nil
}

func (d *Diagram) withCluster(parent *Cluster, label string, fn func(*Cluster) error, opts []ClusterOption) (c *Cluster, err error) {
	c, err = d.openCluster(parent, label, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := d.unwind(c); uerr != nil && err == nil {
			err = uerr
		}
	}()
	if fn != nil {
		err = fn(c)
	}
	return c, err
}

// unwind closes c and any scopes opened inside it that were left open,
// restoring c's parent as the active scope. Leaving a nested scope open is
// reported as a scope error.
func (d *Diagram) unwind(c *Cluster) error {
	if c.closed {
		return nil
	}
	idx := -1
	for i, s := range d.stack {
		if s == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.closed = true
		return nil
	}

	var err error
	if idx < len(d.stack)-1 {
		err = errs.New(errs.ErrCodeScope, "cluster %q left open inside cluster %q", d.stack[len(d.stack)-1].label, c.label)
	}
	for _, s := range d.stack[idx:] {
		s.closed = true
	}
	d.stack = d.stack[:idx]
	return err
}
