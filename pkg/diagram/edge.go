package diagram

import (
	"fmt"
	"maps"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Edge connects two elements of the same diagram. Edges are immutable once
// created.
type Edge struct {
	from      Connectable
	to        Connectable
	arrow     Arrow
	label     string
	style     EdgeStyle
	color     string
	fontColor string
	attrs     Attrs
}

// From returns the source element.
func (e *Edge) From() Connectable { return e.from }

// To returns the target element.
func (e *Edge) To() Connectable { return e.to }

// Arrow returns which ends carry arrowheads.
func (e *Edge) Arrow() Arrow { return e.arrow }

// Directed reports whether the edge has at least one arrowhead.
func (e *Edge) Directed() bool { return e.arrow != ArrowNone }

// Label returns the edge label, or "" when unset.
func (e *Edge) Label() string { return e.label }

// Style returns the line style.
func (e *Edge) Style() EdgeStyle { return e.style }

// Color returns the line color, or "" for the renderer default.
func (e *Edge) Color() string { return e.color }

// FontColor returns the label color, or "" for the renderer default.
func (e *Edge) FontColor() string { return e.fontColor }

// Attrs returns a copy of the raw Graphviz attributes set on the edge.
func (e *Edge) Attrs() Attrs { return maps.Clone(e.attrs) }

// SelfLoop reports whether the edge starts and ends on the same element.
func (e *Edge) SelfLoop() bool { return e.from.base() == e.to.base() }

// EdgeOption configures an edge at construction.
type EdgeOption func(*Edge)

// Label sets the edge label.
func Label(s string) EdgeOption { return func(e *Edge) { e.label = s } }

// Style sets the line style.
func Style(s EdgeStyle) EdgeOption { return func(e *Edge) { e.style = s } }

// Dashed draws the edge as a dashed line.
func Dashed() EdgeOption { return Style(StyleDashed) }

// Dotted draws the edge as a dotted line.
func Dotted() EdgeOption { return Style(StyleDotted) }

// Bold draws the edge as a bold line.
func Bold() EdgeOption { return Style(StyleBold) }

// Color sets the line color (any Graphviz color, e.g. "firebrick" or "#7B8894").
func Color(c string) EdgeOption { return func(e *Edge) { e.color = c } }

// FontColor sets the label color.
func FontColor(c string) EdgeOption { return func(e *Edge) { e.fontColor = c } }

// Reverse puts the arrowhead on the source end.
func Reverse() EdgeOption { return func(e *Edge) { e.arrow = ArrowBack } }

// Bidirectional puts arrowheads on both ends.
func Bidirectional() EdgeOption { return func(e *Edge) { e.arrow = ArrowBoth } }

// Undirected draws the edge without arrowheads.
func Undirected() EdgeOption { return func(e *Edge) { e.arrow = ArrowNone } }

// EdgeAttr sets a raw Graphviz attribute on the edge (e.g. "penwidth").
func EdgeAttr(key, value string) EdgeOption {
	return func(e *Edge) {
		if e.attrs == nil {
			e.attrs = Attrs{}
		}
		e.attrs[key] = value
	}
}

// Connect appends a directed edge from src to dst. Both endpoints must be
// elements of d; handles from another diagram, or nil, fail with a
// dangling reference error.
func (d *Diagram) Connect(src, dst Connectable, opts ...EdgeOption) (*Edge, error) {
	return d.connect(src, dst, ArrowForward, opts)
}

// Link appends an undirected edge between a and b.
func (d *Diagram) Link(a, b Connectable, opts ...EdgeOption) (*Edge, error) {
	return d.connect(a, b, ArrowNone, opts)
}

// Chain connects consecutive elements with directed edges sharing opts:
// Chain(nil, a, b, c) creates a->b and b->c.
func (d *Diagram) Chain(opts []EdgeOption, elems ...Connectable) ([]*Edge, error) {
	if len(elems) < 2 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "chain needs at least two elements, got %d", len(elems))
	}
	for _, el := range elems {
		if err := d.checkEndpoint(el); err != nil {
			return nil, err
		}
	}
	edges := make([]*Edge, 0, len(elems)-1)
	for i := 1; i < len(elems); i++ {
		e, err := d.connect(elems[i-1], elems[i], ArrowForward, opts)
		if err != nil {
			return edges, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func (d *Diagram) connect(src, dst Connectable, arrow Arrow, opts []EdgeOption) (*Edge, error) {
	if d.closed {
		return nil, errs.New(errs.ErrCodeScope, "diagram %q is closed", d.name)
	}
	if err := d.checkEndpoint(src); err != nil {
		return nil, err
	}
	if err := d.checkEndpoint(dst); err != nil {
		return nil, err
	}

	e := &Edge{from: src, to: dst, arrow: arrow, style: StyleSolid}
	for _, opt := range opts {
		opt(e)
	}
	if !e.style.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "invalid edge style: %q", e.style)
	}
	if !e.arrow.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "invalid arrow: %q", e.arrow)
	}
	if err := e.attrs.validate(fmt.Sprintf("edge %q -> %q", src.Label(), dst.Label())); err != nil {
		return nil, err
	}
	d.edges = append(d.edges, e)
	return e, nil
}

func (d *Diagram) checkEndpoint(el Connectable) error {
	if isNil(el) {
		return errs.New(errs.ErrCodeDanglingReference, "edge endpoint is nil")
	}
	if !d.Contains(el) {
		return errs.New(errs.ErrCodeDanglingReference, "element %q is not registered in diagram %q", el.Label(), d.name)
	}
	return nil
}

// isNil catches typed nil pointers wrapped in the interface.
func isNil(el Connectable) bool {
	switch v := el.(type) {
	case nil:
		return true
	case *Node:
		return v == nil
	case *Cluster:
		return v == nil
	}
	return false
}
