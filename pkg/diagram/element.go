package diagram

import (
	"maps"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Connectable is an element that can be an edge endpoint: a [*Node] or a
// [*Cluster]. The interface is sealed; only this package implements it.
type Connectable interface {
	// ID returns the element's unique identity within its diagram.
	ID() string
	// Label returns the display label.
	Label() string
	// Parent returns the enclosing cluster, or nil at root scope.
	Parent() *Cluster
	// Diagram returns the diagram the element was created in.
	Diagram() *Diagram

	base() *element
}

// element holds the state shared by nodes and clusters.
type element struct {
	id      string
	label   string
	parent  *Cluster
	diagram *Diagram
}

func (e *element) ID() string        { return e.id }
func (e *element) Label() string     { return e.label }
func (e *element) Parent() *Cluster  { return e.parent }
func (e *element) Diagram() *Diagram { return e.diagram }
func (e *element) base() *element    { return e }

// Node is a leaf element: one service, actor or resource, drawn with the
// icon identified by its category and icon key.
type Node struct {
	element
	category Category
	icon     string
	attrs    Attrs
}

// Category returns the icon category.
func (n *Node) Category() Category { return n.category }

// Icon returns the icon key within the category.
func (n *Node) Icon() string { return n.icon }

// Attrs returns a copy of the raw Graphviz attributes set on the node.
func (n *Node) Attrs() Attrs { return maps.Clone(n.attrs) }

// NodeOption configures a node at construction.
type NodeOption func(*Node)

// NodeAttr sets a raw Graphviz attribute on the node (e.g. "tooltip").
func NodeAttr(key, value string) NodeOption {
	return func(n *Node) {
		if n.attrs == nil {
			n.attrs = Attrs{}
		}
		n.attrs[key] = value
	}
}

// Cluster is a named, nestable group of nodes and clusters.
//
// A cluster accepts children only while it is the innermost open scope of
// its diagram. Once closed its child list is frozen.
type Cluster struct {
	element
	direction      Direction
	attrs          Attrs
	children       []Connectable
	representative *Node
	depth          int
	closed         bool
}

// ClusterOption configures a cluster at construction.
type ClusterOption func(*Cluster)

// WithClusterDirection overrides the layout direction for the cluster's
// children. Nested clusters without their own override inherit it.
func WithClusterDirection(d Direction) ClusterOption {
	return func(c *Cluster) { c.direction = d }
}

// ClusterAttr sets a raw Graphviz attribute on the cluster subgraph
// (e.g. "bgcolor").
func ClusterAttr(key, value string) ClusterOption {
	return func(c *Cluster) {
		if c.attrs == nil {
			c.attrs = Attrs{}
		}
		c.attrs[key] = value
	}
}

// Children returns the cluster's direct children in insertion order.
func (c *Cluster) Children() []Connectable { return append([]Connectable(nil), c.children...) }

// Depth returns the nesting depth: 1 for a root-level cluster.
func (c *Cluster) Depth() int { return c.depth }

// Closed reports whether the cluster's scope has been closed.
func (c *Cluster) Closed() bool { return c.closed }

// Attrs returns a copy of the raw Graphviz attributes set on the cluster.
func (c *Cluster) Attrs() Attrs { return maps.Clone(c.attrs) }

// DirectionOverride returns the cluster's own direction and whether one was set.
func (c *Cluster) DirectionOverride() (Direction, bool) {
	return c.direction, c.direction != ""
}

// Direction resolves the layout direction for the cluster's children:
// the innermost override on the path to the root wins, falling back to the
// diagram's global direction.
func (c *Cluster) Direction() Direction {
	for s := c; s != nil; s = s.parent {
		if s.direction != "" {
			return s.direction
		}
	}
	return c.diagram.direction
}

// Ancestor reports whether c encloses el at any depth.
func (c *Cluster) Ancestor(el Connectable) bool {
	if el == nil {
		return false
	}
	for p := el.Parent(); p != nil; p = p.parent {
		if p == c {
			return true
		}
	}
	return false
}

// SetRepresentative designates the node that stands in for the cluster when
// the cluster is used as an edge endpoint. n must be nested inside c.
func (c *Cluster) SetRepresentative(n *Node) error {
	if c.diagram.closed {
		return errs.New(errs.ErrCodeScope, "diagram %q is closed", c.diagram.name)
	}
	if n == nil || !c.diagram.Contains(n) {
		return errs.New(errs.ErrCodeDanglingReference, "representative for cluster %q is not registered in diagram %q", c.label, c.diagram.name)
	}
	if !c.Ancestor(n) {
		return errs.New(errs.ErrCodeInvalidInput, "node %q is not inside cluster %q", n.label, c.label)
	}
	c.representative = n
	return nil
}

// Representative returns the explicitly designated representative node,
// or nil when none was set.
func (c *Cluster) Representative() *Node { return c.representative }

// FirstNode returns the first node found depth-first in insertion order,
// or nil when the cluster contains no nodes at any depth.
func (c *Cluster) FirstNode() *Node {
	for _, child := range c.children {
		switch el := child.(type) {
		case *Node:
			return el
		case *Cluster:
			if n := el.FirstNode(); n != nil {
				return n
			}
		}
	}
	return nil
}

// Node creates a leaf under this cluster. The cluster must be the innermost
// open scope of its diagram.
func (c *Cluster) Node(label string, category Category, icon string, opts ...NodeOption) (*Node, error) {
	return c.diagram.addNode(c, label, category, icon, opts)
}

// OpenCluster opens a nested cluster. The caller must [Cluster.Close] it
// before closing c.
func (c *Cluster) OpenCluster(label string, opts ...ClusterOption) (*Cluster, error) {
	return c.diagram.openCluster(c, label, opts)
}

// Cluster opens a nested cluster, runs fn with it, and closes it.
// The nested scope is closed on every exit path, including a panic in fn.
func (c *Cluster) Cluster(label string, fn func(*Cluster) error, opts ...ClusterOption) (*Cluster, error) {
	return c.diagram.withCluster(c, label, fn, opts)
}

// Close closes the cluster's scope, restoring its parent as the active
// scope. Closing a cluster that is not the innermost open scope fails with
// a scope error.
func (c *Cluster) Close() error {
	d := c.diagram
	if c.closed {
		return errs.New(errs.ErrCodeScope, "cluster %q is already closed", c.label)
	}
	if d.closed {
		return errs.New(errs.ErrCodeScope, "diagram %q is closed", d.name)
	}
	if top := d.active(); top != c {
		return errs.New(errs.ErrCodeScope, "cluster %q closed out of order: innermost open scope is %q", c.label, top.label)
	}
	d.stack = d.stack[:len(d.stack)-1]
	c.closed = true
	return nil
}

var (
	_ Connectable = (*Node)(nil)
	_ Connectable = (*Cluster)(nil)
)
