// Package diagram provides the in-memory model for architecture diagrams.
//
// # Overview
//
// A [Diagram] owns a tree of [Cluster] groups and [Node] leaves plus a flat
// list of [Edge] connectors. Nodes and clusters both implement [Connectable],
// so either can be an edge endpoint. Edges live on the diagram, not on a
// cluster, because they routinely cross cluster boundaries.
//
// # Scopes
//
// There is no ambient "current diagram". Every construction call goes
// through an explicit scope handle: the *Diagram itself for root-level
// elements, or a *Cluster for nested ones. Scopes form a stack per diagram;
// only the innermost open scope accepts new children, and scopes must be
// closed in reverse order of opening.
//
// The preferred form is scoped acquisition, which always restores the
// enclosing scope, even when the callback fails or panics:
//
//	d, _ := diagram.New("Web Service", diagram.WithDirection(diagram.LeftToRight))
//	lb, _ := d.Node("lb", diagram.AWSNetwork, "elb")
//	_, err := d.Cluster("Services", func(c *diagram.Cluster) error {
//	    web, err := c.Node("web", diagram.AWSCompute, "ecs")
//	    if err != nil {
//	        return err
//	    }
//	    _, err = d.Connect(lb, web, diagram.Label("HTTP"))
//	    return err
//	})
//
// [Diagram.OpenCluster] and [Cluster.Close] are available when the scope
// cannot be expressed as a callback.
//
// # Finalization
//
// [Diagram.Close] freezes the diagram and hands it to the [Finalizer]
// supplied with [WithFinalizer], typically a renderer that serializes the
// graph to Graphviz DOT and writes an image. [Build] wraps New, the
// authoring callback and Close in one call.
//
// # Identity
//
// Element identities are deterministic UUIDs derived from the diagram name
// and creation order, never from labels. Two nodes with the same label are
// two distinct elements.
//
// # Concurrency
//
// A Diagram is not safe for concurrent use. Distinct diagrams share no state
// and can be authored from separate goroutines.
package diagram
