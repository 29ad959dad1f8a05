// Package dot serializes diagrams to Graphviz DOT.
//
// # Overview
//
// [ToDOT] walks a closed [diagram.Diagram] depth-first and produces a single
// digraph:
//
//   - graph, node and edge defaults (overridable per diagram)
//   - root-level nodes and clusters in insertion order, each cluster as a
//     nested "cluster_<id>" subgraph holding its children
//   - layout hints for clusters whose direction differs from the graph's
//   - every edge last, at the outermost scope, referencing element ids
//
// Icons are resolved through an [icons.Resolver] before anything is written,
// so an unknown icon fails the whole serialization with ICON_RESOLUTION and
// the layout engine is never invoked.
//
// # Capabilities
//
// Graphviz cannot attach an edge to a cluster directly. When the engine
// reports [Capabilities.ClusterEdges], an edge touching a cluster is drawn to
// a representative node inside it and clipped at the cluster border with
// lhead/ltail. Without that capability the cluster must have an explicit
// representative ([diagram.Cluster.SetRepresentative]); otherwise
// serialization fails with UNSUPPORTED rather than dropping the edge.
//
// # Direction
//
// DOT only honors rankdir at graph level. A cluster whose resolved direction
// is perpendicular to the graph's gets its direct nodes placed on one rank;
// one pointing the opposite way gets them chained by invisible edges in
// reverse order.
package dot
