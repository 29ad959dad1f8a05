// Package document describes diagrams declaratively in TOML or YAML.
//
// A document mirrors the authoring API: a diagram name and options, nodes
// and clusters (which nest), and edges that refer to nodes or clusters by a
// document-local id:
//
//	name = "Web Service"
//	direction = "LR"
//
//	[[nodes]]
//	id = "lb"
//	label = "Load Balancer"
//	category = "aws.network"
//	icon = "alb"
//
//	[[clusters]]
//	label = "Workers"
//	  [[clusters.nodes]]
//	  id = "web"
//	  category = "aws.compute"
//	  icon = "ec2"
//
//	[[edges]]
//	from = "lb"
//	to = "web"
//
// [Document.Build] replays the document through [diagram.Build]. Within each
// scope nodes are created before nested clusters, each list in document
// order, so a root node declared after a cluster still precedes it. Unknown ids fail with DANGLING_REFERENCE, duplicate ids with
// INVALID_INPUT; structural problems found by [Document.Validate] are
// INVALID_DOCUMENT.
package document
