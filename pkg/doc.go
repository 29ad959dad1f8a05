// Package pkg holds the archviz libraries.
//
// # Overview
//
// archviz describes cloud architecture diagrams as code and hands them to
// Graphviz for layout. The libraries are split by concern:
//
//  1. [diagram] - the model: nodes, clusters, edges and the scope rules
//  2. [icons] - icon catalog and the Resolver used by the serializer
//  3. [render/dot] - deterministic DOT serialization
//  4. [render] - layout engines, artifact writing, the Renderer finalizer
//  5. [cache] - artifact caches (file, Redis, none)
//  6. [document] - TOML/YAML documents replayed through the authoring API
//  7. [observability] - hooks for metrics around rendering, caching and HTTP
//  8. [errors] - coded errors shared by every package
//
// # Data flow
//
//	document (TOML/YAML) or Go code
//	         ↓
//	    [diagram] Build / Close
//	         ↓  Finalizer
//	    [render] Renderer ── [cache] lookup
//	         ↓
//	    [render/dot] ToDOT ── [icons] Resolve
//	         ↓
//	    Engine (go-graphviz or dot) → PNG/SVG/JPG/PDF/DOT
//
// # Quick start
//
//	r := &render.Renderer{
//	    Engine:   render.NewGraphvizEngine(),
//	    Resolver: icons.Default(),
//	}
//	_, err := diagram.Build(ctx, "Web Service", func(d *diagram.Diagram) error {
//	    lb, err := d.Node("ALB", diagram.AWSNetwork, "alb")
//	    if err != nil {
//	        return err
//	    }
//	    web, err := d.Node("web", diagram.AWSCompute, "ec2")
//	    if err != nil {
//	        return err
//	    }
//	    _, err = d.Connect(lb, web)
//	    return err
//	}, diagram.WithFormats(diagram.FormatSVG), diagram.WithFinalizer(r))
//
// Closing the diagram renders web_service.svg into the working directory.
//
// [diagram]: github.com/matzehuels/archviz/pkg/diagram
// [icons]: github.com/matzehuels/archviz/pkg/icons
// [render/dot]: github.com/matzehuels/archviz/pkg/render/dot
// [render]: github.com/matzehuels/archviz/pkg/render
// [cache]: github.com/matzehuels/archviz/pkg/cache
// [document]: github.com/matzehuels/archviz/pkg/document
// [observability]: github.com/matzehuels/archviz/pkg/observability
// [errors]: github.com/matzehuels/archviz/pkg/errors
package pkg
