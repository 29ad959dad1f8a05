// Package render turns closed diagrams into image files.
//
// # Overview
//
// A [Renderer] serializes a diagram with [dot.ToDOT], hands the DOT text to
// an [Engine] once per requested format, and then writes the results
// atomically to <Dir>/<filename>.<ext>. Artifacts are cached by the hash of the DOT
// text, the format and the engine name, so re-rendering an unchanged
// diagram never invokes the layout engine.
//
//	r := &render.Renderer{
//		Engine:   render.NewGraphvizEngine(),
//		Resolver: icons.Default(),
//		Dir:      "out",
//	}
//	outputs, err := r.Render(ctx, d)
//
// A Renderer is also a [diagram.Finalizer], so it can be attached with
// [diagram.WithFinalizer] and run when the diagram is closed.
//
// # Engines
//
//   - [GraphvizEngine] runs Graphviz in-process (github.com/goccy/go-graphviz).
//     It needs no system packages but cannot read icon image files.
//   - [ExecEngine] pipes DOT to the `dot` binary and supports node images.
//
// PDF output from the in-process engine goes through SVG and rsvg-convert
// (see [ToPDF]).
//
// # Errors
//
// Engine failures, empty engine output and file system errors are reported
// as RENDER_ERROR. Files are only written once every format has rendered,
// so a failed render leaves no partial output behind.
//
// [dot.ToDOT]: github.com/matzehuels/archviz/pkg/render/dot.ToDOT
package render
