package diagram

import (
	"maps"
	"slices"
	"strings"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

// Direction is a Graphviz rank direction.
type Direction string

const (
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
)

// ParseDirection parses a direction name, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid direction: %q (must be TB, BT, LR or RL)", s)
	}
	return d, nil
}

// Valid reports whether d is one of the four rank directions.
func (d Direction) Valid() bool {
	switch d {
	case TopToBottom, BottomToTop, LeftToRight, RightToLeft:
		return true
	}
	return false
}

// Horizontal reports whether ranks advance along the x axis.
func (d Direction) Horizontal() bool { return d == LeftToRight || d == RightToLeft }

// Perpendicular reports whether d and o advance along different axes.
func (d Direction) Perpendicular(o Direction) bool { return d.Horizontal() != o.Horizontal() }

// Opposite reports whether d and o share an axis but point opposite ways.
func (d Direction) Opposite(o Direction) bool { return d != o && !d.Perpendicular(o) }

// EdgeStyle is the line style of an edge.
type EdgeStyle string

const (
	StyleSolid  EdgeStyle = "solid"
	StyleDashed EdgeStyle = "dashed"
	StyleDotted EdgeStyle = "dotted"
	StyleBold   EdgeStyle = "bold"
)

// ParseEdgeStyle parses a line style. The empty string is solid.
func ParseEdgeStyle(s string) (EdgeStyle, error) {
	if s == "" {
		return StyleSolid, nil
	}
	st := EdgeStyle(strings.ToLower(s))
	if !st.Valid() {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid edge style: %q (must be solid, dashed, dotted or bold)", s)
	}
	return st, nil
}

// Valid reports whether s is a known line style.
func (s EdgeStyle) Valid() bool {
	switch s {
	case StyleSolid, StyleDashed, StyleDotted, StyleBold:
		return true
	}
	return false
}

// Arrow selects which ends of an edge carry arrowheads.
type Arrow string

const (
	ArrowForward Arrow = "forward" // source -> target
	ArrowBack    Arrow = "back"    // source <- target
	ArrowBoth    Arrow = "both"    // source <-> target
	ArrowNone    Arrow = "none"    // undirected
)

// ParseArrow parses an arrow mode. The empty string is forward.
func ParseArrow(s string) (Arrow, error) {
	if s == "" {
		return ArrowForward, nil
	}
	a := Arrow(strings.ToLower(s))
	if !a.Valid() {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid arrow: %q (must be forward, back, both or none)", s)
	}
	return a, nil
}

// Valid reports whether a is a known arrow mode.
func (a Arrow) Valid() bool {
	switch a {
	case ArrowForward, ArrowBack, ArrowBoth, ArrowNone:
		return true
	}
	return false
}

// CurveStyle controls how Graphviz routes edges (the "splines" attribute).
type CurveStyle string

const (
	CurveOrtho    CurveStyle = "ortho"
	CurveCurved   CurveStyle = "curved"
	CurveSpline   CurveStyle = "spline"
	CurvePolyline CurveStyle = "polyline"
)

// Valid reports whether c is a known curve style.
func (c CurveStyle) Valid() bool {
	switch c {
	case CurveOrtho, CurveCurved, CurveSpline, CurvePolyline:
		return true
	}
	return false
}

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatJPG Format = "jpg"
	FormatPDF Format = "pdf"
	FormatDOT Format = "dot"
)

// ParseFormat parses an output format name. "jpeg" is accepted for jpg.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "jpeg" {
		f = FormatJPG
	}
	if !f.Valid() {
		return "", errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be png, svg, jpg, pdf or dot)", s)
	}
	return f, nil
}

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatSVG, FormatJPG, FormatPDF, FormatDOT:
		return true
	}
	return false
}

// Category identifies the family a node's icon belongs to, as a dotted
// provider path such as "aws.compute" or "onprem.ci".
type Category string

// Categories shipped with the default icon catalog.
const (
	AWSCompute     Category = "aws.compute"
	AWSDevtools    Category = "aws.devtools"
	AWSIntegration Category = "aws.integration"
	AWSManagement  Category = "aws.management"
	AWSNetwork     Category = "aws.network"
	AWSStorage     Category = "aws.storage"
	OnpremCI       Category = "onprem.ci"
	OnpremClient   Category = "onprem.client"
	OnpremVCS      Category = "onprem.vcs"
	GenericCompute Category = "generic.compute"
	GenericStorage Category = "generic.storage"
	GenericNetwork Category = "generic.network"
)

// Provider returns the part of the category before the first dot, or the
// whole category when it has no provider prefix.
func (c Category) Provider() string {
	p, _, _ := strings.Cut(string(c), ".")
	return p
}

// Attrs holds raw Graphviz attributes passed through to the serializer.
type Attrs map[string]string


// validate rejects attribute names that are not DOT identifiers. what
// names the owner in the error, e.g. `node "web"`.
func (a Attrs) validate(what string) error {
	for _, k := range slices.Sorted(maps.Keys(a)) {
		if err := errs.ValidateAttrKey(k); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "%s", what)
		}
	}
	return nil
}
