package dot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
)

var plain = icons.ResolverFunc(func(c diagram.Category, k string) (icons.Asset, error) {
	return icons.Asset{Category: c, Key: k}, nil
})

var clusterEdges = Options{Capabilities: Capabilities{ClusterEdges: true}, Engine: "test"}

func build(t *testing.T, name string, fn func(*diagram.Diagram) error, opts ...diagram.Option) *diagram.Diagram {
	t.Helper()
	d, err := diagram.Build(context.Background(), name, fn, opts...)
	if err != nil {
		t.Fatalf("Build(%q) error: %v", name, err)
	}
	return d
}

func node(t *testing.T, s interface {
	Node(string, diagram.Category, string, ...diagram.NodeOption) (*diagram.Node, error)
}, label string, opts ...diagram.NodeOption) *diagram.Node {
	t.Helper()
	n, err := s.Node(label, diagram.GenericCompute, "server", opts...)
	if err != nil {
		t.Fatalf("Node(%q) error: %v", label, err)
	}
	return n
}

func TestToDOT_Basic(t *testing.T) {
	var a, b *diagram.Node
	d := build(t, "Web", func(d *diagram.Diagram) error {
		a, b = node(t, d, "A"), node(t, d, "B")
		_, err := d.Connect(a, b)
		return err
	})

	got, err := ToDOT(d, plain, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}

	nodeAttrs := `style="rounded,filled", labelloc="c", tooltip="generic.compute/server"`
	want := strings.Join([]string{
		`digraph "Web" {`,
		`  graph [pad="2.0", splines="ortho", nodesep="0.60", ranksep="0.75", fontname="Sans-Serif", fontsize="15", fontcolor="#2D3436", rankdir="LR", label="Web"];`,
		`  node [shape="box", style="rounded", fixedsize="true", width="1.4", height="1.4", labelloc="b", imagescale="true", fontname="Sans-Serif", fontsize="13", fontcolor="#2D3436"];`,
		`  edge [color="#7B8894", fontname="Sans-Serif", fontsize="13", fontcolor="#2D3436"];`,
		``,
		fmt.Sprintf(`  "%s" [label="A", %s];`, a.ID(), nodeAttrs),
		fmt.Sprintf(`  "%s" [label="B", %s];`, b.ID(), nodeAttrs),
		``,
		fmt.Sprintf(`  "%s" -> "%s" [dir="forward"];`, a.ID(), b.ID()),
		`}`,
		``,
	}, "\n")

	if diff := cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n")); diff != "" {
		t.Errorf("ToDOT() mismatch (-want +got):\n%s", diff)
	}
}

func TestToDOT_RequiresClosedDiagram(t *testing.T) {
	d, err := diagram.New("Open")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ToDOT(d, plain, clusterEdges); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("ToDOT() error = %v, want SCOPE_ERROR", err)
	}
}

func TestToDOT_IconResolution(t *testing.T) {
	d := build(t, "Icons", func(d *diagram.Diagram) error {
		_, err := d.Node("mystery", diagram.AWSCompute, "quantum-annealer")
		return err
	})

	_, err := ToDOT(d, icons.Default(), clusterEdges)
	if !errs.Is(err, errs.ErrCodeIconResolution) {
		t.Fatalf("ToDOT() error = %v, want ICON_RESOLUTION", err)
	}
	if !strings.Contains(err.Error(), "mystery") {
		t.Errorf("error %q does not name the node", err)
	}

	if _, err := ToDOT(d, nil, clusterEdges); !errs.Is(err, errs.ErrCodeIconResolution) {
		t.Errorf("ToDOT(nil resolver) error = %v, want ICON_RESOLUTION", err)
	}
}

func TestToDOT_Clusters(t *testing.T) {
	d := build(t, "Nested", func(d *diagram.Diagram) error {
		node(t, d, "root")
		_, err := d.Cluster("outer", func(o *diagram.Cluster) error {
			node(t, o, "in outer")
			_, err := o.Cluster("inner", func(i *diagram.Cluster) error {
				node(t, i, "in inner")
				return nil
			})
			return err
		})
		return err
	})

	got, err := ToDOT(d, plain, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}

	if n := strings.Count(got, "subgraph "); n != 2 {
		t.Errorf("subgraph count = %d, want 2", n)
	}
	for _, c := range d.Clusters() {
		if !strings.Contains(got, fmt.Sprintf(`subgraph "cluster_%s" {`, c.ID())) {
			t.Errorf("missing subgraph for %q", c.Label())
		}
	}
	for _, color := range []string{clusterColors[0], clusterColors[1]} {
		if !strings.Contains(got, `bgcolor="`+color+`"`) {
			t.Errorf("missing depth color %s", color)
		}
	}
	if strings.Contains(got, "compound") {
		t.Error("compound set without cluster edges")
	}

	// Children are indented one level below their cluster.
	inner := d.Nodes()[2]
	if !strings.Contains(got, "\n      \""+inner.ID()+"\" [") {
		t.Errorf("inner node not nested at depth 3:\n%s", got)
	}
	root := d.Nodes()[0]
	if !strings.Contains(got, "\n  \""+root.ID()+"\" [") {
		t.Errorf("root node not at top level:\n%s", got)
	}
}

func TestToDOT_EdgesAfterClusters(t *testing.T) {
	d := build(t, "Order", func(d *diagram.Diagram) error {
		var a, b *diagram.Node
		_, err := d.Cluster("zone", func(c *diagram.Cluster) error {
			a, b = node(t, c, "A"), node(t, c, "B")
			_, err := c.Diagram().Connect(a, b)
			return err
		})
		return err
	})

	got, err := ToDOT(d, plain, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	closing := strings.LastIndex(got, "\n  }\n")
	arrow := strings.Index(got, `[dir="forward"]`)
	if closing < 0 || arrow < closing {
		t.Errorf("edge emitted inside a cluster:\n%s", got)
	}
}

func TestToDOT_ClusterEndpoints(t *testing.T) {
	var (
		src  *diagram.Node
		zone *diagram.Cluster
		rep  *diagram.Node
	)
	newDiagram := func(explicit bool) *diagram.Diagram {
		return build(t, "Endpoints", func(d *diagram.Diagram) error {
			src = node(t, d, "src")
			var err error
			zone, err = d.Cluster("zone", func(c *diagram.Cluster) error {
				node(t, c, "first")
				rep = node(t, c, "second")
				if explicit {
					return c.SetRepresentative(rep)
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = d.Connect(src, zone)
			return err
		})
	}

	t.Run("compound", func(t *testing.T) {
		d := newDiagram(false)
		got, err := ToDOT(d, plain, clusterEdges)
		if err != nil {
			t.Fatalf("ToDOT() error: %v", err)
		}
		first := zone.FirstNode()
		want := fmt.Sprintf(`"%s" -> "%s" [dir="forward", lhead="%s"]`, src.ID(), first.ID(), ClusterID(zone))
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in:\n%s", want, got)
		}
		if !strings.Contains(got, `compound="true"`) {
			t.Error("compound not enabled")
		}
	})

	t.Run("explicit representative", func(t *testing.T) {
		d := newDiagram(true)
		got, err := ToDOT(d, plain, clusterEdges)
		if err != nil {
			t.Fatalf("ToDOT() error: %v", err)
		}
		if !strings.Contains(got, fmt.Sprintf(`-> "%s"`, rep.ID())) {
			t.Errorf("edge not anchored on representative:\n%s", got)
		}
	})

	t.Run("unsupported without representative", func(t *testing.T) {
		d := newDiagram(false)
		_, err := ToDOT(d, plain, Options{Engine: "plain"})
		if !errs.Is(err, errs.ErrCodeUnsupported) {
			t.Errorf("ToDOT() error = %v, want UNSUPPORTED", err)
		}
	})

	t.Run("representative without capability", func(t *testing.T) {
		d := newDiagram(true)
		got, err := ToDOT(d, plain, Options{Engine: "plain"})
		if err != nil {
			t.Fatalf("ToDOT() error: %v", err)
		}
		if strings.Contains(got, "lhead") || strings.Contains(got, "compound") {
			t.Errorf("cluster clipping emitted without capability:\n%s", got)
		}
	})
}

func TestToDOT_EmptyClusterEndpoint(t *testing.T) {
	d := build(t, "Empty", func(d *diagram.Diagram) error {
		a := node(t, d, "A")
		c, err := d.Cluster("nothing", nil)
		if err != nil {
			return err
		}
		_, err = d.Connect(a, c)
		return err
	})
	if _, err := ToDOT(d, plain, clusterEdges); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ToDOT() error = %v, want UNSUPPORTED", err)
	}
}

func TestToDOT_DirectionHints(t *testing.T) {
	tests := []struct {
		name string
		dir  diagram.Direction
		want func(a, b string) []string
		none bool
	}{
		{
			name: "perpendicular",
			dir:  diagram.TopToBottom,
			want: func(a, b string) []string {
				return []string{
					fmt.Sprintf(`{ rank=same; "%s"; "%s"; }`, a, b),
					fmt.Sprintf(`"%s" -> "%s" [style="invis"]`, a, b),
				}
			},
		},
		{
			name: "opposite",
			dir:  diagram.RightToLeft,
			want: func(a, b string) []string {
				return []string{fmt.Sprintf(`"%s" -> "%s" [style="invis"]`, b, a)}
			},
		},
		{name: "same", dir: diagram.LeftToRight, none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a, b *diagram.Node
			d := build(t, "Hints", func(d *diagram.Diagram) error {
				_, err := d.Cluster("zone", func(c *diagram.Cluster) error {
					a, b = node(t, c, "A"), node(t, c, "B")
					return nil
				}, diagram.WithClusterDirection(tt.dir))
				return err
			}, diagram.WithDirection(diagram.LeftToRight))

			got, err := ToDOT(d, plain, clusterEdges)
			if err != nil {
				t.Fatalf("ToDOT() error: %v", err)
			}
			if tt.none {
				if strings.Contains(got, "invis") || strings.Contains(got, "rank=same") {
					t.Errorf("unexpected hints:\n%s", got)
				}
				return
			}
			for _, w := range tt.want(a.ID(), b.ID()) {
				if !strings.Contains(got, w) {
					t.Errorf("missing hint %s in:\n%s", w, got)
				}
			}
		})
	}
}

func TestToDOT_EdgeAttributes(t *testing.T) {
	d := build(t, "Edges", func(d *diagram.Diagram) error {
		a, b := node(t, d, "A"), node(t, d, "B")
		if _, err := d.Link(a, b, diagram.Dotted(), diagram.Label("OIDC"), diagram.Color("firebrick"), diagram.FontColor("red")); err != nil {
			return err
		}
		_, err := d.Connect(a, b, diagram.Reverse(), diagram.EdgeAttr("penwidth", "2"))
		return err
	})

	got, err := ToDOT(d, plain, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	for _, want := range []string{
		`[dir="none", label="OIDC", style="dotted", color="firebrick", fontcolor="red"]`,
		`[dir="back", penwidth="2"]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in:\n%s", want, got)
		}
	}
}

func TestToDOT_Overrides(t *testing.T) {
	d := build(t, "Overrides", func(d *diagram.Diagram) error {
		node(t, d, "A", diagram.NodeAttr("fillcolor", "gold"), diagram.NodeAttr("width", "2"))
		return nil
	},
		diagram.WithGraphAttr("rankdir", "TB"),
		diagram.WithGraphAttr("bgcolor", "transparent"),
		diagram.WithEdgeAttr("color", "black"),
	)

	got, err := ToDOT(d, plain, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	for _, want := range []string{
		`rankdir="TB", label="Overrides", bgcolor="transparent"]`,
		`edge [color="black"`,
		`fillcolor="gold"`,
		`width="2"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in:\n%s", want, got)
		}
	}
	if strings.Contains(got, `rankdir="LR"`) {
		t.Error("override did not replace the default")
	}
}

func TestToDOT_Images(t *testing.T) {
	withPath := icons.ResolverFunc(func(c diagram.Category, k string) (icons.Asset, error) {
		return icons.Asset{Category: c, Key: k, Path: "/assets/" + k + ".png", Color: "#ED7100"}, nil
	})
	d := build(t, "Images", func(d *diagram.Diagram) error {
		node(t, d, "ECS\nCluster")
		return nil
	})

	got, err := ToDOT(d, withPath, Options{Capabilities: Capabilities{Images: true}})
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	want := `[label="ECS\nCluster", image="/assets/server.png", shape="none", height="2.3"]`
	if !strings.Contains(got, want) {
		t.Errorf("missing %s in:\n%s", want, got)
	}

	got, err = ToDOT(d, withPath, clusterEdges)
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	if strings.Contains(got, "image=") {
		t.Error("image emitted without the Images capability")
	}
	if !strings.Contains(got, `fillcolor="#ED7100"`) {
		t.Errorf("category color missing:\n%s", got)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"two\nlines", `"two\nlines"`},
		{`back\slash`, `"back\\slash"`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
