package dot_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/archviz/pkg/diagram"
	"github.com/matzehuels/archviz/pkg/icons"
	"github.com/matzehuels/archviz/pkg/render/dot"
)

func ExampleToDOT() {
	d, err := diagram.Build(context.Background(), "Web Service", func(d *diagram.Diagram) error {
		lb, err := d.Node("lb", diagram.AWSNetwork, "alb")
		if err != nil {
			return err
		}
		web, err := d.Node("web", diagram.AWSCompute, "ec2")
		if err != nil {
			return err
		}
		_, err = d.Connect(lb, web)
		return err
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	out, err := dot.ToDOT(d, icons.Default(), dot.Options{
		Capabilities: dot.Capabilities{ClusterEdges: true},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(strings.SplitN(out, "\n", 2)[0])
	fmt.Println(strings.Count(out, "->"), "edge")
	// Output:
	// digraph "Web Service" {
	// 1 edge
}

func ExampleToDOT_unknownIcon() {
	d, _ := diagram.Build(context.Background(), "Broken", func(d *diagram.Diagram) error {
		_, err := d.Node("x", diagram.AWSCompute, "mainframe")
		return err
	})

	_, err := dot.ToDOT(d, icons.Default(), dot.Options{})
	fmt.Println(err != nil)
	// Output:
	// true
}
