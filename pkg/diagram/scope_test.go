package diagram

import (
	"context"
	"errors"
	"testing"

	errs "github.com/matzehuels/archviz/pkg/errors"
)

func TestClusterInsertionOrder(t *testing.T) {
	d := mustNew(t, "X")
	c, err := d.Cluster("zone", func(c *Cluster) error {
		for _, l := range []string{"A", "B", "C"} {
			mustNode(t, c, l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	children := c.Children()
	for i, want := range []string{"A", "B", "C"} {
		if children[i].Label() != want {
			t.Errorf("Children()[%d] = %q, want %q", i, children[i].Label(), want)
		}
		if children[i].Parent() != c {
			t.Errorf("Children()[%d].Parent() is not the cluster", i)
		}
	}
}

func TestClusterFrozenAfterClose(t *testing.T) {
	d := mustNew(t, "X")
	c, err := d.OpenCluster("zone")
	if err != nil {
		t.Fatalf("OpenCluster() error: %v", err)
	}
	mustNode(t, c, "A")
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, err := c.Node("late", GenericCompute, "server"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Node() on closed cluster error = %v, want SCOPE_ERROR", err)
	}
	if _, err := c.OpenCluster("late"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("OpenCluster() on closed cluster error = %v, want SCOPE_ERROR", err)
	}
	if err := c.Close(); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("second Close() error = %v, want SCOPE_ERROR", err)
	}
	if len(c.Children()) != 1 {
		t.Errorf("len(Children()) = %d, want 1", len(c.Children()))
	}
}

func TestOnlyInnermostScopeIsActive(t *testing.T) {
	d := mustNew(t, "X")
	outer, _ := d.OpenCluster("outer")
	inner, err := outer.OpenCluster("inner")
	if err != nil {
		t.Fatalf("OpenCluster() error: %v", err)
	}

	if _, err := d.Node("root", GenericCompute, "server"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Node() on root while clusters open error = %v, want SCOPE_ERROR", err)
	}
	if _, err := outer.Node("outer", GenericCompute, "server"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Node() on outer while inner open error = %v, want SCOPE_ERROR", err)
	}
	if _, err := inner.Node("inner", GenericCompute, "server"); err != nil {
		t.Errorf("Node() on innermost scope error = %v", err)
	}
}

func TestCloseOutOfOrder(t *testing.T) {
	d := mustNew(t, "X")
	outer, _ := d.OpenCluster("outer")
	inner, _ := outer.OpenCluster("inner")

	if err := outer.Close(); !errs.Is(err, errs.ErrCodeScope) {
		t.Fatalf("outer.Close() before inner error = %v, want SCOPE_ERROR", err)
	}
	if outer.Closed() {
		t.Error("outer closed despite the failed Close")
	}

	if err := inner.Close(); err != nil {
		t.Fatalf("inner.Close() error: %v", err)
	}
	if err := outer.Close(); err != nil {
		t.Fatalf("outer.Close() error: %v", err)
	}
	if _, err := d.Node("root", GenericCompute, "server"); err != nil {
		t.Errorf("root scope not restored: %v", err)
	}
}

func TestScopedClusterRestoresOnError(t *testing.T) {
	d := mustNew(t, "X")
	boom := errors.New("boom")

	c, err := d.Cluster("failing", func(c *Cluster) error {
		mustNode(t, c, "A")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Cluster() error = %v, want %v", err, boom)
	}
	if !c.Closed() {
		t.Error("cluster left open after callback error")
	}
	if _, err := d.Node("after", GenericCompute, "server"); err != nil {
		t.Errorf("root scope not restored after error: %v", err)
	}
}

func TestScopedClusterRestoresOnPanic(t *testing.T) {
	d := mustNew(t, "X")
	var c *Cluster

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_, _ = d.Cluster("panicking", func(cl *Cluster) error {
			c = cl
			panic("authoring bug")
		})
	}()

	if c == nil || !c.Closed() {
		t.Fatal("cluster left open after panic")
	}
	if _, err := d.Node("after", GenericCompute, "server"); err != nil {
		t.Errorf("root scope not restored after panic: %v", err)
	}
}

func TestScopedClusterReportsLeakedScope(t *testing.T) {
	d := mustNew(t, "X")
	var leaked *Cluster

	_, err := d.Cluster("outer", func(c *Cluster) error {
		var err error
		leaked, err = c.OpenCluster("forgotten")
		return err
	})
	if !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Cluster() error = %v, want SCOPE_ERROR for leaked scope", err)
	}
	if !leaked.Closed() {
		t.Error("leaked scope not closed by unwind")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("Close() after unwind error: %v", err)
	}
}

func TestClosedDiagramRejectsConstruction(t *testing.T) {
	d := mustNew(t, "X")
	a := mustNode(t, d, "A")
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, err := d.Node("B", GenericCompute, "server"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Node() after Close error = %v, want SCOPE_ERROR", err)
	}
	if _, err := d.OpenCluster("C"); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("OpenCluster() after Close error = %v, want SCOPE_ERROR", err)
	}
	if _, err := d.Connect(a, a); !errs.Is(err, errs.ErrCodeScope) {
		t.Errorf("Connect() after Close error = %v, want SCOPE_ERROR", err)
	}
}

func TestClusterTreeHasNoCycles(t *testing.T) {
	d := mustNew(t, "X")
	_, err := d.Cluster("a", func(a *Cluster) error {
		_, err := a.Cluster("b", func(b *Cluster) error {
			_, err := b.Cluster("c", nil)
			return err
		})
		return err
	})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	for _, c := range d.Clusters() {
		if c.Ancestor(c) {
			t.Errorf("cluster %q is its own ancestor", c.Label())
		}
		seen := map[*Cluster]bool{}
		for p := c.Parent(); p != nil; p = p.Parent() {
			if seen[p] {
				t.Fatalf("cycle above cluster %q", c.Label())
			}
			seen[p] = true
		}
	}
}

func TestDirectionResolution(t *testing.T) {
	d := mustNew(t, "X", WithDirection(LeftToRight))

	var inherit, override, nested *Cluster
	_, err := d.Cluster("inherit", func(c *Cluster) error {
		inherit = c
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Cluster("override", func(c *Cluster) error {
		override = c
		nested, err = c.Cluster("nested", nil)
		return err
	}, WithClusterDirection(TopToBottom))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		cluster *Cluster
		want    Direction
	}{
		{inherit, LeftToRight},
		{override, TopToBottom},
		{nested, TopToBottom},
	}
	for _, tt := range tests {
		if got := tt.cluster.Direction(); got != tt.want {
			t.Errorf("%s.Direction() = %v, want %v", tt.cluster.Label(), got, tt.want)
		}
	}
	if _, ok := nested.DirectionOverride(); ok {
		t.Error("nested cluster reports an override it never set")
	}
}

func TestInvalidClusterDirection(t *testing.T) {
	d := mustNew(t, "X")
	if _, err := d.OpenCluster("bad", WithClusterDirection("sideways")); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("OpenCluster() error = %v, want INVALID_INPUT", err)
	}
	if _, err := d.Node("root", GenericCompute, "server"); err != nil {
		t.Errorf("failed OpenCluster left a scope on the stack: %v", err)
	}
}

func TestRepresentative(t *testing.T) {
	d := mustNew(t, "X")
	outside := mustNode(t, d, "outside")

	var first, second *Node
	c, err := d.Cluster("zone", func(c *Cluster) error {
		_, err := c.Cluster("inner", func(in *Cluster) error {
			first = mustNode(t, in, "first")
			return nil
		})
		second = mustNode(t, c, "second")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if c.Representative() != nil {
		t.Error("Representative() set without SetRepresentative")
	}
	if c.FirstNode() != first {
		t.Errorf("FirstNode() = %v, want depth-first %q", c.FirstNode(), "first")
	}
	if err := c.SetRepresentative(outside); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("SetRepresentative(outside) error = %v, want INVALID_INPUT", err)
	}
	if err := c.SetRepresentative(second); err != nil {
		t.Fatalf("SetRepresentative(second) error: %v", err)
	}
	if c.Representative() != second {
		t.Error("Representative() did not return the designated node")
	}

	other := mustNew(t, "Other")
	foreign := mustNode(t, other, "foreign")
	if err := c.SetRepresentative(foreign); !errs.Is(err, errs.ErrCodeDanglingReference) {
		t.Errorf("SetRepresentative(foreign) error = %v, want DANGLING_REFERENCE", err)
	}
}
