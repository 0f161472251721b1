package document

import "testing"

func TestNewTreeHasOnlyRoot(t *testing.T) {
	tr := NewTree()
	kind, ok := tr.Kind(tr.RootID())
	if !ok || kind != NodeBranch {
		t.Fatalf("root kind = (%v,%v), want (Branch,true)", kind, ok)
	}
	children, _ := tr.Children(tr.RootID())
	if len(children) != 0 {
		t.Fatalf("fresh root has %d children, want 0", len(children))
	}
}

func TestNewLayerRootAndAbove(t *testing.T) {
	tr := NewTree()
	a := tr.NewLayerRoot()
	b, err := tr.NewLayerAbove(a)
	if err != nil {
		t.Fatal(err)
	}
	children, _ := tr.Children(tr.RootID())
	if len(children) != 2 || children[0] != a || children[1] != b {
		t.Fatalf("children = %v, want [%d %d]", children, a, b)
	}
}

func TestGroupLayersRejectsDifferentLevels(t *testing.T) {
	tr := NewTree()
	a := tr.NewLayerRoot()
	child, err := tr.NewLayerAbove(a)
	if err != nil {
		t.Fatal(err)
	}
	// Group `a` alone under a new branch, making it a grandchild of root
	// while `child` stays a direct child of root: the two are then on
	// different levels.
	group, err := tr.GroupLayers([]LayerID{a})
	if err != nil {
		t.Fatal(err)
	}
	_ = group
	if _, err := tr.GroupLayers([]LayerID{a, child}); err != ErrNotSameLevel {
		t.Fatalf("GroupLayers across levels = %v, want ErrNotSameLevel", err)
	}
}

func TestGroupLayersGroupsSiblings(t *testing.T) {
	tr := NewTree()
	a := tr.NewLayerRoot()
	b, _ := tr.NewLayerAbove(a)
	c, _ := tr.NewLayerAbove(b)

	groupID, err := tr.GroupLayers([]LayerID{a, c})
	if err != nil {
		t.Fatal(err)
	}
	kind, _ := tr.Kind(groupID)
	if kind != NodeBranch {
		t.Fatalf("group kind = %v, want Branch", kind)
	}
	groupChildren, _ := tr.Children(groupID)
	if len(groupChildren) != 2 || groupChildren[0] != a || groupChildren[1] != c {
		t.Fatalf("group children = %v, want [%d %d]", groupChildren, a, c)
	}
	rootChildren, _ := tr.Children(tr.RootID())
	if len(rootChildren) != 2 || rootChildren[1] != b {
		t.Fatalf("root children after grouping = %v, want group then %d", rootChildren, b)
	}
}

func TestFlattenLayersReplacesWithOneLeaf(t *testing.T) {
	tr := NewTree()
	a := tr.NewLayerRoot()
	b, _ := tr.NewLayerAbove(a)

	leaf, err := tr.FlattenLayers([]LayerID{a, b}, ImageHandle(99))
	if err != nil {
		t.Fatal(err)
	}
	kind, ok := tr.Kind(leaf)
	if !ok || kind != NodeLeaf {
		t.Fatalf("flattened kind = (%v,%v), want (Leaf,true)", kind, ok)
	}
	img, _ := tr.Image(leaf)
	if img != ImageHandle(99) {
		t.Fatalf("flattened image = %d, want 99", img)
	}
	rootChildren, _ := tr.Children(tr.RootID())
	if len(rootChildren) != 1 || rootChildren[0] != leaf {
		t.Fatalf("root children after flatten = %v, want [%d]", rootChildren, leaf)
	}
	if _, ok := tr.Kind(a); ok {
		t.Fatal("original layer a still present after flatten")
	}
}
