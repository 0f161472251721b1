package frame

import (
	"testing"

	"github.com/glaphica/engine/document"
	"github.com/glaphica/engine/tileatlas"
)

func newTestPlanner(t *testing.T) (*Planner, *document.Document, *tileatlas.Atlas) {
	t.Helper()
	doc := document.New()
	atlas := newTestAtlas(t)
	fs := NewFrameSync()
	groups := NewGroupCache(newTestAtlas(t))
	leaves := NewLeafCache()
	p := NewPlanner(doc, atlas, fs, groups, leaves, 4, 4)
	return p, doc, atlas
}

func TestPlannerFirstPlanFullyRebuildsEveryLeaf(t *testing.T) {
	p, doc, _ := newTestPlanner(t)
	leaf := doc.Tree().NewLayerRoot()

	plan, commit, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit()

	if plan.Root.Kind != document.NodeBranch {
		t.Fatalf("root kind = %v, want Branch", plan.Root.Kind)
	}
	if len(plan.Root.Group.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(plan.Root.Group.Children))
	}
	child := plan.Root.Group.Children[0]
	if child.Kind != document.NodeLeaf || child.Leaf.LayerID != leaf {
		t.Fatalf("child = %+v, want leaf %d", child, leaf)
	}
	if !child.Leaf.FullRebuild {
		t.Fatal("expected first plan to fully rebuild a leaf with no prior cache")
	}
}

func TestPlannerSecondPlanReusesCleanGroup(t *testing.T) {
	p, doc, _ := newTestPlanner(t)
	doc.Tree().NewLayerRoot()

	_, commit1, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit1()
	// The executor's composite pass fills the group cache for a rerendered
	// group; stand in for it here.
	p.groups.Put(doc.Tree().RootID(), document.BlendNormal, nil, nil)

	plan2, _, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if plan2.Root.Group.Action != GroupUseCache {
		t.Fatalf("second plan action = %v, want UseCache (nothing changed since commit)", plan2.Root.Group.Action)
	}
}

func TestPlannerForceGroupRerenderNextFrame(t *testing.T) {
	p, doc, _ := newTestPlanner(t)
	doc.Tree().NewLayerRoot()

	_, commit1, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit1()
	// The executor's composite pass fills the group cache for a rerendered
	// group; stand in for it here.
	p.groups.Put(doc.Tree().RootID(), document.BlendNormal, nil, nil)

	p.ForceGroupRerenderNextFrame()
	plan2, commit2, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit2()
	if plan2.Root.Group.Action != GroupRerender {
		t.Fatalf("forced plan action = %v, want Rerender", plan2.Root.Group.Action)
	}

	plan3, _, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if plan3.Root.Group.Action != GroupUseCache {
		t.Fatal("expected force-rerender to be a one-shot, not sticky across frames")
	}
}

func TestPlannerDirtyLayerTriggersGroupRerender(t *testing.T) {
	p, doc, _ := newTestPlanner(t)
	leaf := doc.Tree().NewLayerRoot()

	_, commit1, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit1()

	if err := doc.MarkLayerDirty(leaf, document.Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}); err != nil {
		t.Fatal(err)
	}

	plan2, _, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if plan2.Root.Group.Action != GroupRerender {
		t.Fatalf("action after marking a leaf dirty = %v, want Rerender", plan2.Root.Group.Action)
	}
	child := plan2.Root.Group.Children[0]
	if child.Leaf.FullRebuild {
		t.Fatal("expected a small dirty rect to trigger a partial rebuild, not full")
	}
	if len(child.Leaf.PartialTiles) == 0 {
		t.Fatal("expected PartialTiles to name the dirtied tile")
	}
}

func TestPlannerDiscardedCommitReplansSameDirtyState(t *testing.T) {
	p, doc, _ := newTestPlanner(t)
	leaf := doc.Tree().NewLayerRoot()

	_, commit1, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	commit1()

	if err := doc.MarkLayerDirty(leaf, document.Rect{MinX: 0, MinY: 0, MaxX: 8, MaxY: 8}); err != nil {
		t.Fatal(err)
	}

	// Plan but never call commit — the dirty-tracking advance must not apply.
	plan2, _, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if plan2.Root.Group.Action != GroupRerender {
		t.Fatal("expected the dirty layer to still force a rerender on the discarded plan")
	}

	plan3, _, err := p.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if plan3.Root.Group.Action != GroupRerender {
		t.Fatal("expected re-planning after a discarded commit to see the same dirty state again")
	}
}
