package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cat(name string, parent *Category) *Category {
	c := &Category{ID: uuid.New(), Name: name}
	if parent != nil {
		id := parent.ID
		c.ParentID = &id
	}
	return c
}

func names(nodes []*CategoryNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuildHierarchy_KeepsInputOrder(t *testing.T) {
	clothing := cat("Clothing", nil)
	shoes := cat("Shoes", nil)
	shirts := cat("Shirts", clothing)
	boots := cat("Boots", shoes)
	pants := cat("Pants", clothing)

	// children listed before their parent still attach
	flat := []*Category{shirts, clothing, boots, shoes, pants}

	forest := BuildHierarchy(flat).Forest()

	require.Len(t, forest, 2)
	assert.Equal(t, []string{"Clothing", "Shoes"}, names(forest))
	assert.Equal(t, []string{"Shirts", "Pants"}, names(forest[0].Children))
	assert.Equal(t, []string{"Boots"}, names(forest[1].Children))
	assert.Empty(t, forest[1].Children[0].Children)
	assert.NotNil(t, forest[1].Children[0].Children)
}

func TestBuildHierarchy_Deterministic(t *testing.T) {
	a := cat("A", nil)
	b := cat("B", a)
	c := cat("C", a)
	d := cat("D", b)
	flat := []*Category{a, b, c, d}

	first := BuildHierarchy(flat).Forest()
	second := BuildHierarchy(flat).Forest()

	assert.Equal(t, first, second)
}

func TestBuildHierarchy_EveryRecordOnce(t *testing.T) {
	a := cat("A", nil)
	b := cat("B", a)
	c := cat("C", b)
	flat := []*Category{c, b, a}

	h := BuildHierarchy(flat)

	assert.Equal(t, 3, h.Len())
	assert.Len(t, h.Categories(), 3)
}

func TestBuildHierarchy_PromotesOrphans(t *testing.T) {
	missing := uuid.New()
	root := cat("Root", nil)
	orphan := &Category{ID: uuid.New(), Name: "Orphan", ParentID: &missing}
	child := cat("Child", orphan)

	forest := BuildHierarchy([]*Category{root, orphan, child}).Forest()

	require.Len(t, forest, 2)
	assert.Equal(t, "Root", forest[0].Name)
	assert.False(t, forest[0].Orphaned)
	assert.Equal(t, "Orphan", forest[1].Name)
	assert.True(t, forest[1].Orphaned)
	assert.Equal(t, &missing, forest[1].ParentID)
	assert.Equal(t, []string{"Child"}, names(forest[1].Children))
}

func TestBuildHierarchy_BreaksParentCycles(t *testing.T) {
	a := &Category{ID: uuid.New(), Name: "A"}
	b := &Category{ID: uuid.New(), Name: "B"}
	a.ParentID = &b.ID
	b.ParentID = &a.ID

	forest := BuildHierarchy([]*Category{a, b}).Forest()

	require.Len(t, forest, 1)
	assert.Equal(t, "A", forest[0].Name)
	assert.True(t, forest[0].Orphaned)
	assert.Equal(t, []string{"B"}, names(forest[0].Children))
}

func TestBuildHierarchy_Empty(t *testing.T) {
	forest := BuildHierarchy(nil).Forest()
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestHierarchy_Add(t *testing.T) {
	h := NewHierarchy()
	root := cat("Root", nil)
	require.NoError(t, h.Add(*root))

	assert.ErrorIs(t, h.Add(*root), ErrAlreadyExists)

	ghost := cat("Ghost", nil)
	assert.ErrorIs(t, h.Add(*cat("Lost", ghost)), ErrNotFound)

	child := cat("Child", root)
	require.NoError(t, h.Add(*child))
	assert.True(t, h.HasChildren(root.ID))
	assert.False(t, h.HasChildren(child.ID))
}

func TestHierarchy_Remove(t *testing.T) {
	root := cat("Root", nil)
	child := cat("Child", root)
	h := BuildHierarchy([]*Category{root, child})

	assert.ErrorIs(t, h.Remove(root.ID), ErrHasChildren)
	assert.Equal(t, 2, h.Len())

	require.NoError(t, h.Remove(child.ID))
	require.NoError(t, h.Remove(root.ID))
	assert.Equal(t, 0, h.Len())
	assert.ErrorIs(t, h.Remove(root.ID), ErrNotFound)
}

func TestHierarchy_Move(t *testing.T) {
	a := cat("A", nil)
	b := cat("B", a)
	c := cat("C", b)
	d := cat("D", nil)
	h := BuildHierarchy([]*Category{a, b, c, d})

	assert.ErrorIs(t, h.Move(a.ID, &c.ID), ErrInvalidInput)
	assert.ErrorIs(t, h.Move(a.ID, &a.ID), ErrInvalidInput)

	missing := uuid.New()
	assert.ErrorIs(t, h.Move(a.ID, &missing), ErrNotFound)

	require.NoError(t, h.Move(b.ID, &d.ID))
	forest := h.Forest()
	assert.Equal(t, []string{"A", "D"}, names(forest))
	assert.Empty(t, forest[0].Children)
	assert.Equal(t, []string{"B"}, names(forest[1].Children))
	assert.Equal(t, &d.ID, forest[1].Children[0].ParentID)

	require.NoError(t, h.Move(c.ID, nil))
	assert.Equal(t, []string{"A", "D", "C"}, names(h.Forest()))
	assert.True(t, h.IsAncestor(d.ID, b.ID))
	assert.False(t, h.IsAncestor(a.ID, b.ID))
}

func TestHierarchy_Rename(t *testing.T) {
	a := cat("A", nil)
	h := BuildHierarchy([]*Category{a})

	require.NoError(t, h.Rename(a.ID, "Apparel", "apparel"))
	got, ok := h.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "Apparel", got.Name)
	assert.Equal(t, "apparel", got.Slug)

	assert.ErrorIs(t, h.Rename(uuid.New(), "x", "x"), ErrNotFound)
}
