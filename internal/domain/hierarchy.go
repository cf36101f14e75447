package domain

import (
	"time"

	"github.com/google/uuid"
)

// Hierarchy is an arena of categories indexed by id. Each entry keeps its
// effective parent and an ordered list of child ids, so point mutations and
// the subcategory check are map lookups rather than tree walks.
type Hierarchy struct {
	entries map[uuid.UUID]*hierarchyEntry
	roots   []uuid.UUID
}

type hierarchyEntry struct {
	category Category
	parent   *uuid.UUID
	children []uuid.UUID
	orphaned bool
}

// NewHierarchy returns an empty hierarchy
func NewHierarchy() *Hierarchy {
	return &Hierarchy{entries: make(map[uuid.UUID]*hierarchyEntry)}
}

// BuildHierarchy links a flat category list into a forest.
//
// Roots and sibling lists follow input order. A record whose parent is not in
// the input is promoted to a root and marked orphaned. Records stuck on a
// parent cycle are promoted the same way, so every record appears exactly once.
// Repeated ids keep the first occurrence.
func BuildHierarchy(flat []*Category) *Hierarchy {
	h := NewHierarchy()
	order := make([]uuid.UUID, 0, len(flat))

	for _, c := range flat {
		if c == nil {
			continue
		}
		if _, dup := h.entries[c.ID]; dup {
			continue
		}
		h.entries[c.ID] = &hierarchyEntry{category: *c}
		order = append(order, c.ID)
	}

	for _, id := range order {
		e := h.entries[id]
		pid := e.category.ParentID
		if pid != nil && *pid != id {
			if parent, ok := h.entries[*pid]; ok {
				p := *pid
				e.parent = &p
				parent.children = append(parent.children, id)
				continue
			}
		}
		e.orphaned = pid != nil
		h.roots = append(h.roots, id)
	}

	h.breakCycles(order)
	return h
}

// breakCycles promotes records unreachable from any root, in input order
func (h *Hierarchy) breakCycles(order []uuid.UUID) {
	reached := make(map[uuid.UUID]bool, len(h.entries))
	var mark func(id uuid.UUID)
	mark = func(id uuid.UUID) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, child := range h.entries[id].children {
			mark(child)
		}
	}
	for _, id := range h.roots {
		mark(id)
	}

	for _, id := range order {
		if reached[id] {
			continue
		}
		h.detach(id)
		e := h.entries[id]
		e.parent = nil
		e.orphaned = true
		h.roots = append(h.roots, id)
		mark(id)
	}
}

// Len returns the number of categories in the hierarchy
func (h *Hierarchy) Len() int {
	return len(h.entries)
}

// Get returns a copy of the category with the given id
func (h *Hierarchy) Get(id uuid.UUID) (Category, bool) {
	e, ok := h.entries[id]
	if !ok {
		return Category{}, false
	}
	return e.category, true
}

// HasChildren reports whether any category names id as its parent
func (h *Hierarchy) HasChildren(id uuid.UUID) bool {
	e, ok := h.entries[id]
	return ok && len(e.children) > 0
}

// Categories returns copies of all categories in depth-first forest order
func (h *Hierarchy) Categories() []*Category {
	out := make([]*Category, 0, len(h.entries))
	var walk func(ids []uuid.UUID)
	walk = func(ids []uuid.UUID) {
		for _, id := range ids {
			e := h.entries[id]
			c := e.category
			out = append(out, &c)
			walk(e.children)
		}
	}
	walk(h.roots)
	return out
}

// Add appends a category under its parent, or as the last root
func (h *Hierarchy) Add(c Category) error {
	if _, ok := h.entries[c.ID]; ok {
		return ErrAlreadyExists
	}

	e := &hierarchyEntry{category: c}
	if c.ParentID != nil {
		parent, ok := h.entries[*c.ParentID]
		if !ok {
			return ErrNotFound
		}
		p := *c.ParentID
		e.parent = &p
		parent.children = append(parent.children, c.ID)
	} else {
		h.roots = append(h.roots, c.ID)
	}

	h.entries[c.ID] = e
	return nil
}

// Rename replaces name and slug in place
func (h *Hierarchy) Rename(id uuid.UUID, name, slug string) error {
	e, ok := h.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.category.Name = name
	e.category.Slug = slug
	return nil
}

// Touch sets the category's update time
func (h *Hierarchy) Touch(id uuid.UUID, at time.Time) {
	if e, ok := h.entries[id]; ok {
		e.category.UpdatedAt = at
	}
}

// Move re-parents a category, appending it to the new sibling list.
// A nil parent makes it a root.
func (h *Hierarchy) Move(id uuid.UUID, parentID *uuid.UUID) error {
	e, ok := h.entries[id]
	if !ok {
		return ErrNotFound
	}

	if parentID != nil {
		parent, ok := h.entries[*parentID]
		if !ok {
			return ErrNotFound
		}
		if *parentID == id || h.IsAncestor(id, *parentID) {
			return NewValidationError("parent_id", "must not be the category itself or one of its descendants")
		}

		h.detach(id)
		p := *parentID
		e.parent = &p
		e.category.ParentID = &p
		parent.children = append(parent.children, id)
	} else {
		h.detach(id)
		e.parent = nil
		e.category.ParentID = nil
		h.roots = append(h.roots, id)
	}

	e.orphaned = false
	return nil
}

// Remove deletes a leaf category. It fails with ErrHasChildren otherwise.
func (h *Hierarchy) Remove(id uuid.UUID) error {
	e, ok := h.entries[id]
	if !ok {
		return ErrNotFound
	}
	if len(e.children) > 0 {
		return ErrHasChildren
	}

	h.detach(id)
	delete(h.entries, id)
	return nil
}

// IsAncestor reports whether ancestor lies on the parent chain above id
func (h *Hierarchy) IsAncestor(ancestor, id uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool)
	for cur := h.entries[id]; cur != nil && cur.parent != nil; cur = h.entries[*cur.parent] {
		if *cur.parent == ancestor {
			return true
		}
		if seen[*cur.parent] {
			return false
		}
		seen[*cur.parent] = true
	}
	return false
}

// Forest materializes the nested view
func (h *Hierarchy) Forest() []*CategoryNode {
	return h.nodes(h.roots)
}

func (h *Hierarchy) nodes(ids []uuid.UUID) []*CategoryNode {
	out := make([]*CategoryNode, 0, len(ids))
	for _, id := range ids {
		e := h.entries[id]
		out = append(out, &CategoryNode{
			Category: e.category,
			Children: h.nodes(e.children),
			Orphaned: e.orphaned,
		})
	}
	return out
}

func (h *Hierarchy) detach(id uuid.UUID) {
	e := h.entries[id]
	if e.parent == nil {
		h.roots = without(h.roots, id)
		return
	}
	if parent, ok := h.entries[*e.parent]; ok {
		parent.children = without(parent.children, id)
	}
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
