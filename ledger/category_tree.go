package ledger

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// CategoryTree owns the nested-set bounds of the category hierarchy.
//
// Categories live in a flat arena indexed by position; an id index maps
// category ids to arena slots. Structural mutations (Insert, Move, Delete)
// take the write lock and rewrite every affected bound in one pass over the
// arena. Readers never scan the live arena: they take a Snapshot, which is an
// immutable copy sorted by left bound.
//
// Time complexity:
//   - Insert, Move, Delete: O(n) over the arena
//   - Snapshot: O(n log n)
type CategoryTree struct {
	mu     sync.RWMutex
	nodes  []Category
	index  map[CategoryID]int
	nextID CategoryID
}

// NewCategoryTree builds a tree from categories carrying nested-set bounds.
// It fails with a CategoryTreeCorruptError if any invariant is violated.
// Levels are recomputed from the bounds.
func NewCategoryTree(categories []Category) (*CategoryTree, error) {
	snap, err := newCategorySnapshot(categories)
	if err != nil {
		return nil, err
	}

	t := &CategoryTree{
		nodes: make([]Category, len(snap.cats)),
		index: make(map[CategoryID]int, len(snap.cats)),
	}
	copy(t.nodes, snap.cats)
	for i, c := range t.nodes {
		t.index[c.ID] = i
		if c.ID > t.nextID {
			t.nextID = c.ID
		}
	}
	return t, nil
}

// Snapshot returns an immutable view of the current tree. Report
// computations hold a snapshot for their whole duration; later mutations of
// the tree do not affect it.
func (t *CategoryTree) Snapshot() *CategorySnapshot {
	t.mu.RLock()
	cats := make([]Category, len(t.nodes))
	copy(cats, t.nodes)
	t.mu.RUnlock()

	return indexSnapshot(cats)
}

// Len returns the number of categories.
func (t *CategoryTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Insert adds a new category as the rightmost child of parentID, or as a new
// rightmost root when parentID is NoCategory. Every bound at or right of the
// insertion point shifts by two.
func (t *CategoryTree) Insert(parentID CategoryID, name string, categoryType CategoryType) (Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at, level := t.maxRight()+1, 0
	if parentID != NoCategory {
		pi, ok := t.index[parentID]
		if !ok {
			return Category{}, &CategoryTreeCorruptError{Category: parentID, Reason: "unknown parent category"}
		}
		at = t.nodes[pi].Right
		level = t.nodes[pi].Level + 1
	}

	t.shift(at, 2, nil)

	t.nextID++
	c := Category{
		ID:       t.nextID,
		Name:     name,
		Type:     categoryType,
		ParentID: parentID,
		Left:     at,
		Right:    at + 1,
		Level:    level,
	}
	t.nodes = append(t.nodes, c)
	t.index[c.ID] = len(t.nodes) - 1

	return c, nil
}

// Move re-parents categoryID (with its whole subtree) as the rightmost child
// of newParentID, or as the rightmost root when newParentID is NoCategory.
// The subtree's bound range is cut out, the gap closed, and the range
// re-inserted at the new position. Moving a category under itself or one of
// its descendants fails with InvalidCategoryMoveError and leaves the tree
// unchanged.
func (t *CategoryTree) Move(categoryID, newParentID CategoryID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ci, ok := t.index[categoryID]
	if !ok {
		return &CategoryTreeCorruptError{Category: categoryID, Reason: "unknown category"}
	}
	moved := t.nodes[ci]

	if newParentID != NoCategory {
		pi, ok := t.index[newParentID]
		if !ok {
			return &CategoryTreeCorruptError{Category: newParentID, Reason: "unknown parent category"}
		}
		if moved.Contains(t.nodes[pi]) {
			return &InvalidCategoryMoveError{Category: categoryID, NewParent: newParentID}
		}
	}

	width := moved.Right - moved.Left + 1
	subtree := make(map[int]bool)
	for i, c := range t.nodes {
		if moved.Contains(c) {
			subtree[i] = true
		}
	}

	// Close the gap left by the subtree.
	t.shift(moved.Right+1, -width, subtree)

	at, level := 0, 0
	if newParentID != NoCategory {
		parent := t.nodes[t.index[newParentID]]
		at, level = parent.Right, parent.Level+1
	} else {
		for i, c := range t.nodes {
			if !subtree[i] && c.Right > at {
				at = c.Right
			}
		}
		at++
	}

	// Open a gap of the same width at the insertion point.
	t.shift(at, width, subtree)

	offset, levelOffset := at-moved.Left, level-moved.Level
	for i := range subtree {
		t.nodes[i].Left += offset
		t.nodes[i].Right += offset
		t.nodes[i].Level += levelOffset
	}
	t.nodes[ci].ParentID = newParentID

	return nil
}

// Delete removes categoryID and its whole subtree, closes the gap in the
// bounds and returns the removed ids in tree order.
func (t *CategoryTree) Delete(categoryID CategoryID) ([]CategoryID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ci, ok := t.index[categoryID]
	if !ok {
		return nil, &CategoryTreeCorruptError{Category: categoryID, Reason: "unknown category"}
	}
	removed := t.nodes[ci]
	width := removed.Right - removed.Left + 1

	kept := make([]Category, 0, len(t.nodes))
	var gone []Category
	for _, c := range t.nodes {
		if removed.Contains(c) {
			gone = append(gone, c)
			continue
		}
		kept = append(kept, c)
	}

	t.nodes = kept
	t.shift(removed.Right+1, -width, nil)

	t.index = make(map[CategoryID]int, len(t.nodes))
	for i, c := range t.nodes {
		t.index[c.ID] = i
	}

	slices.SortFunc(gone, func(a, b Category) int { return a.Left - b.Left })
	ids := make([]CategoryID, len(gone))
	for i, c := range gone {
		ids[i] = c.ID
	}
	return ids, nil
}

// shift adds delta to every bound >= from, skipping arena slots in skip.
// Caller must hold the write lock.
func (t *CategoryTree) shift(from, delta int, skip map[int]bool) {
	for i := range t.nodes {
		if skip[i] {
			continue
		}
		if t.nodes[i].Left >= from {
			t.nodes[i].Left += delta
		}
		if t.nodes[i].Right >= from {
			t.nodes[i].Right += delta
		}
	}
}

// maxRight returns the largest right bound, or 0 for an empty tree.
// Caller must hold a lock.
func (t *CategoryTree) maxRight() int {
	m := 0
	for _, c := range t.nodes {
		if c.Right > m {
			m = c.Right
		}
	}
	return m
}

// CategorySnapshot is an immutable, validated view of the category tree,
// sorted by left bound. It is safe for concurrent use.
type CategorySnapshot struct {
	cats []Category
	pos  map[CategoryID]int
}

// newCategorySnapshot validates categories and derives their levels.
//
// Categories are sorted by left bound and scanned once with a stack of open
// ranges: every category must either start after the top range closed
// (sibling or later) or lie strictly inside it (descendant). A category that
// starts inside a range but ends outside it breaks the nesting.
func newCategorySnapshot(categories []Category) (*CategorySnapshot, error) {
	cats := make([]Category, len(categories))
	copy(cats, categories)
	slices.SortFunc(cats, func(a, b Category) int { return a.Left - b.Left })

	ids := make(map[CategoryID]bool, len(cats))
	bounds := make(map[int]CategoryID, 2*len(cats))
	for _, c := range cats {
		if c.ID == NoCategory {
			return nil, &CategoryTreeCorruptError{Reason: "category without id"}
		}
		if ids[c.ID] {
			return nil, &CategoryTreeCorruptError{Category: c.ID, Reason: "duplicate category id"}
		}
		ids[c.ID] = true

		if c.Left < 1 || c.Left >= c.Right {
			return nil, &CategoryTreeCorruptError{Category: c.ID,
				Reason: fmt.Sprintf("left bound %d must be positive and below right bound %d", c.Left, c.Right)}
		}
		for _, b := range []int{c.Left, c.Right} {
			if other, dup := bounds[b]; dup {
				return nil, &CategoryTreeCorruptError{Category: c.ID,
					Reason: fmt.Sprintf("bound %d already used by category %d", b, other)}
			}
			bounds[b] = c.ID
		}
	}

	var open []Category
	for i, c := range cats {
		for len(open) > 0 && open[len(open)-1].Right < c.Left {
			open = open[:len(open)-1]
		}

		if len(open) == 0 {
			if c.ParentID != NoCategory {
				return nil, &CategoryTreeCorruptError{Category: c.ID,
					Reason: fmt.Sprintf("parent %d does not enclose the category bounds", c.ParentID)}
			}
		} else {
			enclosing := open[len(open)-1]
			if c.Right > enclosing.Right {
				return nil, &CategoryTreeCorruptError{Category: c.ID,
					Reason: fmt.Sprintf("bounds overlap category %d", enclosing.ID)}
			}
			if c.ParentID != enclosing.ID {
				return nil, &CategoryTreeCorruptError{Category: c.ID,
					Reason: fmt.Sprintf("parent is %d but bounds lie directly inside %d", c.ParentID, enclosing.ID)}
			}
		}

		cats[i].Level = len(open)
		open = append(open, cats[i])
	}

	return indexSnapshot(cats), nil
}

// indexSnapshot sorts cats by left bound and builds the id index.
func indexSnapshot(cats []Category) *CategorySnapshot {
	slices.SortFunc(cats, func(a, b Category) int { return a.Left - b.Left })
	pos := make(map[CategoryID]int, len(cats))
	for i, c := range cats {
		pos[c.ID] = i
	}
	return &CategorySnapshot{cats: cats, pos: pos}
}

// Len returns the number of categories.
func (s *CategorySnapshot) Len() int {
	return len(s.cats)
}

// Get returns a category by id.
func (s *CategorySnapshot) Get(id CategoryID) (Category, bool) {
	i, ok := s.pos[id]
	if !ok {
		return Category{}, false
	}
	return s.cats[i], true
}

func (s *CategorySnapshot) mustGet(id CategoryID) (int, error) {
	i, ok := s.pos[id]
	if !ok {
		return 0, &CategoryTreeCorruptError{Category: id, Reason: "unknown category"}
	}
	return i, nil
}

// ScopeOf returns {id} when includeDescendants is false, otherwise every
// category whose bounds lie within id's bounds (inclusive). Descendants are
// found by one forward scan from id's position in left-bound order.
func (s *CategorySnapshot) ScopeOf(id CategoryID, includeDescendants bool) (Scope, error) {
	i, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	if !includeDescendants {
		return NewScope(id), nil
	}

	root := s.cats[i]
	scope := NewScope(id)
	for j := i + 1; j < len(s.cats) && s.cats[j].Left < root.Right; j++ {
		scope[s.cats[j].ID] = struct{}{}
	}
	return scope, nil
}

// Descendants returns the strict descendants of id in left-bound order.
func (s *CategorySnapshot) Descendants(id CategoryID) ([]Category, error) {
	i, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	root := s.cats[i]
	var out []Category
	for j := i + 1; j < len(s.cats) && s.cats[j].Left < root.Right; j++ {
		out = append(out, s.cats[j])
	}
	return out, nil
}

// Children returns the direct children of id in left-bound order.
func (s *CategorySnapshot) Children(id CategoryID) ([]Category, error) {
	descendants, err := s.Descendants(id)
	if err != nil {
		return nil, err
	}
	var out []Category
	for _, c := range descendants {
		if c.ParentID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

// Ancestors returns the ancestors of id from the root down to the direct parent.
func (s *CategorySnapshot) Ancestors(id CategoryID) ([]Category, error) {
	i, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	var out []Category
	for parent := s.cats[i].ParentID; parent != NoCategory; {
		c, ok := s.Get(parent)
		if !ok {
			return nil, &CategoryTreeCorruptError{Category: id, Reason: fmt.Sprintf("unknown ancestor %d", parent)}
		}
		out = append([]Category{c}, out...)
		parent = c.ParentID
	}
	return out, nil
}

// LevelOf returns the depth of id below its root (root = 0).
func (s *CategorySnapshot) LevelOf(id CategoryID) (int, error) {
	i, err := s.mustGet(id)
	if err != nil {
		return 0, err
	}
	return s.cats[i].Level, nil
}

// SortKey returns the canonical report ordering key of id.
func (s *CategorySnapshot) SortKey(id CategoryID) (SortKey, error) {
	i, err := s.mustGet(id)
	if err != nil {
		return SortKey{}, err
	}
	return SortKey{Type: s.cats[i].Type, Left: s.cats[i].Left}, nil
}

// Categories returns all categories ordered by SortKey.
func (s *CategorySnapshot) Categories() []Category {
	out := make([]Category, len(s.cats))
	copy(out, s.cats)
	slices.SortStableFunc(out, func(a, b Category) int {
		return SortKey{a.Type, a.Left}.Compare(SortKey{b.Type, b.Left})
	})
	return out
}

// RebuildBounds computes nested-set bounds and levels from parent links
// alone. Roots are ordered by type then id, children by id. It fails with
// CategoryTreeCorruptError on unknown parents or parent cycles.
func RebuildBounds(categories []Category) ([]Category, error) {
	out := make([]Category, len(categories))
	copy(out, categories)
	for i := range out {
		out[i].Left, out[i].Right = 0, 0
	}

	byID := make(map[CategoryID]int, len(out))
	for i, c := range out {
		if _, dup := byID[c.ID]; dup || c.ID == NoCategory {
			return nil, &CategoryTreeCorruptError{Category: c.ID, Reason: "duplicate or missing category id"}
		}
		byID[c.ID] = i
	}

	children := make(map[CategoryID][]int)
	var roots []int
	for i, c := range out {
		if c.ParentID == NoCategory {
			roots = append(roots, i)
			continue
		}
		if _, ok := byID[c.ParentID]; !ok {
			return nil, &CategoryTreeCorruptError{Category: c.ID, Reason: fmt.Sprintf("unknown parent %d", c.ParentID)}
		}
		children[c.ParentID] = append(children[c.ParentID], i)
	}
	slices.SortFunc(roots, func(a, b int) int {
		if out[a].Type != out[b].Type {
			return int(out[a].Type) - int(out[b].Type)
		}
		return int(out[a].ID - out[b].ID)
	})
	for _, kids := range children {
		slices.SortFunc(kids, func(a, b int) int { return int(out[a].ID - out[b].ID) })
	}

	counter, visited := 0, 0
	var walk func(i, level int)
	walk = func(i, level int) {
		visited++
		counter++
		out[i].Left = counter
		out[i].Level = level
		for _, child := range children[out[i].ID] {
			walk(child, level+1)
		}
		counter++
		out[i].Right = counter
	}
	for _, r := range roots {
		walk(r, 0)
	}

	// Categories on a parent cycle are never reached from a root.
	if visited != len(out) {
		for _, c := range out {
			if c.Left == 0 {
				return nil, &CategoryTreeCorruptError{Category: c.ID, Reason: "category is part of a parent cycle"}
			}
		}
	}
	return out, nil
}
