// Package reorder keeps sibling collections (lists in a board, cards in a list) ordered by
// an integer position and computes the position writes a single move requires.
//
// Every function is pure: inputs are never mutated and no I/O happens here.
package reorder

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrIndexOutOfRange is returned for indexes outside the sequence.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrUnknownItem is returned when the moved item is not in the source sequence.
	ErrUnknownItem = errors.New("unknown item")
)

// Item is the ordering view of a list or card.
type Item struct {
	ID       string
	ParentID string
	Position int
}

// Change is one row update. ParentID is empty unless the item changes parent.
type Change struct {
	ID       string
	Position int
	ParentID string
}

// Sort returns a copy of seq ordered by Position, ties broken by ID.
func Sort(seq []Item) []Item {
	out := make([]Item, len(seq))
	copy(out, seq)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ReorderWithinParent moves the item at index from to index to. Indexes refer to the
// sorted sequence. The returned sequence carries the new positions and changes holds,
// in new order, every item whose stored position differs from its new index.
func ReorderWithinParent(seq []Item, from, to int) ([]Item, []Change, error) {
	sorted := Sort(seq)
	n := len(sorted)
	if n == 0 {
		return sorted, nil, nil
	}
	if from < 0 || from >= n {
		return nil, nil, fmt.Errorf("from index %d of %d: %w", from, n, ErrIndexOutOfRange)
	}
	if to < 0 || to >= n {
		return nil, nil, fmt.Errorf("to index %d of %d: %w", to, n, ErrIndexOutOfRange)
	}
	if from == to {
		return sorted, nil, nil
	}

	moved := sorted[from]
	rest := make([]Item, 0, n)
	rest = append(rest, sorted[:from]...)
	rest = append(rest, sorted[from+1:]...)
	out := insertAt(rest, to, moved)
	return out, renumber(out, ""), nil
}

// MoveAcrossParents moves itemID from src into dst at index. When dstParentID is the
// item's current parent the move is a reorder within src and both returned sequences
// are the reordered src.
//
// Changes list the moved item first, then shifted source items, then shifted destination
// items.
func MoveAcrossParents(src, dst []Item, itemID, dstParentID string, index int) ([]Item, []Item, []Change, error) {
	return move(src, dst, itemID, dstParentID, func(int) int { return index })
}

// MoveToEnd is MoveAcrossParents with the item placed after the last sibling of
// dstParentID.
func MoveToEnd(src, dst []Item, itemID, dstParentID string) ([]Item, []Item, []Change, error) {
	return move(src, dst, itemID, dstParentID, func(n int) int { return n })
}

// move resolves the destination index through at, which receives the number of
// siblings the item would join.
func move(src, dst []Item, itemID, dstParentID string, at func(siblings int) int) ([]Item, []Item, []Change, error) {
	source := Sort(src)
	from := indexOf(source, itemID)
	if from < 0 {
		return nil, nil, nil, fmt.Errorf("item %q: %w", itemID, ErrUnknownItem)
	}
	moved := source[from]

	if moved.ParentID == dstParentID {
		out, changes, err := ReorderWithinParent(source, from, at(len(source)-1))
		if err != nil {
			return nil, nil, nil, err
		}
		return out, out, changes, nil
	}

	dest := Sort(dst)
	index := at(len(dest))
	if index < 0 || index > len(dest) {
		return nil, nil, nil, fmt.Errorf("destination index %d of %d: %w", index, len(dest), ErrIndexOutOfRange)
	}

	remaining := make([]Item, 0, len(source)-1)
	remaining = append(remaining, source[:from]...)
	remaining = append(remaining, source[from+1:]...)

	moved.ParentID = dstParentID
	moved.Position = index
	newDst := insertAt(dest, index, moved)

	changes := []Change{{ID: moved.ID, Position: index, ParentID: dstParentID}}
	changes = append(changes, renumber(remaining, "")...)
	for i := range newDst {
		if i == index {
			continue
		}
		if newDst[i].Position != i {
			changes = append(changes, Change{ID: newDst[i].ID, Position: i})
			newDst[i].Position = i
		}
	}
	return remaining, newDst, changes, nil
}

// insertAt returns a new slice with it placed at index i of seq.
func insertAt(seq []Item, i int, it Item) []Item {
	out := make([]Item, 0, len(seq)+1)
	out = append(out, seq[:i]...)
	out = append(out, it)
	return append(out, seq[i:]...)
}

// renumber sets Position to the slice index in place and reports the items that moved.
func renumber(seq []Item, parentID string) []Change {
	var changes []Change
	for i := range seq {
		if seq[i].Position == i {
			continue
		}
		seq[i].Position = i
		changes = append(changes, Change{ID: seq[i].ID, Position: i, ParentID: parentID})
	}
	return changes
}

func indexOf(seq []Item, id string) int {
	for i := range seq {
		if seq[i].ID == id {
			return i
		}
	}
	return -1
}
