package reorder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seqOf(parent string, ids ...string) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, ParentID: parent, Position: i}
	}
	return out
}

func ids(seq []Item) []string {
	out := make([]string, len(seq))
	for i, it := range seq {
		out[i] = it.ID
	}
	return out
}

func TestSortOrdersByPositionThenID(t *testing.T) {
	in := []Item{
		{ID: "c", Position: 2},
		{ID: "b", Position: 0},
		{ID: "a", Position: 0},
		{ID: "d", Position: 1},
	}
	got := Sort(in)
	want := []string{"a", "b", "d", "c"}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Fatalf("sort order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(got, Sort(got)); diff != "" {
		t.Fatalf("sort not idempotent (-first +second):\n%s", diff)
	}
	if in[0].ID != "c" {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestReorderNoOp(t *testing.T) {
	s := seqOf("l1", "A", "B", "C", "D")
	for i := range s {
		got, changes, err := ReorderWithinParent(s, i, i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if len(changes) != 0 {
			t.Fatalf("index %d: expected no changes, got %v", i, changes)
		}
		if diff := cmp.Diff(s, got); diff != "" {
			t.Fatalf("index %d: sequence changed (-want +got):\n%s", i, diff)
		}
	}
}

func TestReorderEmptyIsNoOp(t *testing.T) {
	got, changes, err := ReorderWithinParent(nil, 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || len(changes) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, changes)
	}
}

func TestReorderScenarioA(t *testing.T) {
	s := seqOf("l1", "A", "B", "C")
	got, changes, err := ReorderWithinParent(s, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Item{
		{ID: "B", ParentID: "l1", Position: 0},
		{ID: "C", ParentID: "l1", Position: 1},
		{ID: "A", ParentID: "l1", Position: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
	wantChanges := []Change{{ID: "B", Position: 0}, {ID: "C", Position: 1}, {ID: "A", Position: 2}}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestReorderPermutationAndMinimality(t *testing.T) {
	base := seqOf("l1", "A", "B", "C", "D", "E", "F")
	for from := range base {
		for to := range base {
			t.Run(fmt.Sprintf("%d_to_%d", from, to), func(t *testing.T) {
				got, changes, err := ReorderWithinParent(base, from, to)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got[to].ID != base[from].ID {
					t.Fatalf("expected %s at %d, got %s", base[from].ID, to, got[to].ID)
				}

				var restBefore, restAfter []string
				for i, it := range base {
					if i != from {
						restBefore = append(restBefore, it.ID)
					}
				}
				for i, it := range got {
					if i != to {
						restAfter = append(restAfter, it.ID)
					}
				}
				if diff := cmp.Diff(restBefore, restAfter); diff != "" {
					t.Fatalf("relative order broken (-want +got):\n%s", diff)
				}

				oldIndex := map[string]int{}
				for i, it := range base {
					oldIndex[it.ID] = i
				}
				var moved []Change
				for i, it := range got {
					if it.Position != i {
						t.Fatalf("position %d at index %d", it.Position, i)
					}
					if oldIndex[it.ID] != i {
						moved = append(moved, Change{ID: it.ID, Position: i})
					}
				}
				if diff := cmp.Diff(moved, changes); diff != "" {
					t.Fatalf("changes not minimal (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestReorderSortsDefensively(t *testing.T) {
	s := []Item{
		{ID: "C", ParentID: "l1", Position: 1},
		{ID: "A", ParentID: "l1", Position: 0},
		{ID: "B", ParentID: "l1", Position: 0},
	}
	got, changes, err := ReorderWithinParent(s, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"C", "A", "B"}, ids(got)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	wantChanges := []Change{{ID: "C", Position: 0}, {ID: "A", Position: 1}, {ID: "B", Position: 2}}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestReorderBoundaryRejection(t *testing.T) {
	for n := 1; n <= 4; n++ {
		s := seqOf("l1", []string{"A", "B", "C", "D"}[:n]...)
		cases := [][2]int{{-1, 0}, {0, n}, {n, 0}, {0, -1}}
		for _, c := range cases {
			_, _, err := ReorderWithinParent(s, c[0], c[1])
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Fatalf("len %d move %v: expected ErrIndexOutOfRange, got %v", n, c, err)
			}
		}
	}
}

func TestMoveScenarioB(t *testing.T) {
	src := seqOf("l1", "X", "Y")
	dst := seqOf("l2", "M")
	newSrc, newDst, changes, err := MoveAcrossParents(src, dst, "Y", "l2", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]Item{{ID: "X", ParentID: "l1", Position: 0}}, newSrc); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}
	wantDst := []Item{
		{ID: "Y", ParentID: "l2", Position: 0},
		{ID: "M", ParentID: "l2", Position: 1},
	}
	if diff := cmp.Diff(wantDst, newDst); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
	wantChanges := []Change{{ID: "Y", Position: 0, ParentID: "l2"}, {ID: "M", Position: 1}}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveScenarioCAppendIntoEmpty(t *testing.T) {
	newSrc, newDst, changes, err := MoveToEnd(seqOf("l1", "P"), nil, "P", "l2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(newSrc) != 0 {
		t.Fatalf("expected empty source, got %v", newSrc)
	}
	if diff := cmp.Diff([]Item{{ID: "P", ParentID: "l2", Position: 0}}, newDst); diff != "" {
		t.Fatalf("destination mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Change{{ID: "P", Position: 0, ParentID: "l2"}}, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveAppendDefault(t *testing.T) {
	src := seqOf("l1", "A", "B", "C")
	dst := seqOf("l2", "M", "N")
	newSrc, newDst, changes, err := MoveToEnd(src, dst, "A", "l2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last := newDst[len(newDst)-1]; last.ID != "A" || last.Position != len(dst) {
		t.Fatalf("expected A appended at %d, got %+v", len(dst), last)
	}
	if diff := cmp.Diff([]string{"B", "C"}, ids(newSrc)); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}
	wantChanges := []Change{
		{ID: "A", Position: 2, ParentID: "l2"},
		{ID: "B", Position: 0},
		{ID: "C", Position: 1},
	}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveSameParentMatchesReorder(t *testing.T) {
	s := seqOf("l1", "A", "B", "C", "D")
	for _, id := range ids(s) {
		for j := range s {
			wantSeq, wantChanges, err := ReorderWithinParent(s, indexOf(s, id), j)
			if err != nil {
				t.Fatalf("reorder: %v", err)
			}
			gotSrc, gotDst, gotChanges, err := MoveAcrossParents(s, s, id, "l1", j)
			if err != nil {
				t.Fatalf("move: %v", err)
			}
			if diff := cmp.Diff(wantSeq, gotSrc); diff != "" {
				t.Fatalf("%s to %d: source mismatch (-want +got):\n%s", id, j, diff)
			}
			if diff := cmp.Diff(wantSeq, gotDst); diff != "" {
				t.Fatalf("%s to %d: destination mismatch (-want +got):\n%s", id, j, diff)
			}
			if diff := cmp.Diff(wantChanges, gotChanges); diff != "" {
				t.Fatalf("%s to %d: changes mismatch (-want +got):\n%s", id, j, diff)
			}
		}
	}
}

func TestMoveToEndSameParentIsLastIndex(t *testing.T) {
	s := seqOf("l1", "A", "B", "C")
	got, _, _, err := MoveToEnd(s, s, "A", "l1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"B", "C", "A"}, ids(got)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveValidation(t *testing.T) {
	src := seqOf("l1", "A")
	dst := seqOf("l2", "M")
	if _, _, _, err := MoveAcrossParents(src, dst, "Z", "l2", 0); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	for _, idx := range []int{-2, -1, 2} {
		if _, _, _, err := MoveAcrossParents(src, dst, "A", "l2", idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
		if _, _, _, err := MoveAcrossParents(src, src, "A", "l1", idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("same parent index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if _, _, _, err := MoveToEnd(src, dst, "Z", "l2"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem from MoveToEnd, got %v", err)
	}
	if _, _, _, err := MoveAcrossParents(src, dst, "A", "l2", 1); err != nil {
		t.Fatalf("insert at len(dst) should be valid: %v", err)
	}
}

func TestMoveRepairsGappedDestination(t *testing.T) {
	src := seqOf("l1", "A")
	dst := []Item{{ID: "M", ParentID: "l2", Position: 3}, {ID: "N", ParentID: "l2", Position: 7}}
	_, newDst, changes, err := MoveAcrossParents(src, dst, "A", "l2", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"M", "A", "N"}, ids(newDst)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	wantChanges := []Change{
		{ID: "A", Position: 1, ParentID: "l2"},
		{ID: "M", Position: 0},
		{ID: "N", Position: 2},
	}
	if diff := cmp.Diff(wantChanges, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompact(t *testing.T) {
	s := []Item{
		{ID: "b", Position: 4},
		{ID: "a", Position: 4},
		{ID: "c", Position: 9},
	}
	if Dense(s) {
		t.Fatalf("expected gapped sequence to be reported as not dense")
	}
	got, changes := Compact(s)
	if !Dense(got) {
		t.Fatalf("compacted sequence not dense: %v", got)
	}
	want := []Change{{ID: "a", Position: 0}, {ID: "b", Position: 1}, {ID: "c", Position: 2}}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	if _, again := Compact(got); len(again) != 0 {
		t.Fatalf("compacting a dense sequence should be a no-op, got %v", again)
	}
}
