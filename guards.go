package ngstate

import (
	"cmp"
	"slices"
)

// EquivalencesChanged reports whether proposed induces a different merge
// partition than current. Group order, order within a group and the way a
// component is split into pairs do not count as changes.
func EquivalencesChanged(proposed, current Equivalences) bool {
	if len(proposed) == 0 || len(current) == 0 {
		return len(proposed) != len(current)
	}
	if edgeCount(proposed) != edgeCount(current) {
		return true
	}
	return !slices.EqualFunc(partition(proposed), partition(current), func(a, b []SegmentID) bool {
		return slices.Equal(a, b)
	})
}

// SegmentColorsChanged reports whether proposed differs from current in any
// key or value.
func SegmentColorsChanged(proposed, current SegmentColors) bool {
	if len(proposed) != len(current) {
		return true
	}
	for key, color := range proposed {
		existing, ok := current[key]
		if !ok || existing != color {
			return true
		}
	}
	return false
}

func edgeCount(groups Equivalences) int {
	edges := 0
	for _, group := range groups {
		if len(group) > 0 {
			edges += len(group) - 1
		}
	}
	return edges
}

// partition returns the connected components of groups in canonical form:
// each component sorted, components sorted by their smallest id, singletons
// dropped.
func partition(groups Equivalences) [][]SegmentID {
	parent := map[SegmentID]SegmentID{}
	var find func(SegmentID) SegmentID
	find = func(id SegmentID) SegmentID {
		p, ok := parent[id]
		if !ok {
			parent[id] = id
			return id
		}
		if p == id {
			return id
		}
		root := find(p)
		parent[id] = root
		return root
	}

	for _, group := range groups {
		for i, id := range group {
			root := find(id)
			if i == 0 {
				continue
			}
			first := find(group[0])
			if root != first {
				parent[root] = first
			}
		}
	}

	byRoot := map[SegmentID][]SegmentID{}
	for id := range parent {
		root := find(id)
		byRoot[root] = append(byRoot[root], id)
	}

	components := make([][]SegmentID, 0, len(byRoot))
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)
		components = append(components, members)
	}
	slices.SortFunc(components, func(a, b []SegmentID) int {
		return cmp.Compare(a[0], b[0])
	})
	return components
}
