package walker

import (
	"github.com/roach88/datagen/internal/ir"
	"github.com/roach88/datagen/internal/tree"
)

// Groups partitions fields into sets connected by relations. Groups are
// ordered by their first field in order, and fields within a group keep
// their relative order.
func Groups(order []ir.Field, relations []tree.Relation) [][]ir.Field {
	parent := make(map[ir.Field]ir.Field, len(order))
	for _, f := range order {
		parent[f] = f
	}
	var find func(ir.Field) ir.Field
	find = func(f ir.Field) ir.Field {
		p, ok := parent[f]
		if !ok || p == f {
			return f
		}
		root := find(p)
		parent[f] = root
		return root
	}
	for _, r := range relations {
		a, b := find(r.Field), find(r.Other)
		if a != b {
			parent[b] = a
		}
	}

	index := make(map[ir.Field]int)
	var groups [][]ir.Field
	for _, f := range order {
		root := find(f)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return groups
}

// relationsWithin keeps the relations between fields of group.
func relationsWithin(group []ir.Field, relations []tree.Relation) []tree.Relation {
	in := make(map[ir.Field]bool, len(group))
	for _, f := range group {
		in[f] = true
	}
	var out []tree.Relation
	for _, r := range relations {
		if in[r.Field] && in[r.Other] {
			out = append(out, r)
		}
	}
	return out
}
