package core

import (
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// VariabilitySplit partitions a table's row indices into variable and
// invariant sets. The two slices are disjoint, cover every row, and
// preserve table order.
type VariabilitySplit struct {
	Variable  []int
	Invariant []int
}

// ClassifyVariability marks each source variable when its catalog
// reports a fractional variability for it, or when the source appears
// in the cross-catalog master table (meaning more than one mission has
// detected it, so long-term variability is measurable). Sources are
// annotated in place and the index split is returned.
func ClassifyVariability(table *model.SourceTable, master []model.MasterJoin) VariabilitySplit {
	inMaster := make(map[string]bool, len(master))
	for _, j := range master {
		inMaster[j.SourceName] = true
	}

	var split VariabilitySplit
	for i := range table.Sources {
		src := &table.Sources[i]
		src.Variable = !math.IsNaN(src.FracVariability) || inMaster[src.Name]
		if src.Variable {
			split.Variable = append(split.Variable, i)
		} else {
			split.Invariant = append(split.Invariant, i)
		}
	}
	return split
}
