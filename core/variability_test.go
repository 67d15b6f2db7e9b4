package core

import (
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func TestClassifyVariabilitySplitsDisjoint(t *testing.T) {
	flagged := srcAt("flagged", 10, 10)
	flagged.FracVariability = 0.3

	inMaster := srcAt("in-master", 11, 11)
	quiet := srcAt("quiet", 12, 12)

	table := tableWith(model.XMMSchema(), flagged, inMaster, quiet)
	master := []model.MasterJoin{{SourceName: "in-master", MasterID: 5}}

	split := ClassifyVariability(table, master)

	if len(split.Variable) != 2 || len(split.Invariant) != 1 {
		t.Fatalf("split = %d variable / %d invariant, want 2/1", len(split.Variable), len(split.Invariant))
	}
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, split.Variable...), split.Invariant...) {
		if seen[i] {
			t.Fatalf("index %d appears in both sets", i)
		}
		seen[i] = true
	}
	if len(seen) != table.Len() {
		t.Fatalf("split covers %d rows, want %d", len(seen), table.Len())
	}

	if !table.Sources[0].Variable || !table.Sources[1].Variable {
		t.Error("flagged and master-joined sources must be marked variable")
	}
	if table.Sources[2].Variable {
		t.Error("quiet source wrongly marked variable")
	}
}

func TestClassifyVariabilityEmptyMaster(t *testing.T) {
	quiet := srcAt("quiet", 12, 12)
	table := tableWith(model.XMMSchema(), quiet)

	split := ClassifyVariability(table, nil)
	if len(split.Variable) != 0 || len(split.Invariant) != 1 {
		t.Fatalf("split = %+v, want all invariant", split)
	}
}
