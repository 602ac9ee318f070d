package dag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/stride3d/stride-sub014/internal/diag"
)

type Graph struct {
	Edges   [][]NodeID // Edges[dep] = dependents
	Indeg   []int      // number of present dependencies, for Kahn
	Present []bool     // the node was built, not only referenced
}

type Node struct {
	Meta     Meta
	Reporter diag.Reporter
	Broken   bool
	FirstErr *diag.Diagnostic
}

type Slot struct {
	Meta     Meta
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
}

// BuildGraph wires every node to its dependencies. References to names that
// were never built are reported on the referencing node.
func BuildGraph(idx Index, nodes []Node) (Graph, []Slot) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]NodeID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]Slot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Meta.Name = name
	}

	for _, node := range nodes {
		id, ok := idx.NameToID[node.Meta.Name]
		if !ok || node.Meta.Name == "" {
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			continue
		}
		slot.Meta = node.Meta
		slot.Reporter = node.Reporter
		slot.Present = true
		slot.Broken = node.Broken
		slot.FirstErr = node.FirstErr
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present {
			continue
		}
		seen := make(map[NodeID]struct{}, len(slot.Meta.Deps))
		for _, dep := range slot.Meta.Deps {
			depID, ok := idx.NameToID[dep.Name]
			if !ok || int(depID) == from {
				continue
			}
			if _, dup := seen[depID]; dup {
				continue
			}
			seen[depID] = struct{}{}
			if !g.Present[int(depID)] {
				if slot.Reporter != nil {
					diag.Errorf(slot.Reporter, diag.GraDependencyNotInModule, dep.Span,
						"%s references %s which is not part of the compilation context", slot.Meta.Name, dep.Name)
				}
				continue
			}
			g.Edges[int(depID)] = append(g.Edges[int(depID)], toID(from))
			g.Indeg[from]++
		}
	}
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.Sort(g.Edges[i])
		}
	}
	return g, slots
}

func ReportCycles(idx Index, slots []Slot, topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	summary := strings.Join(idx.Names(topo.Cycles), " -> ")
	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		diag.Errorf(slot.Reporter, diag.GraCyclicDependency, slot.Meta.Span,
			"shader %s participates in a dependency cycle: %s", slot.Meta.Name, summary)
	}
}

// ReportBrokenDeps reports, on every node, each direct dependency that failed.
func ReportBrokenDeps(idx Index, slots []Slot) {
	for i := range slots {
		from := &slots[i]
		if !from.Present || from.Reporter == nil {
			continue
		}
		emitted := make(map[string]struct{}, len(from.Meta.Deps))
		for _, dep := range from.Meta.Deps {
			toID, ok := idx.NameToID[dep.Name]
			if !ok || !slots[int(toID)].Broken {
				continue
			}
			if _, seen := emitted[dep.Name]; seen {
				continue
			}
			emitted[dep.Name] = struct{}{}

			b := diag.ReportError(from.Reporter, diag.GraDependencyFailed, dep.Span,
				fmt.Sprintf("dependency %s has errors", dep.Name))
			if first := slots[int(toID)].FirstErr; first != nil {
				b.WithNote(first.Primary, "first error in dependency: "+first.Message)
			}
			b.Emit()
		}
	}
}
