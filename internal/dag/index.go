package dag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"github.com/stride3d/stride-sub014/internal/source"
)

type NodeID uint32

// Edge is a dependency of a node: a base class, a compose field type or a
// statically referenced class.
type Edge struct {
	Name string
	Span source.Span
}

// Meta describes one fragment record for ordering purposes.
type Meta struct {
	Name string
	Span source.Span
	Deps []Edge
}

type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// собрать уникальные имена, sort.Strings, раздать ID по порядку
func BuildIndex(metas []Meta) Index {
	uniq := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		if meta.Name != "" {
			uniq[meta.Name] = struct{}{}
		}
		for _, dep := range meta.Deps {
			if dep.Name != "" {
				uniq[dep.Name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]NodeID, len(names))
	for i, name := range names {
		id, err := safecast.Conv[NodeID](i)
		if err != nil {
			panic(fmt.Errorf("node id overflow: %w", err))
		}
		nameToID[name] = id
	}
	return Index{NameToID: nameToID, IDToName: names}
}

// Names maps ids back to names.
func (idx Index) Names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
