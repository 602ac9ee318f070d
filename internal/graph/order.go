package graph

import (
	"github.com/stride3d/stride-sub014/internal/dag"
	"github.com/stride3d/stride-sub014/internal/diag"
	"github.com/stride3d/stride-sub014/internal/mixin"
	"github.com/stride3d/stride-sub014/internal/source"
)

// close collects the final closure after replacements and orders it.
func (s *session) close(res *Result) {
	resolve := func(r *mixin.Record) *mixin.Record {
		if c, ok := res.Replaced[r.Key]; ok {
			return c
		}
		return r
	}

	res.byKey = make(map[mixin.Key]*mixin.Record)
	var closure []*mixin.Record
	in := make(map[*mixin.Record]bool)
	add := func(r *mixin.Record) {
		if in[r] {
			return
		}
		in[r] = true
		closure = append(closure, r)
		res.byKey[r.Key] = r
	}
	res.Root.walk(func(n *Node) {
		if n.Record == nil {
			return
		}
		n.Record = resolve(n.Record)
		r := n.Record
		add(r)
		r.Lock()
		minimal := r.Minimal
		r.Unlock()
		for _, m := range minimal {
			add(resolve(m))
		}
	})
	for key, c := range res.Replaced {
		res.byKey[key] = c
	}

	metas := make([]dag.Meta, 0, len(closure))
	nodes := make([]dag.Node, 0, len(closure))
	for _, r := range closure {
		meta := dag.Meta{Name: r.Key.String()}
		if r.Shader != nil {
			meta.Span = r.Shader.Span
		}
		for _, d := range r.Deps {
			dep := res.byKey[r.DepKey(d)]
			if dep == nil {
				continue
			}
			edge := dag.Edge{Name: dep.Key.String()}
			for _, b := range r.Shader.Bases {
				if b.Key() == d.Name() {
					edge.Span = b.Span
				}
			}
			meta.Deps = append(meta.Deps, edge)
		}
		metas = append(metas, meta)
		node := dag.Node{Meta: meta}
		if s.fresh[r] {
			node.Reporter = diag.BagReporter{Bag: r.Diags, Fragment: r.Name()}
		}
		nodes = append(nodes, node)
	}

	res.Index = dag.BuildIndex(metas)
	g, slots := dag.BuildGraph(res.Index, nodes)
	res.Topo = dag.ToposortKahn(g)
	dag.ReportCycles(res.Index, slots, res.Topo)

	byName := make(map[string]*mixin.Record, len(closure))
	for _, r := range closure {
		byName[r.Key.String()] = r
	}
	for _, id := range res.Topo.Order {
		res.Records = append(res.Records, byName[res.Index.IDToName[int(id)]])
	}
	for _, id := range res.Topo.Cycles {
		res.Records = append(res.Records, byName[res.Index.IDToName[int(id)]])
	}
}

// ReportBroken reports, on every record, the dependencies whose analysis
// failed. Records are shared between compilations, so a report already
// present is not repeated.
func (r *Result) ReportBroken() {
	metas := make([]dag.Meta, 0, len(r.Records))
	nodes := make([]dag.Node, 0, len(r.Records))
	for _, rec := range r.Records {
		meta := dag.Meta{Name: rec.Key.String()}
		for _, d := range rec.Deps {
			if dep := r.byKey[rec.DepKey(d)]; dep != nil {
				meta.Deps = append(meta.Deps, dag.Edge{Name: dep.Key.String()})
			}
		}
		node := dag.Node{
			Meta:     meta,
			Broken:   rec.Failed(),
			Reporter: onceReporter{bag: rec.Diags, fragment: rec.Name()},
		}
		if node.Broken {
			node.FirstErr = firstError(rec)
		}
		metas = append(metas, meta)
		nodes = append(nodes, node)
	}
	_, slots := dag.BuildGraph(r.Index, nodes)
	dag.ReportBrokenDeps(r.Index, slots)
}

func firstError(rec *mixin.Record) *diag.Diagnostic {
	items := rec.Diags.Items()
	for i := range items {
		if items[i].Severity == diag.SevError {
			return &items[i]
		}
	}
	if rec.Fragment != nil {
		items = rec.Fragment.Diags.Items()
		for i := range items {
			if items[i].Severity == diag.SevError {
				return &items[i]
			}
		}
	}
	return nil
}

type onceReporter struct {
	bag      *diag.Bag
	fragment string
}

func (r onceReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	for _, d := range r.bag.Items() {
		if d.Code == code && d.Message == msg {
			return
		}
	}
	diag.BagReporter{Bag: r.bag, Fragment: r.fragment}.Report(code, sev, primary, msg, notes)
}
