package graph

import (
	"github.com/stride3d/stride-sub014/internal/mixin"
)

// replace substitutes a freshly loaded record with an already analyzed one
// when both print to the same instantiated AST and their dependency closures
// match one to one. The two keys differ only by macros that did not change
// the source, so analysis of either would produce the same fragment.
//
// The equality check does not look at macros nested inside default
// compositions; TestReplacementReusesAnalyzedRecord guards the observable behavior.
func (s *session) replace(res *Result) {
	candidates := s.b.Cache.Records()
	for _, r := range s.order {
		if !s.fresh[r] || r.Synthetic || r.Shader == nil {
			continue
		}
		for _, c := range candidates {
			if c == r || !equivalent(r, c) {
				continue
			}
			res.Replaced[r.Key] = c
			s.b.Cache.alias(r.Key, c)
			break
		}
	}
}

func equivalent(fresh, old *mixin.Record) bool {
	if fresh.Key.Class != old.Key.Class || fresh.Key.Generics != old.Key.Generics {
		return false
	}
	old.Lock()
	defer old.Unlock()
	if old.Fragment == nil || !old.Fragment.Complete() || old.Diags.Len() != 0 {
		return false
	}
	if fresh.Structure != old.Structure || len(fresh.Minimal) != len(old.Minimal) {
		return false
	}
	used := make(map[*mixin.Record]bool, len(old.Minimal))
	for _, f := range fresh.Minimal {
		match := false
		for _, o := range old.Minimal {
			if used[o] || o.Key.Class != f.Key.Class || o.Key.Generics != f.Key.Generics || o.Structure != f.Structure {
				continue
			}
			used[o] = true
			match = true
			break
		}
		if !match {
			return false
		}
	}
	return true
}
