package vtable

import (
	"fmt"

	"github.com/stride3d/stride-sub014/internal/ast"
	"github.com/stride3d/stride-sub014/internal/diag"
)

// Merger folds local tables of an inheritance chain, least derived first, into one table.
type Merger struct {
	table    *Table
	reporter diag.Reporter
	owner    string
}

// NewMerger starts a merged table for the fragment named owner; override
// problems of owner's own declarations go to r.
func NewMerger(owner string, r diag.Reporter) *Merger {
	if r == nil {
		r = diag.NopReporter{}
	}
	return &Merger{table: &Table{}, reporter: r, owner: owner}
}

// Inherit adds the local table of a base class. Bases were checked when they
// were analyzed themselves, so nothing is reported here.
func (m *Merger) Inherit(local *Table) { m.add(local, false) }

// Declare adds the owner's own local table and checks it against everything inherited so far.
func (m *Merger) Declare(local *Table) { m.add(local, true) }

func (m *Merger) Table() *Table { return m.table }

func (m *Merger) add(local *Table, check bool) {
	for _, le := range local.Methods {
		idx := m.table.findSignature(le.Method)
		if idx < 0 {
			if check && le.Method.Qual.Has(ast.QualOverride) {
				diag.Errorf(m.reporter, diag.OvrOverrideNotFound, le.Method.Span,
					"method %s in %s is marked override but no base class declares it", le.Method.Signature(), m.owner)
			}
			m.table.Methods = append(m.table.Methods, le)
			continue
		}
		e := &m.table.Methods[idx]
		if e.Impl == le.Impl {
			continue
		}
		if check {
			m.checkOverride(e, le.Method)
		}
		e.Impl = le.Impl
		e.Method = le.Method
	}
	for _, lv := range local.Variables {
		if check {
			for _, inherited := range m.table.FindVariables(lv.Var.Name) {
				if inherited.Slot == lv.Slot {
					continue
				}
				diag.ReportError(m.reporter, diag.NamBaseNameConflict, lv.Var.Span,
					fmt.Sprintf("field %s in %s hides field of %s", lv.Var.Name, m.owner, inherited.Slot.Shader)).
					WithNote(inherited.Var.Span, "declared here").
					Emit()
			}
		}
		if !m.table.hasVariable(lv.Slot) {
			m.table.Variables = append(m.table.Variables, lv)
		}
	}
	for _, lt := range local.Types {
		dup := false
		for _, t := range m.table.Types {
			if t.Slot == lt.Slot {
				dup = true
				break
			}
		}
		if !dup {
			m.table.Types = append(m.table.Types, lt)
		}
	}
}

func (m *Merger) checkOverride(base *MethodEntry, over *ast.Method) {
	marked := over.Qual.Has(ast.QualOverride)
	switch {
	case !marked && base.Method.IsDefinition():
		diag.ReportError(m.reporter, diag.OvrMissingOverride, over.Span,
			fmt.Sprintf("method %s in %s overrides %s without the override qualifier", over.Signature(), m.owner, base.Impl.Shader)).
			WithNote(base.Method.Span, "overridden method").
			Emit()
	case marked && !base.Method.IsDefinition():
		diag.Warnf(m.reporter, diag.OvrExtraneousOverride, over.Span,
			"method %s in %s overrides the abstract declaration of %s", over.Signature(), m.owner, base.Ref.Shader)
	}

	baseStage := base.Method.Qual.Has(ast.QualStage)
	overStage := over.Qual.Has(ast.QualStage)
	switch {
	case baseStage && !overStage:
		diag.Warnf(m.reporter, diag.OvrStageAdded, over.Span,
			"method %s in %s overrides a stage method; stage qualifier added", over.Signature(), m.owner)
		over.Qual |= ast.QualStage
	case !baseStage && overStage:
		diag.ReportError(m.reporter, diag.OvrStageMismatch, over.Span,
			fmt.Sprintf("method %s in %s is stage but the method it overrides is not", over.Signature(), m.owner)).
			WithNote(base.Method.Span, "overridden method").
			Emit()
	}
}
