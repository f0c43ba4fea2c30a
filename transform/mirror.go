// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"slices"

	"github.com/gogpu/spvpatch/spirv"
)

// MirrorPatch reconciles the binding layouts of two modules that were
// transformed independently, typically the vertex and fragment stage of one
// pipeline. Every correction one side recorded and the other lacks is
// synthesized on the lacking side as a new sampler binding in the same
// position of the group. Both maps are updated in place.
//
// A nil module is returned for a side that did not change. When neither
// map holds corrections, both results are nil.
func MirrorPatch(left []uint32, lm *CorrectionMap, right []uint32, rm *CorrectionMap) (newLeft, newRight []uint32, err error) {
	for _, m := range []struct {
		cm   *CorrectionMap
		side string
	}{{lm, "left correction map"}, {rm, "right correction map"}} {
		if err := checkMap(m.cm, m.side); err != nil {
			return nil, nil, named("mirrorpatch", err)
		}
	}
	newLeft, newRight, err = mirrorPatch(left, lm, right, rm)
	return newLeft, newRight, named("mirrorpatch", err)
}

// newVariable is a correction the existing side lacks, with the ID of the
// variable that will carry it. Binding counts cancelled entries before it.
type newVariable struct {
	Set     uint32
	Binding uint32
	ID      uint32
	Type    CorrectionType
}

// pushAffectedDecorations returns the corrections of source that existing
// lacks. Each entry of existing cancels the first equal, not yet cancelled
// entry of source; survivors keep their order and each synthetic one gets
// a fresh ID.
func pushAffectedDecorations(alloc *Allocator, set, binding uint32, source, existing []CorrectionType) []newVariable {
	cancelled := make([]bool, len(source))
	for _, e := range existing {
		for i, s := range source {
			if !cancelled[i] && s == e {
				cancelled[i] = true
				break
			}
		}
	}
	var out []newVariable
	var offset uint32
	for i, s := range source {
		if cancelled[i] {
			offset++
			continue
		}
		nv := newVariable{Set: set, Binding: binding + offset, Type: s}
		if s.Synthetic() {
			nv.ID = alloc.Next()
		}
		out = append(out, nv)
	}
	return out
}

// mergedEntry is one entry of the reconciled correction list.
type mergedEntry struct {
	tag         CorrectionType
	left, right bool
}

// mergeCorrections interleaves two correction lists into the list both
// sides converge to. The k-th entry of a type on one side pairs with the
// k-th entry of that type on the other; unpaired right entries are placed
// before the next paired entry.
func mergeCorrections(left, right []CorrectionType) []mergedEntry {
	match := make([]int, len(left))
	paired := make([]bool, len(right))
	for i := range match {
		match[i] = -1
	}
	for j, r := range right {
		for i, l := range left {
			if match[i] < 0 && l == r {
				match[i] = j
				paired[j] = true
				break
			}
		}
	}

	out := make([]mergedEntry, 0, len(left)+len(right))
	next := 0
	flush := func(upto int) {
		for ; next < upto; next++ {
			if !paired[next] {
				out = append(out, mergedEntry{tag: right[next], right: true})
			}
		}
	}
	for i, l := range left {
		if j := match[i]; j >= 0 {
			flush(j)
			out = append(out, mergedEntry{tag: l, left: true, right: true})
			continue
		}
		out = append(out, mergedEntry{tag: l, left: true})
	}
	flush(len(right))
	return out
}

func mirrorPatch(left []uint32, lm *CorrectionMap, right []uint32, rm *CorrectionMap) ([]uint32, []uint32, error) {
	if lm.Empty() && rm.Empty() {
		return nil, nil, nil
	}
	lp, err := newPass(left)
	if err != nil {
		return nil, nil, err
	}
	rp, err := newPass(right)
	if err != nil {
		return nil, nil, err
	}
	lsnap, rsnap := lm.Clone(), rm.Clone()

	var lsibs, rsibs []sibling
	for _, set := range union(lsnap.SetIndices(), rsnap.SetIndices()) {
		for _, key := range union(lsnap.Bindings(set), rsnap.Bindings(set)) {
			l, _ := lsnap.Lookup(set, key)
			r, _ := rsnap.Lookup(set, key)
			toRight := pushAffectedDecorations(rp.alloc, set, key, l, r)
			toLeft := pushAffectedDecorations(lp.alloc, set, key, r, l)
			if len(toRight) == 0 && len(toLeft) == 0 {
				continue
			}
			var li, ri int
			for pos, m := range mergeCorrections(l, r) {
				switch {
				case !m.right:
					sib, err := rp.mirrorSibling(rsnap, toRight[ri], key, pos)
					if err != nil {
						return nil, nil, err
					}
					rsibs = append(rsibs, sib)
					ri++
				case !m.left:
					sib, err := lp.mirrorSibling(lsnap, toLeft[li], key, pos)
					if err != nil {
						return nil, nil, err
					}
					lsibs = append(lsibs, sib)
					li++
				}
			}
		}
	}

	newLeft, err := lp.mirrorFinish(lm, lsibs)
	if err != nil {
		return nil, nil, err
	}
	newRight, err := rp.mirrorFinish(rm, rsibs)
	if err != nil {
		return nil, nil, err
	}
	return newLeft, newRight, nil
}

// mirrorSibling declares the sampler variable for a correction this side
// lacks, next to the variable authored at key.
func (p *pass) mirrorSibling(snap *CorrectionMap, nv newVariable, key uint32, pos int) (sibling, error) {
	sib := sibling{set: nv.Set, key: key, pos: pos, tag: nv.Type, id: nv.ID}
	if nv.ID == 0 {
		return sib, nil
	}
	base, ok := p.table.lookup(nv.Set, snap.CurrentBinding(nv.Set, key))
	if !ok {
		return sibling{}, newError(ErrMissingBinding, -1, "no variable at set %d binding %d to mirror %s onto", nv.Set, key, nv.Type)
	}
	sib.base = base.id
	ptr := p.types.Pointer(spirv.StorageClassUniformConstant, p.types.Sampler())
	p.global(spirv.Encode(spirv.OpVariable, ptr, nv.ID, uint32(spirv.StorageClassUniformConstant)))
	return sib, nil
}

// mirrorFinish records the siblings and emits the module, or nil when only
// markers were added.
func (p *pass) mirrorFinish(cm *CorrectionMap, sibs []sibling) ([]uint32, error) {
	if len(sibs) == 0 {
		return nil, nil
	}
	if err := p.addSiblings(cm, sibs); err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(sibs, func(s sibling) bool { return s.id != 0 }) {
		return nil, nil
	}
	return p.finish(), nil
}

// union returns the sorted, deduplicated union of two sorted lists.
func union(a, b []uint32) []uint32 {
	out := slices.Concat(a, b)
	slices.Sort(out)
	return slices.Compact(out)
}
