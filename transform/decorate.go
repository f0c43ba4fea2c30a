// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"slices"

	"github.com/gogpu/spvpatch/spirv"
)

// descriptor is a resource variable decorated with a descriptor set and
// binding.
type descriptor struct {
	id      uint32
	set     uint32
	binding uint32
	decos   []spirv.Inst // every OpDecorate targeting the variable
}

// descriptorTable indexes the descriptor variables of a scanned module.
type descriptorTable struct {
	byID map[uint32]*descriptor
}

func scanDescriptors(s *spirv.Stream) *descriptorTable {
	decos := make(map[uint32][]spirv.Inst)
	sets := make(map[uint32]uint32)
	bindings := make(map[uint32]uint32)
	for _, inst := range s.Find(spirv.OpDecorate) {
		target := inst.Operand(0)
		decos[target] = append(decos[target], inst)
		switch spirv.Decoration(inst.Operand(1)) {
		case spirv.DecorationDescriptorSet:
			sets[target] = inst.Operand(2)
		case spirv.DecorationBinding:
			bindings[target] = inst.Operand(2)
		}
	}
	t := &descriptorTable{byID: make(map[uint32]*descriptor)}
	for id, set := range sets {
		binding, ok := bindings[id]
		if !ok {
			continue
		}
		t.byID[id] = &descriptor{id: id, set: set, binding: binding, decos: decos[id]}
	}
	return t
}

// lookup returns the descriptor variable bound at (set, binding).
func (t *descriptorTable) lookup(set, binding uint32) (*descriptor, bool) {
	var found *descriptor
	for _, d := range t.byID {
		// Aliased bindings are legal; pick the lowest ID so the choice is stable.
		if d.set == set && d.binding == binding && (found == nil || d.id < found.id) {
			found = d
		}
	}
	return found, found != nil
}

// inSet returns the descriptors of set ordered by binding, then ID.
func (t *descriptorTable) inSet(set uint32) []*descriptor {
	var out []*descriptor
	for _, d := range t.byID {
		if d.set == set {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b *descriptor) int {
		if a.binding != b.binding {
			return int(a.binding) - int(b.binding)
		}
		return int(a.id) - int(b.id)
	})
	return out
}

// sibling is a binding added next to an existing descriptor variable.
type sibling struct {
	set  uint32
	key  uint32 // authored binding of the group
	pos  int    // index in the group's correction list; -1 appends
	tag  CorrectionType
	base uint32 // variable whose decorations are copied
	id   uint32 // new variable, 0 for markers
}

// listEntry is a correction list entry tracked through insertion.
type listEntry struct {
	tag     CorrectionType
	oldSlot int    // 1-based slot before the update, 0 for new or marker entries
	id      uint32 // new variable of an inserted entry
}

// decorate records siblings in the correction map and queues the
// annotations of every new variable: a copy of each OpDecorate of its base
// with the new binding written in, and an entry in every OpEntryPoint
// interface that lists the base. Bindings in the touched sets are
// recomputed so every group stays contiguous; the returned remap holds the
// existing variables whose Binding must change, for correctDecorate.
func decorate(s *spirv.Stream, e *Edits, cm *CorrectionMap, table *descriptorTable, sibs []sibling) (map[uint32]uint32, error) {
	if len(sibs) == 0 {
		return nil, nil
	}
	old := cm.Clone()

	type groupKey struct{ set, key uint32 }
	lists := make(map[groupKey][]listEntry)
	for _, sib := range sibs {
		g := groupKey{sib.set, sib.key}
		list, ok := lists[g]
		if !ok {
			prev, _ := old.Lookup(sib.set, sib.key)
			slot := 0
			for _, t := range prev {
				entry := listEntry{tag: t}
				if t.Synthetic() {
					slot++
					entry.oldSlot = slot
				}
				list = append(list, entry)
			}
		}
		pos := sib.pos
		if pos < 0 || pos > len(list) {
			pos = len(list)
		}
		lists[g] = slices.Insert(list, pos, listEntry{tag: sib.tag, id: sib.id})
	}

	// Slot renumbering per group, and the corrected map.
	slotMap := make(map[groupKey]map[int]int)
	newSlot := make(map[uint32]int)
	for g, list := range lists {
		m := map[int]int{0: 0}
		tags := make([]CorrectionType, 0, len(list))
		slot := 0
		for _, entry := range list {
			tags = append(tags, entry.tag)
			if !entry.tag.Synthetic() {
				continue
			}
			slot++
			if entry.oldSlot > 0 {
				m[entry.oldSlot] = slot
			} else if entry.id != 0 {
				newSlot[entry.id] = slot
			}
		}
		slotMap[g] = m
		cm.ensure(g.set, g.key).Corrections = tags
	}

	remap := make(map[uint32]uint32)
	touched := make(map[uint32]bool)
	for g := range lists {
		touched[g.set] = true
	}
	for set := range touched {
		for _, d := range table.inSet(set) {
			key, slot := old.OriginalBinding(set, d.binding)
			if m, ok := slotMap[groupKey{set, key}]; ok {
				slot = m[slot]
			}
			if b := cm.CurrentBinding(set, key) + uint32(slot); b != d.binding {
				remap[d.id] = b
			}
		}
	}

	entryPoints := s.Find(spirv.OpEntryPoint)
	for _, sib := range sibs {
		if sib.id == 0 {
			continue
		}
		base, ok := table.byID[sib.base]
		if !ok {
			return nil, newError(ErrMissingBinding, -1, "variable %%%d carries no descriptor set and binding", sib.base)
		}
		binding := cm.CurrentBinding(sib.set, sib.key) + uint32(newSlot[sib.id])
		for _, d := range base.decos {
			words := d.Clone()
			words[1] = sib.id
			if spirv.Decoration(d.Operand(1)) == spirv.DecorationBinding {
				words[3] = binding
			}
			e.InsertAfter(d.Offset, words...)
		}
		for _, ep := range entryPoints {
			if listsInterface(ep, sib.base) {
				e.AppendWord(ep, sib.id)
			}
		}
	}
	return remap, nil
}

// listsInterface reports whether an OpEntryPoint names id in its interface.
func listsInterface(ep spirv.Inst, id uint32) bool {
	ops := ep.Operands()
	if len(ops) < 3 {
		return false
	}
	_, n := spirv.DecodeString(ops[2:])
	return slices.Contains(ops[2+n:], id)
}

// correctDecorate rewrites the Binding literal of every variable in remap.
// It runs on the edited body so targets are found at their final offsets.
func correctDecorate(body []uint32, remap map[uint32]uint32) {
	if len(remap) == 0 {
		return
	}
	for off := 0; off < len(body); {
		wc, op := spirv.SplitHead(body[off])
		if op == spirv.OpDecorate && wc >= 4 && spirv.Decoration(body[off+2]) == spirv.DecorationBinding {
			if b, ok := remap[body[off+1]]; ok {
				body[off+3] = b
			}
		}
		off += wc
	}
}
