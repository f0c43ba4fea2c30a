// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"slices"

	"github.com/gogpu/spvpatch/spirv"
)

// DrefSplitter gives depth-comparison sampling its own sampler binding
// wherever one sampler is used for both comparison and regular lookups.
// A mixed sampler variable is duplicated: the original keeps the regular
// lookups and the duplicate (SplitDrefComparison) serves the comparisons.
// A mixed combined image-sampler is split into its image plus a regular
// (SplitDrefRegular) and a comparison (SplitDrefComparison) sampler.
func DrefSplitter(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	if err := checkMap(cm, "correction map"); err != nil {
		return nil, named("drefsplitter", err)
	}
	out, err := drefSplitter(spv, cm)
	return out, named("drefsplitter", err)
}

func isDrefOp(op spirv.OpCode) bool {
	switch op {
	case spirv.OpImageSampleDrefImplicitLod, spirv.OpImageSampleDrefExplicitLod,
		spirv.OpImageSampleProjDrefImplicitLod, spirv.OpImageSampleProjDrefExplicitLod,
		spirv.OpImageDrefGather:
		return true
	}
	return false
}

func isRegularSampleOp(op spirv.OpCode) bool {
	switch op {
	case spirv.OpImageSampleImplicitLod, spirv.OpImageSampleExplicitLod,
		spirv.OpImageSampleProjImplicitLod, spirv.OpImageSampleProjExplicitLod,
		spirv.OpImageGather, spirv.OpImageQueryLod:
		return true
	}
	return false
}

// samplerSource is the pointer a sampling instruction's sampler comes
// from: a sampler or combined image-sampler, variable or parameter.
type samplerSource struct {
	ptr      uint32
	combined bool
	param    bool
	regular  []spirv.Inst
	dref     []spirv.Inst
}

// resolveSampler traces the sampled image operand of a sampling
// instruction back to the pointer its sampler was loaded from.
func resolveSampler(s *spirv.Stream, sampledImage uint32) (ptr uint32, combined, ok bool) {
	def, ok := s.Def(sampledImage)
	if !ok {
		return 0, false, false
	}
	switch def.Opcode() {
	case spirv.OpSampledImage:
		load, ok := s.Def(def.Operand(3))
		if !ok || load.Opcode() != spirv.OpLoad {
			return 0, false, false
		}
		return load.Operand(2), false, true
	case spirv.OpLoad:
		return def.Operand(2), true, true
	}
	return 0, false, false
}

func drefSplitter(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	p, err := newPass(spv)
	if err != nil {
		return nil, err
	}
	var sources []*samplerSource
	byPtr := make(map[uint32]*samplerSource)
	for _, inst := range p.s.Insts() {
		op := inst.Opcode()
		dref := isDrefOp(op)
		if !dref && !isRegularSampleOp(op) {
			continue
		}
		ptr, combined, ok := resolveSampler(p.s, inst.Operand(2))
		if !ok {
			if dref {
				return nil, newError(ErrUntraceableOperand, inst.Offset, "sampler of %s cannot be traced to a variable", op)
			}
			continue
		}
		src := byPtr[ptr]
		if src == nil {
			def, _ := p.s.Def(ptr)
			src = &samplerSource{ptr: ptr, combined: combined, param: def.Opcode() == spirv.OpFunctionParameter}
			byPtr[ptr] = src
			sources = append(sources, src)
		}
		if dref {
			src.dref = append(src.dref, inst)
		} else {
			src.regular = append(src.regular, inst)
		}
	}

	var sibs []sibling
	for _, src := range sources {
		if len(src.dref) == 0 || len(src.regular) == 0 {
			continue
		}
		if src.param {
			return nil, newError(ErrUnsupported, src.dref[0].Offset, "mixed comparison sampling through function parameter %%%d", src.ptr)
		}
		d, ok := p.table.byID[src.ptr]
		if !ok {
			return nil, newError(ErrMissingBinding, src.dref[0].Offset, "sampler %%%d has no descriptor binding", src.ptr)
		}
		key, _ := cm.OriginalBinding(d.set, d.binding)
		var added []sibling
		var err error
		if src.combined {
			added, err = p.splitMixedCombined(src, d, key)
		} else {
			added = p.splitMixedSampler(src, d, key)
		}
		if err != nil {
			return nil, err
		}
		sibs = append(sibs, added...)
	}
	if len(sibs) == 0 {
		return spv, nil
	}
	if err := p.addSiblings(cm, sibs); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

// splitMixedSampler duplicates a separate sampler variable and moves the
// comparison lookups onto the duplicate.
func (p *pass) splitMixedSampler(src *samplerSource, d *descriptor, key uint32) []sibling {
	v, _ := p.s.Def(src.ptr)
	cmp := p.alloc.Next()
	words := v.Clone()
	words[2] = cmp
	p.edits.InsertAfter(v.Offset, words...)

	for _, inst := range src.dref {
		si, _ := p.s.Def(inst.Operand(2))
		load, _ := p.s.Def(si.Operand(3))
		b := newEmitter(p.alloc)
		smp := b.op(spirv.OpLoad, load.ResultType(), cmp)
		p.rewireSampledImage(b, inst, si.ResultType(), si.Operand(2), smp)
	}
	return []sibling{{set: d.set, key: key, pos: -1, tag: SplitDrefComparison, base: src.ptr, id: cmp}}
}

// splitMixedCombined separates a combined image-sampler used both ways into
// its image and two samplers.
func (p *pass) splitMixedCombined(src *samplerSource, d *descriptor, key uint32) ([]sibling, error) {
	v, _ := p.s.Def(src.ptr)
	_, si, ok := pointee(p.s, v.ResultType())
	if !ok || si.Opcode() != spirv.OpTypeSampledImage {
		return nil, newError(ErrUnsupported, v.Offset, "combined sampler %%%d is not a sampled image", src.ptr)
	}
	for _, call := range p.s.Find(spirv.OpFunctionCall) {
		if slices.Contains(call.Operands()[3:], src.ptr) {
			return nil, newError(ErrUnsupported, call.Offset, "mixed comparison sampler %%%d passed to a function", src.ptr)
		}
	}
	imageType := si.Operand(1)
	p.retypeCombined(v, p.types.Pointer(spirv.StorageClassUniformConstant, imageType))
	regular := p.samplerVar()
	cmp := p.samplerVar()
	sp := &split{ptr: src.ptr, samplers: []uint32{regular, cmp}, imageType: imageType}

	images := make(map[uint32]uint32) // loaded sampled image -> loaded image
	for _, load := range p.s.Find(spirv.OpLoad) {
		if load.Operand(2) == src.ptr {
			images[load.ResultID()] = p.replaceCombinedLoad(load, sp, regular)
		}
	}
	for _, inst := range src.dref {
		b := newEmitter(p.alloc)
		smp := b.op(spirv.OpLoad, p.types.Sampler(), cmp)
		p.rewireSampledImage(b, inst, si.ResultID(), images[inst.Operand(2)], smp)
	}
	return []sibling{
		{set: d.set, key: key, pos: -1, tag: SplitDrefRegular, base: src.ptr, id: regular},
		{set: d.set, key: key, pos: -1, tag: SplitDrefComparison, base: src.ptr, id: cmp},
	}, nil
}

// rewireSampledImage replaces a sampling instruction with one that samples
// a fresh OpSampledImage of image and sampler, preceded by whatever b holds.
func (p *pass) rewireSampledImage(b *emitter, inst spirv.Inst, siType, image, sampler uint32) {
	joined := b.op(spirv.OpSampledImage, siType, image, sampler)
	words := inst.Clone()
	words[3] = joined
	b.words = append(b.words, words...)
	p.edits.Replace(inst.Offset, b.take()...)
}
