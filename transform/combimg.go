// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvpatch/spirv"

// CombImgSampSplitter splits every combined image-sampler descriptor into
// an image descriptor at the same binding and a sampler descriptor
// appended to its group (SplitCombined). Loads of the combined variable
// become an image load, a sampler load and OpSampledImage defining the
// original result, so every consumer keeps working. Functions taking a
// combined pointer receive a companion sampler parameter, and their call
// sites pass the companion along.
func CombImgSampSplitter(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	if err := checkMap(cm, "correction map"); err != nil {
		return nil, named("combimgsampsplitter", err)
	}
	out, err := combImgSampSplitter(spv, cm)
	return out, named("combimgsampsplitter", err)
}

// combinedTypes indexes the sampled image types of a module and the
// UniformConstant pointers to them.
type combinedTypes struct {
	image map[uint32]uint32 // sampled image type -> image type
	ptr   map[uint32]uint32 // pointer type -> sampled image type
}

func scanCombinedTypes(s *spirv.Stream) combinedTypes {
	ct := combinedTypes{image: make(map[uint32]uint32), ptr: make(map[uint32]uint32)}
	for _, si := range s.Find(spirv.OpTypeSampledImage) {
		ct.image[si.ResultID()] = si.Operand(1)
	}
	for _, ptr := range s.Find(spirv.OpTypePointer) {
		if spirv.StorageClass(ptr.Operand(1)) != spirv.StorageClassUniformConstant {
			continue
		}
		if _, ok := ct.image[ptr.Operand(2)]; ok {
			ct.ptr[ptr.ResultID()] = ptr.Operand(2)
		}
	}
	return ct
}

// arrayed reports whether a UniformConstant variable holds an array of
// sampled images.
func (ct combinedTypes) arrayed(s *spirv.Stream, v spirv.Inst) bool {
	sc, t, ok := pointee(s, v.ResultType())
	if !ok || sc != spirv.StorageClassUniformConstant {
		return false
	}
	if t.Opcode() != spirv.OpTypeArray && t.Opcode() != spirv.OpTypeRuntimeArray {
		return false
	}
	_, ok = ct.image[t.Operand(1)]
	return ok
}

// split is one combined pointer being separated into image and sampler.
type split struct {
	ptr       uint32 // variable or parameter, retyped to the image pointer
	samplers  []uint32
	imageType uint32
}

// retypeCombined points a combined variable at its image type. The
// declaration moves behind the staged declarations when the image pointer
// type is new.
func (p *pass) retypeCombined(v spirv.Inst, imagePtr uint32) {
	if _, staged := p.types.Staged(imagePtr); staged {
		p.edits.Nop(v.Offset)
		words := v.Clone()
		words[1] = imagePtr
		p.global(words)
		return
	}
	p.edits.Overwrite(v.Offset+1, imagePtr)
}

// samplerVar declares a new UniformConstant sampler variable.
func (p *pass) samplerVar() uint32 {
	ptr := p.types.Pointer(spirv.StorageClassUniformConstant, p.types.Sampler())
	id := p.alloc.Next()
	p.global(spirv.Encode(spirv.OpVariable, ptr, id, uint32(spirv.StorageClassUniformConstant)))
	return id
}

// replaceCombinedLoad rewrites a load of a combined pointer into separate
// image and sampler loads joined by OpSampledImage. It returns the ID of
// the loaded image.
func (p *pass) replaceCombinedLoad(load spirv.Inst, sp *split, sampler uint32) uint32 {
	b := newEmitter(p.alloc)
	img := b.op(spirv.OpLoad, sp.imageType, sp.ptr)
	smp := b.op(spirv.OpLoad, p.types.Sampler(), sampler)
	b.opTo(load.ResultID(), spirv.OpSampledImage, load.ResultType(), img, smp)
	p.edits.Replace(load.Offset, b.take()...)
	return img
}

func combImgSampSplitter(spv []uint32, cm *CorrectionMap) ([]uint32, error) {
	p, err := newPass(spv)
	if err != nil {
		return nil, err
	}
	ct := scanCombinedTypes(p.s)
	if len(ct.ptr) == 0 {
		return spv, nil
	}

	splits := make(map[uint32]*split)
	var sibs []sibling
	for _, v := range p.s.Find(spirv.OpVariable) {
		if ct.arrayed(p.s, v) {
			return nil, newError(ErrUnsupported, v.Offset, "array of combined image samplers %%%d", v.ResultID())
		}
		si, ok := ct.ptr[v.ResultType()]
		if !ok {
			continue
		}
		d, ok := p.table.byID[v.ResultID()]
		if !ok {
			return nil, newError(ErrMissingBinding, v.Offset, "combined image sampler %%%d has no descriptor binding", v.ResultID())
		}
		imageType := ct.image[si]
		p.retypeCombined(v, p.types.Pointer(spirv.StorageClassUniformConstant, imageType))
		sampler := p.samplerVar()
		splits[v.ResultID()] = &split{ptr: v.ResultID(), samplers: []uint32{sampler}, imageType: imageType}

		key, _ := cm.OriginalBinding(d.set, d.binding)
		sibs = append(sibs, sibling{set: d.set, key: key, pos: -1, tag: SplitCombined, base: v.ResultID(), id: sampler})
	}
	if len(splits) == 0 {
		return spv, nil
	}

	if err := p.splitParams(ct, splits); err != nil {
		return nil, err
	}
	for _, load := range p.s.Find(spirv.OpLoad) {
		if sp, ok := splits[load.Operand(2)]; ok {
			p.replaceCombinedLoad(load, sp, sp.samplers[0])
		}
	}
	if err := p.addSiblings(cm, sibs); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

// splitParams gives every function parameter of combined pointer type a
// companion sampler parameter, re-interns the function type and passes
// the companion at every call site.
func (p *pass) splitParams(ct combinedTypes, splits map[uint32]*split) error {
	samplerPtr := p.types.Pointer(spirv.StorageClassUniformConstant, p.types.Sampler())
	changed := make(map[uint32][]int) // function ID -> indices of split parameters
	for _, fn := range p.s.Find(spirv.OpFunction) {
		params := p.s.Params(fn.Offset)
		types := make([]uint32, 0, len(params)+1)
		var idxs []int
		for i, param := range params {
			si, ok := ct.ptr[param.ResultType()]
			if !ok {
				types = append(types, param.ResultType())
				continue
			}
			imageType := ct.image[si]
			imagePtr := p.types.Pointer(spirv.StorageClassUniformConstant, imageType)
			companion := p.alloc.Next()
			p.edits.Overwrite(param.Offset+1, imagePtr)
			p.edits.InsertAfter(param.Offset, spirv.Encode(spirv.OpFunctionParameter, samplerPtr, companion)...)
			splits[param.ResultID()] = &split{ptr: param.ResultID(), samplers: []uint32{companion}, imageType: imageType}
			types = append(types, imagePtr, samplerPtr)
			idxs = append(idxs, i)
		}
		if len(idxs) == 0 {
			continue
		}
		fnType := p.types.Function(fn.ResultType(), types...)
		p.edits.Overwrite(fn.Offset+4, fnType)
		changed[fn.ResultID()] = idxs
	}

	for _, call := range p.s.Find(spirv.OpFunctionCall) {
		idxs, ok := changed[call.Operand(2)]
		if !ok {
			continue
		}
		for _, i := range idxs {
			word := call.Offset + 4 + i
			arg := p.s.Body()[word]
			sp, ok := splits[arg]
			if !ok {
				return newError(ErrUnsupported, call.Offset, "combined image sampler argument %%%d is not a variable or parameter", arg)
			}
			p.edits.InsertWord(call.Offset, word, sp.samplers[0])
		}
	}
	return nil
}
