// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "fmt"

// Inst is one decoded instruction of a module body.
type Inst struct {
	Offset int      // word offset of the head word within the body
	Words  []uint32 // head word followed by operands, aliasing the body
}

// Opcode returns the instruction's opcode.
func (i Inst) Opcode() OpCode {
	return OpCode(i.Words[0] & 0xFFFF)
}

// WordCount returns the number of words the instruction occupies.
func (i Inst) WordCount() int {
	return len(i.Words)
}

// End returns the offset just past the instruction.
func (i Inst) End() int {
	return i.Offset + len(i.Words)
}

// Operands returns the words after the head word.
func (i Inst) Operands() []uint32 {
	return i.Words[1:]
}

// Operand returns operand n, or 0 when the instruction is shorter.
// Zero is never a valid ID, so callers can treat it as absent.
func (i Inst) Operand(n int) uint32 {
	if n+1 < len(i.Words) {
		return i.Words[n+1]
	}
	return 0
}

// ResultType returns the result type ID, or 0 if the opcode has none.
func (i Inst) ResultType() uint32 {
	if i.Opcode().HasResultType() {
		return i.Operand(0)
	}
	return 0
}

// ResultID returns the result ID, or 0 if the opcode defines none.
func (i Inst) ResultID() uint32 {
	op := i.Opcode()
	switch {
	case op.HasResultType():
		return i.Operand(1)
	case op.HasResult():
		return i.Operand(0)
	}
	return 0
}

// Clone returns a copy of the instruction words that does not alias the body.
func (i Inst) Clone() []uint32 {
	return append([]uint32(nil), i.Words...)
}

// Stream is the scanned instruction list of one module body. Offsets are
// only meaningful for the body that was scanned.
type Stream struct {
	body   []uint32
	insts  []Inst
	byOff  map[int]int
	byOp   map[OpCode][]int
	byID   map[uint32]int
	funcAt []int // per instruction, index of the enclosing OpFunction or -1
}

// Scan walks the body once and indexes every instruction by offset,
// opcode and result ID.
func Scan(body []uint32) (*Stream, error) {
	s := &Stream{
		body:  body,
		insts: make([]Inst, 0, len(body)/4),
		byOff: make(map[int]int),
		byOp:  make(map[OpCode][]int),
		byID:  make(map[uint32]int),
	}
	fn := -1
	for off := 0; off < len(body); {
		wc, op := SplitHead(body[off])
		if wc == 0 {
			return nil, fmt.Errorf("%w: zero at word %d", ErrWordCount, off)
		}
		if off+wc > len(body) {
			return nil, fmt.Errorf("%w: %s at word %d overruns the module", ErrWordCount, op, off)
		}
		idx := len(s.insts)
		inst := Inst{Offset: off, Words: body[off : off+wc : off+wc]}
		s.insts = append(s.insts, inst)
		s.byOff[off] = idx
		s.byOp[op] = append(s.byOp[op], idx)
		if id := inst.ResultID(); id != 0 {
			s.byID[id] = idx
		}
		if op == OpFunction {
			fn = idx
		}
		s.funcAt = append(s.funcAt, fn)
		if op == OpFunctionEnd {
			fn = -1
		}
		off += wc
	}
	return s, nil
}

// Body returns the scanned words.
func (s *Stream) Body() []uint32 {
	return s.body
}

// Insts returns every instruction in order.
func (s *Stream) Insts() []Inst {
	return s.insts
}

// Len returns the number of instructions.
func (s *Stream) Len() int {
	return len(s.insts)
}

// Inst returns the instruction with the given index.
func (s *Stream) Inst(idx int) Inst {
	return s.insts[idx]
}

// Find returns every instruction with the given opcode, in order.
func (s *Stream) Find(op OpCode) []Inst {
	idxs := s.byOp[op]
	out := make([]Inst, len(idxs))
	for i, idx := range idxs {
		out[i] = s.insts[idx]
	}
	return out
}

// Offsets returns the offsets of every instruction with the given opcode.
func (s *Stream) Offsets(op OpCode) []int {
	idxs := s.byOp[op]
	out := make([]int, len(idxs))
	for i, idx := range idxs {
		out[i] = s.insts[idx].Offset
	}
	return out
}

// Has reports whether any instruction has one of the given opcodes.
func (s *Stream) Has(ops ...OpCode) bool {
	for _, op := range ops {
		if len(s.byOp[op]) > 0 {
			return true
		}
	}
	return false
}

// At returns the instruction starting at offset.
func (s *Stream) At(offset int) (Inst, bool) {
	idx, ok := s.byOff[offset]
	if !ok {
		return Inst{}, false
	}
	return s.insts[idx], true
}

// IndexOf returns the instruction index of the instruction at offset.
func (s *Stream) IndexOf(offset int) (int, bool) {
	idx, ok := s.byOff[offset]
	return idx, ok
}

// Def returns the instruction defining id.
func (s *Stream) Def(id uint32) (Inst, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Inst{}, false
	}
	return s.insts[idx], true
}

// Last returns the final instruction. The stream must not be empty.
func (s *Stream) Last() Inst {
	return s.insts[len(s.insts)-1]
}

// GlobalsEnd returns the offset of the last instruction before the first
// function definition, where new module-scope declarations can go.
func (s *Stream) GlobalsEnd() int {
	if fns := s.byOp[OpFunction]; len(fns) > 0 && fns[0] > 0 {
		return s.insts[fns[0]-1].Offset
	}
	return s.Last().Offset
}

// ImportsEnd returns the offset of the last capability, extension or
// extended instruction import, where new imports can go.
func (s *Stream) ImportsEnd() (int, bool) {
	last := -1
	for i, inst := range s.insts {
		switch inst.Opcode() {
		case OpCapability, OpExtension, OpExtInstImport:
			last = i
			continue
		}
		if last >= 0 {
			break
		}
	}
	if last < 0 {
		return 0, false
	}
	return s.insts[last].Offset, true
}

// Function returns the OpFunction enclosing the instruction at offset.
func (s *Stream) Function(offset int) (Inst, bool) {
	idx, ok := s.byOff[offset]
	if !ok || s.funcAt[idx] < 0 {
		return Inst{}, false
	}
	return s.insts[s.funcAt[idx]], true
}

// EntryBlock returns the first OpLabel of the function starting at offset.
func (s *Stream) EntryBlock(fnOffset int) (Inst, bool) {
	idx, ok := s.byOff[fnOffset]
	if !ok {
		return Inst{}, false
	}
	for _, inst := range s.insts[idx+1:] {
		switch inst.Opcode() {
		case OpLabel:
			return inst, true
		case OpFunctionEnd:
			return Inst{}, false
		}
	}
	return Inst{}, false
}

// Params returns the OpFunctionParameter instructions of the function
// starting at offset.
func (s *Stream) Params(fnOffset int) []Inst {
	idx, ok := s.byOff[fnOffset]
	if !ok {
		return nil
	}
	var params []Inst
	for _, inst := range s.insts[idx+1:] {
		if inst.Opcode() != OpFunctionParameter {
			break
		}
		params = append(params, inst)
	}
	return params
}
