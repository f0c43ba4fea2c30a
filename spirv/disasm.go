// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Disassemble writes a textual listing of a module in the style of
// spirv-dis: one instruction per line, result IDs right-aligned before the
// opcode name.
func Disassemble(w io.Writer, words []uint32) error {
	h, body, err := ParseHeader(words)
	if err != nil {
		return err
	}
	s, err := Scan(body)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "; SPIR-V\n; Version: %s\n; Generator: 0x%08x\n; Bound: %d\n; Schema: %d\n",
		h.Version, h.Generator, h.Bound, h.Schema)
	for _, inst := range s.Insts() {
		bw.WriteString(formatInst(inst))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func id(word uint32) string {
	return "%" + strconv.FormatUint(uint64(word), 10)
}

// operandWriter renders operands left to right.
type operandWriter struct {
	parts []string
	rest  []uint32
}

func (o *operandWriter) ids(n int) {
	for ; n != 0 && len(o.rest) > 0; n-- {
		o.parts = append(o.parts, id(o.rest[0]))
		o.rest = o.rest[1:]
	}
}

func (o *operandWriter) literals(n int) {
	for ; n != 0 && len(o.rest) > 0; n-- {
		o.parts = append(o.parts, strconv.FormatUint(uint64(o.rest[0]), 10))
		o.rest = o.rest[1:]
	}
}

func (o *operandWriter) str() {
	s, n := DecodeString(o.rest)
	o.parts = append(o.parts, strconv.Quote(s))
	o.rest = o.rest[n:]
}

func (o *operandWriter) named(name fmt.Stringer) {
	if len(o.rest) == 0 {
		return
	}
	o.parts = append(o.parts, name.String())
	o.rest = o.rest[1:]
}

func formatInst(inst Inst) string {
	op := inst.Opcode()
	o := &operandWriter{rest: inst.Operands()}

	var prefix string
	switch {
	case op.HasResultType() && len(o.rest) >= 2:
		prefix = id(o.rest[1])
		o.parts = append(o.parts, id(o.rest[0]))
		o.rest = o.rest[2:]
	case op.HasResult() && len(o.rest) >= 1:
		prefix = id(o.rest[0])
		o.rest = o.rest[1:]
	}

	switch op {
	case OpCapability:
		if len(o.rest) > 0 {
			o.named(Capability(o.rest[0]))
		}
	case OpMemoryModel:
		if len(o.rest) > 1 {
			o.named(AddressingModel(o.rest[0]))
			o.named(MemoryModel(o.rest[0]))
		}
		o.literals(-1)
	case OpSource, OpTypeInt, OpTypeFloat, OpConstant, OpSpecConstant:
		o.literals(-1)
	case OpExtension, OpExtInstImport:
		o.str()
	case OpEntryPoint:
		if len(o.rest) > 0 {
			o.named(ExecutionModel(o.rest[0]))
		}
		o.ids(1)
		o.str()
	case OpExecutionMode:
		o.ids(1)
		if len(o.rest) > 0 {
			o.named(ExecutionMode(o.rest[0]))
		}
		o.literals(-1)
	case OpName:
		o.ids(1)
		o.str()
	case OpMemberName:
		o.ids(1)
		o.literals(1)
		o.str()
	case OpDecorate:
		o.ids(1)
		if len(o.rest) > 0 {
			o.named(Decoration(o.rest[0]))
		}
		o.literals(-1)
	case OpMemberDecorate:
		o.ids(1)
		o.literals(1)
		if len(o.rest) > 0 {
			o.named(Decoration(o.rest[0]))
		}
		o.literals(-1)
	case OpTypeVector, OpTypeMatrix:
		o.ids(1)
		o.literals(-1)
	case OpTypeImage:
		o.ids(1)
		if len(o.rest) > 0 {
			o.named(Dim(o.rest[0]))
		}
		o.literals(-1)
	case OpTypePointer:
		if len(o.rest) > 0 {
			o.named(StorageClass(o.rest[0]))
		}
		o.ids(-1)
	case OpVariable:
		if len(o.rest) > 0 {
			o.named(StorageClass(o.rest[0]))
		}
		o.ids(-1)
	case OpFunction:
		if len(o.rest) > 0 {
			o.named(FunctionControl(o.rest[0]))
		}
		o.ids(-1)
	case OpExtInst:
		o.ids(1)
		o.literals(1)
		o.ids(-1)
	case OpCompositeExtract:
		o.ids(1)
		o.literals(-1)
	case OpCompositeInsert, OpVectorShuffle:
		o.ids(2)
		o.literals(-1)
	case OpSelectionMerge:
		o.ids(1)
		o.literals(-1)
	case OpLoopMerge:
		o.ids(2)
		o.literals(-1)
	case OpLoad:
		o.ids(1)
		o.literals(-1)
	case OpStore:
		o.ids(2)
		o.literals(-1)
	case OpImageSampleImplicitLod, OpImageSampleExplicitLod,
		OpImageSampleProjImplicitLod, OpImageSampleProjExplicitLod,
		OpImageFetch, OpImageRead:
		o.ids(2)
		o.literals(1)
		o.ids(-1)
	case OpImageSampleDrefImplicitLod, OpImageSampleDrefExplicitLod,
		OpImageSampleProjDrefImplicitLod, OpImageSampleProjDrefExplicitLod,
		OpImageGather, OpImageDrefGather, OpImageWrite:
		o.ids(3)
		o.literals(1)
		o.ids(-1)
	}
	o.ids(-1)

	var line strings.Builder
	if prefix != "" {
		fmt.Fprintf(&line, "%12s = ", prefix)
	} else {
		line.WriteString(strings.Repeat(" ", 15))
	}
	line.WriteString(op.String())
	for _, part := range o.parts {
		line.WriteByte(' ')
		line.WriteString(part)
	}
	return line.String()
}
