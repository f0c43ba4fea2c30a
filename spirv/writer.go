// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "math"

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddWords adds several words to the instruction.
func (b *InstructionBuilder) AddWords(words ...uint32) {
	b.words = append(b.words, words...)
}

// AddString adds a null-terminated UTF-8 string.
func (b *InstructionBuilder) AddString(s string) {
	b.words = append(b.words, EncodeString(s)...)
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

// Encode encodes the instruction to binary.
func (i Instruction) Encode() []uint32 {
	result := make([]uint32, 0, len(i.Words)+1)
	result = append(result, Head(len(i.Words)+1, i.Opcode))
	return append(result, i.Words...)
}

// Encode packs an opcode and its operands into instruction words.
func Encode(op OpCode, operands ...uint32) []uint32 {
	return Instruction{Opcode: op, Words: operands}.Encode()
}

// EncodeString packs a literal string into nul-terminated, zero-padded words.
func EncodeString(s string) []uint32 {
	n := len(s)/4 + 1
	words := make([]uint32, n)
	for i := 0; i < len(s); i++ {
		words[i/4] |= uint32(s[i]) << (8 * (i % 4))
	}
	return words
}

// ModuleBuilder builds complete SPIR-V modules section by section. The
// builder does not validate; it is how tools and tests assemble inputs.
type ModuleBuilder struct {
	version   Version
	generator uint32
	schema    uint32
	nextID    uint32

	// Sections in logical layout order.
	capabilities   []Instruction
	extensions     []Instruction
	extInstImports []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debug          []Instruction // OpString, OpName, OpMemberName
	annotations    []Instruction // OpDecorate, OpMemberDecorate
	types          []Instruction // OpType*, OpConstant*
	globalVars     []Instruction // OpVariable (global)
	functions      []Instruction // OpFunction...OpFunctionEnd
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		nextID:    1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns the current ID bound.
func (b *ModuleBuilder) Bound() uint32 {
	return b.nextID
}

func (b *ModuleBuilder) emit(section *[]Instruction, op OpCode, words ...uint32) {
	*section = append(*section, Instruction{Opcode: op, Words: words})
}

// result allocates an ID and emits an instruction whose first operand is it.
func (b *ModuleBuilder) result(section *[]Instruction, op OpCode, operands ...uint32) uint32 {
	id := b.AllocID()
	b.emit(section, op, append([]uint32{id}, operands...)...)
	return id
}

// typed allocates an ID and emits a typed instruction: type, id, operands.
func (b *ModuleBuilder) typed(section *[]Instruction, op OpCode, resultType uint32, operands ...uint32) uint32 {
	id := b.AllocID()
	b.emit(section, op, append([]uint32{resultType, id}, operands...)...)
	return id
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	b.emit(&b.capabilities, OpCapability, uint32(capability))
}

// AddExtension adds an extension.
func (b *ModuleBuilder) AddExtension(name string) {
	b.emit(&b.extensions, OpExtension, EncodeString(name)...)
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	return b.result(&b.extInstImports, OpExtInstImport, EncodeString(name)...)
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	inst := Instruction{Opcode: OpMemoryModel, Words: []uint32{uint32(addressing), uint32(memory)}}
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	words := []uint32{uint32(execModel), funcID}
	words = append(words, EncodeString(name)...)
	b.emit(&b.entryPoints, OpEntryPoint, append(words, interfaces...)...)
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ExecutionMode, params ...uint32) {
	b.emit(&b.executionModes, OpExecutionMode, append([]uint32{entryPoint, uint32(mode)}, params...)...)
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	b.emit(&b.debug, OpName, append([]uint32{id}, EncodeString(name)...)...)
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	b.emit(&b.annotations, OpDecorate, append([]uint32{id, uint32(decoration)}, params...)...)
}

// AddBinding decorates a resource variable with its descriptor set and binding.
func (b *ModuleBuilder) AddBinding(id, set, binding uint32) {
	b.AddDecorate(id, DecorationDescriptorSet, set)
	b.AddDecorate(id, DecorationBinding, binding)
}

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() uint32 {
	return b.result(&b.types, OpTypeVoid)
}

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() uint32 {
	return b.result(&b.types, OpTypeBool)
}

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) uint32 {
	return b.result(&b.types, OpTypeFloat, width)
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) uint32 {
	var signedness uint32
	if signed {
		signedness = 1
	}
	return b.result(&b.types, OpTypeInt, width, signedness)
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType uint32, count uint32) uint32 {
	return b.result(&b.types, OpTypeVector, componentType, count)
}

// AddTypeArray adds OpTypeArray; length is a constant ID.
func (b *ModuleBuilder) AddTypeArray(elementType uint32, length uint32) uint32 {
	return b.result(&b.types, OpTypeArray, elementType, length)
}

// AddTypeImage adds OpTypeImage with an Unknown format.
func (b *ModuleBuilder) AddTypeImage(sampledType uint32, dim Dim, depth, arrayed, ms, sampled uint32) uint32 {
	return b.result(&b.types, OpTypeImage, sampledType, uint32(dim), depth, arrayed, ms, sampled, uint32(ImageFormatUnknown))
}

// AddTypeStorageImage adds a storage OpTypeImage with an explicit format.
func (b *ModuleBuilder) AddTypeStorageImage(sampledType uint32, dim Dim, arrayed uint32, format ImageFormat) uint32 {
	return b.result(&b.types, OpTypeImage, sampledType, uint32(dim), 0, arrayed, 0, ImageSampledStorage, uint32(format))
}

// AddTypeSampler adds OpTypeSampler.
func (b *ModuleBuilder) AddTypeSampler() uint32 {
	return b.result(&b.types, OpTypeSampler)
}

// AddTypeSampledImage adds OpTypeSampledImage.
func (b *ModuleBuilder) AddTypeSampledImage(imageType uint32) uint32 {
	return b.result(&b.types, OpTypeSampledImage, imageType)
}

// AddTypePointer adds OpTypePointer.
func (b *ModuleBuilder) AddTypePointer(storageClass StorageClass, baseType uint32) uint32 {
	return b.result(&b.types, OpTypePointer, uint32(storageClass), baseType)
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType uint32, paramTypes ...uint32) uint32 {
	return b.result(&b.types, OpTypeFunction, append([]uint32{returnType}, paramTypes...)...)
}

// AddConstant adds OpConstant.
func (b *ModuleBuilder) AddConstant(typeID uint32, values ...uint32) uint32 {
	return b.typed(&b.types, OpConstant, typeID, values...)
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID uint32, value float32) uint32 {
	return b.AddConstant(typeID, math.Float32bits(value))
}

// AddConstantFloat64 adds a 64-bit float constant.
func (b *ModuleBuilder) AddConstantFloat64(typeID uint32, value float64) uint32 {
	bits := math.Float64bits(value)
	return b.AddConstant(typeID, uint32(bits), uint32(bits>>32))
}

// AddConstantComposite adds OpConstantComposite.
func (b *ModuleBuilder) AddConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	return b.typed(&b.types, OpConstantComposite, typeID, constituents...)
}

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType uint32, storageClass StorageClass) uint32 {
	return b.typed(&b.globalVars, OpVariable, pointerType, uint32(storageClass))
}

// AddFunction adds a function definition.
func (b *ModuleBuilder) AddFunction(funcType uint32, returnType uint32, control FunctionControl) uint32 {
	return b.typed(&b.functions, OpFunction, returnType, uint32(control), funcType)
}

// AddFunctionParameter adds a function parameter.
func (b *ModuleBuilder) AddFunctionParameter(typeID uint32) uint32 {
	return b.typed(&b.functions, OpFunctionParameter, typeID)
}

// AddLocalVariable adds a Function storage class OpVariable. It must follow
// the function's first label.
func (b *ModuleBuilder) AddLocalVariable(pointerType uint32) uint32 {
	return b.typed(&b.functions, OpVariable, pointerType, uint32(StorageClassFunction))
}

// AddLabel adds a label.
func (b *ModuleBuilder) AddLabel() uint32 {
	return b.result(&b.functions, OpLabel)
}

// AddReturn adds OpReturn.
func (b *ModuleBuilder) AddReturn() {
	b.emit(&b.functions, OpReturn)
}

// AddReturnValue adds OpReturnValue.
func (b *ModuleBuilder) AddReturnValue(valueID uint32) {
	b.emit(&b.functions, OpReturnValue, valueID)
}

// AddFunctionEnd adds OpFunctionEnd.
func (b *ModuleBuilder) AddFunctionEnd() {
	b.emit(&b.functions, OpFunctionEnd)
}

// AddOp adds a function-body instruction with a result type and result ID.
func (b *ModuleBuilder) AddOp(opcode OpCode, resultType uint32, operands ...uint32) uint32 {
	return b.typed(&b.functions, opcode, resultType, operands...)
}

// AddStatement adds a function-body instruction without a result.
func (b *ModuleBuilder) AddStatement(opcode OpCode, operands ...uint32) {
	b.emit(&b.functions, opcode, operands...)
}

// AddLoad adds OpLoad.
func (b *ModuleBuilder) AddLoad(resultType uint32, pointer uint32) uint32 {
	return b.AddOp(OpLoad, resultType, pointer)
}

// AddStore adds OpStore.
func (b *ModuleBuilder) AddStore(pointer uint32, value uint32) {
	b.AddStatement(OpStore, pointer, value)
}

// AddFunctionCall adds OpFunctionCall.
func (b *ModuleBuilder) AddFunctionCall(resultType uint32, function uint32, args ...uint32) uint32 {
	return b.AddOp(OpFunctionCall, resultType, append([]uint32{function}, args...)...)
}

// AddExtInst adds OpExtInst (extended instruction).
func (b *ModuleBuilder) AddExtInst(resultType uint32, extSet uint32, instruction uint32, operands ...uint32) uint32 {
	return b.AddOp(OpExtInst, resultType, append([]uint32{extSet, instruction}, operands...)...)
}

// Words generates the final module as words.
func (b *ModuleBuilder) Words() []uint32 {
	header := Header{
		Magic:     MagicNumber,
		Version:   b.version,
		Generator: b.generator,
		Bound:     b.nextID,
		Schema:    b.schema,
	}
	words := header.Words()
	sections := [][]Instruction{
		b.capabilities,
		b.extensions,
		b.extInstImports,
	}
	if b.memoryModel != nil {
		sections = append(sections, []Instruction{*b.memoryModel})
	}
	sections = append(sections,
		b.entryPoints,
		b.executionModes,
		b.debug,
		b.annotations,
		b.types,
		b.globalVars,
		b.functions,
	)
	for _, section := range sections {
		for _, inst := range section {
			words = append(words, inst.Encode()...)
		}
	}
	return words
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	return BytesFromWords(b.Words())
}
