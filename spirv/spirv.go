// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import "fmt"

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the header encoding of the version.
func (v Version) Word() uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// VersionFromWord decodes the version word of a module header.
func VersionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is the same as or newer than o.
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	return v.Minor >= o.Minor
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator

	// HeaderWords is the fixed length of the module header.
	HeaderWords = 5
)

// Header word offsets.
const (
	HeaderMagic = iota
	HeaderVersion
	HeaderGenerator
	HeaderBound
	HeaderSchema
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes
const (
	OpNop                            OpCode = 0
	OpUndef                          OpCode = 1
	OpSourceContinued                OpCode = 2
	OpSource                         OpCode = 3
	OpSourceExtension                OpCode = 4
	OpName                           OpCode = 5
	OpMemberName                     OpCode = 6
	OpString                         OpCode = 7
	OpLine                           OpCode = 8
	OpExtension                      OpCode = 10
	OpExtInstImport                  OpCode = 11
	OpExtInst                        OpCode = 12
	OpMemoryModel                    OpCode = 14
	OpEntryPoint                     OpCode = 15
	OpExecutionMode                  OpCode = 16
	OpCapability                     OpCode = 17
	OpTypeVoid                       OpCode = 19
	OpTypeBool                       OpCode = 20
	OpTypeInt                        OpCode = 21
	OpTypeFloat                      OpCode = 22
	OpTypeVector                     OpCode = 23
	OpTypeMatrix                     OpCode = 24
	OpTypeImage                      OpCode = 25
	OpTypeSampler                    OpCode = 26
	OpTypeSampledImage               OpCode = 27
	OpTypeArray                      OpCode = 28
	OpTypeRuntimeArray               OpCode = 29
	OpTypeStruct                     OpCode = 30
	OpTypeOpaque                     OpCode = 31
	OpTypePointer                    OpCode = 32
	OpTypeFunction                   OpCode = 33
	OpTypePipe                       OpCode = 38
	OpTypeForwardPointer             OpCode = 39
	OpConstantTrue                   OpCode = 41
	OpConstantFalse                  OpCode = 42
	OpConstant                       OpCode = 43
	OpConstantComposite              OpCode = 44
	OpConstantSampler                OpCode = 45
	OpConstantNull                   OpCode = 46
	OpSpecConstantTrue               OpCode = 48
	OpSpecConstantFalse              OpCode = 49
	OpSpecConstant                   OpCode = 50
	OpSpecConstantComposite          OpCode = 51
	OpSpecConstantOp                 OpCode = 52
	OpFunction                       OpCode = 54
	OpFunctionParameter              OpCode = 55
	OpFunctionEnd                    OpCode = 56
	OpFunctionCall                   OpCode = 57
	OpVariable                       OpCode = 59
	OpImageTexelPointer              OpCode = 60
	OpLoad                           OpCode = 61
	OpStore                          OpCode = 62
	OpCopyMemory                     OpCode = 63
	OpCopyMemorySized                OpCode = 64
	OpAccessChain                    OpCode = 65
	OpInBoundsAccessChain            OpCode = 66
	OpPtrAccessChain                 OpCode = 67
	OpArrayLength                    OpCode = 68
	OpGenericPtrMemSemantics         OpCode = 69
	OpInBoundsPtrAccessChain         OpCode = 70
	OpDecorate                       OpCode = 71
	OpMemberDecorate                 OpCode = 72
	OpDecorationGroup                OpCode = 73
	OpGroupDecorate                  OpCode = 74
	OpGroupMemberDecorate            OpCode = 75
	OpVectorExtractDynamic           OpCode = 77
	OpVectorInsertDynamic            OpCode = 78
	OpVectorShuffle                  OpCode = 79
	OpCompositeConstruct             OpCode = 80
	OpCompositeExtract               OpCode = 81
	OpCompositeInsert                OpCode = 82
	OpCopyObject                     OpCode = 83
	OpTranspose                      OpCode = 84
	OpSampledImage                   OpCode = 86
	OpImageSampleImplicitLod         OpCode = 87
	OpImageSampleExplicitLod         OpCode = 88
	OpImageSampleDrefImplicitLod     OpCode = 89
	OpImageSampleDrefExplicitLod     OpCode = 90
	OpImageSampleProjImplicitLod     OpCode = 91
	OpImageSampleProjExplicitLod     OpCode = 92
	OpImageSampleProjDrefImplicitLod OpCode = 93
	OpImageSampleProjDrefExplicitLod OpCode = 94
	OpImageFetch                     OpCode = 95
	OpImageGather                    OpCode = 96
	OpImageDrefGather                OpCode = 97
	OpImageRead                      OpCode = 98
	OpImageWrite                     OpCode = 99
	OpImage                          OpCode = 100
	OpImageQueryFormat               OpCode = 101
	OpImageQueryOrder                OpCode = 102
	OpImageQuerySizeLod              OpCode = 103
	OpImageQuerySize                 OpCode = 104
	OpImageQueryLod                  OpCode = 105
	OpImageQueryLevels               OpCode = 106
	OpImageQuerySamples              OpCode = 107
	OpConvertFToU                    OpCode = 109
	OpConvertFToS                    OpCode = 110
	OpConvertSToF                    OpCode = 111
	OpConvertUToF                    OpCode = 112
	OpUConvert                       OpCode = 113
	OpSConvert                       OpCode = 114
	OpFConvert                       OpCode = 115
	OpQuantizeToF16                  OpCode = 116
	OpBitcast                        OpCode = 124
	OpSNegate                        OpCode = 126
	OpFNegate                        OpCode = 127
	OpIAdd                           OpCode = 128
	OpFAdd                           OpCode = 129
	OpISub                           OpCode = 130
	OpFSub                           OpCode = 131
	OpIMul                           OpCode = 132
	OpFMul                           OpCode = 133
	OpUDiv                           OpCode = 134
	OpSDiv                           OpCode = 135
	OpFDiv                           OpCode = 136
	OpUMod                           OpCode = 137
	OpSRem                           OpCode = 138
	OpSMod                           OpCode = 139
	OpFRem                           OpCode = 140
	OpFMod                           OpCode = 141
	OpVectorTimesScalar              OpCode = 142
	OpMatrixTimesScalar              OpCode = 143
	OpVectorTimesMatrix              OpCode = 144
	OpMatrixTimesVector              OpCode = 145
	OpMatrixTimesMatrix              OpCode = 146
	OpOuterProduct                   OpCode = 147
	OpDot                            OpCode = 148
	OpSMulExtended                   OpCode = 152
	OpAny                            OpCode = 154
	OpAll                            OpCode = 155
	OpIsNan                          OpCode = 156
	OpIsInf                          OpCode = 157
	OpIsFinite                       OpCode = 158
	OpIsNormal                       OpCode = 159
	OpLogicalEqual                   OpCode = 164
	OpLogicalNotEqual                OpCode = 165
	OpLogicalOr                      OpCode = 166
	OpLogicalAnd                     OpCode = 167
	OpLogicalNot                     OpCode = 168
	OpSelect                         OpCode = 169
	OpIEqual                         OpCode = 170
	OpINotEqual                      OpCode = 171
	OpUGreaterThan                   OpCode = 172
	OpSGreaterThan                   OpCode = 173
	OpUGreaterThanEqual              OpCode = 174
	OpSGreaterThanEqual              OpCode = 175
	OpULessThan                      OpCode = 176
	OpSLessThan                      OpCode = 177
	OpULessThanEqual                 OpCode = 178
	OpSLessThanEqual                 OpCode = 179
	OpFOrdEqual                      OpCode = 180
	OpFUnordEqual                    OpCode = 181
	OpFOrdNotEqual                   OpCode = 182
	OpFUnordNotEqual                 OpCode = 183
	OpFOrdLessThan                   OpCode = 184
	OpFUnordLessThan                 OpCode = 185
	OpFOrdGreaterThan                OpCode = 186
	OpFUnordGreaterThan              OpCode = 187
	OpFOrdLessThanEqual              OpCode = 188
	OpFUnordLessThanEqual            OpCode = 189
	OpFOrdGreaterThanEqual           OpCode = 190
	OpFUnordGreaterThanEqual         OpCode = 191
	OpShiftRightLogical              OpCode = 194
	OpShiftRightArithmetic           OpCode = 195
	OpShiftLeftLogical               OpCode = 196
	OpBitwiseOr                      OpCode = 197
	OpBitwiseXor                     OpCode = 198
	OpBitwiseAnd                     OpCode = 199
	OpNot                            OpCode = 200
	OpBitFieldInsert                 OpCode = 201
	OpBitCount                       OpCode = 205
	OpDPdx                           OpCode = 207
	OpDPdy                           OpCode = 208
	OpFwidth                         OpCode = 209
	OpFwidthCoarse                   OpCode = 215
	OpAtomicLoad                     OpCode = 227
	OpAtomicStore                    OpCode = 228
	OpAtomicExchange                 OpCode = 229
	OpAtomicXor                      OpCode = 242
	OpPhi                            OpCode = 245
	OpLoopMerge                      OpCode = 246
	OpSelectionMerge                 OpCode = 247
	OpLabel                          OpCode = 248
	OpBranch                         OpCode = 249
	OpBranchConditional              OpCode = 250
	OpSwitch                         OpCode = 251
	OpKill                           OpCode = 252
	OpReturn                         OpCode = 253
	OpReturnValue                    OpCode = 254
	OpUnreachable                    OpCode = 255
)

// HasResultType reports whether instructions with this opcode carry a
// result type in their first operand and a result ID in their second.
func (op OpCode) HasResultType() bool {
	switch {
	case op == OpUndef, op == OpExtInst:
		return true
	case op >= OpConstantTrue && op <= OpConstantNull:
		return true
	case op >= OpSpecConstantTrue && op <= OpSpecConstantOp:
		return true
	case op == OpFunction, op == OpFunctionParameter, op == OpFunctionCall:
		return true
	case op >= OpVariable && op <= OpLoad:
		return true
	case op >= OpAccessChain && op <= OpInBoundsPtrAccessChain:
		return true
	case op >= OpVectorExtractDynamic && op <= OpTranspose:
		return true
	case op >= OpSampledImage && op <= OpImageQuerySamples:
		return op != OpImageWrite
	case op >= OpConvertFToU && op <= OpBitcast:
		return true
	case op >= OpSNegate && op <= OpSMulExtended:
		return true
	case op >= OpAny && op <= OpBitCount:
		return true
	case op >= OpDPdx && op <= OpFwidthCoarse:
		return true
	case op == OpAtomicLoad, op >= OpAtomicExchange && op <= OpAtomicXor:
		return true
	case op == OpPhi:
		return true
	}
	return false
}

// HasResult reports whether instructions with this opcode define a result ID.
func (op OpCode) HasResult() bool {
	if op.HasResultType() {
		return true
	}
	switch {
	case op == OpString, op == OpExtInstImport, op == OpDecorationGroup, op == OpLabel:
		return true
	case op >= OpTypeVoid && op <= OpTypePipe:
		return true
	}
	return false
}

// IsType reports whether the opcode declares a type.
func (op OpCode) IsType() bool {
	return op >= OpTypeVoid && op <= OpTypeForwardPointer
}

// IsConstant reports whether the opcode declares a constant or specialization constant.
func (op OpCode) IsConstant() bool {
	return (op >= OpConstantTrue && op <= OpConstantNull) ||
		(op >= OpSpecConstantTrue && op <= OpSpecConstantOp)
}

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationRelaxedPrecision Decoration = 0
	DecorationSpecID           Decoration = 1
	DecorationBlock            Decoration = 2
	DecorationBufferBlock      Decoration = 3
	DecorationRowMajor         Decoration = 4
	DecorationColMajor         Decoration = 5
	DecorationArrayStride      Decoration = 6
	DecorationMatrixStride     Decoration = 7
	DecorationBuiltIn          Decoration = 11
	DecorationNoPerspective    Decoration = 13
	DecorationFlat             Decoration = 14
	DecorationNonWritable      Decoration = 24
	DecorationNonReadable      Decoration = 25
	DecorationLocation         Decoration = 30
	DecorationComponent        Decoration = 31
	DecorationIndex            Decoration = 32
	DecorationBinding          Decoration = 33
	DecorationDescriptorSet    Decoration = 34
	DecorationOffset           Decoration = 35
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12
)

// Dim is the dimensionality operand of OpTypeImage.
type Dim uint32

// Image dimensions
const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)

// OpTypeImage "Sampled" operand values.
const (
	ImageSampledUnknown = 0
	ImageSampledYes     = 1
	ImageSampledStorage = 2
)

// ImageFormat is the image format operand of OpTypeImage.
type ImageFormat uint32

// Image formats
const (
	ImageFormatUnknown  ImageFormat = 0
	ImageFormatRgba32f  ImageFormat = 1
	ImageFormatRgba16f  ImageFormat = 2
	ImageFormatR32f     ImageFormat = 3
	ImageFormatRgba8    ImageFormat = 4
	ImageFormatRgba32i  ImageFormat = 21
	ImageFormatR32i     ImageFormat = 24
	ImageFormatRgba32ui ImageFormat = 30
	ImageFormatR32ui    ImageFormat = 33
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Common capabilities
const (
	CapabilityMatrix                     Capability = 0
	CapabilityShader                     Capability = 1
	CapabilityFloat64                    Capability = 10
	CapabilityInt64                      Capability = 11
	CapabilityImageCubeArray             Capability = 34
	CapabilitySampledCubeArray           Capability = 45
	CapabilityStorageImageExtendedFormats Capability = 49
	CapabilityImageQuery                 Capability = 50
)

// AddressingModel is the addressing operand of OpMemoryModel.
type AddressingModel uint32

// MemoryModel is the memory operand of OpMemoryModel.
type MemoryModel uint32

// Addressing and memory models
const (
	AddressingModelLogical                 AddressingModel = 0
	AddressingModelPhysical32              AddressingModel = 1
	AddressingModelPhysical64              AddressingModel = 2
	AddressingModelPhysicalStorageBuffer64 AddressingModel = 5348

	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelOpenCL  MemoryModel = 2
	MemoryModelVulkan  MemoryModel = 3
)

// ExecutionModel identifies the pipeline stage of an entry point.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelKernel                 ExecutionModel = 6
)

// ExecutionMode is the mode operand of OpExecutionMode.
type ExecutionMode uint32

// Execution modes
const (
	ExecutionModeOriginUpperLeft    ExecutionMode = 7
	ExecutionModeOriginLowerLeft    ExecutionMode = 8
	ExecutionModeEarlyFragmentTests ExecutionMode = 9
	ExecutionModeDepthReplacing     ExecutionMode = 12
	ExecutionModeLocalSize          ExecutionMode = 17
)

// FunctionControl is the control mask of OpFunction.
type FunctionControl uint32

// Function control bits
const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
	FunctionControlPure       FunctionControl = 4
	FunctionControlConst      FunctionControl = 8
)

// SelectionControl is the control mask of OpSelectionMerge.
type SelectionControl uint32

// LoopControl is the control mask of OpLoopMerge.
type LoopControl uint32

// Structured control flow masks
const (
	SelectionControlNone SelectionControl = 0
	LoopControlNone      LoopControl      = 0
)

// GLSL.std.450 extended instructions used by the patches.
const (
	GLSLstd450Name = "GLSL.std.450"

	GLSLstd450FAbs = 4
	GLSLstd450SAbs = 5
)
