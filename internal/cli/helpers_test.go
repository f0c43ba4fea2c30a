// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvpatch/spirv"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeStage writes a module with a texture at set 0 binding 0 and a
// uniform buffer at binding 1. With combined set, the texture is a
// combined image-sampler sampled in main.
func writeStage(t *testing.T, dir, name string, model spirv.ExecutionModel, combined bool) string {
	t.Helper()
	b := spirv.NewModuleBuilder(spirv.Version1_0)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	void := b.AddTypeVoid()
	fnTy := b.AddTypeFunction(void)
	f32 := b.AddTypeFloat(32)
	v2 := b.AddTypeVector(f32, 2)
	v4 := b.AddTypeVector(f32, 4)
	img := b.AddTypeImage(f32, spirv.Dim2D, 0, 0, 0, 1)

	var si uint32
	texType := img
	if combined {
		si = b.AddTypeSampledImage(img)
		texType = si
	}
	tex := b.AddVariable(b.AddTypePointer(spirv.StorageClassUniformConstant, texType), spirv.StorageClassUniformConstant)
	b.AddBinding(tex, 0, 0)
	ubo := b.AddVariable(b.AddTypePointer(spirv.StorageClassUniform, v4), spirv.StorageClassUniform)
	b.AddBinding(ubo, 0, 1)
	half := b.AddConstantFloat32(f32, 0.5)
	uv := b.AddConstantComposite(v2, half, half)

	main := b.AddFunction(fnTy, void, spirv.FunctionControlNone)
	b.AddLabel()
	if combined {
		b.AddOp(spirv.OpImageSampleImplicitLod, v4, b.AddLoad(si, tex), uv)
	}
	b.AddReturn()
	b.AddFunctionEnd()
	b.AddEntryPoint(model, main, "main", nil)
	if model == spirv.ExecutionModelFragment {
		b.AddExecutionMode(main, spirv.ExecutionModeOriginUpperLeft)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Build(), 0o644))
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
