// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package spirv models SPIR-V modules as flat word streams.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs. A module is a five-word
// header followed by instructions; the first word of every instruction
// packs its word count (high 16 bits) and opcode (low 16 bits).
//
// # Reading
//
// ParseHeader splits a module into its header and body, and Scan decodes
// the body once into an indexed instruction list:
//
//	words, err := spirv.WordsFromBytes(data)
//	hdr, body, err := spirv.ParseHeader(words)
//	stream, err := spirv.Scan(body)
//	for _, inst := range stream.Find(spirv.OpVariable) {
//		fmt.Println(inst.ResultID())
//	}
//
// Offsets recorded by a Stream are only valid for the body it scanned.
//
// # Writing
//
// Encode packs a single instruction; ModuleBuilder assembles complete
// modules section by section:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//	binary := builder.Build()
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities, extensions and extended instruction imports
//   - Memory model, entry points and execution modes
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types, constants and global variables
//   - Functions (code)
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
