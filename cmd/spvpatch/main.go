// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command spvpatch rewrites SPIR-V modules for WebGPU.
//
// Usage:
//
//	spvpatch run shader.frag.spv                 # All passes, one module
//	spvpatch run shader.vert.spv shader.frag.spv # Pair, then mirror
//	spvpatch pass drefsplitter shader.spv        # One pass
//	spvpatch corrections shader.webgpu.spv       # Inspect corrections
//	spvpatch batch shaders.yaml                  # Many jobs in parallel
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/tebeka/atexit"

	"github.com/gogpu/spvpatch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)
	atexit.Exit(cli.Execute(ctx))
}
