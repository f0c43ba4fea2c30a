// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package transform rewrites SPIR-V modules so WebGPU shader translators
// can consume them.
//
// Each pass is a pure function from a module to a new module. A pass scans
// the instruction stream once, queues positioned edits against the scanned
// offsets, allocates fresh result IDs from the module's bound and applies
// every edit in a single batch:
//
//	var corrections transform.CorrectionMap
//	spv, err := transform.CombImgSampSplitter(spv, &corrections)
//	spv, err = transform.DrefSplitter(spv, &corrections)
//	spv, err = transform.IsNanIsInfPatch(spv)
//	spv, err = transform.StorageCubePatch(spv, &corrections)
//
// A pass that finds nothing to rewrite returns its input unchanged.
//
// # Passes
//
//   - CombImgSampSplitter: combined image-samplers become an image and a sampler binding
//   - DrefSplitter: samplers used for comparison and regular lookups are duplicated
//   - IsNanIsInfPatch: OpIsNan and OpIsInf become bit tests in a helper function
//   - StorageCubePatch: storage cube images become six-layer 2D array images
//   - MirrorPatch: two stages are given the same binding layout
//
// # Correction Map
//
// Passes that add descriptor bindings record why in a CorrectionMap, keyed
// by the bindings of the untransformed module. Synthetic bindings follow
// the binding they were split from, so every later binding of the set
// shifts up. Hosts read the map to build matching bind group layouts, and
// MirrorPatch uses it to make a vertex and a fragment stage agree:
//
//	newVert, newFrag, err := transform.MirrorPatch(vert, &vertMap, frag, &fragMap)
//	if newVert != nil {
//		vert = newVert
//	}
//
// A CorrectionMap must not be used by two passes at once.
package transform
