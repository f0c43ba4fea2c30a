// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package layout re-aligns WebGPU bind group layouts with modules rewritten
// by package transform.
//
// The host authors its layouts against the original shader. After the
// passes ran, some resources moved to higher bindings and new samplers
// appeared next to the resources they were split from. Apply takes the
// authored entries of one group together with the correction map the
// passes filled and returns the entries the rewritten module expects:
//
//	entries, err := layout.Apply(0, authored, &cm)
//
// MergeStages combines the per-stage layouts of a vertex and fragment
// module into the pipeline layout, OR-ing visibility of shared bindings.
package layout

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gogpu/spvpatch/transform"
)

// Apply rewrites the authored entries of bind group group according to cm.
// Entry bindings are the authored bindings, the keys of cm. The result is
// sorted by binding and includes a sampler entry for every synthetic
// sibling, with the visibility of the entry it was split from.
func Apply(group uint32, entries []wgpu.BindGroupLayoutEntry, cm *transform.CorrectionMap) ([]wgpu.BindGroupLayoutEntry, error) {
	out := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("layout: group %d declares binding %d twice", group, e.Binding)
		}
		seen[e.Binding] = true

		corrections, _ := cm.Lookup(group, e.Binding)
		base := e
		base.Binding = cm.CurrentBinding(group, e.Binding)
		next := base.Binding + 1
		var siblings []wgpu.BindGroupLayoutEntry
		for _, c := range corrections {
			switch c {
			case transform.ConvertStorageCube:
				if base.StorageTexture.ViewDimension != wgpu.TextureViewDimensionCube {
					return nil, fmt.Errorf("layout: group %d binding %d is converted from a storage cube but is not declared as one", group, e.Binding)
				}
				base.StorageTexture.ViewDimension = wgpu.TextureViewDimension2DArray
			case transform.SplitCombined, transform.SplitDrefRegular:
				siblings = append(siblings, samplerEntry(next, e.Visibility, wgpu.SamplerBindingTypeFiltering))
				next++
			case transform.SplitDrefComparison:
				// A split separate sampler keeps the regular lookups.
				if base.Sampler.Type == wgpu.SamplerBindingTypeComparison {
					base.Sampler.Type = wgpu.SamplerBindingTypeFiltering
				}
				siblings = append(siblings, samplerEntry(next, e.Visibility, wgpu.SamplerBindingTypeComparison))
				next++
			}
		}
		out = append(out, base)
		out = append(out, siblings...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Binding < out[j].Binding
	})
	for i := 1; i < len(out); i++ {
		if out[i].Binding == out[i-1].Binding {
			return nil, fmt.Errorf("layout: group %d: corrected binding %d is used twice", group, out[i].Binding)
		}
	}
	return out, nil
}

func samplerEntry(binding uint32, visibility wgpu.ShaderStage, t wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
	e := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	e.Sampler.Type = t
	return e
}

// ApplyAll runs Apply over every group of a layout.
func ApplyAll(groups map[uint32]wgpu.BindGroupLayoutDescriptor, cm *transform.CorrectionMap) (map[uint32]wgpu.BindGroupLayoutDescriptor, error) {
	out := make(map[uint32]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, desc := range groups {
		entries, err := Apply(g, desc.Entries, cm)
		if err != nil {
			return nil, err
		}
		out[g] = wgpu.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries}
	}
	return out, nil
}

// MergeStages merges the layouts of two stages. Groups present in one
// stage are taken as they are; shared groups are merged by binding with
// the visibility of shared bindings OR-ed together.
func MergeStages(vertex, fragment map[uint32]wgpu.BindGroupLayoutDescriptor) map[uint32]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[uint32]wgpu.BindGroupLayoutDescriptor, len(vertex)+len(fragment))
	for g, desc := range vertex {
		merged[g] = desc
	}
	for g, fDesc := range fragment {
		vDesc, ok := merged[g]
		if !ok {
			merged[g] = fDesc
			continue
		}
		byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries)+len(fDesc.Entries))
		for _, e := range vDesc.Entries {
			byBinding[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			if existing, ok := byBinding[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				byBinding[e.Binding] = existing
			} else {
				byBinding[e.Binding] = e
			}
		}
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: vDesc.Label, Entries: entries}
	}
	return merged
}
