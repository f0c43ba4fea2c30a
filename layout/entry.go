// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Resource kinds of an Entry.
const (
	KindTexture           = "texture"
	KindDepthTexture      = "depth-texture"
	KindStorageTexture    = "storage-texture"
	KindStorageArray      = "storage-texture-array"
	KindStorageCube       = "storage-cube"
	KindSampler           = "sampler"
	KindComparisonSampler = "comparison-sampler"
	KindUniformBuffer     = "uniform-buffer"
	KindStorageBuffer     = "storage-buffer"
)

// Entry is the file form of a bind group layout entry.
type Entry struct {
	Binding uint32   `yaml:"binding" json:"binding"`
	Kind    string   `yaml:"kind" json:"kind"`
	Stages  []string `yaml:"stages,flow" json:"stages"`
}

// Group is the file form of one bind group layout.
type Group struct {
	Group   uint32  `yaml:"group" json:"group"`
	Label   string  `yaml:"label,omitempty" json:"label,omitempty"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

type stageFlag struct {
	name string
	flag wgpu.ShaderStage
}

var stageFlags = []stageFlag{
	{"vertex", wgpu.ShaderStageVertex},
	{"fragment", wgpu.ShaderStageFragment},
	{"compute", wgpu.ShaderStageCompute},
}

// ToWGPU converts an entry to its wgpu form.
func (e Entry) ToWGPU() (wgpu.BindGroupLayoutEntry, error) {
	out := wgpu.BindGroupLayoutEntry{Binding: e.Binding}
	for _, s := range e.Stages {
		i := slices.IndexFunc(stageFlags, func(f stageFlag) bool {
			return f.name == strings.ToLower(s)
		})
		if i < 0 {
			return out, fmt.Errorf("layout: binding %d: unknown stage %q", e.Binding, s)
		}
		out.Visibility |= stageFlags[i].flag
	}

	switch e.Kind {
	case KindTexture:
		out.Texture.SampleType = wgpu.TextureSampleTypeFloat
		out.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case KindDepthTexture:
		out.Texture.SampleType = wgpu.TextureSampleTypeDepth
		out.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case KindStorageTexture:
		out.StorageTexture.Access = wgpu.StorageTextureAccessReadWrite
		out.StorageTexture.Format = wgpu.TextureFormatRGBA8Unorm
		out.StorageTexture.ViewDimension = wgpu.TextureViewDimension2D
	case KindStorageArray:
		out.StorageTexture.Access = wgpu.StorageTextureAccessReadWrite
		out.StorageTexture.Format = wgpu.TextureFormatRGBA8Unorm
		out.StorageTexture.ViewDimension = wgpu.TextureViewDimension2DArray
	case KindStorageCube:
		out.StorageTexture.Access = wgpu.StorageTextureAccessReadWrite
		out.StorageTexture.Format = wgpu.TextureFormatRGBA8Unorm
		out.StorageTexture.ViewDimension = wgpu.TextureViewDimensionCube
	case KindSampler:
		out.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case KindComparisonSampler:
		out.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case KindUniformBuffer:
		out.Buffer.Type = wgpu.BufferBindingTypeUniform
	case KindStorageBuffer:
		out.Buffer.Type = wgpu.BufferBindingTypeStorage
	default:
		return out, fmt.Errorf("layout: binding %d: unknown kind %q", e.Binding, e.Kind)
	}
	return out, nil
}

// FromWGPU converts a wgpu entry back to its file form.
func FromWGPU(e wgpu.BindGroupLayoutEntry) Entry {
	out := Entry{Binding: e.Binding, Kind: kindOf(e)}
	for _, f := range stageFlags {
		if e.Visibility&f.flag != 0 {
			out.Stages = append(out.Stages, f.name)
		}
	}
	return out
}

func kindOf(e wgpu.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return KindUniformBuffer
	case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		return KindStorageBuffer
	case e.Sampler.Type == wgpu.SamplerBindingTypeComparison:
		return KindComparisonSampler
	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return KindSampler
	case e.StorageTexture.ViewDimension == wgpu.TextureViewDimensionCube:
		return KindStorageCube
	case e.StorageTexture.ViewDimension == wgpu.TextureViewDimension2DArray:
		return KindStorageArray
	case e.StorageTexture.ViewDimension != wgpu.TextureViewDimensionUndefined:
		return KindStorageTexture
	case e.Texture.SampleType == wgpu.TextureSampleTypeDepth:
		return KindDepthTexture
	default:
		return KindTexture
	}
}

// Decode converts file-form groups to wgpu descriptors keyed by group.
func Decode(groups []Group) (map[uint32]wgpu.BindGroupLayoutDescriptor, error) {
	out := make(map[uint32]wgpu.BindGroupLayoutDescriptor, len(groups))
	for _, g := range groups {
		if _, dup := out[g.Group]; dup {
			return nil, fmt.Errorf("layout: group %d declared twice", g.Group)
		}
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(g.Entries))
		for _, e := range g.Entries {
			we, err := e.ToWGPU()
			if err != nil {
				return nil, fmt.Errorf("group %d: %w", g.Group, err)
			}
			entries = append(entries, we)
		}
		out[g.Group] = wgpu.BindGroupLayoutDescriptor{Label: g.Label, Entries: entries}
	}
	return out, nil
}

// Encode converts wgpu descriptors to file-form groups sorted by group.
func Encode(groups map[uint32]wgpu.BindGroupLayoutDescriptor) []Group {
	out := make([]Group, 0, len(groups))
	for g, desc := range groups {
		fg := Group{Group: g, Label: desc.Label}
		for _, e := range desc.Entries {
			fg.Entries = append(fg.Entries, FromWGPU(e))
		}
		out = append(out, fg)
	}
	slices.SortFunc(out, func(a, b Group) int {
		return cmp.Compare(a.Group, b.Group)
	})
	return out
}
