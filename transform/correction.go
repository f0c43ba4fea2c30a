// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// CorrectionType identifies why a descriptor binding was duplicated or
// changed by a pass.
type CorrectionType uint8

const (
	// SplitCombined is a sampler binding split off a combined image-sampler.
	SplitCombined CorrectionType = iota

	// SplitDrefRegular is the non-comparison sampler of a binding whose
	// sampling mixed comparison and regular lookups.
	SplitDrefRegular

	// SplitDrefComparison is the comparison sampler of such a binding.
	SplitDrefComparison

	// ConvertStorageCube marks a storage cube image rewritten to a 2D array.
	// It does not add a binding.
	ConvertStorageCube
)

var correctionNames = [...]string{
	SplitCombined:       "split-combined",
	SplitDrefRegular:    "split-dref-regular",
	SplitDrefComparison: "split-dref-comparison",
	ConvertStorageCube:  "convert-storage-cube",
}

// String returns the tag name used in correction files.
func (t CorrectionType) String() string {
	if int(t) < len(correctionNames) {
		return correctionNames[t]
	}
	return fmt.Sprintf("CorrectionType(%d)", uint8(t))
}

// ParseCorrectionType parses a tag name.
func ParseCorrectionType(s string) (CorrectionType, error) {
	for i, name := range correctionNames {
		if name == s {
			return CorrectionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown correction type %q", s)
}

// Synthetic reports whether the correction occupies a binding slot of
// its own.
func (t CorrectionType) Synthetic() bool {
	return t != ConvertStorageCube
}

// MarshalYAML implements yaml.Marshaler.
func (t CorrectionType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *CorrectionType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseCorrectionType(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = v
	return nil
}

// CorrectionBinding is the ordered list of corrections recorded for one
// descriptor binding. Order is the order the synthetic bindings follow the
// base binding.
type CorrectionBinding struct {
	Corrections []CorrectionType
}

// slots returns how many binding slots the corrections occupy.
func (b *CorrectionBinding) slots() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, c := range b.Corrections {
		if c.Synthetic() {
			n++
		}
	}
	return n
}

// CorrectionSet maps the binding indices the application authored to
// their corrections.
type CorrectionSet struct {
	Bindings map[uint32]*CorrectionBinding
}

// CorrectionMap records, per descriptor set and binding, which synthetic
// bindings passes appended and why. The zero value is an empty map; inner
// maps are created on first use.
//
// Keys are the bindings of the untransformed module. The variable that was
// authored at binding b now sits at b plus the number of synthetic
// corrections recorded for lower keys of the same set, and its synthetic
// siblings follow it in list order.
//
// A CorrectionMap is not safe for concurrent use.
type CorrectionMap struct {
	Sets map[uint32]*CorrectionSet
}

// Append records a correction at the end of the list for (set, binding).
func (m *CorrectionMap) Append(set, binding uint32, t CorrectionType) {
	b := m.ensure(set, binding)
	b.Corrections = append(b.Corrections, t)
}

func (m *CorrectionMap) ensure(set, binding uint32) *CorrectionBinding {
	if m.Sets == nil {
		m.Sets = make(map[uint32]*CorrectionSet)
	}
	cs := m.Sets[set]
	if cs == nil {
		cs = &CorrectionSet{Bindings: make(map[uint32]*CorrectionBinding)}
		m.Sets[set] = cs
	}
	b := cs.Bindings[binding]
	if b == nil {
		b = &CorrectionBinding{}
		cs.Bindings[binding] = b
	}
	return b
}

func (m *CorrectionMap) binding(set, binding uint32) *CorrectionBinding {
	if m == nil || m.Sets == nil {
		return nil
	}
	cs := m.Sets[set]
	if cs == nil {
		return nil
	}
	return cs.Bindings[binding]
}

// Lookup returns the corrections of (set, binding) and whether any were
// recorded. The returned slice is a copy.
func (m *CorrectionMap) Lookup(set, binding uint32) ([]CorrectionType, bool) {
	b := m.binding(set, binding)
	if b == nil || len(b.Corrections) == 0 {
		return nil, false
	}
	return slices.Clone(b.Corrections), true
}

// Empty reports whether no correction is recorded.
func (m *CorrectionMap) Empty() bool {
	if m == nil {
		return true
	}
	for _, cs := range m.Sets {
		for _, b := range cs.Bindings {
			if len(b.Corrections) > 0 {
				return false
			}
		}
	}
	return true
}

// SetIndices returns the descriptor sets holding corrections, ascending.
func (m *CorrectionMap) SetIndices() []uint32 {
	if m == nil {
		return nil
	}
	var out []uint32
	for set, cs := range m.Sets {
		for _, b := range cs.Bindings {
			if len(b.Corrections) > 0 {
				out = append(out, set)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// Bindings returns the corrected bindings of set, ascending.
func (m *CorrectionMap) Bindings(set uint32) []uint32 {
	if m == nil || m.Sets == nil || m.Sets[set] == nil {
		return nil
	}
	var out []uint32
	for binding, b := range m.Sets[set].Bindings {
		if len(b.Corrections) > 0 {
			out = append(out, binding)
		}
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both maps hold the same corrections. Empty lists
// and missing keys compare equal.
func (m *CorrectionMap) Equal(o *CorrectionMap) bool {
	if !slices.Equal(m.SetIndices(), o.SetIndices()) {
		return false
	}
	for _, set := range m.SetIndices() {
		if !slices.Equal(m.Bindings(set), o.Bindings(set)) {
			return false
		}
		for _, binding := range m.Bindings(set) {
			a, _ := m.Lookup(set, binding)
			b, _ := o.Lookup(set, binding)
			if !slices.Equal(a, b) {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (m *CorrectionMap) Clone() *CorrectionMap {
	out := &CorrectionMap{}
	if m == nil {
		return out
	}
	for set, cs := range m.Sets {
		for binding, b := range cs.Bindings {
			if len(b.Corrections) > 0 {
				out.ensure(set, binding).Corrections = slices.Clone(b.Corrections)
			}
		}
	}
	return out
}

// Reset removes every correction.
func (m *CorrectionMap) Reset() {
	clear(m.Sets)
}

// insertAt places t in the list of (set, binding) at index pos.
func (m *CorrectionMap) insertAt(set, binding uint32, pos int, t CorrectionType) {
	b := m.ensure(set, binding)
	pos = min(max(pos, 0), len(b.Corrections))
	b.Corrections = slices.Insert(b.Corrections, pos, t)
}

// shift returns how many synthetic bindings lower keys of set add.
func (m *CorrectionMap) shift(set, key uint32) uint32 {
	if m == nil || m.Sets == nil || m.Sets[set] == nil {
		return 0
	}
	var n uint32
	for k, b := range m.Sets[set].Bindings {
		if k < key {
			n += uint32(b.slots())
		}
	}
	return n
}

// CurrentBinding returns the binding the variable authored at key occupies
// in a module carrying these corrections.
func (m *CorrectionMap) CurrentBinding(set, key uint32) uint32 {
	return key + m.shift(set, key)
}

// OriginalBinding maps a binding of the transformed module back to the
// authored key and the slot within its group: 0 is the base variable and
// k is the k-th synthetic sibling.
func (m *CorrectionMap) OriginalBinding(set, current uint32) (key uint32, slot int) {
	var keys []uint32
	if m != nil && m.Sets != nil && m.Sets[set] != nil {
		keys = slices.Sorted(maps.Keys(m.Sets[set].Bindings))
	}
	var shift uint32
	for _, k := range keys {
		start := k + shift
		n := uint32(m.Sets[set].Bindings[k].slots())
		switch {
		case current < start:
			return current - shift, 0
		case current <= start+n:
			return k, int(current - start)
		}
		shift += n
	}
	return current - shift, 0
}

// yamlEntry is the file form of one corrected binding.
type yamlEntry struct {
	Set         uint32           `yaml:"set"`
	Binding     uint32           `yaml:"binding"`
	Corrections []CorrectionType `yaml:"corrections,flow"`
}

// MarshalYAML implements yaml.Marshaler as a sorted list of entries.
func (m CorrectionMap) MarshalYAML() (any, error) {
	out := []yamlEntry{}
	for _, set := range m.SetIndices() {
		for _, binding := range m.Bindings(set) {
			list, _ := m.Lookup(set, binding)
			out = append(out, yamlEntry{Set: set, Binding: binding, Corrections: list})
		}
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *CorrectionMap) UnmarshalYAML(node *yaml.Node) error {
	var entries []yamlEntry
	if err := node.Decode(&entries); err != nil {
		return err
	}
	m.Sets = nil
	for _, e := range entries {
		for _, c := range e.Corrections {
			m.Append(e.Set, e.Binding, c)
		}
	}
	return nil
}
