// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"fmt"
	"slices"
	"sort"

	"github.com/gogpu/spvpatch/spirv"
)

type instInsert struct {
	anchor int
	words  []uint32
}

type wordInsert struct {
	head  int // offset of the owning instruction
	after int // absolute offset of the word the new word follows
	word  uint32
	seq   int
}

// Edits is a batch of positioned edits against one scanned body. Offsets
// refer to that body; the batch is applied once.
type Edits struct {
	inserts   []instInsert
	words     []wordInsert
	nops      map[int]struct{}
	overwrite map[int]uint32
}

// NewEdits creates an empty batch.
func NewEdits() *Edits {
	return &Edits{
		nops:      make(map[int]struct{}),
		overwrite: make(map[int]uint32),
	}
}

// InsertAfter queues instruction words to follow the instruction at anchor.
// Inserts sharing an anchor keep the order they were queued in.
func (e *Edits) InsertAfter(anchor int, words ...uint32) {
	if len(words) == 0 {
		panic(fmt.Sprintf("transform: empty instruction insert at word %d", anchor))
	}
	e.inserts = append(e.inserts, instInsert{anchor: anchor, words: words})
}

// InsertWord queues one word to follow the word at offset after, inside
// the instruction starting at head. The head's word count grows by one.
func (e *Edits) InsertWord(head, after int, word uint32) {
	e.words = append(e.words, wordInsert{head: head, after: after, word: word, seq: len(e.words)})
}

// AppendWord queues a word after the last operand of inst.
func (e *Edits) AppendWord(inst spirv.Inst, word uint32) {
	e.InsertWord(inst.Offset, inst.End()-1, word)
}

// Nop whites out the instruction at offset, keeping its word count.
func (e *Edits) Nop(offset int) {
	e.nops[offset] = struct{}{}
}

// Overwrite replaces the word at offset in place.
func (e *Edits) Overwrite(offset int, word uint32) {
	e.overwrite[offset] = word
}

// Replace whites out the instruction at offset and puts words in its place.
func (e *Edits) Replace(offset int, words ...uint32) {
	e.Nop(offset)
	e.InsertAfter(offset, words...)
}

// Empty reports whether the batch holds no edits.
func (e *Edits) Empty() bool {
	return len(e.inserts) == 0 && len(e.words) == 0 && len(e.nops) == 0 && len(e.overwrite) == 0
}

// Apply produces the edited body. Word overwrites and nops are applied to
// a working copy first; instruction and word inserts are then spliced in a
// single walk over the original instruction list, which is the same result
// as applying anchor-sorted edits from the bottom of the body up.
func (e *Edits) Apply(s *spirv.Stream) []uint32 {
	body := s.Body()
	work := slices.Clone(body)
	for off, w := range e.overwrite {
		if off < 0 || off >= len(work) {
			panic(fmt.Sprintf("transform: overwrite at word %d outside body of %d words", off, len(work)))
		}
		work[off] = w
	}
	for off := range e.nops {
		inst, ok := s.At(off)
		if !ok {
			panic(fmt.Sprintf("transform: nop at word %d is not an instruction", off))
		}
		work[off] = spirv.Head(inst.WordCount(), spirv.OpNop)
	}

	byAnchor := make(map[int][][]uint32, len(e.inserts))
	extra := 0
	for _, ins := range e.inserts {
		if _, ok := s.At(ins.anchor); !ok {
			panic(fmt.Sprintf("transform: insert anchor %d is not an instruction", ins.anchor))
		}
		byAnchor[ins.anchor] = append(byAnchor[ins.anchor], ins.words)
		extra += len(ins.words)
	}
	byHead := make(map[int][]wordInsert, len(e.words))
	for _, w := range e.words {
		inst, ok := s.At(w.head)
		if !ok || w.after < inst.Offset || w.after >= inst.End() {
			panic(fmt.Sprintf("transform: word insert after %d does not fall inside instruction at %d", w.after, w.head))
		}
		byHead[w.head] = append(byHead[w.head], w)
		extra++
	}

	out := make([]uint32, 0, len(body)+extra)
	for _, inst := range s.Insts() {
		start := len(out)
		out = append(out, work[inst.Offset:inst.End()]...)
		if ws := byHead[inst.Offset]; len(ws) > 0 {
			// Highest position first keeps the lower positions valid; among
			// equal positions the later-queued word goes in first so the
			// final order matches the queue.
			sort.Slice(ws, func(i, j int) bool {
				if ws[i].after != ws[j].after {
					return ws[i].after > ws[j].after
				}
				return ws[i].seq > ws[j].seq
			})
			for _, w := range ws {
				out = slices.Insert(out, start+w.after-inst.Offset+1, w.word)
			}
			wc, op := spirv.SplitHead(out[start])
			out[start] = spirv.Head(wc+len(ws), op)
		}
		for _, words := range byAnchor[inst.Offset] {
			out = append(out, words...)
		}
	}
	return out
}

// PruneNops removes every OpNop instruction, all of its words.
func PruneNops(body []uint32) []uint32 {
	out := make([]uint32, 0, len(body))
	for off := 0; off < len(body); {
		wc, op := spirv.SplitHead(body[off])
		if wc == 0 {
			panic(fmt.Sprintf("transform: zero word count at word %d", off))
		}
		if op != spirv.OpNop {
			out = append(out, body[off:off+wc]...)
		}
		off += wc
	}
	return out
}

// Fuse writes the bound into a copy of the header words and concatenates
// the body.
func Fuse(header []uint32, body []uint32, bound uint32) []uint32 {
	out := make([]uint32, 0, len(header)+len(body))
	out = append(out, header...)
	out[spirv.HeaderBound] = bound
	return append(out, body...)
}
