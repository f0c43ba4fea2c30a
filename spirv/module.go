// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned while decoding a module.
var (
	ErrTruncated = errors.New("spirv: truncated module")
	ErrBadMagic  = errors.New("spirv: bad magic number")
	ErrBigEndian = errors.New("spirv: big-endian modules are not supported")
	ErrUnaligned = errors.New("spirv: byte length is not a multiple of four")
	ErrWordCount = errors.New("spirv: invalid instruction word count")
)

const (
	swappedMagic   = 0x03022307
	headerByteSize = HeaderWords * 4
)

// Header is the fixed five-word module header.
type Header struct {
	Magic     uint32
	Version   Version
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// Words encodes the header.
func (h Header) Words() []uint32 {
	return []uint32{h.Magic, h.Version.Word(), h.Generator, h.Bound, h.Schema}
}

// ParseHeader decodes the header of a module and returns it together with
// the instruction words that follow it. The returned body aliases words.
func ParseHeader(words []uint32) (Header, []uint32, error) {
	if len(words) < HeaderWords {
		return Header{}, nil, fmt.Errorf("%w: %d words", ErrTruncated, len(words))
	}
	switch words[HeaderMagic] {
	case MagicNumber:
	case swappedMagic:
		return Header{}, nil, ErrBigEndian
	default:
		return Header{}, nil, fmt.Errorf("%w: %#08x", ErrBadMagic, words[HeaderMagic])
	}
	h := Header{
		Magic:     words[HeaderMagic],
		Version:   VersionFromWord(words[HeaderVersion]),
		Generator: words[HeaderGenerator],
		Bound:     words[HeaderBound],
		Schema:    words[HeaderSchema],
	}
	return h, words[HeaderWords:], nil
}

// WordsFromBytes converts a little-endian byte buffer into SPIR-V words.
func WordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnaligned, len(data))
	}
	if len(data) >= headerByteSize && binary.BigEndian.Uint32(data) == MagicNumber {
		return nil, ErrBigEndian
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// BytesFromWords converts SPIR-V words into a little-endian byte buffer.
func BytesFromWords(words []uint32) []byte {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}

// Head packs a word count and opcode into an instruction's first word.
func Head(wordCount int, op OpCode) uint32 {
	return uint32(wordCount)<<16 | uint32(op)
}

// SplitHead unpacks an instruction's first word.
func SplitHead(word uint32) (wordCount int, op OpCode) {
	return int(word >> 16), OpCode(word & 0xFFFF)
}

// DecodeString decodes a nul-terminated literal string packed into words,
// returning the string and the number of words it occupied.
func DecodeString(words []uint32) (string, int) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}
