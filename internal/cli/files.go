// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tebeka/atexit"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvpatch/spirv"
	"github.com/gogpu/spvpatch/transform"
)

// pending tracks temporary files of writes in flight so an early exit
// does not leave them behind.
var pending struct {
	once  sync.Once
	mu    sync.Mutex
	files map[string]bool
}

func track(path string) {
	pending.once.Do(func() {
		pending.files = make(map[string]bool)
		atexit.Register(func() {
			pending.mu.Lock()
			defer pending.mu.Unlock()
			for f := range pending.files {
				os.Remove(f)
			}
		})
	})
	pending.mu.Lock()
	pending.files[path] = true
	pending.mu.Unlock()
}

func untrack(path string) {
	pending.mu.Lock()
	delete(pending.files, path)
	pending.mu.Unlock()
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	track(tmp)
	defer untrack(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readWords(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading module", err)
	}
	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		return nil, WrapExitError(ExitFailure, path, err)
	}
	return words, nil
}

func writeWords(path string, words []uint32) error {
	if err := writeAtomic(path, spirv.BytesFromWords(words)); err != nil {
		return WrapExitError(ExitCommandError, "writing module", err)
	}
	return nil
}

// sidecarPath returns the corrections file stored next to a module.
func sidecarPath(module string) string {
	return strings.TrimSuffix(module, filepath.Ext(module)) + ".corrections.yaml"
}

// loadCorrections reads a corrections file. A missing file is an empty map.
func loadCorrections(path string) (*transform.CorrectionMap, error) {
	cm := &transform.CorrectionMap{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cm, nil
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading corrections", err)
	}
	if err := yaml.Unmarshal(data, cm); err != nil {
		return nil, WrapExitError(ExitCommandError, path, err)
	}
	return cm, nil
}

func saveCorrections(path string, cm *transform.CorrectionMap) error {
	data, err := yaml.Marshal(cm)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return WrapExitError(ExitCommandError, "writing corrections", err)
	}
	return nil
}

// transformError classifies an error returned by the pipeline.
func transformError(path string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitFailure, path, err)
}
