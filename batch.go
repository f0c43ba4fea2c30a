// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spvpatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvpatch/transform"
)

// Job is one unit of batch work: a vertex and fragment pair, or a single
// module. Outputs keep the input base names and are written to Output
// together with a <Name>.corrections.yaml sidecar.
type Job struct {
	Name     string `yaml:"name"`
	Vertex   string `yaml:"vertex,omitempty"`
	Fragment string `yaml:"fragment,omitempty"`
	Module   string `yaml:"module,omitempty"`
	Output   string `yaml:"output"`
}

// Manifest describes a batch run.
type Manifest struct {
	Options Options `yaml:"options"`
	Jobs    []Job   `yaml:"jobs"`
}

// LoadManifest decodes a YAML manifest. Relative paths are resolved
// against dir.
func LoadManifest(r io.Reader, dir string) (*Manifest, error) {
	m := &Manifest{Options: DefaultOptions()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Options.Validate(); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
		if names[j.Name] {
			return nil, fmt.Errorf("job %d: duplicate name %q", i, j.Name)
		}
		names[j.Name] = true
		for _, p := range []*string{&j.Vertex, &j.Fragment, &j.Module, &j.Output} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(dir, *p)
			}
		}
	}
	return m, nil
}

func (j Job) validate() error {
	switch {
	case j.Name == "":
		return errors.New("missing name")
	case j.Output == "":
		return errors.New("missing output")
	case j.Module != "" && (j.Vertex != "" || j.Fragment != ""):
		return errors.New("module cannot be combined with vertex or fragment")
	case j.Module == "" && (j.Vertex == "" || j.Fragment == ""):
		return errors.New("a pair needs both vertex and fragment")
	}
	return nil
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job Job

	// Corrections holds the final correction map. A pair's two maps are
	// equal after mirroring; Corrections is the vertex one.
	Corrections *transform.CorrectionMap

	// Written lists the files the job produced.
	Written []string

	Err error
}

// WriteFunc stores one output file.
type WriteFunc func(path string, data []byte) error

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Batch runs jobs concurrently on a set of workers and returns one result
// per job, in job order. A failing job does not stop the others. Jobs not
// yet started when ctx is done report ctx.Err(). A nil write stores files
// with os.WriteFile.
//
// The workers read from a task channel owned by Batch and exit once it is
// closed, so no goroutine outlives the call.
func Batch(ctx context.Context, jobs []Job, opts Options, write WriteFunc) []JobResult {
	if write == nil {
		write = writeFile
	}
	workers := min(max(opts.Workers, 1), max(len(jobs), 1))
	log := opts.logger()

	results := make([]JobResult, len(jobs))
	tasks := make(chan worker.Task, len(jobs))
	defer close(tasks)
	stop := make(chan int)
	for id := range workers {
		worker.NewWorker(id, tasks, stop, 1*time.Second, func(int) {}).Start()
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		tasks <- worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				res := JobResult{Job: job}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Corrections, res.Written, res.Err = runJob(job, opts, write)
				}
				if res.Err != nil {
					log.Warn("job failed", "job", job.Name, "err", res.Err)
				} else {
					log.Debug("job finished", "job", job.Name, "written", len(res.Written))
				}
				results[i] = res
				return nil, res.Err
			},
		}
	}
	wg.Wait()
	return results
}

func runJob(job Job, opts Options, write WriteFunc) (*transform.CorrectionMap, []string, error) {
	cm := &transform.CorrectionMap{}
	var outputs map[string][]byte
	if job.Module != "" {
		in, err := os.ReadFile(job.Module)
		if err != nil {
			return nil, nil, err
		}
		out, err := Transform(in, cm, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", job.Module, err)
		}
		outputs = map[string][]byte{job.Module: out}
	} else {
		vs, err := os.ReadFile(job.Vertex)
		if err != nil {
			return nil, nil, err
		}
		fs, err := os.ReadFile(job.Fragment)
		if err != nil {
			return nil, nil, err
		}
		fm := &transform.CorrectionMap{}
		vOut, fOut, err := TransformPair(vs, fs, cm, fm, opts)
		if err != nil {
			return nil, nil, err
		}
		outputs = map[string][]byte{job.Vertex: vOut, job.Fragment: fOut}
	}

	if err := os.MkdirAll(job.Output, 0o755); err != nil {
		return nil, nil, err
	}
	var written []string
	for in, data := range outputs {
		path := filepath.Join(job.Output, filepath.Base(in))
		if err := write(path, data); err != nil {
			return nil, written, err
		}
		written = append(written, path)
	}
	sidecar, err := yaml.Marshal(cm)
	if err != nil {
		return nil, written, err
	}
	path := filepath.Join(job.Output, job.Name+".corrections.yaml")
	if err := write(path, sidecar); err != nil {
		return nil, written, err
	}
	return cm, append(written, path), nil
}
