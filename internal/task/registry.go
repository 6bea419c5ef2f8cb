package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry stores task descriptors by name.
type Registry struct {
	tasks map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Descriptor)}
}

// Register validates and adds a descriptor. Re-registering a name replaces
// the previous descriptor.
func (r *Registry) Register(d *Descriptor) error {
	if r == nil {
		return fmt.Errorf("task: register on nil registry")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if r.tasks == nil {
		r.tasks = make(map[string]*Descriptor)
	}
	r.tasks[d.Name] = d
	return nil
}

// Get returns a named descriptor if present.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	if r == nil || r.tasks == nil {
		return nil, false
	}
	d, ok := r.tasks[strings.TrimSpace(name)]
	return d, ok
}

// Names lists registered task names sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// taskFile is the on-disk YAML shape: one or more descriptors per file.
type taskFile struct {
	Tasks []*Descriptor `yaml:"tasks"`
}

// LoadDir reads every .yaml/.yml file under dir into the registry.
func (r *Registry) LoadDir(dir string) error {
	if r == nil {
		return fmt.Errorf("task: nil registry")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("task: read dir %q: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := r.LoadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads one YAML descriptor file into the registry.
func (r *Registry) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("task: read %q: %w", path, err)
	}

	var f taskFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("task: parse %q: %w", path, err)
	}
	if len(f.Tasks) == 0 {
		// A file holding a single bare descriptor is also accepted.
		var d Descriptor
		if err := yaml.Unmarshal(b, &d); err == nil && strings.TrimSpace(d.Name) != "" {
			f.Tasks = append(f.Tasks, &d)
		}
	}

	for _, d := range f.Tasks {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("task: %q: %w", path, err)
		}
	}
	return nil
}

// Benchmark names an ordered set of tasks evaluated together.
type Benchmark struct {
	Name  string   `yaml:"name"`
	Tasks []string `yaml:"tasks"`
}

// Resolve maps the benchmark's task names to descriptors, in order. A name
// absent from the registry is a permanent configuration error.
func (b *Benchmark) Resolve(r *Registry) ([]*Descriptor, error) {
	if b == nil {
		return nil, fmt.Errorf("task: nil benchmark")
	}
	out := make([]*Descriptor, 0, len(b.Tasks))
	for _, name := range b.Tasks {
		d, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("task: benchmark %q references unknown task %q", b.Name, name)
		}
		out = append(out, d)
	}
	return out, nil
}
