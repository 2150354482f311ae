package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"segmentd/internal/common/fsutil"
	"segmentd/pkg/types"
)

// WeightsExt is the file extension of model checkpoints.
const WeightsExt = ".pth"

// DefaultTasks is the task table used when configuration provides none.
func DefaultTasks() []types.Task {
	return []types.Task{
		{Name: "3D Segmentation lung lobes", WeightsFile: "3d_swin_unetr_lung_lobes.pth", OutChannels: 6},
		{Name: "3D Segmentation lungs covid", WeightsFile: "3d_swin_unetr_lungs_covid.pth", OutChannels: 4},
		{Name: "3D Segmentation lungs cancer", WeightsFile: "3d_swin_unetr_cancer.pth", OutChannels: 2},
	}
}

// Registry is an immutable task table keyed by task name.
type Registry struct {
	byName map[string]types.Task
	names  []string
}

// New validates tasks and builds a Registry. An empty slice yields DefaultTasks.
func New(tasks []types.Task) (*Registry, error) {
	if len(tasks) == 0 {
		tasks = DefaultTasks()
	}
	r := &Registry{byName: make(map[string]types.Task, len(tasks))}
	for _, t := range tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("task with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate task %q", name)
		}
		if strings.TrimSpace(t.WeightsFile) == "" {
			return nil, fmt.Errorf("task %q: empty weights file", name)
		}
		if strings.ContainsAny(t.WeightsFile, `/\`) {
			return nil, fmt.Errorf("task %q: weights file must be a bare file name, got %q", name, t.WeightsFile)
		}
		if t.OutChannels <= 0 {
			return nil, fmt.Errorf("task %q: out_channels must be positive, got %d", name, t.OutChannels)
		}
		t.Name = name
		r.byName[name] = t
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the task descriptor for name.
func (r *Registry) Lookup(name string) (types.Task, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the sorted task names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// List returns the task descriptors sorted by name.
func (r *Registry) List() []types.Task {
	out := make([]types.Task, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

// ScanWeights lists the checkpoint files (*.pth) present in dir.
func ScanWeights(dir string) (map[string]bool, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	found := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), WeightsExt) {
			continue
		}
		found[e.Name()] = true
	}
	return found, nil
}

// CheckWeights returns the names of tasks whose checkpoint is missing from dir.
func (r *Registry) CheckWeights(dir string) ([]string, error) {
	found, err := ScanWeights(dir)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, n := range r.names {
		if !found[r.byName[n].WeightsFile] {
			missing = append(missing, n)
		}
	}
	return missing, nil
}
