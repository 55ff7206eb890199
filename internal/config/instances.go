package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// InstanceType identifies the kind of retrace process.
type InstanceType string

const (
	InstanceServe      InstanceType = "serve"
	InstanceMCP        InstanceType = "mcp"
	InstanceIndexWatch InstanceType = "index-watch"
)

// Instance represents a running retrace process.
type Instance struct {
	Type      InstanceType `json:"type"`
	PID       int          `json:"pid"`
	Port      int          `json:"port,omitempty"`
	Host      string       `json:"host,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// registry is the on-disk instance list. Load tolerates a missing file;
// entries for dead PIDs are dropped on every load.
type registry struct {
	path      string
	instances []Instance
}

func openRegistry() (*registry, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	r := &registry{path: filepath.Join(dir, "instances.json")}

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &r.instances); err != nil {
		return nil, err
	}
	return r, nil
}

// prune drops entries whose PID is no longer running and reports whether
// anything was removed.
func (r *registry) prune() bool {
	live := r.instances[:0]
	for _, inst := range r.instances {
		if isProcessAlive(inst.PID) {
			live = append(live, inst)
		}
	}
	pruned := len(live) != len(r.instances)
	r.instances = live
	return pruned
}

func (r *registry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(r.instances, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0644)
}

// RegisterInstance adds a new instance entry, cleaning stale entries first.
func RegisterInstance(inst Instance) error {
	r, err := openRegistry()
	if err != nil {
		return err
	}
	r.prune()
	r.instances = append(r.instances, inst)
	return r.save()
}

// UnregisterInstance removes an instance by PID.
func UnregisterInstance(pid int) error {
	r, err := openRegistry()
	if err != nil {
		return err
	}
	kept := r.instances[:0]
	for _, inst := range r.instances {
		if inst.PID != pid {
			kept = append(kept, inst)
		}
	}
	r.instances = kept
	return r.save()
}

// ListInstances returns all live instances, cleaning stale entries.
func ListInstances() ([]Instance, error) {
	r, err := openRegistry()
	if err != nil {
		return nil, err
	}
	if r.prune() {
		r.save()
	}
	return r.instances, nil
}

// FindInstanceByPort returns the instance using the given port, or nil.
func FindInstanceByPort(port int) *Instance {
	return findInstance(func(inst Instance) bool { return inst.Port == port })
}

// FindInstanceByType returns the first live instance of the given type, or nil.
func FindInstanceByType(t InstanceType) *Instance {
	return findInstance(func(inst Instance) bool { return inst.Type == t })
}

func findInstance(match func(Instance) bool) *Instance {
	instances, err := ListInstances()
	if err != nil {
		return nil
	}
	for _, inst := range instances {
		if match(inst) {
			return &inst
		}
	}
	return nil
}
