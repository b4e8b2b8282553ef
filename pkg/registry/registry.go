// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// New builds a registry sorted by task type.
func New(version string, activities ...Activity) *ActivityRegistry {
	sorted := append([]Activity(nil), activities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskType < sorted[j].TaskType })
	return &ActivityRegistry{
		Version:     version,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Activities:  sorted,
	}
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating parent directories.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity serving taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Validate checks that every activity is complete and task types are unique.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	seen := make(map[string]bool)
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			return fmt.Errorf("activity missing required field: ID")
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		case a.TaskType == "":
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		case a.Category == "":
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		case a.InputSchema == nil:
			return fmt.Errorf("activity %s missing required field: InputSchema", a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return nil
}
