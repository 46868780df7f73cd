// Package loader reads workflow definitions from YAML or JSON and
// hands the execution core a normalized, validated models.Workflow.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowsim-io/flowsim/pkg/flowsim/core"
	"github.com/flowsim-io/flowsim/pkg/flowsim/models"
)

// LoadFromPath reads a workflow definition file and returns the parsed,
// normalized workflow. Format is detected by extension (.yaml/.yml or
// .json) or, failing that, by content.
func LoadFromPath(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow definition: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a workflow definition from bytes. ext is the file
// extension for the format hint; empty means detect from content.
// Legacy decision fields are normalized once here, so the execution hot
// path never sees them, and structural defects are rejected before the
// definition reaches a machine.
func Load(data []byte, ext string) (*models.Workflow, error) {
	wf, err := parse(data, ext)
	if err != nil {
		return nil, err
	}
	core.Normalize(wf)
	if err := core.Validate(wf); err != nil {
		return nil, fmt.Errorf("invalid workflow %q: %w", wf.Name, err)
	}
	return wf, nil
}

func parse(data []byte, ext string) (*models.Workflow, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	switch ext {
	case ".yaml":
		var wf models.Workflow
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow yaml: %w", err)
		}
		return &wf, nil
	case ".json":
		var wf models.Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow json: %w", err)
		}
		return &wf, nil
	}
	// Detect: JSON starts with {, anything else is treated as YAML.
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wf models.Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow json: %w", err)
		}
		return &wf, nil
	}
	var wf models.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow yaml: %w", err)
	}
	return &wf, nil
}
