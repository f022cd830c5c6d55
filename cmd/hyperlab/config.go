package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hyperlab/internal/planner"
)

// yamlConfig mirrors planner.Config for decoding a pre-lowered config file.
// Lowering config sugar into this shape is a host concern this project does
// not implement (§1 Non-goals); hosts are expected to hand over a document
// already in this structural form.
type yamlConfig struct {
	Sources     map[string]string         `yaml:"sources"`
	Parameters  map[string]any            `yaml:"parameters"`
	Experiments map[string]yamlExperiment `yaml:"experiments"`
}

type yamlExperiment struct {
	Structure  map[string]yamlProcessSpec `yaml:"structure"`
	Results    []string                   `yaml:"results"`
	Trials     map[string]map[string]any  `yaml:"trials"`
	Parameters map[string]any             `yaml:"parameters"`
}

type yamlProcessSpec struct {
	Function string   `yaml:"function"`
	Sources  []string `yaml:"sources"`
	Results  []string `yaml:"results"`
}

// loadConfig reads a pre-lowered YAML document from path into a
// planner.Config.
func loadConfig(path string) (planner.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.Config{}, fmt.Errorf("reading config: %w", err)
	}

	var doc yamlConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return planner.Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := planner.Config{
		Sources:     doc.Sources,
		Parameters:  doc.Parameters,
		Experiments: make(map[string]planner.Experiment, len(doc.Experiments)),
	}
	for name, exp := range doc.Experiments {
		structure := make(map[string]planner.ProcessSpec, len(exp.Structure))
		for procName, spec := range exp.Structure {
			structure[procName] = planner.ProcessSpec{
				Function: spec.Function,
				Sources:  spec.Sources,
				Results:  spec.Results,
			}
		}
		cfg.Experiments[name] = planner.Experiment{
			Structure:  structure,
			Results:    exp.Results,
			Trials:     exp.Trials,
			Parameters: exp.Parameters,
		}
	}
	return cfg, nil
}
