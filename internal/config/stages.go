package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qazlegal/norma/internal/expertise"
	"github.com/qazlegal/norma/pkg/models"
)

// pipelineStagesFile is the on-disk shape of a pipeline stage file.
type pipelineStagesFile struct {
	Stages []models.StageDescriptor `yaml:"stages"`
}

// expertStagesFile is the on-disk shape of an expert stage file.
type expertStagesFile struct {
	Stages []expertise.ExpertStage `yaml:"stages"`
}

// LoadPipelineStages reads pipeline stage descriptors from a YAML
// file. Unknown keys are rejected and every descriptor is validated,
// so a malformed stage fails at load time.
func LoadPipelineStages(path string) ([]models.StageDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stages file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file pipelineStagesFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("%s: no stages defined", path)
	}
	for i, st := range file.Stages {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("%s: stage %d: %w", path, i, err)
		}
	}
	return file.Stages, nil
}

// LoadExpertStages reads an expert stage set from a YAML file with the
// same strictness as LoadPipelineStages.
func LoadExpertStages(path string) ([]expertise.Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stages file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file expertStagesFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("%s: no stages defined", path)
	}

	out := make([]expertise.Stage, 0, len(file.Stages))
	seen := make(map[string]bool, len(file.Stages))
	for i, st := range file.Stages {
		if st.StageName == "" {
			return nil, fmt.Errorf("%s: stage %d: name must not be empty", path, i)
		}
		if seen[st.StageName] {
			return nil, fmt.Errorf("%s: duplicate stage name %q", path, st.StageName)
		}
		seen[st.StageName] = true
		if st.Template == "" {
			return nil, fmt.Errorf("%s: stage %q: prompt template must not be empty", path, st.StageName)
		}
		if st.Hint != "" && !st.Hint.Valid() {
			return nil, fmt.Errorf("%s: stage %q: unknown category hint %q", path, st.StageName, st.Hint)
		}
		out = append(out, st)
	}
	return out, nil
}

// PipelineStages resolves the pipeline stage set: the configured file
// when set, otherwise the given fallback.
func (c *Config) PipelineStages(fallback []models.StageDescriptor) ([]models.StageDescriptor, error) {
	if c.Pipeline.StagesFile == "" {
		return fallback, nil
	}
	return LoadPipelineStages(c.Pipeline.StagesFile)
}

// ExpertStages resolves the expert stage set: the configured file when
// set, otherwise the built-in six-stage expertise.
func (c *Config) ExpertStages() ([]expertise.Stage, error) {
	if c.Expertise.StagesFile == "" {
		return expertise.DefaultStages(), nil
	}
	return LoadExpertStages(c.Expertise.StagesFile)
}
