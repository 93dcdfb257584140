package taskfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Tasks []yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	Name      string   `yaml:"name"`
	Command   string   `yaml:"command"`
	DependsOn []string `yaml:"depends_on"`
	MaxRetry  int      `yaml:"max_retry"`
}

func loadYAML(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	defs := make([]Definition, 0, len(doc.Tasks))
	for i, t := range doc.Tasks {
		if t.Name == "" {
			return nil, fmt.Errorf("%s: task #%d has no name", path, i+1)
		}
		defs = append(defs, Definition{
			Name:      t.Name,
			Command:   t.Command,
			DependsOn: t.DependsOn,
			MaxRetry:  t.MaxRetry,
			Source:    path,
		})
	}
	return defs, nil
}
