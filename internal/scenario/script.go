// Package scenario loads and replays scripted container scenarios.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidScript is returned when a script fails schema validation.
var ErrInvalidScript = errors.New("invalid scenario script")

// Container kinds.
const (
	ContainerSet = "set"
	ContainerMap = "map"
)

// Step operations.
const (
	OpInsert      = "insert"
	OpErase       = "erase"
	OpExpectSize  = "expect-size"
	OpExpectKeys  = "expect-keys"
	OpExpectValue = "expect-value"
	OpExpectError = "expect-error"
)

// Actions an expect-error step may perform.
const (
	ActionInsert = "insert"
	ActionAt     = "at"
)

// Script is a replayable scenario.
type Script struct {
	Name      string `yaml:"name"`
	Container string `yaml:"container"`
	Policy    string `yaml:"policy"`
	Steps     []Step `yaml:"steps"`
	Capacity  int    `yaml:"capacity"`
}

// Step is one scripted operation or assertion.
type Step struct {
	Expect *bool  `yaml:"expect"` // insert: newly inserted; erase: key was present.
	Op     string `yaml:"op"`
	Action string `yaml:"action"`
	Error  string `yaml:"error"`
	Keys   []int  `yaml:"keys"`
	Key    int    `yaml:"key"`
	Value  int    `yaml:"value"`
	Size   int    `yaml:"size"`
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	return Parse(data)
}

// Parse validates YAML script data against the embedded schema and decodes it.
func Parse(data []byte) (*Script, error) {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	err = Validate(doc)
	if err != nil {
		return nil, err
	}

	var script Script

	err = yaml.Unmarshal(data, &script)
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	if script.Name == "" {
		script.Name = script.Container
	}

	return &script, nil
}

// Validate checks a decoded document against the script schema.
func Validate(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate scenario: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(msgs, "; "))
}
