// Package report renders workload, replay and tree results as tables,
// structured documents and HTML plots.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

const defaultIndent = "  "

// Codec serializes report documents.
type Codec interface {
	// Encode writes v to w.
	Encode(w io.Writer, v any) error
	// Name returns the format name.
	Name() string
}

// JSONCodec encodes indented JSON.
type JSONCodec struct {
	Indent string
}

// Encode implements Codec.
func (c JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if c.Indent != "" {
		enc.SetIndent("", c.Indent)
	}

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Name implements Codec.
func (JSONCodec) Name() string { return FormatJSON }

// YAMLCodec encodes YAML documents.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(len(defaultIndent))

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Name implements Codec.
func (YAMLCodec) Name() string { return FormatYAML }

// CodecFor returns the codec for a structured format. Table has no codec.
func CodecFor(format string) (Codec, error) {
	switch format {
	case FormatJSON:
		return JSONCodec{Indent: defaultIndent}, nil
	case FormatYAML:
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
