package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// EventParser parses raw event bytes into an Event.
type EventParser interface {
	// Parse unmarshals event bytes into an Event.
	Parse(data []byte) (*Event, error)
}

// JSONEventParser implements EventParser for JSON.
type JSONEventParser struct{}

// Parse unmarshals JSON bytes into an Event.
func (p *JSONEventParser) Parse(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// YAMLEventParser implements EventParser for YAML.
type YAMLEventParser struct{}

// Parse unmarshals YAML bytes into an Event. The JSON unmarshaler option
// keeps the string form of collection specs working in YAML too.
func (p *YAMLEventParser) Parse(data []byte) (*Event, error) {
	var event Event
	if err := yaml.UnmarshalWithOptions(data, &event, yaml.UseJSONUnmarshaler()); err != nil {
		return nil, err
	}
	return &event, nil
}

// Load reads and validates an event file, dispatching on extension
// (.json, .yaml, .yml).
func Load(path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event file: %w", err)
	}

	var parser EventParser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = &JSONEventParser{}
	case ".yaml", ".yml":
		parser = &YAMLEventParser{}
	default:
		return nil, fmt.Errorf("unsupported event file format: %s", path)
	}

	event, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}
