// Package asyncapi validates CloudEvent payloads against the schemas of an
// AsyncAPI document.
package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const schemaRefPrefix = "#/components/schemas/"

// CloudEvent is the part of a CloudEvents envelope the validator reads
type CloudEvent struct {
	SpecVersion string          `json:"specversion"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	ID          string          `json:"id"`
	Data        json.RawMessage `json:"data"`
}

type document struct {
	Components struct {
		Schemas  map[string]any `yaml:"schemas"`
		Messages map[string]struct {
			Name    string `yaml:"name"`
			Payload struct {
				Ref string `yaml:"$ref"`
			} `yaml:"payload"`
		} `yaml:"messages"`
	} `yaml:"components"`
}

// EventValidator maps event types to compiled payload schemas. The event type
// of a message is its AsyncAPI name.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewEventValidator compiles every message payload of an AsyncAPI document
func NewEventValidator(raw []byte) (*EventValidator, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse AsyncAPI document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()

	v := &EventValidator{schemas: make(map[string]*jsonschema.Schema)}
	for key, msg := range doc.Components.Messages {
		name := strings.TrimPrefix(msg.Payload.Ref, schemaRefPrefix)
		schemaRaw, ok := doc.Components.Schemas[name]
		if msg.Name == "" || !ok {
			return nil, fmt.Errorf("message %s: payload schema %q not found", key, msg.Payload.Ref)
		}

		schemaDoc, err := toJSONValue(schemaRaw)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		url := "asyncapi://schemas/" + name
		if err := compiler.AddResource(url, schemaDoc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[msg.Name] = compiled
	}
	return v, nil
}

// EventTypes lists the event types with a schema, sorted
func (v *EventValidator) EventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for t := range v.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateEventJSON validates a serialized CloudEvent
func (v *EventValidator) ValidateEventJSON(raw []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("parse CloudEvent: %w", err)
	}
	if event.SpecVersion != "1.0" || event.ID == "" || event.Source == "" {
		return fmt.Errorf("event %q is not a CloudEvents 1.0 envelope", event.Type)
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema for event type %s", event.Type)
	}
	if len(event.Data) == 0 {
		return fmt.Errorf("event %s has no data", event.Type)
	}

	data, err := jsonschema.UnmarshalJSON(bytes.NewReader(event.Data))
	if err != nil {
		return fmt.Errorf("parse event data: %w", err)
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for %s: %w", event.Type, err)
	}
	return nil
}

// toJSONValue converts a YAML-decoded value to the form the schema compiler reads
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
