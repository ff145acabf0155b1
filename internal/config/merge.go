package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyServer   = "server"
	keyDatabase = "database"
	keyImpact   = "impact"
	keyLogging  = "logging"
	keyTracing  = "tracing"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyServer:   true,
	keyDatabase: true,
	keyImpact:   true,
	keyLogging:  true,
	keyTracing:  true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. A section present in the overlay replaces the whole
// section in the target; fields the overlay omits take their built-in
// defaults, not the target's values. Absent sections are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes data onto a fresh default copy of the section
// named by key and stores it in target.
func unmarshalSection(target *Config, key string, data []byte) error {
	defaults := Default()

	switch key {
	case keyServer:
		return replaceSection(&target.Server, defaults.Server, data)
	case keyDatabase:
		return replaceSection(&target.Database, defaults.Database, data)
	case keyImpact:
		return replaceSection(&target.Impact, defaults.Impact, data)
	case keyLogging:
		return replaceSection(&target.Logging, defaults.Logging, data)
	case keyTracing:
		return replaceSection(&target.Tracing, defaults.Tracing, data)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

func replaceSection[T any](dst *T, fresh T, data []byte) error {
	if err := yaml.Unmarshal(data, &fresh); err != nil {
		return err
	}
	*dst = fresh
	return nil
}
