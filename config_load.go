package reasongate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchema constrains the shape of a config document before it is
// decoded. Keeping the checks in a schema gives operators a precise error
// path instead of a zero-valued struct field.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "port": {"type": "integer", "minimum": 1, "maximum": 65535},
        "api_key": {"type": "string"},
        "rate_limit": {"type": "number", "minimum": 0}
      }
    },
    "approach": {"type": "string", "minLength": 1},
    "repeat": {"type": "integer", "minimum": 1},
    "upstream": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "base_url": {"type": "string"}
      }
    },
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "mcts_simulations": {"type": "integer", "minimum": 1},
        "mcts_exploration": {"type": "number", "minimum": 0},
        "mcts_depth": {"type": "integer", "minimum": 1},
        "best_of_n": {"type": "integer", "minimum": 1},
        "rstar_max_depth": {"type": "integer", "minimum": 1},
        "rstar_num_rollouts": {"type": "integer", "minimum": 1},
        "rstar_c": {"type": "number", "minimum": 0},
        "n": {"type": "integer", "minimum": 1},
        "return_full_response": {"type": "boolean"}
      }
    },
    "extensions": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "bundled_dir": {"type": "string"},
        "local_dir": {"type": "string"}
      }
    },
    "request_log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["", "sqlite", "postgres"]},
        "dsn": {"type": "string"}
      }
    },
    "log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]},
        "format": {"enum": ["json", "text"]}
      }
    }
  }
}`

// LoadConfig reads, validates, and parses a config file from the given
// path. Supported formats: JSON (.json), YAML (.yaml, .yml). Fields the
// file omits keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		jsonData, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
		data = jsonData
	case ".json":
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := ValidateConfig(data); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// ValidateConfig checks a JSON config document against the schema.
func ValidateConfig(jsonData []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
		return fmt.Errorf("loading config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parsing JSON config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// yamlToJSON re-encodes a YAML document as JSON so a single decode and
// validation path serves both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML rewrites yaml.v3 map types into JSON-compatible ones.
func normalizeYAML(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range vv {
			vv[i] = normalizeYAML(val)
		}
		return vv
	default:
		return v
	}
}
