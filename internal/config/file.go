package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadFile reads a YAML file of environment settings, for example
//
//	VECTOR_STORE: pgvector
//	TOP_K: 8
//	CORS_ORIGINS: [http://localhost:5173, "*.example.com"]
//
// Variables already present in the environment win, as with .env files.
func loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return err
	}

	var values map[string]interface{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for key, raw := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		value, err := envValue(raw)
		if err != nil {
			return fmt.Errorf("%s in %s: %w", key, path, err)
		}
		os.Setenv(key, value)
	}
	return nil
}

func envValue(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ","), nil
	case map[string]interface{}:
		return "", errors.New("nested maps are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}
