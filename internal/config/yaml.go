package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong configuration loader. Nested keys are joined with "-" to
// form flag names, so
//
//	ssl:
//	  key-store: server.p12
//
// sets --ssl-key-store. Dotted keys such as "ssl.key-store" and snake_case
// keys are accepted as well.
func YAML(r io.Reader) (kong.Resolver, error) {
	raw := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	values := map[string]any{}
	flatten("", raw, values)

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		value, ok := values[flag.Name]
		if !ok {
			return nil, nil
		}
		return value, nil
	}
	return f, nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for key, value := range in {
		name := normaliseKey(key)
		if prefix != "" {
			name = prefix + "-" + name
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = value
	}
}

func normaliseKey(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(strings.ToLower(key))
}
