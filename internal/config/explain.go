package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Paths are the config keys, with dots for nesting:
//
//	url
//	zoom_level
//	ratio_lock
//	dashboard.listen
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every leaf path Explain accepts, sorted.
func Paths(cfg *Config) ([]string, error) {
	tree, err := configTree(cfg)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for key, val := range node {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if child, ok := val.(map[string]any); ok {
				walk(path, child)
				continue
			}
			out = append(out, path)
		}
	}
	walk("", tree)
	sort.Strings(out)
	return out, nil
}

// configTree renders cfg through its YAML tags so that paths match the file
// format exactly.
func configTree(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to read back config: %w", err)
	}
	return tree, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	tree, err := configTree(cfg)
	if err != nil {
		return nil, err
	}

	var node any = tree
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		node, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
	}
	return node, nil
}
