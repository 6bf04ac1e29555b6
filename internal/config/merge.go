package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Top-level YAML sections.
const (
	keyServices = "services"
	keyAnchors  = "anchors"
	keyGauge    = "gauge"
	keyCache    = "cache"
	keyLogging  = "logging"
	keyOutput   = "output"
)

// EnvProjectDir points at a project directory holding .cvindex/config.yaml.
const EnvProjectDir = "CVINDEX_PROJECT_DIR"

// ProjectOverlayPath returns the project overlay file for flagValue, the
// EnvProjectDir variable or startDir, in that order, if the file exists.
func ProjectOverlayPath(flagValue, startDir string) string {
	dir := flagValue
	if dir == "" {
		dir = os.Getenv(EnvProjectDir)
	}
	if dir == "" {
		dir = startDir
	}
	if dir == "" {
		return ""
	}
	if filepath.Base(dir) != dirName {
		dir = filepath.Join(dir, dirName)
	}
	p := filepath.Join(dir, fileName)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// ShallowMergeYAML overlays the top-level sections present in overlayPath
// onto target. A present section replaces the whole target section; absent
// sections and unknown keys are left alone.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}
	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if err := decodeSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}
	return nil
}

// decodeSection decodes node into a fresh value so the section is replaced,
// not merged.
func decodeSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyServices:
		var v ServicesConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Services = v
	case keyAnchors:
		var v AnchorsConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Anchors = v
	case keyGauge:
		var v GaugeConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Gauge = v
	case keyCache:
		var v CacheConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Cache = v
	case keyLogging:
		var v LoggingConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Logging = v
	case keyOutput:
		var v OutputConfig
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Output = v
	}
	return nil
}

// LoadWithOverlay is Load followed by the project overlay, if any. Env
// overrides still win over the overlay.
func LoadWithOverlay(path, overlayPath string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if overlayPath == "" {
		return cfg, nil
	}
	if err := ShallowMergeYAML(cfg, overlayPath); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}
