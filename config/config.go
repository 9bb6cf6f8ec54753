package config

import (
	"os"

	"github.com/Clouded-Sabre/pcp-monitor/lib"
	"gopkg.in/yaml.v2"
)

// fileConfig is the YAML layout of config.yaml.
type fileConfig struct {
	Monitor *lib.MonitorCoreConfig `yaml:"monitor"`
}

// LoadConfig reads the monitor core configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*lib.MonitorCoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &fileConfig{
		Monitor: lib.DefaultMonitorCoreConfig(),
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Monitor == nil {
		cfg.Monitor = lib.DefaultMonitorCoreConfig()
	}

	return cfg.Monitor, nil
}
