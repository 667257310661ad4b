// Package config loads generation settings from YAML and from loose
// key=value pairs, recovering from malformed numbers with defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fdmart/internal/base"
	"fdmart/internal/brightness"
	"fdmart/internal/gcode"
	"fdmart/internal/toolpath"
)

// Config holds every setting of the tool.
type Config struct {
	Area     toolpath.PrintArea      `yaml:"area"`
	Path     toolpath.PathParameters `yaml:"path"`
	Material gcode.Material          `yaml:"material"`
	Base     base.Config             `yaml:"base"`
	Change   base.ChangePlan         `yaml:"change"`
	View     brightness.View         `yaml:"view"`
	Image    ImageConfig             `yaml:"image"`
	Template string                  `yaml:"template"`
	Server   ServerConfig            `yaml:"server"`
}

// ImageConfig controls source decoding. MaxPixels > 0 down-samples sources
// whose longer side exceeds it.
type ImageConfig struct {
	MaxPixels int `yaml:"max_px"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Listen      string `yaml:"listen"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Area:     toolpath.DefaultPrintArea(),
		Path:     toolpath.DefaultPathParameters(),
		Material: toolpath.DefaultMaterial(),
		Base:     toolpath.DefaultBase(),
		Change:   toolpath.DefaultChangePlan(),
		View:     brightness.View{Zoom: 1},
		Server: ServerConfig{
			Listen:      ":8090",
			MaxUploadMB: 32,
		},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that are not repaired at run time.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0")
	}
	if c.Image.MaxPixels < 0 {
		return fmt.Errorf("image.max_px must be >= 0")
	}
	if c.Change.BaseSlot < 0 || c.Change.DrawSlot < 0 {
		return fmt.Errorf("change slots must be >= 0")
	}
	return nil
}

// Job builds the generation job for a decoded source.
func (c *Config) Job(f *brightness.Field) toolpath.Job {
	return toolpath.Job{
		Area:     c.Area,
		Path:     c.Path,
		Material: c.Material,
		Base:     c.Base,
		Change:   c.Change,
		View:     c.View,
		Image:    f,
	}
}

// Overlay decodes YAML on top of c, leaving unset fields unchanged.
func (c *Config) Overlay(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config overlay: %w", err)
	}
	return c.Validate()
}
