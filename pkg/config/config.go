// Package config holds the runtime settings shared by the build and serve
// commands, including defaults, a YAML overlay, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

// SourceDirEnv overrides SourceDir when set.
const SourceDirEnv = "DRAFT_DATA_FOLDER"

// Config holds settings for the draft data server.
//
// Fields:
//   - Addr: listen address of the HTTP server.
//   - SourceDir: the folder that gets packaged.
//   - PrebuiltPath: where `build` writes the archive and `/draft_data.zip` reads it.
//   - ScratchDir: where on-demand archives are written before streaming.
//   - ReportsDir / IndexFile: the dashboard's main document.
//   - DashboardDir: static dashboard assets under `/dashboard/`.
//   - DownloadName: attachment filename for both download routes.
//   - Exclude: base-name patterns never archived.
//   - SSL / CertFile / KeyFile: serve HTTPS and send HTTPS-only security headers.
type Config struct {
	Addr         string   `yaml:"addr"`
	SourceDir    string   `yaml:"source_dir"`
	PrebuiltPath string   `yaml:"prebuilt_path"`
	ScratchDir   string   `yaml:"scratch_dir"`
	ReportsDir   string   `yaml:"reports_dir"`
	IndexFile    string   `yaml:"index_file"`
	DashboardDir string   `yaml:"dashboard_dir"`
	DownloadName string   `yaml:"download_name"`
	Exclude      []string `yaml:"exclude"`
	SSL          bool     `yaml:"ssl"`
	CertFile     string   `yaml:"cert_file"`
	KeyFile      string   `yaml:"key_file"`
}

// Defaults returns the settings used when nothing else is configured.
// Paths are relative to the working directory.
func Defaults() *Config {
	return &Config{
		Addr:         "127.0.0.1:5000",
		SourceDir:    "draft_data",
		PrebuiltPath: filepath.Join("reports", "draft_data.zip"),
		ScratchDir:   os.TempDir(),
		ReportsDir:   "reports",
		IndexFile:    "survey_builder_analytics.html",
		DashboardDir: "dashboard",
		DownloadName: "eval_draft_data.zip",
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(SourceDirEnv); v != "" {
		c.SourceDir = v
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"source_dir", c.SourceDir},
		{"prebuilt_path", c.PrebuiltPath},
		{"scratch_dir", c.ScratchDir},
		{"download_name", c.DownloadName},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config: %s must be set", r.name)
		}
	}
	if c.SSL && (c.CertFile == "" || c.KeyFile == "") {
		return errors.New("config: ssl enabled but cert_file or key_file not specified")
	}
	if filepath.Base(c.DownloadName) != c.DownloadName {
		return errors.New("config: download_name must be a plain file name")
	}
	return nil
}

// Load builds a Config from defaults, the optional YAML file, and the
// environment, in that order. Command-line flags are applied by the caller.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}
