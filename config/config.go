// Package config loads roster settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kjk/roster/grade"
	"gopkg.in/yaml.v3"
)

// Config holds all roster settings
type Config struct {
	// file records are saved to. Compressed if it ends with .gz, .zst or .br
	DataFile string `yaml:"data_file"`

	// directory for log / error / event files. Empty means log to stdout only.
	LogDir string `yaml:"log_dir"`

	// file the audit journal is appended to. Empty means no journal.
	JournalFile string `yaml:"journal_file"`

	Verbose bool `yaml:"verbose"`

	// "five" or "seven", ignored if Grades is set
	Preset string       `yaml:"preset"`
	Grades *grade.Table `yaml:"grades"`

	// if true, the data file has no grade column
	NoGradeColumn bool `yaml:"no_grade_column"`

	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig configures S3-compatible storage for backups
type BackupConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Region   string `yaml:"region"`
	// prefix of remote object names e.g. "roster/"
	Prefix string `yaml:"prefix"`
	// use http instead of https, for local minio
	Insecure bool `yaml:"insecure"`
}

// Enabled returns true if enough is configured to connect
func (c *BackupConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.Access != "" && c.Secret != ""
}

// Default returns config used when there's no config file
func Default() *Config {
	return &Config{
		DataFile: "students.txt",
		Preset:   "seven",
	}
}

// GradeTable returns the configured grade table
func (c *Config) GradeTable() (*grade.Table, error) {
	if c.Grades != nil {
		if err := c.Grades.Validate(); err != nil {
			return nil, err
		}
		return c.Grades, nil
	}
	return grade.Preset(c.Preset)
}

// Parse parses YAML on top of defaults
func Parse(d []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(d, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.DataFile == "" {
		return nil, fmt.Errorf("config: data_file is empty")
	}
	if _, err := c.GradeTable(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Load reads config from path. A missing file gives Default().
func Load(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(d)
}
