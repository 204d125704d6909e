// Package project loads supertypes.toml project configuration.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vito/supertypes/pkg/classpath"
	"github.com/vito/supertypes/pkg/defaults"
	"github.com/vito/supertypes/pkg/qual"
)

// FileName is the name of the project configuration file.
const FileName = "supertypes.toml"

// Environment variables overriding the configuration file.
const (
	EnvClasspath = "SUPERTYPES_CLASSPATH"
	EnvImplicit  = "SUPERTYPES_IMPLICIT"
	EnvTop       = "SUPERTYPES_TOP"
)

// Config represents a supertypes.toml file.
type Config struct {
	// Classpath lists hierarchy files or glob patterns, relative to the
	// directory containing the config.
	Classpath []string `toml:"classpath"`

	// Imports are packages whose members resolve by simple name in queries.
	Imports []string `toml:"imports"`

	// Bootstrap controls loading the built-in platform hierarchy. Defaults
	// to true.
	Bootstrap *bool `toml:"bootstrap"`

	Qualifiers Qualifiers `toml:"qualifiers"`

	// Dir is the directory relative classpath entries resolve against.
	Dir string `toml:"-"`
}

// Qualifiers configures the defaulting policy.
type Qualifiers struct {
	Implicit []string `toml:"implicit"`
	Top      []string `toml:"top"`
}

// Default returns the configuration used when no project file exists.
func Default(dir string) *Config {
	return &Config{Dir: dir}
}

// Load loads a supertypes.toml file from the given path.
func Load(path string) (*Config, error) {
	var config Config
	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing %s: unknown key %s", path, undecoded[0])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	config.Dir = filepath.Dir(abs)
	return &config, nil
}

// Find searches for supertypes.toml starting from dir and walking up to
// parent directories, stopping at a .git boundary. Returns ("", nil, nil)
// if not found.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// ApplyEnv applies environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvClasspath); v != "" {
		if err := c.OverrideClasspath(filepath.SplitList(v)); err != nil {
			return err
		}
	}
	if v := getenv(EnvImplicit); v != "" {
		c.Qualifiers.Implicit = splitList(v)
	}
	if v := getenv(EnvTop); v != "" {
		c.Qualifiers.Top = splitList(v)
	}
	return nil
}

// OverrideClasspath replaces the classpath with entries relative to the
// working directory.
func (c *Config) OverrideClasspath(entries []string) error {
	abs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e == "" {
			continue
		}
		p, err := filepath.Abs(e)
		if err != nil {
			return err
		}
		abs = append(abs, p)
	}
	c.Classpath = abs
	return nil
}

// UseBootstrap reports whether the platform hierarchy is loaded.
func (c *Config) UseBootstrap() bool {
	return c.Bootstrap == nil || *c.Bootstrap
}

// HierarchyFiles expands the classpath into file paths. Entries without
// glob metacharacters are kept even if missing, so loading reports them.
func (c *Config) HierarchyFiles() ([]string, error) {
	var files []string
	for _, entry := range c.Classpath {
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(c.Dir, entry)
		}
		if !strings.ContainsAny(entry, "*?[") {
			files = append(files, entry)
			continue
		}
		matches, err := filepath.Glob(entry)
		if err != nil {
			return nil, fmt.Errorf("classpath entry %q: %w", entry, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// Policy returns the configured qualifier defaulting policy.
func (c *Config) Policy() defaults.Policy {
	return defaults.Policy{
		Implicit: qual.Parse(c.Qualifiers.Implicit...),
		Top:      qual.Parse(c.Qualifiers.Top...),
	}
}

// LoadClasspath builds the configured classpath.
func (c *Config) LoadClasspath() (*classpath.Classpath, error) {
	var cp *classpath.Classpath
	if c.UseBootstrap() {
		var err error
		cp, err = classpath.Bootstrap(c.Imports...)
		if err != nil {
			return nil, err
		}
	} else {
		cp = classpath.New(c.Imports...)
	}

	files, err := c.HierarchyFiles()
	if err != nil {
		return nil, err
	}
	if err := cp.LoadFiles(files...); err != nil {
		return nil, err
	}
	return cp, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
