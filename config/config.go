// Package config loads session configuration files.
//
// Files are YAML (.yaml, .yml) or TOML (.toml). Unknown keys are rejected
// so typos surface at load time instead of being silently ignored:
//
//	# linesh.yaml
//	read_timeout: 2s
//	session:
//	  work_dir: /home/me/chromiumos
//	  probe_binary: dut-control
//	  init_commands:
//	    - cd ~/trunk/src/scripts
//	  stop_timeout: 3s
//
// Schema returns the JSON Schema for the same structure, and Watch reloads
// a file whenever it changes on disk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/linekit/session"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// DefaultReadTimeout is used when a file does not set read_timeout.
const DefaultReadTimeout = time.Second

// File is the on-disk configuration.
type File struct {
	// Session configures how the child process is spawned and killed.
	Session session.Config `json:"session" yaml:"session" toml:"session"`

	// ReadTimeout is how long a driver waits for the first line of output
	// after sending a command.
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout" toml:"read_timeout" jsonschema:"description=Nanoseconds to wait for the first output line"`
}

// Default returns a File with every default applied.
func Default() *File {
	return &File{
		Session:     session.DefaultConfig(),
		ReadTimeout: DefaultReadTimeout,
	}
}

// Load reads, decodes and validates the file at path. Unset fields take
// their defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext (".yaml", ".yml" or ".toml").
func Parse(data []byte, ext string) (*File, error) {
	var f File

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF; treat it as all defaults.
		if err := dec.Decode(&f); err != nil && !isEmptyYAML(data) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("parse toml: unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the whole file.
func (f *File) Validate() error {
	if f.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must be >= 0")
	}
	if err := f.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// SessionOptions converts the file into options for session.Start.
func (f *File) SessionOptions() []session.Option {
	return []session.Option{session.WithConfig(f.Session)}
}

func (f *File) applyDefaults() {
	f.Session = f.Session.WithDefaults()
	if f.ReadTimeout == 0 {
		f.ReadTimeout = DefaultReadTimeout
	}
}

func isEmptyYAML(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && line != "---" {
			return false
		}
	}
	return true
}
