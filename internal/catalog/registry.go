package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fundview/internal/logger"
)

// Instrument is one charted perpetual contract.
type Instrument struct {
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	Label   string `mapstructure:"label" yaml:"label" json:"label"`
	Quote   string `mapstructure:"quote" yaml:"quote" json:"quote"`
	Default bool   `mapstructure:"default" yaml:"default" json:"default"`
}

// FileConfig maps the instruments file.
type FileConfig struct {
	Instruments []Instrument `mapstructure:"instruments" yaml:"instruments"`
}

// Snapshot is the published instrument set.
type Snapshot struct {
	Version     int64
	LoadedAt    time.Time
	Instruments []Instrument
}

// ChangeListener fires when the registry reloads.
type ChangeListener func(Snapshot)

// instrumentsSchema constrains the catalog file; Deribit perpetual names are
// uppercase with -PERPETUAL or _USDC-PERPETUAL suffixes.
const instrumentsSchema = `{
  "type": "object",
  "required": ["instruments"],
  "properties": {
    "instruments": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Z0-9_]+-PERPETUAL$"},
          "label": {"type": "string"},
          "quote": {"type": "string"},
          "default": {"type": "boolean"}
        }
      }
    }
  }
}`

var schemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("instruments.schema.json", strings.NewReader(instrumentsSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("instruments.schema.json")
})

// Registry manages the instrument catalog and reloads it when the file
// changes on disk.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the catalog file and watches it for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("instrument registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read instruments file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("instrument catalog reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current instrument set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Has reports whether name is a cataloged instrument.
func (r *Registry) Has(name string) bool {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.snapshot.Instruments {
		if inst.Name == name {
			return true
		}
	}
	return false
}

// Default returns the instrument flagged default, or the first entry.
func (r *Registry) Default() (Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.snapshot.Instruments) == 0 {
		return Instrument{}, false
	}
	for _, inst := range r.snapshot.Instruments {
		if inst.Default {
			return inst, true
		}
	}
	return r.snapshot.Instruments[0], true
}

// Names returns catalog instrument names in file order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.snapshot.Instruments))
	for _, inst := range r.snapshot.Instruments {
		names = append(names, inst.Name)
	}
	return names
}

// OnChange registers a reload listener.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readInstrumentsFile(r.path)
	if err != nil {
		return err
	}
	instruments := make([]Instrument, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		inst.Name = strings.TrimSpace(inst.Name)
		if inst.Name == "" {
			continue
		}
		if inst.Label == "" {
			inst.Label = inst.Name
		}
		instruments = append(instruments, inst)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:     r.snapshot.Version + 1,
		LoadedAt:    time.Now(),
		Instruments: instruments,
	}
	r.mu.Unlock()
	logger.Infof("instrument catalog loaded %d instruments from %s", len(instruments), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("instrument catalog listener")
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	dst.Instruments = append([]Instrument(nil), src.Instruments...)
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func readInstrumentsFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read instruments file failed: %w", err)
	}
	if err := validateInstrumentsDoc(raw); err != nil {
		return FileConfig{}, err
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse instruments file failed: %w", err)
	}
	return cfg, nil
}

func validateInstrumentsDoc(raw []byte) error {
	schema, err := schemaOnce()
	if err != nil {
		return fmt.Errorf("compile instruments schema failed: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse instruments file failed: %w", err)
	}
	// round-trip through JSON so the validator sees plain types
	buf, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var jsonDoc any
	if err := json.Unmarshal(buf, &jsonDoc); err != nil {
		return err
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("instruments file invalid: %w", err)
	}
	return nil
}
