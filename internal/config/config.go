// Package config resolves the runtime knobs for a training run from
// defaults, an optional YAML file, NNET_* environment variables and CLI
// overrides, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/nnet/internal/parallel"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "NNET_"

// Config captures the runtime knobs for a training run.
type Config struct {
	ImagesFile    string  `yaml:"images_file"`
	LabelsFile    string  `yaml:"labels_file"`
	CSVFile       string  `yaml:"csv_file"` // When set, replaces the IDX pair.
	Layers        []int   `yaml:"layers"`
	Eta           float64 `yaml:"eta"`
	Momentum      float64 `yaml:"momentum"`
	Epochs        int     `yaml:"epochs"`
	MiniBatchSize int     `yaml:"mini_batch_size"`
	Variance      float64 `yaml:"variance"`
	HeldOut       int     `yaml:"held_out"`
	Seed          uint64  `yaml:"seed"`
	Workers       int     `yaml:"workers"` // 0 picks the physical core count.
	LogLevel      string  `yaml:"log_level"`
}

// Overrides captures CLI supplied values. Nil fields are left untouched.
type Overrides struct {
	ImagesFile    *string
	LabelsFile    *string
	CSVFile       *string
	Layers        []int
	Eta           *float64
	Momentum      *float64
	Epochs        *int
	MiniBatchSize *int
	Variance      *float64
	HeldOut       *int
	Seed          *uint64
	Workers       *int
	LogLevel      *string
}

// Default returns the configuration of the classic MNIST run.
func Default() *Config {
	return &Config{
		ImagesFile:    "./dat/train-images.idx3-ubyte",
		LabelsFile:    "./dat/train-labels.idx1-ubyte",
		Layers:        []int{784, 30, 10},
		Eta:           3.0,
		Epochs:        10,
		MiniBatchSize: 10,
		Variance:      1.0,
		HeldOut:       10000,
		Workers:       1,
		LogLevel:      "info",
	}
}

// Load reads and validates a Config from YAML on top of Default. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads the first .env file found in the working directory or
// up to four of its parents. Variables already set in the process
// environment win. It reports the file loaded, if any.
func LoadDotEnv() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// ApplyEnv updates c from NNET_* variables returned by lookup, typically
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("IMAGES_FILE"); ok {
		c.ImagesFile = v
	}
	if v, ok := get("LABELS_FILE"); ok {
		c.LabelsFile = v
	}
	if v, ok := get("CSV_FILE"); ok {
		c.CSVFile = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LAYERS"); ok {
		layers, err := ParseLayers(v)
		if err != nil {
			return fmt.Errorf("%sLAYERS: %w", EnvPrefix, err)
		}
		c.Layers = layers
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"ETA", &c.Eta},
		{"MOMENTUM", &c.Momentum},
		{"VARIANCE", &c.Variance},
	}
	for _, f := range floats {
		if v, ok := get(f.key); ok {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, f.key, err)
			}
			*f.dst = x
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EPOCHS", &c.Epochs},
		{"MINI_BATCH_SIZE", &c.MiniBatchSize},
		{"HELD_OUT", &c.HeldOut},
		{"WORKERS", &c.Workers},
	}
	for _, f := range ints {
		if v, ok := get(f.key); ok {
			x, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, f.key, err)
			}
			*f.dst = x
		}
	}

	if v, ok := get("SEED"); ok {
		x, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		c.Seed = x
	}

	return nil
}

// ApplyOverrides updates c using any non-nil override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.ImagesFile != nil {
		c.ImagesFile = *o.ImagesFile
	}
	if o.LabelsFile != nil {
		c.LabelsFile = *o.LabelsFile
	}
	if o.CSVFile != nil {
		c.CSVFile = *o.CSVFile
	}
	if o.Layers != nil {
		c.Layers = append([]int(nil), o.Layers...)
	}
	if o.Eta != nil {
		c.Eta = *o.Eta
	}
	if o.Momentum != nil {
		c.Momentum = *o.Momentum
	}
	if o.Epochs != nil {
		c.Epochs = *o.Epochs
	}
	if o.MiniBatchSize != nil {
		c.MiniBatchSize = *o.MiniBatchSize
	}
	if o.Variance != nil {
		c.Variance = *o.Variance
	}
	if o.HeldOut != nil {
		c.HeldOut = *o.HeldOut
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.CSVFile == "" && (c.ImagesFile == "" || c.LabelsFile == "") {
		return errors.New("images_file and labels_file must be set unless csv_file is")
	}
	if len(c.Layers) < 2 {
		return fmt.Errorf("layers needs at least 2 entries (got %d)", len(c.Layers))
	}
	for i, s := range c.Layers {
		if s <= 0 {
			return fmt.Errorf("layers[%d] must be > 0 (got %d)", i, s)
		}
	}
	if c.Eta <= 0 {
		return fmt.Errorf("eta must be > 0 (got %v)", c.Eta)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0, 1) (got %v)", c.Momentum)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.MiniBatchSize <= 0 {
		return fmt.Errorf("mini_batch_size must be > 0 (got %d)", c.MiniBatchSize)
	}
	if !(c.Variance >= 0) {
		return fmt.Errorf("variance must be >= 0 (got %v)", c.Variance)
	}
	if c.HeldOut < 0 {
		return fmt.Errorf("held_out must be >= 0 (got %d)", c.HeldOut)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got %d)", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ResolveWorkers returns the worker count to train with, mapping 0 to the
// physical core count.
func (c *Config) ResolveWorkers() int {
	if c.Workers == 0 {
		return parallel.DefaultWorkers()
	}
	return c.Workers
}

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// ParseLayers parses a layer list such as "784,30,10" or "784x30x10".
func ParseLayers(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == 'x' || r == ' '
	})
	if len(fields) == 0 {
		return nil, errors.New("empty layer list")
	}
	layers := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = n
	}
	return layers, nil
}

// Topology renders the layer sizes as "784 x 30 x 10".
func (c *Config) Topology() string {
	parts := make([]string, len(c.Layers))
	for i, s := range c.Layers {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, " x ")
}
