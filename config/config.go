package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/seqloc/model"
	"gopkg.in/yaml.v3"
)

// Feature kinds.
const (
	FeatureVector      = "vector"
	FeatureScanContext = "scan-context"
)

// Relocalizer kinds.
const (
	RelocalizerFixedWindow = "fixed-window"
	RelocalizerHashing     = "hashing"
	RelocalizerRingKey     = "ring-key"
)

// Storage kinds.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageMinio = "minio"
)

// Config describes one localization run.
type Config struct {
	// QueryPrefix and RefPrefix select the feature documents of both sequences.
	QueryPrefix string `yaml:"query_prefix"`
	RefPrefix   string `yaml:"ref_prefix"`
	// Extension filters feature documents by suffix.
	Extension string `yaml:"extension"`
	// FeatureKind is vector or scan-context.
	FeatureKind string `yaml:"feature_kind"`
	// QuerySize limits the number of processed queries; 0 processes all of them.
	QuerySize int `yaml:"query_size"`

	NonMatchingCost float64 `yaml:"non_matching_cost"`
	ExpansionRate   float64 `yaml:"expansion_rate"`
	FanOut          int     `yaml:"fan_out"`
	BufferSize      int     `yaml:"buffer_size"`
	LostWindow      int     `yaml:"lost_window"`
	LostRatio       float64 `yaml:"lost_ratio"`

	// SimilarityMatrix or CostMatrix replace online feature comparison.
	SimilarityMatrix string `yaml:"similarity_matrix"`
	CostMatrix       string `yaml:"cost_matrix"`
	// Precomputed serves the matrix pairs it covers and compares features for the rest.
	Precomputed bool `yaml:"precomputed"`

	SimPlaces      string `yaml:"sim_places"`
	MatchingResult string `yaml:"matching_result"`
	CostOutput     string `yaml:"cost_output"`
	ExpandedOutput string `yaml:"expanded_output"`
	Compression    string `yaml:"compression"`
	Codec          string `yaml:"codec"`

	Relocalizer Relocalizer `yaml:"relocalizer"`
	Storage     Storage     `yaml:"storage"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Relocalizer configures the candidate retriever.
type Relocalizer struct {
	Kind            string `yaml:"kind"`
	Tables          int    `yaml:"tables"`
	KeySize         int    `yaml:"key_size"`
	MultiProbeLevel int    `yaml:"multi_probe_level"`
	K               int    `yaml:"k"`
	M               int    `yaml:"m"`
	EF              int    `yaml:"ef"`
	Seed            int64  `yaml:"seed"`
	BruteForce      bool   `yaml:"brute_force"`
}

// Storage selects the blob store.
type Storage struct {
	Kind      string `yaml:"kind"`
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// Default returns the configuration used for unset keys.
func Default() Config {
	return Config{
		QueryPrefix:     "query/",
		RefPrefix:       "ref/",
		Extension:       ".json",
		FeatureKind:     FeatureVector,
		NonMatchingCost: 3.0,
		ExpansionRate:   0.7,
		FanOut:          5,
		BufferSize:      100,
		LostWindow:      5,
		LostRatio:       0.8,
		MatchingResult:  "matches.json",
		Compression:     "zstd",
		Codec:           "go-json",
		Relocalizer: Relocalizer{
			Kind:            RelocalizerHashing,
			Tables:          1,
			KeySize:         12,
			MultiProbeLevel: 2,
			K:               5,
			M:               16,
			EF:              100,
			Seed:            1,
		},
		Storage: Storage{
			Kind: StorageLocal,
			Root: ".",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: open config: %w", model.ErrInvalidConfig, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults. Unknown keys are an error.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: YAML syntax error in config: %w", model.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks every parameter constraint and returns all violations.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{model.ErrInvalidConfig}, args...)...))
	}

	if !(c.ExpansionRate > 0 && c.ExpansionRate <= 1) {
		fail("expansion_rate must be in (0,1], got %g", c.ExpansionRate)
	}
	if !(c.NonMatchingCost > 0) {
		fail("non_matching_cost must be positive, got %g", c.NonMatchingCost)
	}
	if c.FanOut <= 0 {
		fail("fan_out must be positive, got %d", c.FanOut)
	}
	if c.BufferSize < 0 {
		fail("buffer_size must not be negative, got %d", c.BufferSize)
	}
	if c.QuerySize < 0 {
		fail("query_size must not be negative, got %d", c.QuerySize)
	}
	if c.LostWindow <= 0 {
		fail("lost_window must be positive, got %d", c.LostWindow)
	}
	if c.LostRatio < 0 || c.LostRatio > 1 {
		fail("lost_ratio must be in [0,1], got %g", c.LostRatio)
	}
	if c.SimilarityMatrix != "" && c.CostMatrix != "" {
		fail("similarity_matrix and cost_matrix are mutually exclusive")
	}
	if c.Precomputed && c.SimilarityMatrix == "" && c.CostMatrix == "" {
		fail("precomputed needs a similarity_matrix or cost_matrix")
	}
	if c.MatchingResult == "" {
		fail("matching_result is required")
	}

	switch c.FeatureKind {
	case FeatureVector, FeatureScanContext:
	default:
		fail("unknown feature_kind %q", c.FeatureKind)
	}

	switch c.Compression {
	case "", "none", "lz4", "zstd":
	default:
		fail("unknown compression %q", c.Compression)
	}

	switch c.Codec {
	case "", "go-json", "json":
	default:
		fail("unknown codec %q", c.Codec)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		fail("unknown log_level %q", c.LogLevel)
	}

	r := c.Relocalizer
	switch r.Kind {
	case RelocalizerFixedWindow:
	case RelocalizerHashing:
		if c.FeatureKind != FeatureVector {
			fail("the hashing relocalizer needs vector features")
		}
		if r.Tables <= 0 || r.KeySize <= 0 || r.KeySize > 64 || r.MultiProbeLevel < 0 {
			fail("invalid hashing parameters tables=%d key_size=%d multi_probe_level=%d", r.Tables, r.KeySize, r.MultiProbeLevel)
		}
		if r.K <= 0 {
			fail("relocalizer k must be positive, got %d", r.K)
		}
	case RelocalizerRingKey:
		if c.FeatureKind != FeatureScanContext {
			fail("the ring-key relocalizer needs scan-context features")
		}
		if r.K <= 0 || r.EF <= 0 {
			fail("invalid ring-key parameters k=%d ef=%d", r.K, r.EF)
		}
	default:
		fail("unknown relocalizer kind %q", r.Kind)
	}
	if r.BruteForce && r.Kind != RelocalizerRingKey {
		fail("brute_force applies to the ring-key relocalizer only")
	}

	s := c.Storage
	switch s.Kind {
	case StorageLocal:
		if s.Root == "" {
			fail("storage root is required for local storage")
		}
	case StorageS3:
		if s.Bucket == "" {
			fail("storage bucket is required for s3")
		}
	case StorageMinio:
		if s.Bucket == "" || s.Endpoint == "" {
			fail("storage bucket and endpoint are required for minio")
		}
	default:
		fail("unknown storage kind %q", s.Kind)
	}

	return errors.Join(errs...)
}
