package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SignalWeights holds the multipliers applied to the three relatedness
// signals when deriving an edge's total weight.
type SignalWeights struct {
	RelatedText float64 `yaml:"related_text"`
	SubImage    float64 `yaml:"sub_image"`
	OCR         float64 `yaml:"ocr"`
}

// ClusteringTuning holds the knobs for the clustering batch path.
type ClusteringTuning struct {
	MaxIterations  int `yaml:"max_iterations"`
	MinClusterSize int `yaml:"min_cluster_size"`
	Parallelism    int `yaml:"parallelism"`
	WindowDays     int `yaml:"window_days"`
}

// Tuning is the service tuning file, loaded from MEWS_TUNING_PATH.
type Tuning struct {
	Weights    SignalWeights    `yaml:"weights"`
	Clustering ClusteringTuning `yaml:"clustering"`
}

// DefaultTuning returns the tuning used when no file is present.
func DefaultTuning() Tuning {
	return Tuning{
		Weights: SignalWeights{
			RelatedText: 1,
			SubImage:    1,
			OCR:         1,
		},
		Clustering: ClusteringTuning{
			MaxIterations:  100,
			MinClusterSize: 5,
			Parallelism:    4,
			WindowDays:     365,
		},
	}
}

// LoadTuning reads the tuning YAML from path. A missing file is not an
// error; defaults are returned. Zero-valued fields fall back to defaults
// so a partial file only overrides what it names.
func LoadTuning(path string) (Tuning, error) {
	cfg := DefaultTuning()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	d := DefaultTuning()
	if cfg.Weights == (SignalWeights{}) {
		cfg.Weights = d.Weights
	}
	if cfg.Clustering.MaxIterations <= 0 {
		cfg.Clustering.MaxIterations = d.Clustering.MaxIterations
	}
	if cfg.Clustering.MinClusterSize <= 0 {
		cfg.Clustering.MinClusterSize = d.Clustering.MinClusterSize
	}
	if cfg.Clustering.Parallelism <= 0 {
		cfg.Clustering.Parallelism = d.Clustering.Parallelism
	}
	if cfg.Clustering.WindowDays <= 0 {
		cfg.Clustering.WindowDays = d.Clustering.WindowDays
	}
	return cfg, nil
}
