package types

import "time"

type Config struct {
	Filter      FilterConfig     `json:"filter" yaml:"filter"`
	Classifier  ClassifierConfig `json:"classifier" yaml:"classifier"`
	Reconciler  ReconcilerConfig `json:"reconciler" yaml:"reconciler"`
	Concurrency int              `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

type FilterConfig struct {
	Filters         []string    `json:"filters" yaml:"filters"`
	DisableCaching  bool        `json:"disable_caching,omitempty" yaml:"disable_caching,omitempty"`
	DisablePriority bool        `json:"disable_priority,omitempty" yaml:"disable_priority,omitempty"`
	Async           AsyncConfig `json:"async" yaml:"async"`
}

type AsyncConfig struct {
	Workers           int           `json:"workers,omitempty" yaml:"workers,omitempty"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RequestsPerSecond float64       `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Burst             int           `json:"burst,omitempty" yaml:"burst,omitempty"`
}

type ClassifierConfig struct {
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKeyEnv  string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	TokenLimit int    `json:"token_limit,omitempty" yaml:"token_limit,omitempty"`
}

type ReconcilerConfig struct {
	KnownSources    []string `json:"known_sources,omitempty" yaml:"known_sources,omitempty"`
	ConsiderSources bool     `json:"consider_sources,omitempty" yaml:"consider_sources,omitempty"`
	MergeStrategy   string   `json:"merge_strategy,omitempty" yaml:"merge_strategy,omitempty"`
}
