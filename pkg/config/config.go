package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/types"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/util"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter/classifier"
	utilos "github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/util/os"
)

const (
	DefaultAPIKeyEnv     = "GEMINI_API_KEY"
	DefaultMergeStrategy = "UPDATE_ONE_BY_ONE"
)

func DefaultPath() string {
	return filepath.Join(utilos.UserConfigDir(), "config.yaml")
}

func Default() types.Config {
	var c types.Config
	Fill(&c)
	return c
}

// Fill sets defaults for every unset field.
func Fill(c *types.Config) {
	if c.Filter.Filters == nil {
		for _, f := range filter.LocalFilters() {
			c.Filter.Filters = append(c.Filter.Filters, f.Name())
		}
	}
	if c.Filter.Async.Timeout == 0 {
		c.Filter.Async.Timeout = filter.DefaultTimeout
	}
	if c.Filter.Async.Burst == 0 {
		c.Filter.Async.Burst = 1
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = classifier.DefaultModel
	}
	if c.Classifier.APIKeyEnv == "" {
		c.Classifier.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Classifier.TokenLimit == 0 {
		c.Classifier.TokenLimit = classifier.DefaultTokenLimit
	}
	if c.Reconciler.MergeStrategy == "" {
		c.Reconciler.MergeStrategy = DefaultMergeStrategy
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
}

// Open loads the config at path and fills in defaults. A missing file yields Default().
func Open(path string) (types.Config, error) {
	c, err := util.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return types.Config{}, errors.Wrap(err, "load config")
	}
	Fill(c)
	return *c, nil
}
