package util

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/types"
)

// Load decodes a YAML or JSON config file.
func Load(path string) (*types.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var c types.Config
	if err := yaml.NewDecoder(f).Decode(&c); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	return &c, nil
}

func Write(path string, config types.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "close encoder of %s", path)
	}

	return nil
}
