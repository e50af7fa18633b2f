package init

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/config/util"
)

type options struct {
	config string
}

type Option interface {
	apply(*options)
}

type configOption string

func (o configOption) apply(opts *options) {
	opts.config = string(o)
}

func WithConfig(config string) Option {
	return configOption(config)
}

func Init(opts ...Option) error {
	options := &options{
		config: config.DefaultPath(),
	}
	for _, o := range opts {
		o.apply(options)
	}

	fmt.Println("initialize config")

	if err := os.MkdirAll(filepath.Dir(options.config), 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(options.config))
	}

	if err := util.Write(options.config, config.Default()); err != nil {
		return errors.Wrap(err, "write config")
	}

	fmt.Printf("initialized success. config: %s\n", options.config)

	return nil
}
