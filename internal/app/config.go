package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

const defaultAddr = "0.0.0.0:3000"

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:3000" usage:"API server listen address"`
	DataFile     string `default:"data/products.json" usage:"Path of the product collection document" flag:"data-file"`
	PublicDir    string `default:"public" usage:"Directory served as static content" flag:"public-dir"`
	MediaDir     string `default:"uploads/images" usage:"Image directory relative to the public directory" flag:"media-dir"`
	MaxImageSize int64  `default:"5242880" usage:"Maximum image upload size in bytes" flag:"max-image-size"`
	Graceful     GracefulConfig
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CATALOG",
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// when no explicit address was configured.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.DataFile == "":
		return errors.New("data file is required")
	case c.PublicDir == "":
		return errors.New("public directory is required")
	case c.MaxImageSize <= 0:
		return errors.Errorf("max image size must be positive, got %d", c.MaxImageSize)
	case c.MaxImageSize > 10*catalog.DefaultMaxImageSize:
		return errors.Errorf("max image size %d is above %d", c.MaxImageSize, 10*catalog.DefaultMaxImageSize)
	}
	return nil
}
