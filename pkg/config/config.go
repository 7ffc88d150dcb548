package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"zrange/pkg/geometry"
	"zrange/pkg/ztree"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Domain DomainConfig `yaml:"domain"`
	Query  QueryConfig  `yaml:"query"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP Listen Address (e.g. :8080)
}

type DomainConfig struct {
	Layout string  `yaml:"layout"` // xy, xyz, xyt or xyzt
	Bits   uint    `yaml:"bits"`
	Bounds []int64 `yaml:"bounds"` // exclusive upper bound per axis, already scaled
}

type QueryConfig struct {
	Coarsening  int               `yaml:"coarsening"`
	MaxRanges   int               `yaml:"max_ranges"`
	Distinct    bool              `yaml:"distinct"`
	DepthPolicy DepthPolicyConfig `yaml:"depth_policy"`
}

type DepthPolicyConfig struct {
	ContinuousBase  float64 `yaml:"continuous_base"`
	ContinuousRound string  `yaml:"continuous_round"`
	DiscreteBase    float64 `yaml:"discrete_base"`
	DiscreteRound   string  `yaml:"discrete_round"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Domain: DomainConfig{
			Layout: "xy",
			Bits:   20,
		},
		Query: QueryConfig{
			MaxRanges: 1000,
			DepthPolicy: DepthPolicyConfig{
				ContinuousRound: "ceil",
				DiscreteRound:   "floor",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/zrange.yaml", "zrange.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, errors.Wrapf(err, "parse %s", p)
				}
				applyDomainDefaults(cfg)
				return cfg, nil
			}
		}
		applyDomainDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", configPath)
	}

	applyDomainDefaults(cfg)
	return cfg, nil
}

// applyDomainDefaults fills in the full key space when no bounds are given.
func applyDomainDefaults(cfg *Config) {
	if cfg.Domain.Layout == "" {
		cfg.Domain.Layout = "xy"
	}
	if cfg.Domain.Bits == 0 {
		cfg.Domain.Bits = 20
	}
	if len(cfg.Domain.Bounds) == 0 {
		if l, err := geometry.ParseLayout(cfg.Domain.Layout); err == nil && cfg.Domain.Bits < 63 {
			for i := 0; i < l.Dims(); i++ {
				cfg.Domain.Bounds = append(cfg.Domain.Bounds, int64(1)<<cfg.Domain.Bits)
			}
		}
	}
	if cfg.Query.MaxRanges < 0 {
		cfg.Query.MaxRanges = 0
	}
}

// BuildDomain validates the domain section.
func (c *Config) BuildDomain() (*ztree.Domain, error) {
	layout, err := geometry.ParseLayout(c.Domain.Layout)
	if err != nil {
		return nil, errors.Wrap(ztree.ErrInvalidDomain, err.Error())
	}
	return ztree.NewDomain(layout, c.Domain.Bounds, c.Domain.Bits)
}

func (c *Config) DepthPolicy() (ztree.DepthPolicy, error) {
	p := ztree.DepthPolicy{
		ContinuousBase: c.Query.DepthPolicy.ContinuousBase,
		DiscreteBase:   c.Query.DepthPolicy.DiscreteBase,
	}
	var err error
	if p.ContinuousRound, err = ztree.ParseRounding(c.Query.DepthPolicy.ContinuousRound); err != nil {
		return p, err
	}
	if p.DiscreteRound, err = ztree.ParseRounding(c.Query.DepthPolicy.DiscreteRound); err != nil {
		return p, err
	}
	return p, nil
}

// BuildTree builds the domain and a tree using the configured depth policy.
func (c *Config) BuildTree(logger *zap.Logger) (*ztree.Tree, error) {
	d, err := c.BuildDomain()
	if err != nil {
		return nil, err
	}
	policy, err := c.DepthPolicy()
	if err != nil {
		return nil, err
	}
	return ztree.New(d, ztree.WithLogger(logger), ztree.WithDepthPolicy(policy))
}

// QueryOptions returns the configured defaults for a continuous query.
func (c *Config) QueryOptions() ztree.QueryOptions {
	return ztree.QueryOptions{
		Coarsening: c.Query.Coarsening,
		Continuous: true,
		MaxRanges:  c.Query.MaxRanges,
		Distinct:   c.Query.Distinct,
	}
}

// NewLogger builds a zap logger from the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
