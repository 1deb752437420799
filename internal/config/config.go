package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/symode/internal/equation"
	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/ode"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStart = 0.0
	DefaultEnd   = 10.0
)

var ErrInvalidConfig = errors.New("config: invalid problem")

// Config is a problem file: equations, parameters, initial values and solver
// settings.
type Config struct {
	Name          string             `yaml:"name,omitempty"`
	Description   string             `yaml:"description,omitempty"`
	Equations     []string           `yaml:"equations"`
	Params        map[string]float64 `yaml:"params,omitempty"`
	Initial       map[string]float64 `yaml:"initial"`
	TSpan         [2]float64         `yaml:"t_span"`
	Method        string             `yaml:"method"`
	Rtol          float64            `yaml:"rtol"`
	Atol          float64            `yaml:"atol"`
	H0            float64            `yaml:"h0"`
	HMin          float64            `yaml:"h_min"`
	HMax          float64            `yaml:"h_max"`
	MaxSteps      int                `yaml:"max_steps"`
	NewtonTol     float64            `yaml:"newton_tol"`
	NewtonMaxIter int                `yaml:"newton_max_iter"`
}

func DefaultConfig() *Config {
	opts := integrators.DefaultOptions()
	return &Config{
		TSpan:         [2]float64{DefaultStart, DefaultEnd},
		Method:        string(integrators.MethodRK45),
		Rtol:          opts.Rtol,
		Atol:          opts.Atol,
		H0:            opts.H0,
		HMin:          opts.HMin,
		HMax:          opts.HMax,
		MaxSteps:      opts.MaxSteps,
		NewtonTol:     opts.NewtonTol,
		NewtonMaxIter: opts.NewtonMaxIter,
	}
}

// Load reads a YAML problem file. Keys missing from the file keep their
// DefaultConfig values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Equations = append([]string(nil), c.Equations...)
	out.Params = cloneMap(c.Params)
	out.Initial = cloneMap(c.Initial)
	return &out
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Options returns the solver options described by c.
func (c *Config) Options(logger *zap.Logger) integrators.Options {
	return integrators.Options{
		Rtol:          c.Rtol,
		Atol:          c.Atol,
		H0:            c.H0,
		HMin:          c.HMin,
		HMax:          c.HMax,
		MaxSteps:      c.MaxSteps,
		NewtonTol:     c.NewtonTol,
		NewtonMaxIter: c.NewtonMaxIter,
		Logger:        logger,
	}
}

// Validate checks everything that can be checked without parsing equations.
func (c *Config) Validate() error {
	if len(c.Equations) == 0 {
		return fmt.Errorf("%w: no equations", ErrInvalidConfig)
	}
	if c.TSpan[0] > c.TSpan[1] {
		return fmt.Errorf("%w: t_span [%g, %g] must be increasing", ErrInvalidConfig, c.TSpan[0], c.TSpan[1])
	}
	if _, err := integrators.ParseMethod(c.Method); err != nil {
		return err
	}
	return c.Options(nil).Validate()
}

// Problem is a ready-to-solve configuration.
type Problem struct {
	Name    string
	Model   *ode.Model
	Y0      []float64
	Span    [2]float64
	Method  integrators.Method
	Options integrators.Options
}

// Build parses the equations, substitutes parameter values and orders the
// initial values by state variable. State variables without an initial value
// start at zero.
func (c *Config) Build(logger *zap.Logger) (*Problem, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	vars, rhs, err := equation.Parse(c.Equations)
	if err != nil {
		return nil, err
	}

	states := make(map[string]bool, len(vars))
	for _, v := range vars {
		states[v.Name()] = true
	}
	for name, val := range c.Params {
		if states[name] {
			return nil, fmt.Errorf("%w: parameter %q shadows a state variable", ErrInvalidConfig, name)
		}
		for i := range rhs {
			rhs[i] = rhs[i].Substitute(name, expr.Const(val))
		}
	}

	model, err := ode.New(vars, rhs, ode.WithParams(c.Params))
	if err != nil {
		return nil, err
	}

	for name := range c.Initial {
		if !states[name] {
			return nil, fmt.Errorf("%w: initial value for unknown variable %q", ErrInvalidConfig, name)
		}
	}
	y0 := make([]float64, model.Dim())
	for i, name := range model.Vars() {
		y0[i] = c.Initial[name]
	}

	return &Problem{
		Name:    c.Name,
		Model:   model,
		Y0:      y0,
		Span:    c.TSpan,
		Method:  integrators.Method(c.Method),
		Options: c.Options(logger),
	}, nil
}
