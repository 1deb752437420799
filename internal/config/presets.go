package config

import "sort"

var Presets = map[string]*Config{
	"decay": {
		Description: "exponential decay x' = -k x",
		Equations:   []string{`x' = -k x`},
		Params:      map[string]float64{"k": 1},
		Initial:     map[string]float64{"x": 1},
		TSpan:       [2]float64{0, 5},
		Method:      "rk45",
	},
	"stiff_decay": {
		Description: "stiff relaxation onto cos(t)",
		Equations:   []string{`x' = -1000 (x - \cos(t))`},
		Initial:     map[string]float64{"x": 0},
		TSpan:       [2]float64{0, 1},
		Method:      "implicit_euler",
		H0:          1e-3,
	},
	"oscillator": {
		Description: "harmonic oscillator x'' = -w^2 x",
		Equations:   []string{`x'' = -w^2 x`},
		Params:      map[string]float64{"w": 1},
		Initial:     map[string]float64{"x": 1, "dx": 0},
		TSpan:       [2]float64{0, 20},
		Method:      "rk45",
	},
	"damped_oscillator": {
		Description: "damped spring x'' = -k x - c x'",
		Equations:   []string{`\frac{d^2x}{dt^2} = -k x - c x'`},
		Params:      map[string]float64{"k": 4, "c": 0.5},
		Initial:     map[string]float64{"x": 1, "dx": 0},
		TSpan:       [2]float64{0, 20},
		Method:      "rk45",
	},
	"pendulum": {
		Description: "nonlinear pendulum",
		Equations:   []string{`\ddot{\theta} = -\frac{g}{L} \sin(\theta)`},
		Params:      map[string]float64{"g": 9.81, "L": 1},
		Initial:     map[string]float64{"theta": 1, "dtheta": 0},
		TSpan:       [2]float64{0, 10},
		Method:      "rk45",
	},
	"van_der_pol": {
		Description: "Van der Pol relaxation oscillator",
		Equations:   []string{`x'' = mu (1 - x^2) x' - x`},
		Params:      map[string]float64{"mu": 1},
		Initial:     map[string]float64{"x": 2, "dx": 0},
		TSpan:       [2]float64{0, 20},
		Method:      "rk45",
	},
	"lorenz": {
		Description: "Lorenz attractor",
		Equations: []string{
			`x' = sigma (y - x)`,
			`y' = x (rho - z) - y`,
			`z' = x y - beta z`,
		},
		Params:  map[string]float64{"sigma": 10, "rho": 28, "beta": 8.0 / 3.0},
		Initial: map[string]float64{"x": 1, "y": 1, "z": 1},
		TSpan:   [2]float64{0, 20},
		Method:  "rk45",
	},
	"rossler": {
		Description: "Rossler spiral attractor",
		Equations: []string{
			`x' = -y - z`,
			`y' = x + a y`,
			`z' = b + z (x - c)`,
		},
		Params:  map[string]float64{"a": 0.2, "b": 0.2, "c": 5.7},
		Initial: map[string]float64{"x": 1, "y": 1, "z": 1},
		TSpan:   [2]float64{0, 50},
		Method:  "rk45",
	},
	"duffing": {
		Description: "forced Duffing oscillator",
		Equations:   []string{`x'' = -delta x' - alpha x - beta x^3 + gamma \cos(omega t)`},
		Params:      map[string]float64{"alpha": -1, "beta": 1, "delta": 0.3, "gamma": 0.5, "omega": 1.2},
		Initial:     map[string]float64{"x": 1, "dx": 0},
		TSpan:       [2]float64{0, 50},
		Method:      "rk45",
	},
	"double_well": {
		Description: "damped particle in the bistable potential A (x^2 - B)^2",
		Equations:   []string{`x'' = -4 A x (x^2 - B) - c x'`},
		Params:      map[string]float64{"A": 1, "B": 1, "c": 0.1},
		Initial:     map[string]float64{"x": 1.1, "dx": 0},
		TSpan:       [2]float64{0, 30},
		Method:      "rk45",
	},
	"logistic": {
		Description: "logistic growth P' = r P (1 - P/K)",
		Equations:   []string{`P' = r P (1 - P/K)`},
		Params:      map[string]float64{"r": 0.5, "K": 100},
		Initial:     map[string]float64{"P": 5},
		TSpan:       [2]float64{0, 30},
		Method:      "rk45",
	},
	"newton_blowup": {
		Description: "x' = x^2 with a step too large for Newton to converge",
		Equations:   []string{`x' = x^2`},
		Initial:     map[string]float64{"x": 1},
		TSpan:       [2]float64{0, 2},
		Method:      "implicit_euler",
		H0:          1,
		HMax:        1,
	},
}

// GetPreset returns a copy of the named preset with unset solver settings
// filled from DefaultConfig, or nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	src := p.Clone()
	cfg.Name = name
	cfg.Description = src.Description
	cfg.Equations = src.Equations
	cfg.Params = src.Params
	cfg.Initial = src.Initial
	cfg.TSpan = src.TSpan
	if src.Method != "" {
		cfg.Method = src.Method
	}
	if src.H0 > 0 {
		cfg.H0 = src.H0
	}
	if src.HMax > 0 {
		cfg.HMax = src.HMax
	}
	if src.Rtol > 0 {
		cfg.Rtol = src.Rtol
	}
	if src.Atol > 0 {
		cfg.Atol = src.Atol
	}
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
