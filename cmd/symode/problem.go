package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/san-kum/symode/internal/config"
	"github.com/spf13/cobra"
)

// loadConfig layers a preset, then a problem file, then explicitly set
// flags. Without a preset or file the flags describe the whole problem.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if len(args) > 0 {
		fileCfg, err := config.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" && len(fileCfg.Equations) == 0 {
			fileCfg.Equations = cfg.Equations
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	if flags.Changed("eq") {
		cfg.Equations = equations
	}
	if flags.Changed("t0") {
		cfg.TSpan[0] = tStart
	}
	if flags.Changed("tf") {
		cfg.TSpan[1] = tEnd
	}
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("rtol") {
		cfg.Rtol = rtol
	}
	if flags.Changed("atol") {
		cfg.Atol = atol
	}
	if flags.Changed("h0") {
		cfg.H0 = h0
	}
	if flags.Changed("h-min") {
		cfg.HMin = hMin
	}
	if flags.Changed("h-max") {
		cfg.HMax = hMax
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if flags.Changed("newton-tol") {
		cfg.NewtonTol = newtonTol
	}
	if flags.Changed("newton-max-iter") {
		cfg.NewtonMaxIter = newtonMaxIter
	}

	if err := mergeValues(&cfg.Initial, initial, "init"); err != nil {
		return nil, err
	}
	if err := mergeValues(&cfg.Params, params, "param"); err != nil {
		return nil, err
	}

	if len(cfg.Equations) == 0 {
		return nil, fmt.Errorf("no equations: pass a problem file, --preset or --eq")
	}
	if cfg.Name == "" {
		cfg.Name = "custom"
	}
	return cfg, nil
}

func mergeValues(dst *map[string]float64, src map[string]string, flag string) error {
	if len(src) == 0 {
		return nil
	}
	if *dst == nil {
		*dst = make(map[string]float64, len(src))
	}
	for k, v := range src {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--%s %s=%s: %w", flag, k, v, err)
		}
		(*dst)[k] = f
	}
	return nil
}

func parsePoint(src map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(src))
	if err := mergeValues(&out, src, "at"); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
