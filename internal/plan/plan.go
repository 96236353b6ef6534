// Package plan loads declarative recipe plans from YAML and replays them
// into a recipe.Log.
//
// A plan is the data-driven equivalent of the throwaway scripts operators
// used to drive the builder API by hand: a named sequence of steps, where
// each step is one tester instruction or a composite (bias ramps, repeated
// blocks) that expands into several.
package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Plan is a parsed recipe plan.
type Plan struct {
	Name    string `yaml:"name"`
	Comment string `yaml:"comment"`
	Steps   []Step `yaml:"steps"`
}

// Step is one entry in the plan. Exactly one of its fields must be set.
type Step struct {
	LoadSettings *LoadSettingsStep `yaml:"load_settings"`
	Sbs          *SbsStep          `yaml:"sbs"`
	RecordStart  *RecordStartStep  `yaml:"record_start"`
	RecordStop   bool              `yaml:"record_stop"`
	BiasSet      *BiasSetStep      `yaml:"bias_set"`
	BiasRamp     *BiasRampStep     `yaml:"bias_ramp"`
	PidSet       *PidSetStep       `yaml:"pid_set"`
	RfStartSweep *RfStartSweepStep `yaml:"rf_start_sweep"`
	RfCw         *RfCwStep         `yaml:"rf_cw"`
	Wait         *WaitStep         `yaml:"wait"`
	Repeat       *RepeatStep       `yaml:"repeat"`
}

type LoadSettingsStep struct {
	File  string `yaml:"file"`
	PolID int    `yaml:"pol_id"`
}

type SbsStep struct {
	Status bool `yaml:"status"`
}

type RecordStartStep struct {
	Name string `yaml:"name"`
}

type BiasSetStep struct {
	Target string  `yaml:"target"`
	Value  float64 `yaml:"value"`
}

// BiasRampStep expands into Steps evenly spaced BiasSet operations from
// Start to Stop inclusive, optionally waiting Settle seconds after each
// point. Reverse walks the ramp from Stop down to Start.
type BiasRampStep struct {
	Target  string  `yaml:"target"`
	Start   float64 `yaml:"start"`
	Stop    float64 `yaml:"stop"`
	Steps   int     `yaml:"steps"`
	Settle  float64 `yaml:"settle"`
	Reverse bool    `yaml:"reverse"`
}

type PidSetStep struct {
	Target      string  `yaml:"target"`
	Temperature float64 `yaml:"temperature"`
}

type RfStartSweepStep struct {
	Fmin  float64 `yaml:"fmin"`
	Fmax  float64 `yaml:"fmax"`
	Step  float64 `yaml:"step"`
	Dwell float64 `yaml:"dwell"`
	Power float64 `yaml:"power"`
}

type RfCwStep struct {
	Status bool    `yaml:"status"`
	Freq   float64 `yaml:"freq"`
	Power  float64 `yaml:"power"`
}

type WaitStep struct {
	Seconds float64 `yaml:"seconds"`
}

type RepeatStep struct {
	Count int    `yaml:"count"`
	Steps []Step `yaml:"steps"`
}

// Load reads and parses a plan file. ${VAR} references are interpolated
// from the environment before parsing.
func Load(path string) (*Plan, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("plan file not found: %s", absPath)
	}

	var p Plan
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

// interpolateEnv replaces ${VAR} placeholders with environment values.
// Unknown variables are left in place so validation can point at them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func (p *Plan) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return validateSteps(p.Steps, "steps")
}

func validateSteps(steps []Step, path string) error {
	if len(steps) == 0 {
		return fmt.Errorf("%s: at least one step is required", path)
	}
	for i, s := range steps {
		at := fmt.Sprintf("%s[%d]", path, i)

		n := 0
		for _, set := range []bool{
			s.LoadSettings != nil,
			s.Sbs != nil,
			s.RecordStart != nil,
			s.RecordStop,
			s.BiasSet != nil,
			s.BiasRamp != nil,
			s.PidSet != nil,
			s.RfStartSweep != nil,
			s.RfCw != nil,
			s.Wait != nil,
			s.Repeat != nil,
		} {
			if set {
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("%s: step has no instruction", at)
		}
		if n > 1 {
			return fmt.Errorf("%s: step has %d instructions, want exactly one", at, n)
		}

		if s.BiasRamp != nil && s.BiasRamp.Steps < 1 {
			return fmt.Errorf("%s: bias_ramp steps must be at least 1", at)
		}
		if s.Repeat != nil {
			if s.Repeat.Count < 1 {
				return fmt.Errorf("%s: repeat count must be at least 1", at)
			}
			if err := validateSteps(s.Repeat.Steps, at+".steps"); err != nil {
				return err
			}
		}
	}
	return nil
}
