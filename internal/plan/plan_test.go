package plan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspestrip/striprecipes/internal/recipe"
)

func writePlan(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, p *Plan)
	}{
		{
			name: "minimal valid plan",
			yaml: `
name: noise_temperature
comment: simple noise temperature run
steps:
  - record_start: {name: NOISE_TEMPERATURE}
  - sbs: {status: true}
  - pid_set: {target: LA, temperature: 20}
  - wait: {seconds: 600}
  - sbs: {status: false}
  - record_stop: true
`,
			checkFn: func(t *testing.T, p *Plan) {
				assert.Equal(t, "noise_temperature", p.Name)
				assert.Len(t, p.Steps, 6)
				require.NotNil(t, p.Steps[0].RecordStart)
				assert.Equal(t, "NOISE_TEMPERATURE", p.Steps[0].RecordStart.Name)
				assert.True(t, p.Steps[5].RecordStop)
			},
		},
		{
			name: "env interpolation",
			yaml: `
name: pol${POL_NUMBER}_tuning
steps:
  - load_settings: {file: bias_pol${POL_NUMBER}.txt, pol_id: 7}
`,
			env: map[string]string{"POL_NUMBER": "07"},
			checkFn: func(t *testing.T, p *Plan) {
				assert.Equal(t, "pol07_tuning", p.Name)
				require.NotNil(t, p.Steps[0].LoadSettings)
				assert.Equal(t, "bias_pol07.txt", p.Steps[0].LoadSettings.File)
			},
		},
		{
			name: "missing name",
			yaml: `
steps:
  - record_stop: true
`,
			wantErr: "name is required",
		},
		{
			name: "empty steps",
			yaml: `
name: empty
steps: []
`,
			wantErr: "at least one step",
		},
		{
			name: "step with no instruction",
			yaml: `
name: hollow
steps:
  - {}
`,
			wantErr: "steps[0]: step has no instruction",
		},
		{
			name: "step with two instructions",
			yaml: `
name: ambiguous
steps:
  - wait: {seconds: 5}
    record_stop: true
`,
			wantErr: "want exactly one",
		},
		{
			name: "ramp without steps",
			yaml: `
name: flat_ramp
steps:
  - bias_ramp: {target: HA1_Vg, start: 0, stop: 10, steps: 0}
`,
			wantErr: "bias_ramp steps must be at least 1",
		},
		{
			name: "repeat without count",
			yaml: `
name: no_repeat
steps:
  - repeat:
      steps:
        - wait: {seconds: 1}
`,
			wantErr: "repeat count must be at least 1",
		},
		{
			name: "nested repeat validation",
			yaml: `
name: nested
steps:
  - repeat:
      count: 2
      steps:
        - {}
`,
			wantErr: "steps[0].steps[0]: step has no instruction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			p, err := Load(writePlan(t, tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.checkFn != nil {
				tt.checkFn(t, p)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan file not found")
}

func TestBuild(t *testing.T) {
	p, err := Load(writePlan(t, `
name: lna_warmup
steps:
  - record_start: {name: lna_warmup}
  - sbs: {status: true}
  - load_settings: {file: defaults.txt, pol_id: 3}
  - wait: {seconds: 10}
  - rf_cw: {status: true, freq: 43, power: -10}
  - sbs: {status: false}
  - record_stop: true
`))
	require.NoError(t, err)

	log, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, 7, log.Len())

	ops := log.Operations()
	wantKinds := []recipe.Kind{
		recipe.KindRecordStart, recipe.KindSbs, recipe.KindLoadSettings,
		recipe.KindWait, recipe.KindRfCw, recipe.KindSbs, recipe.KindRecordStop,
	}
	for i, k := range wantKinds {
		assert.Equal(t, k, ops[i].Kind, "operation %d", i)
	}
	assert.Equal(t, 10.0, log.WaitSeconds())
}

func TestBuildRampExpansion(t *testing.T) {
	p, err := Load(writePlan(t, `
name: gate_ramp
steps:
  - bias_ramp: {target: HA1_Vg, start: 0, stop: 100, steps: 5, settle: 10}
`))
	require.NoError(t, err)

	log, err := p.Build()
	require.NoError(t, err)

	// 5 BiasSet points, each followed by a settle Wait.
	require.Equal(t, 10, log.Len())
	assert.Equal(t, 50.0, log.WaitSeconds())

	ops := log.Operations()
	wantValues := []float64{0, 25, 50, 75, 100}
	for i, want := range wantValues {
		op := ops[2*i]
		require.Equal(t, recipe.KindBiasSet, op.Kind)
		assert.Equal(t, "HA1_Vg", op.Args[0])
		assert.Equal(t, want, op.Args[1])
		assert.Equal(t, recipe.KindWait, ops[2*i+1].Kind)
	}
}

func TestBuildReverseRamp(t *testing.T) {
	p, err := Load(writePlan(t, `
name: down_ramp
steps:
  - bias_ramp: {target: HB1_Vd, start: 0, stop: 60, steps: 3, reverse: true}
`))
	require.NoError(t, err)

	log, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, 3, log.Len())

	ops := log.Operations()
	wantValues := []float64{60, 30, 0}
	for i, want := range wantValues {
		assert.Equal(t, want, ops[i].Args[1], "point %d", i)
	}
}

func TestBuildRepeat(t *testing.T) {
	p, err := Load(writePlan(t, `
name: thermal_cycles
steps:
  - record_start: {name: thermal_cycles}
  - repeat:
      count: 3
      steps:
        - pid_set: {target: LA, temperature: 20}
        - wait: {seconds: 300}
  - record_stop: true
`))
	require.NoError(t, err)

	log, err := p.Build()
	require.NoError(t, err)
	assert.Equal(t, 8, log.Len())
	assert.Equal(t, 900.0, log.WaitSeconds())
}

func TestBuildSurfacesBuilderErrors(t *testing.T) {
	p, err := Load(writePlan(t, `
name: bad_pid
steps:
  - record_start: {name: bad_pid}
  - pid_set: {target: LZ, temperature: 10}
`))
	require.NoError(t, err)

	_, err = p.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[1]")

	var invArg *recipe.InvalidArgumentError
	require.True(t, errors.As(err, &invArg))
	assert.Equal(t, "target", invArg.Param)
}

func TestLinspaceSinglePoint(t *testing.T) {
	assert.Equal(t, []float64{5}, linspace(5, 9, 1, false))
	assert.Equal(t, []float64{9}, linspace(5, 9, 1, true))
}
