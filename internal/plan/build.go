package plan

import (
	"fmt"

	"github.com/lspestrip/striprecipes/internal/recipe"
)

// Build replays the plan into a fresh operation log. The first builder
// rejection aborts the build and carries the offending step's position.
func (p *Plan) Build() (*recipe.Log, error) {
	log := recipe.NewLog()
	if err := applySteps(log, p.Steps, "steps"); err != nil {
		return nil, err
	}
	return log, nil
}

func applySteps(log *recipe.Log, steps []Step, path string) error {
	for i, s := range steps {
		if err := applyStep(log, s, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func applyStep(log *recipe.Log, s Step, at string) error {
	switch {
	case s.LoadSettings != nil:
		return wrapStep(at, log.LoadSettings(s.LoadSettings.File, s.LoadSettings.PolID))
	case s.Sbs != nil:
		return wrapStep(at, log.SetBiasBoard(s.Sbs.Status))
	case s.RecordStart != nil:
		return wrapStep(at, log.RecordStart(s.RecordStart.Name))
	case s.RecordStop:
		return wrapStep(at, log.RecordStop())
	case s.BiasSet != nil:
		return wrapStep(at, log.BiasSet(s.BiasSet.Target, s.BiasSet.Value))
	case s.BiasRamp != nil:
		return applyRamp(log, s.BiasRamp, at)
	case s.PidSet != nil:
		return wrapStep(at, log.PidSet(s.PidSet.Target, s.PidSet.Temperature))
	case s.RfStartSweep != nil:
		r := s.RfStartSweep
		return wrapStep(at, log.RfStartSweep(r.Fmin, r.Fmax, r.Step, r.Dwell, r.Power))
	case s.RfCw != nil:
		return wrapStep(at, log.RfCw(s.RfCw.Status, s.RfCw.Freq, s.RfCw.Power))
	case s.Wait != nil:
		return wrapStep(at, log.Wait(s.Wait.Seconds))
	case s.Repeat != nil:
		for n := 0; n < s.Repeat.Count; n++ {
			if err := applySteps(log, s.Repeat.Steps, at+".steps"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s: step has no instruction", at)
	}
}

func applyRamp(log *recipe.Log, r *BiasRampStep, at string) error {
	for _, v := range linspace(r.Start, r.Stop, r.Steps, r.Reverse) {
		if err := wrapStep(at, log.BiasSet(r.Target, v)); err != nil {
			return err
		}
		if r.Settle > 0 {
			if err := wrapStep(at, log.Wait(r.Settle)); err != nil {
				return err
			}
		}
	}
	return nil
}

// linspace returns n evenly spaced values from start to stop inclusive.
func linspace(start, stop float64, n int, reverse bool) []float64 {
	if reverse {
		start, stop = stop, start
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

func wrapStep(at string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", at, err)
	}
	return nil
}
