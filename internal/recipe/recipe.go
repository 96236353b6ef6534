// Package recipe builds instruction recipes for the LSPE/Strip tester
// software.
//
// A Log collects typed, validated operations in call order. Encode renders
// a finished log as the plain-text document the tester software consumes.
// Every builder method validates its arguments before appending; a failed
// call returns *InvalidArgumentError and leaves the log untouched.
package recipe

import (
	"math"
	"strings"
)

// Kind identifies one tester instruction keyword. The string values are the
// exact keywords understood by the tester software; do not rename.
type Kind string

const (
	KindLoadSettings Kind = "LoadSettings"
	KindSbs          Kind = "Sbs"
	KindRecordStart  Kind = "RecordStart"
	KindRecordStop   Kind = "RecordStop"
	KindBiasSet      Kind = "BiasSet"
	KindPidSet       Kind = "PidSet"
	KindRfStartSweep Kind = "RfStartSweep"
	KindRfCw         Kind = "RfCw"
	KindWait         Kind = "Wait"
)

// Operation is one tester instruction: a kind plus its arguments in display
// order. Arguments are validated before the Operation is created and never
// change afterwards. Argument values are string, int or float64; boolean
// parameters are stored as the literal ON/OFF tokens.
type Operation struct {
	Kind Kind
	Args []any
}

// Log is the append-only sequence of operations for a single recipe.
// Operations are emitted in append order; nothing is ever reordered,
// merged or removed. A Log is not safe for concurrent use.
type Log struct {
	ops []Operation
}

// NewLog returns an empty operation log.
func NewLog() *Log { return &Log{} }

// Len returns the number of appended operations.
func (l *Log) Len() int { return len(l.ops) }

// Operations returns a copy of the log in append order.
func (l *Log) Operations() []Operation {
	out := make([]Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// WaitSeconds returns the sum of the durations of all Wait operations in
// the log, or 0 if there are none.
func (l *Log) WaitSeconds() float64 {
	var total float64
	for _, op := range l.ops {
		if op.Kind == KindWait {
			total += op.Args[0].(float64)
		}
	}
	return total
}

func (l *Log) append(kind Kind, args ...any) {
	l.ops = append(l.ops, Operation{Kind: kind, Args: args})
}

func onOff(status bool) string {
	if status {
		return "ON"
	}
	return "OFF"
}

// LoadSettings loads the bias table for a polarimeter from fileName.
// polID is the index of the polarimeter, 0 through 48.
func (l *Log) LoadSettings(fileName string, polID int) error {
	if fileName == "" {
		return invalid(KindLoadSettings, "fileName", "must not be empty")
	}
	if polID < 0 || polID > 48 {
		return invalidf(KindLoadSettings, "polID", "%d is outside [0, 48]", polID)
	}
	l.append(KindLoadSettings, fileName, polID)
	return nil
}

// SetBiasBoard turns the bias board on or off.
func (l *Log) SetBiasBoard(status bool) error {
	l.append(KindSbs, onOff(status))
	return nil
}

// BiasBoardOn turns the bias board on.
func (l *Log) BiasBoardOn() error { return l.SetBiasBoard(true) }

// BiasBoardOff turns the bias board off.
func (l *Log) BiasBoardOff() error { return l.SetBiasBoard(false) }

// RecordStart tells the tester software to begin acquiring the output of
// the polarimeter under the given test name.
func (l *Log) RecordStart(name string) error {
	if name == "" {
		return invalid(KindRecordStart, "name", "must not be empty")
	}
	l.append(KindRecordStart, name)
	return nil
}

// RecordStop stops the current acquisition.
func (l *Log) RecordStop() error {
	l.append(KindRecordStop)
	return nil
}

// BiasSet sets the named bias line to value.
func (l *Log) BiasSet(target string, value float64) error {
	l.append(KindBiasSet, target, value)
	return nil
}

// pidTargets holds the four PID loops recognized by the tester software.
var pidTargets = map[string]bool{
	"LA":     true,
	"LB":     true,
	"LCROSS": true,
	"LPOL":   true,
}

// PidSet sets the temperature setpoint of one of the four PID loops:
// LA, LB, Lcross or Lpol. Case is ignored. The temperature is in kelvin
// and must be positive.
func (l *Log) PidSet(target string, temperature float64) error {
	if !pidTargets[strings.ToUpper(target)] {
		return invalidf(KindPidSet, "target", "%q is not one of LA, LB, Lcross, Lpol", target)
	}
	if !(temperature > 0) {
		return invalidf(KindPidSet, "temperature", "%v is not positive", temperature)
	}
	l.append(KindPidSet, target, temperature)
	return nil
}

// RfStartSweep starts a frequency sweep on the swept generator.
// fmin, fmax and step are in GHz, dwell is the per-step wait in ms, and
// power is in dBm. The sweep range must be non-empty and the step must fit
// inside it.
func (l *Log) RfStartSweep(fmin, fmax, step, dwell, power float64) error {
	if !(fmin > 0) {
		return invalidf(KindRfStartSweep, "fmin", "%v is not positive", fmin)
	}
	if !(step > 0) {
		return invalidf(KindRfStartSweep, "step", "%v is not positive", step)
	}
	if !(dwell > 0) {
		return invalidf(KindRfStartSweep, "dwell", "%v is not positive", dwell)
	}
	if !(fmin < fmax) {
		return invalidf(KindRfStartSweep, "fmax", "sweep range [%v, %v] is empty", fmin, fmax)
	}
	if !(step < fmax-fmin) {
		return invalidf(KindRfStartSweep, "step", "%v does not fit in the sweep range [%v, %v]", step, fmin, fmax)
	}
	l.append(KindRfStartSweep, fmin, fmax, step, dwell, power)
	return nil
}

// RfCw switches the swept generator on or off at a fixed frequency.
// freq is in GHz and must be positive; power is in dBm.
func (l *Log) RfCw(status bool, freq, power float64) error {
	if !(freq > 0) {
		return invalidf(KindRfCw, "freq", "%v is not positive", freq)
	}
	l.append(KindRfCw, onOff(status), freq, power)
	return nil
}

// Wait pauses the tester for the given number of seconds.
func (l *Log) Wait(seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) {
		return invalidf(KindWait, "seconds", "%v is not zero or greater", seconds)
	}
	l.append(KindWait, seconds)
	return nil
}
