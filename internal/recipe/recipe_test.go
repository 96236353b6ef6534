package recipe

import (
	"errors"
	"testing"
)

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name      string
		call      func(l *Log) error
		wantErr   bool
		wantParam string
	}{
		{
			name:    "load settings valid",
			call:    func(l *Log) error { return l.LoadSettings("cal.txt", 7) },
			wantErr: false,
		},
		{
			name:    "load settings lower boundary",
			call:    func(l *Log) error { return l.LoadSettings("cal.txt", 0) },
			wantErr: false,
		},
		{
			name:    "load settings upper boundary",
			call:    func(l *Log) error { return l.LoadSettings("cal.txt", 48) },
			wantErr: false,
		},
		{
			name:      "load settings pol id too large",
			call:      func(l *Log) error { return l.LoadSettings("cal.txt", 49) },
			wantErr:   true,
			wantParam: "polID",
		},
		{
			name:      "load settings pol id negative",
			call:      func(l *Log) error { return l.LoadSettings("cal.txt", -1) },
			wantErr:   true,
			wantParam: "polID",
		},
		{
			name:      "load settings empty file name",
			call:      func(l *Log) error { return l.LoadSettings("", 3) },
			wantErr:   true,
			wantParam: "fileName",
		},
		{
			name:      "record start empty name",
			call:      func(l *Log) error { return l.RecordStart("") },
			wantErr:   true,
			wantParam: "name",
		},
		{
			name:    "pid set lowercase target",
			call:    func(l *Log) error { return l.PidSet("lcross", 20) },
			wantErr: false,
		},
		{
			name:      "pid set unknown target",
			call:      func(l *Log) error { return l.PidSet("LZ", 10) },
			wantErr:   true,
			wantParam: "target",
		},
		{
			name:      "pid set zero temperature",
			call:      func(l *Log) error { return l.PidSet("LA", 0) },
			wantErr:   true,
			wantParam: "temperature",
		},
		{
			name:      "wait negative",
			call:      func(l *Log) error { return l.Wait(-1) },
			wantErr:   true,
			wantParam: "seconds",
		},
		{
			name:    "wait zero",
			call:    func(l *Log) error { return l.Wait(0) },
			wantErr: false,
		},
		{
			name:    "rf sweep valid",
			call:    func(l *Log) error { return l.RfStartSweep(38, 50, 0.1, 50, -10) },
			wantErr: false,
		},
		{
			name:      "rf sweep empty range",
			call:      func(l *Log) error { return l.RfStartSweep(10, 5, 1, 1, 0) },
			wantErr:   true,
			wantParam: "fmax",
		},
		{
			name:      "rf sweep step too wide",
			call:      func(l *Log) error { return l.RfStartSweep(10, 12, 5, 1, 0) },
			wantErr:   true,
			wantParam: "step",
		},
		{
			name:      "rf sweep zero dwell",
			call:      func(l *Log) error { return l.RfStartSweep(10, 20, 1, 0, 0) },
			wantErr:   true,
			wantParam: "dwell",
		},
		{
			name:      "rf cw zero frequency",
			call:      func(l *Log) error { return l.RfCw(true, 0, -10) },
			wantErr:   true,
			wantParam: "freq",
		},
		{
			name:    "rf cw valid",
			call:    func(l *Log) error { return l.RfCw(false, 43.0, -10) },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLog()
			err := tt.call(l)

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var invArg *InvalidArgumentError
				if !errors.As(err, &invArg) {
					t.Fatalf("error %v is not an *InvalidArgumentError", err)
				}
				if invArg.Param != tt.wantParam {
					t.Errorf("offending param = %q, want %q", invArg.Param, tt.wantParam)
				}
				if l.Len() != 0 {
					t.Errorf("log grew to %d operations after a rejected call", l.Len())
				}
			} else if l.Len() != 1 {
				t.Errorf("log has %d operations, want 1", l.Len())
			}
		})
	}
}

func TestFailedCallLeavesLogUnchanged(t *testing.T) {
	l := NewLog()
	if err := l.RecordStart("TSYS"); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := l.Wait(5); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	before := l.Operations()
	if err := l.PidSet("LZ", 10); err == nil {
		t.Fatal("PidSet with unknown target should fail")
	}

	after := l.Operations()
	if len(after) != len(before) {
		t.Fatalf("log length changed from %d to %d", len(before), len(after))
	}
	for i := range before {
		if after[i].Kind != before[i].Kind {
			t.Errorf("operation %d changed kind: %s -> %s", i, before[i].Kind, after[i].Kind)
		}
	}
}

func TestOperationsAppendInCallOrder(t *testing.T) {
	l := NewLog()
	calls := []func() error{
		func() error { return l.RecordStart("ORDER") },
		func() error { return l.BiasBoardOn() },
		func() error { return l.LoadSettings("bias.txt", 12) },
		func() error { return l.BiasSet("HA1_Vg", 20.5) },
		func() error { return l.Wait(10) },
		func() error { return l.BiasBoardOff() },
		func() error { return l.RecordStop() },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	wantKinds := []Kind{
		KindRecordStart, KindSbs, KindLoadSettings, KindBiasSet,
		KindWait, KindSbs, KindRecordStop,
	}
	ops := l.Operations()
	if len(ops) != len(wantKinds) {
		t.Fatalf("log has %d operations, want %d", len(ops), len(wantKinds))
	}
	for i, k := range wantKinds {
		if ops[i].Kind != k {
			t.Errorf("operation %d is %s, want %s", i, ops[i].Kind, k)
		}
	}
}

func TestWaitSeconds(t *testing.T) {
	l := NewLog()
	if got := l.WaitSeconds(); got != 0 {
		t.Errorf("empty log WaitSeconds = %v, want 0", got)
	}

	if err := l.Wait(5); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := l.BiasBoardOn(); err != nil {
		t.Fatalf("BiasBoardOn: %v", err)
	}
	if err := l.Wait(9); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := l.BiasBoardOff(); err != nil {
		t.Fatalf("BiasBoardOff: %v", err)
	}

	if got := l.WaitSeconds(); got != 14 {
		t.Errorf("WaitSeconds = %v, want 14", got)
	}
}

func TestSbsStoresOnOffTokens(t *testing.T) {
	l := NewLog()
	if err := l.SetBiasBoard(true); err != nil {
		t.Fatalf("SetBiasBoard: %v", err)
	}
	if err := l.SetBiasBoard(false); err != nil {
		t.Fatalf("SetBiasBoard: %v", err)
	}

	ops := l.Operations()
	if got := ops[0].Args[0]; got != "ON" {
		t.Errorf("Sbs(true) stored %v, want ON", got)
	}
	if got := ops[1].Args[0]; got != "OFF" {
		t.Errorf("Sbs(false) stored %v, want OFF", got)
	}
}

func TestOperationsReturnsCopy(t *testing.T) {
	l := NewLog()
	if err := l.RecordStart("COPY"); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}

	ops := l.Operations()
	ops[0].Kind = KindWait

	if got := l.Operations()[0].Kind; got != KindRecordStart {
		t.Errorf("mutating the returned slice changed the log: kind = %s", got)
	}
}
