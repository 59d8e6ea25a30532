package targetsize

import (
	"context"
	"errors"
	"testing"
	"time"
)

// sizeModel returns an encoder whose output size is knob*bytesPerKnob, a
// stand-in for the roughly monotonic quality->size relationship of real
// codecs.
func sizeModel(bytesPerKnob int) EncodeFunc {
	return func(_ context.Context, knob int) ([]byte, error) {
		return make([]byte, knob*bytesPerKnob), nil
	}
}

func TestSearch_FirstAttemptMeetsTarget(t *testing.T) {
	// 90 * 1000 = 90KB, target 200KB: no looping.
	out, err := Search(context.Background(), sizeModel(1000), 200_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if out.AttemptsUsed != 1 {
		t.Errorf("AttemptsUsed = %d, want 1", out.AttemptsUsed)
	}
	if out.KnobUsed != Fine.InitialKnob {
		t.Errorf("KnobUsed = %d, want %d", out.KnobUsed, Fine.InitialKnob)
	}
	if !out.TargetMet {
		t.Error("TargetMet = false, want true")
	}
}

func TestSearch_SteppedDescent(t *testing.T) {
	var knobs []int
	enc := func(_ context.Context, knob int) ([]byte, error) {
		knobs = append(knobs, knob)
		return make([]byte, knob*1000), nil
	}

	// Limit with 5% tolerance is 63000, so the first hit is knob 60.
	out, err := Search(context.Background(), enc, 60_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	want := []int{90, 85, 80, 75, 70, 65, 60}
	if len(knobs) != len(want) {
		t.Fatalf("attempted knobs = %v, want %v", knobs, want)
	}
	for i := range want {
		if knobs[i] != want[i] {
			t.Fatalf("attempted knobs = %v, want %v", knobs, want)
		}
	}
	if !out.TargetMet {
		t.Error("TargetMet = false, want true")
	}
	if out.KnobUsed != 60 {
		t.Errorf("KnobUsed = %d, want 60", out.KnobUsed)
	}
	if out.AchievedSize != 60_000 {
		t.Errorf("AchievedSize = %d, want 60000", out.AchievedSize)
	}
}

func TestSearch_AggressivePhaseBelowPrimaryFloor(t *testing.T) {
	var knobs []int
	enc := func(_ context.Context, knob int) ([]byte, error) {
		knobs = append(knobs, knob)
		return make([]byte, knob*1000), nil
	}

	// Only reachable below the primary floor of 30.
	out, err := Search(context.Background(), enc, 15_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if !out.TargetMet {
		t.Error("TargetMet = false, want true")
	}
	if out.KnobUsed != 15 {
		t.Errorf("KnobUsed = %d, want 15", out.KnobUsed)
	}
	sawBelowPrimary := false
	for _, k := range knobs {
		if k < Fine.Floor {
			sawBelowPrimary = true
		}
		if k < Fine.AggressiveFloor {
			t.Errorf("knob %d below aggressive floor %d", k, Fine.AggressiveFloor)
		}
	}
	if !sawBelowPrimary {
		t.Error("search never entered the aggressive phase")
	}
}

func TestSearch_BestEffortAtFloor(t *testing.T) {
	// Even knob 10 produces 10KB; target 1KB is unreachable.
	out, err := Search(context.Background(), sizeModel(1000), 1_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if out.TargetMet {
		t.Error("TargetMet = true, want false")
	}
	if out.KnobUsed != Fine.AggressiveFloor {
		t.Errorf("KnobUsed = %d, want floor %d", out.KnobUsed, Fine.AggressiveFloor)
	}
	if out.AchievedSize <= 1_000 {
		t.Errorf("AchievedSize = %d, should overshoot the target", out.AchievedSize)
	}
}

func TestSearch_CoarseStopsAtFloorWithoutAggressivePhase(t *testing.T) {
	out, err := Search(context.Background(), sizeModel(1000), 1_000, Coarse)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if out.TargetMet {
		t.Error("TargetMet = true, want false")
	}
	if out.KnobUsed != Coarse.Floor {
		t.Errorf("KnobUsed = %d, want %d", out.KnobUsed, Coarse.Floor)
	}
}

func TestSearch_AttemptBudget(t *testing.T) {
	cfg := Fine
	cfg.MaxAttempts = 3

	out, err := Search(context.Background(), sizeModel(1000), 1_000, cfg)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if out.AttemptsUsed > cfg.MaxAttempts {
		t.Errorf("AttemptsUsed = %d, exceeds budget %d", out.AttemptsUsed, cfg.MaxAttempts)
	}
	if out.TargetMet {
		t.Error("TargetMet = true, want false")
	}
	if out.Bytes == nil {
		t.Error("Bytes = nil, want best-effort result")
	}
}

func TestSearch_KnobStaysInRange(t *testing.T) {
	for _, cfg := range []Config{Coarse, Fine} {
		enc := func(_ context.Context, knob int) ([]byte, error) {
			floor := cfg.Floor
			if cfg.AggressiveFloor > 0 {
				floor = cfg.AggressiveFloor
			}
			if knob < floor || knob > cfg.Ceiling {
				t.Errorf("knob %d outside [%d, %d]", knob, floor, cfg.Ceiling)
			}
			return make([]byte, knob*1000), nil
		}
		if _, err := Search(context.Background(), enc, 1, cfg); err != nil {
			t.Fatalf("Search() error: %v", err)
		}
	}
}

func TestSearch_EncoderFailureAborts(t *testing.T) {
	boom := errors.New("corrupt input")
	enc := func(_ context.Context, _ int) ([]byte, error) {
		return nil, boom
	}

	_, err := Search(context.Background(), enc, 100_000, Fine)
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("Search() error = %v, want ErrEncodeFailed", err)
	}
}

func TestSearch_EncoderFailureAfterBestReturnsBest(t *testing.T) {
	calls := 0
	enc := func(_ context.Context, knob int) ([]byte, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("resource exhausted")
		}
		return make([]byte, knob*1000), nil
	}

	out, err := Search(context.Background(), enc, 1_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if out.Bytes == nil || out.KnobUsed != Fine.InitialKnob {
		t.Errorf("expected first attempt as best effort, got knob %d", out.KnobUsed)
	}
	if out.TargetMet {
		t.Error("TargetMet = true, want false")
	}
}

func TestSearch_DeadlineStopsEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	enc := func(ctx context.Context, knob int) ([]byte, error) {
		time.Sleep(30 * time.Millisecond)
		return make([]byte, knob*1000), nil
	}

	out, err := Search(ctx, enc, 1_000, Fine)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	// One 30ms attempt leaves less than one average attempt of budget.
	if out.AttemptsUsed >= Fine.MaxAttempts {
		t.Errorf("AttemptsUsed = %d, expected early stop", out.AttemptsUsed)
	}
	if out.Bytes == nil {
		t.Error("Bytes = nil, want best-effort result")
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		target  int64
		cfg     Config
		wantErr error
	}{
		{"zero target", 0, Fine, ErrInvalidTarget},
		{"negative target", -5, Fine, ErrInvalidTarget},
		{"zero step", 1000, Config{InitialKnob: 80, Ceiling: 100, MaxAttempts: 5}, ErrInvalidConfig},
		{"floor above ceiling", 1000, Config{InitialKnob: 80, Step: 5, Floor: 90, Ceiling: 80, MaxAttempts: 5}, ErrInvalidConfig},
		{"no attempts", 1000, Config{InitialKnob: 80, Step: 5, Ceiling: 100}, ErrInvalidConfig},
		{"aggressive floor above floor", 1000, Config{InitialKnob: 80, Step: 5, Floor: 30, AggressiveFloor: 50, Ceiling: 100, MaxAttempts: 5}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Search(context.Background(), sizeModel(1000), tt.target, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
