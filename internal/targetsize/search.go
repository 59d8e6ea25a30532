// Package targetsize implements the stepped-descent search used to hit a
// requested output size with a single scalar encoder knob (quality, bitrate).
//
// Every encode attempt is a full re-encode by the collaborator, so the search
// favors few large steps over optimal convergence: linear descent from a high
// starting knob, no bisection.
package targetsize

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTarget = errors.New("targetsize: target size must be positive")
	ErrInvalidConfig = errors.New("targetsize: invalid search configuration")
	ErrEncodeFailed  = errors.New("targetsize: encode attempt failed")
)

// EncodeFunc produces encoded bytes for the given knob value. The search never
// calls it with a knob outside [Floor, Ceiling] (or [AggressiveFloor, Ceiling]
// once the aggressive phase is entered).
type EncodeFunc func(ctx context.Context, knob int) ([]byte, error)

// Config parameterizes one search. The zero value is not usable; start from
// one of the preset configs or fill every field.
type Config struct {
	InitialKnob int
	Step        int
	Floor       int
	Ceiling     int
	MaxAttempts int

	// AggressiveFloor, when set below Floor, enables a second descent phase
	// below the primary floor before the search gives up.
	AggressiveFloor int

	// ToleranceRatio is the allowed overshoot above the target still counted
	// as a hit. 0 means strict.
	ToleranceRatio float64
}

// Coarse trades accuracy for encode calls: big steps, shallow budget.
var Coarse = Config{
	InitialKnob: 80,
	Step:        10,
	Floor:       10,
	Ceiling:     100,
	MaxAttempts: 10,
}

// Fine starts higher and steps in 5s, with an aggressive phase down to 10
// once the primary floor of 30 is exhausted.
var Fine = Config{
	InitialKnob:     90,
	Step:            5,
	Floor:           30,
	Ceiling:         100,
	MaxAttempts:     20,
	AggressiveFloor: 10,
	ToleranceRatio:  0.05,
}

func (c Config) validate() error {
	if c.Step <= 0 {
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	}
	if c.Floor > c.Ceiling {
		return fmt.Errorf("%w: floor %d above ceiling %d", ErrInvalidConfig, c.Floor, c.Ceiling)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive", ErrInvalidConfig)
	}
	if c.AggressiveFloor < 0 || (c.AggressiveFloor > 0 && c.AggressiveFloor > c.Floor) {
		return fmt.Errorf("%w: aggressive floor %d above floor %d", ErrInvalidConfig, c.AggressiveFloor, c.Floor)
	}
	if c.ToleranceRatio < 0 {
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Outcome is the final state of a search. TargetMet reports whether the
// achieved size landed within tolerance of the target; when false the bytes
// are still the best attempt obtained (lowest size seen).
type Outcome struct {
	Bytes        []byte
	AchievedSize int64
	KnobUsed     int
	AttemptsUsed int
	TargetMet    bool
}

// Search runs the stepped descent: encode at InitialKnob, and while the output
// overshoots the target, step the knob down and re-encode. It terminates on a
// hit, on the (aggressive) floor, on attempt exhaustion, or when the context
// deadline leaves no room for another attempt. Exhaustion is not an error:
// the last result is returned with TargetMet=false and the caller decides
// whether to warn.
//
// A collaborator failure aborts the search; re-encoding at the same knob would
// reproduce it. If a prior attempt already produced output, that output is
// returned instead of the error.
func Search(ctx context.Context, enc EncodeFunc, targetBytes int64, cfg Config) (*Outcome, error) {
	if targetBytes <= 0 {
		return nil, ErrInvalidTarget
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	limit := int64(float64(targetBytes) * (1 + cfg.ToleranceRatio))
	floor := cfg.Floor
	knob := clamp(cfg.InitialKnob, floor, cfg.Ceiling)

	out := &Outcome{}
	var attemptTotal time.Duration

	for out.AttemptsUsed < cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			if out.Bytes != nil {
				return out, nil
			}
			return nil, err
		}
		if !roomForAttempt(ctx, out.AttemptsUsed, attemptTotal) {
			break
		}

		start := time.Now()
		data, err := enc(ctx, knob)
		if err != nil {
			if out.Bytes != nil {
				return out, nil
			}
			return nil, fmt.Errorf("%w: knob %d: %v", ErrEncodeFailed, knob, err)
		}
		attemptTotal += time.Since(start)

		out.AttemptsUsed++
		out.Bytes = data
		out.AchievedSize = int64(len(data))
		out.KnobUsed = knob

		if out.AchievedSize <= limit {
			out.TargetMet = true
			return out, nil
		}

		if knob <= floor {
			if cfg.AggressiveFloor > 0 && cfg.AggressiveFloor < floor {
				floor = cfg.AggressiveFloor
			} else {
				break
			}
		}
		knob = max(knob-cfg.Step, floor)
	}

	return out, nil
}

// roomForAttempt reports whether the remaining wall clock plausibly covers one
// more encode, judged by the average duration of the attempts so far. The
// attempt budget and the request deadline are otherwise independent; without
// this check a slow encode chain dies on a timeout instead of returning the
// best effort obtained.
func roomForAttempt(ctx context.Context, attempts int, total time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok || attempts == 0 {
		return true
	}
	avg := total / time.Duration(attempts)
	return time.Until(deadline) > avg
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
