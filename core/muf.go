package core

import (
	"fmt"

	"github.com/signalsfoundry/ionoprop/model"
)

// DefaultMUFToleranceMHz is the bracket width at which MUF bisection stops.
const DefaultMUFToleranceMHz = 0.05

// MUFResult is the outcome of a maximum usable frequency search.
type MUFResult struct {
	ElevationDeg float64
	// FrequencyMHz is the highest frequency found to return. Zero when
	// even the lower bound does not return.
	FrequencyMHz float64
	// Trace is the returning trace at FrequencyMHz, nil when none returned.
	Trace *model.RayTraceResult
	// Traces counts the integrations performed.
	Traces int
}

// MaximumUsableFrequency bisects [loMHz, hiMHz] for the highest frequency
// that still returns to the ground at elevationDeg. The search assumes a
// single return/escape boundary inside the bracket. Path recording is
// disabled for the probes; the other options are honoured.
func MaximumUsableFrequency(elevationDeg float64, medium Medium, loMHz, hiMHz, tolMHz float64, opts TraceOptions) (*MUFResult, error) {
	if !finite(loMHz) || !finite(hiMHz) || loMHz <= 0 || hiMHz <= loMHz {
		return nil, fmt.Errorf("%w: MUF bracket [%v, %v] MHz", ErrInvalidFrequency, loMHz, hiMHz)
	}
	if tolMHz <= 0 {
		tolMHz = DefaultMUFToleranceMHz
	}
	opts.RecordPath = false

	out := &MUFResult{ElevationDeg: elevationDeg}
	probe := func(f float64) (*model.RayTraceResult, error) {
		out.Traces++
		return Trace(f, elevationDeg, medium, opts)
	}

	res, err := probe(hiMHz)
	if err != nil {
		return nil, err
	}
	if res.Status == model.RayReturns {
		out.FrequencyMHz, out.Trace = hiMHz, res
		return out, nil
	}
	res, err = probe(loMHz)
	if err != nil {
		return nil, err
	}
	if res.Status != model.RayReturns {
		return out, nil
	}
	out.FrequencyMHz, out.Trace = loMHz, res

	lo, hi := loMHz, hiMHz
	for hi-lo > tolMHz {
		mid := (lo + hi) / 2
		res, err := probe(mid)
		if err != nil {
			return nil, err
		}
		if res.Status == model.RayReturns {
			lo = mid
			out.FrequencyMHz, out.Trace = mid, res
		} else {
			hi = mid
		}
	}
	return out, nil
}
