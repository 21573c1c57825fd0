// Package sweep traces a frequency × elevation grid through one medium on a
// bounded worker pool and derives per-frequency skip distances and
// per-elevation maximum usable frequencies.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/model"
)

// Medium modes used as metric labels.
const (
	Mode1D = "1d"
	Mode2D = "2d"
)

// Default MUF search bracket.
const (
	DefaultMUFLowMHz  = 1.0
	DefaultMUFHighMHz = 40.0
)

// ErrEmptySweep is returned when a request has no elevations to trace.
var ErrEmptySweep = errors.New("sweep has no elevations")

// Recorder receives per-trace and per-sweep measurements.
// *observability.TraceCollector satisfies it.
type Recorder interface {
	ObserveTrace(mode string, res *model.RayTraceResult, d time.Duration)
	SweepStarted()
	SweepFinished()
}

type noopRecorder struct{}

func (noopRecorder) ObserveTrace(string, *model.RayTraceResult, time.Duration) {}
func (noopRecorder) SweepStarted()                                             {}
func (noopRecorder) SweepFinished()                                            {}

// ModeOf reports whether a medium varies with horizontal range.
func ModeOf(m core.Medium) string {
	switch m.(type) {
	case *core.TiltedProfile, core.DensityFunc2D:
		return Mode2D
	default:
		return Mode1D
	}
}

// Request describes one sweep.
type Request struct {
	Medium core.Medium
	// FrequenciesMHz defaults to model.AmateurBandsMHz.
	FrequenciesMHz []float64
	ElevationsDeg  []float64
	Options        core.TraceOptions

	// MUF enables a maximum usable frequency search per elevation.
	MUF        bool
	MUFLowMHz  float64
	MUFHighMHz float64
	MUFTolMHz  float64
}

func (r Request) frequencies() []float64 {
	if len(r.FrequenciesMHz) == 0 {
		return append([]float64(nil), model.AmateurBandsMHz...)
	}
	return r.FrequenciesMHz
}

func (r Request) validate() error {
	if r.Medium == nil {
		return core.ErrNilMedium
	}
	if len(r.ElevationsDeg) == 0 {
		return ErrEmptySweep
	}
	if _, err := r.Options.Normalized(); err != nil {
		return err
	}
	for _, f := range r.frequencies() {
		for _, e := range r.ElevationsDeg {
			if err := core.ValidateLaunch(f, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cell is the trace of one frequency and elevation pair.
type Cell struct {
	FrequencyMHz float64
	ElevationDeg float64
	Result       *model.RayTraceResult
	// Quality is set only when the trace accumulated loss.
	Quality model.SignalQuality
}

// FrequencySummary aggregates the cells of one frequency.
type FrequencySummary struct {
	FrequencyMHz float64
	Returning    int
	// SkipDistanceKm is the shortest ground range of a returning ray, zero
	// when none returned.
	SkipDistanceKm float64
	MaxRangeKm     float64
}

// Result holds a completed sweep.
type Result struct {
	Mode string
	// Cells are frequency-major in request order.
	Cells       []Cell
	Frequencies []FrequencySummary
	// MUF holds one entry per elevation when requested.
	MUF     []*core.MUFResult
	Elapsed time.Duration
}

// Cell returns the cell for a frequency and elevation pair.
func (r *Result) Cell(frequencyMHz, elevationDeg float64) (Cell, bool) {
	for _, c := range r.Cells {
		if c.FrequencyMHz == frequencyMHz && c.ElevationDeg == elevationDeg {
			return c, true
		}
	}
	return Cell{}, false
}

// Engine runs sweeps on a fixed number of workers.
type Engine struct {
	workers int
	log     logging.Logger
	rec     Recorder
}

// NewEngine returns an engine. workers <= 0 selects runtime.NumCPU().
func NewEngine(workers int, log logging.Logger, rec Recorder) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = logging.Noop()
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Engine{workers: workers, log: log, rec: rec}
}

// Workers returns the pool size.
func (e *Engine) Workers() int { return e.workers }

type jobKind int

const (
	jobTrace jobKind = iota
	jobMUF
)

type job struct {
	kind jobKind
	idx  int
	freq float64
	elev float64
}

type jobResult struct {
	kind jobKind
	idx  int
	res  *model.RayTraceResult
	muf  *core.MUFResult
	err  error
}

// Run traces every frequency at every elevation. The first trace error
// cancels the remaining work. Cancelling ctx stops the sweep between jobs.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	freqs := req.frequencies()
	elevs := req.ElevationsDeg
	mode := ModeOf(req.Medium)

	ctx, span := observability.Tracer().Start(ctx, "sweep.Run", trace.WithAttributes(
		attribute.String("sweep.mode", mode),
		attribute.Int("sweep.frequencies", len(freqs)),
		attribute.Int("sweep.elevations", len(elevs)),
		attribute.Bool("sweep.muf", req.MUF),
	))
	defer span.End()

	e.rec.SweepStarted()
	defer e.rec.SweepFinished()
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var jobs []job
	for i, f := range freqs {
		for j, el := range elevs {
			jobs = append(jobs, job{kind: jobTrace, idx: i*len(elevs) + j, freq: f, elev: el})
		}
	}
	if req.MUF {
		for j, el := range elevs {
			jobs = append(jobs, job{kind: jobMUF, idx: j, elev: el})
		}
	}

	workers := min(e.workers, len(jobs))
	jobCh := make(chan job, workers*2)
	results := make(chan jobResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				r := e.runJob(mode, req, j)
				select {
				case results <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &Result{
		Mode:  mode,
		Cells: make([]Cell, len(freqs)*len(elevs)),
	}
	if req.MUF {
		out.MUF = make([]*core.MUFResult, len(elevs))
	}

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		switch r.kind {
		case jobTrace:
			cell := Cell{
				FrequencyMHz: freqs[r.idx/len(elevs)],
				ElevationDeg: elevs[r.idx%len(elevs)],
				Result:       r.res,
			}
			if r.res.HasLoss {
				cell.Quality = model.QualityForLoss(r.res.TotalLossDB)
			}
			out.Cells[r.idx] = cell
		case jobMUF:
			out.MUF[r.idx] = r.muf
		}
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, firstErr.Error())
		e.log.Warn(ctx, "sweep aborted", logging.Err(firstErr))
		return nil, firstErr
	}

	out.Frequencies = summarize(freqs, elevs, out.Cells)
	out.Elapsed = time.Since(start)
	e.log.Debug(ctx, "sweep finished",
		logging.String("mode", mode),
		logging.Int("traces", len(out.Cells)),
		logging.Int("workers", workers),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (e *Engine) runJob(mode string, req Request, j job) jobResult {
	switch j.kind {
	case jobMUF:
		lo, hi := req.MUFLowMHz, req.MUFHighMHz
		if lo == 0 {
			lo = DefaultMUFLowMHz
		}
		if hi == 0 {
			hi = DefaultMUFHighMHz
		}
		m, err := core.MaximumUsableFrequency(j.elev, req.Medium, lo, hi, req.MUFTolMHz, req.Options)
		return jobResult{kind: jobMUF, idx: j.idx, muf: m, err: err}
	default:
		start := time.Now()
		res, err := core.Trace(j.freq, j.elev, req.Medium, req.Options)
		if err == nil {
			e.rec.ObserveTrace(mode, res, time.Since(start))
		}
		return jobResult{kind: jobTrace, idx: j.idx, res: res, err: err}
	}
}

func summarize(freqs, elevs []float64, cells []Cell) []FrequencySummary {
	out := make([]FrequencySummary, len(freqs))
	for i, f := range freqs {
		s := FrequencySummary{FrequencyMHz: f, SkipDistanceKm: math.Inf(1)}
		for j := range elevs {
			res := cells[i*len(elevs)+j].Result
			if res == nil || res.Status != model.RayReturns {
				continue
			}
			s.Returning++
			s.SkipDistanceKm = math.Min(s.SkipDistanceKm, res.GroundRangeKm)
			s.MaxRangeKm = math.Max(s.MaxRangeKm, res.GroundRangeKm)
		}
		if s.Returning == 0 {
			s.SkipDistanceKm = 0
		}
		out[i] = s
	}
	return out
}

// ElevationRange returns evenly spaced elevations from lo to hi inclusive.
func ElevationRange(loDeg, hiDeg, stepDeg float64) ([]float64, error) {
	if stepDeg <= 0 || hiDeg < loDeg {
		return nil, fmt.Errorf("%w: elevation range [%v, %v] step %v", core.ErrInvalidElevation, loDeg, hiDeg, stepDeg)
	}
	n := int(math.Floor((hiDeg-loDeg)/stepDeg+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = loDeg + float64(i)*stepDeg
	}
	return out, nil
}
