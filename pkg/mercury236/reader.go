package mercury236

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ReaderConfig struct {
	// SettleDelay is the pause between writing a request and reading its reply.
	SettleDelay      time.Duration
	MaxResponseBytes int
	VerifyTrailer    bool
}

func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		SettleDelay:      100 * time.Millisecond,
		MaxResponseBytes: 64,
	}
}

// Reader drives request/response exchanges against one meter and owns the
// session snapshot. One pass runs at a time.
type Reader struct {
	transport  Transport
	catalogue  *Catalogue
	cfg        ReaderConfig
	instrument []Instrument
	logger     *zap.Logger

	pass sync.Mutex

	mu       sync.RWMutex
	snapshot Snapshot
	last     *PassReport
}

func NewReader(transport Transport, catalogue *Catalogue, cfg ReaderConfig, logger *zap.Logger, instrumentation ...Instrument) *Reader {
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultReaderConfig().MaxResponseBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("target", "meter"), zap.Uint8("address", catalogue.Address()))

	var inst []Instrument
	if logInst := TraceLoggerInstrumentation(logger); logInst != nil {
		inst = append(inst, *logInst)
	}
	inst = append(inst, instrumentation...)

	return &Reader{
		transport:  transport,
		catalogue:  catalogue,
		cfg:        cfg,
		instrument: inst,
		logger:     logger,
	}
}

func (r *Reader) Catalogue() *Catalogue {
	return r.catalogue
}

// ReadAll performs one pass over the catalogue. Failures are isolated per parameter;
// the pass itself never fails. Cancelling ctx stops the pass early and keeps every
// value decoded so far.
func (r *Reader) ReadAll(ctx context.Context) PassReport {
	r.pass.Lock()
	defer r.pass.Unlock()
	defer RecordTimer("ReadAll", r.instrument)()

	report := newPassReport(r.catalogue.Len())
	for _, p := range r.catalogue.params {
		if ctx.Err() != nil {
			r.logger.Warn("pass cancelled", zap.String("pass", report.Id.String()), zap.String("param", p.Id), zap.Error(ctx.Err()))
			break
		}
		res := r.exchange(ctx, p)
		report.Results = append(report.Results, res)
		if res.Outcome == OutcomeCancelled {
			break
		}
	}
	report.Duration = time.Since(report.Started)

	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	r.logger.Debug("pass done",
		zap.String("pass", report.Id.String()),
		zap.Duration("duration", report.Duration),
		zap.Int("ok", report.Count(OutcomeOK)),
		zap.Int("failed", len(report.Failed())))
	return report
}

// Exchange runs a single parameter outside of a full pass.
func (r *Reader) Exchange(ctx context.Context, id string) ParameterResult {
	p := r.catalogue.Parameter(id)
	r.pass.Lock()
	defer r.pass.Unlock()
	return r.exchange(ctx, p)
}

func (r *Reader) exchange(ctx context.Context, p Parameter) ParameterResult {
	start := time.Now()
	res := r.doExchange(ctx, p)
	res.Duration = time.Since(start)
	recordOutcome(p.Id, res.Outcome, r.instrument)

	if res.Outcome != OutcomeOK {
		r.logger.Warn("parameter read failed",
			zap.String("param", p.Id),
			zap.Stringer("outcome", res.Outcome),
			zap.Error(res.Err))
	}
	return res
}

func (r *Reader) doExchange(ctx context.Context, p Parameter) ParameterResult {
	res := ParameterResult{ParameterId: p.Id}

	resp, err := r.send(ctx, p.Frame)
	if err != nil {
		res.Err = err
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			res.Outcome = OutcomeCancelled
		} else {
			res.Outcome = OutcomeIOError
		}
		return res
	}
	res.Response = resp
	r.logger.Debug("response", zap.String("param", p.Id), zap.Binary("payload", resp))

	if len(resp) == 0 {
		res.Outcome = OutcomeNoReply
		res.Err = fmt.Errorf("%s: %w", p.Id, ErrNoReply)
		return res
	}
	if r.cfg.VerifyTrailer {
		if err := VerifyTrailer(resp); err != nil {
			res.Outcome = OutcomeBadTrailer
			res.Err = fmt.Errorf("%s: %w", p.Id, err)
			return res
		}
	}

	readings, err := Decode(p, resp)
	if err != nil {
		if errors.Is(err, ErrTooShort) {
			res.Outcome = OutcomeTooShort
		} else {
			res.Outcome = OutcomeIOError
		}
		res.Err = err
		return res
	}

	r.mu.Lock()
	r.snapshot.Apply(readings...)
	r.mu.Unlock()

	res.Readings = readings
	res.Outcome = OutcomeOK
	return res
}

func (r *Reader) send(ctx context.Context, frame []byte) ([]byte, error) {
	defer RecordTimer("Send", r.instrument)()

	if err := r.transport.Write(frame); err != nil {
		return nil, err
	}
	if err := settle(ctx, r.cfg.SettleDelay); err != nil {
		return nil, err
	}
	resp, err := r.transport.Read(r.cfg.MaxResponseBytes)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(resp))
	copy(out, resp)
	return out, nil
}

func settle(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Snapshot returns a copy of the current measurements.
func (r *Reader) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Copy()
}

func (r *Reader) LastReport() (PassReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return PassReport{}, false
	}
	return *r.last, true
}
