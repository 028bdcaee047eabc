package mercury236

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a single request/response exchange.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoReply
	OutcomeTooShort
	OutcomeIOError
	OutcomeBadTrailer
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoReply:
		return "no_reply"
	case OutcomeTooShort:
		return "too_short"
	case OutcomeIOError:
		return "io_error"
	case OutcomeBadTrailer:
		return "bad_trailer"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

func Outcomes() []Outcome {
	return []Outcome{OutcomeOK, OutcomeNoReply, OutcomeTooShort, OutcomeIOError, OutcomeBadTrailer, OutcomeCancelled}
}

type ParameterResult struct {
	ParameterId string
	Outcome     Outcome
	Err         error
	Readings    []Reading
	Response    []byte
	Duration    time.Duration
}

// PassReport collects the results of one full iteration over the catalogue.
type PassReport struct {
	Id       uuid.UUID
	Started  time.Time
	Duration time.Duration
	Results  []ParameterResult
}

func newPassReport(size int) PassReport {
	return PassReport{
		Id:      uuid.New(),
		Started: time.Now(),
		Results: make([]ParameterResult, 0, size),
	}
}

func (r PassReport) Count(outcome Outcome) int {
	n := 0
	for i := range r.Results {
		if r.Results[i].Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed returns the results that did not decode.
func (r PassReport) Failed() []ParameterResult {
	var failed []ParameterResult
	for i := range r.Results {
		if r.Results[i].Outcome != OutcomeOK {
			failed = append(failed, r.Results[i])
		}
	}
	return failed
}

func (r PassReport) Result(parameterId string) (ParameterResult, bool) {
	for i := range r.Results {
		if r.Results[i].ParameterId == parameterId {
			return r.Results[i], true
		}
	}
	return ParameterResult{}, false
}
