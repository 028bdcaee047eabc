package actor

import (
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/mercury2mqtt/internal/adapter/actor"
	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/util"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type eventCollector struct {
	sync.Mutex
	values map[string]float64
}

func (c *eventCollector) collect(ev any) {
	if fe, ok := ev.(domain.FloatSensorUpdateEvent); ok {
		c.Lock()
		c.values[fe.Id] = fe.Value
		c.Unlock()
	}
}

func (c *eventCollector) get(id string) (float64, bool) {
	c.Lock()
	defer c.Unlock()
	v, ok := c.values[id]
	return v, ok
}

func TestPollActorPublishesEvents(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	transport := mercury236.CreateTestTransport()
	transport.Silence(mercury236.DefaultCatalogue().Lookup(mercury236.PARAM_VOLTAGE_L3))

	meterPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMeterActor(func() (mercury236.Transport, error) {
			return transport, nil
		}, nil, adactor.MeterActorConfig{Reader: cfg.Meter.ReaderConfig(), PassTimeout: time.Second}, logger)
	}))

	es := &eventstream.EventStream{}
	collector := &eventCollector{values: map[string]float64{}}
	es.Subscribe(collector.collect)

	pollPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollActor(time.Hour, 2*time.Second, meterPID, es, logger)
	}))

	assert.Eventually(func() bool {
		_, ok := collector.get(domain.SENSOR_ID_PASS_DURATION)
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	v, ok := collector.get(mercury236.VoltageL1.Key())
	assert.True(ok)
	assert.InDelta(230.15, v, 1e-9)

	_, ok = collector.get(mercury236.VoltageL3.Key())
	assert.False(ok, "no state for a parameter that never decoded")
	_, ok = collector.get(mercury236.Frequency.Key())
	assert.False(ok)

	v, _ = collector.get(domain.SENSOR_ID_FAILED_PARAMETERS)
	assert.Equal(1.0, v)

	res, err := context.RequestFuture(pollPID, domain.ActorHealthRequest{}, time.Second).Result()
	if assert.NoError(err) {
		health := res.(domain.ActorHealthResponse)
		assert.True(health.Healthy)
		assert.Equal("idle (passes=1 failed=0)", health.State)
	}

	context.Stop(pollPID)
	context.Stop(meterPID)
	as.Shutdown()
}

func TestPollActorMeterUnavailable(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	// nobody answers
	deadPID := as.NewLocalPID("nobody")

	pollPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollActor(time.Hour, 100*time.Millisecond, deadPID, &eventstream.EventStream{}, logger)
	}))

	assert.Eventually(func() bool {
		res, err := context.RequestFuture(pollPID, domain.ActorHealthRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		return res.(domain.ActorHealthResponse).State == "idle (passes=1 failed=1)"
	}, 3*time.Second, 50*time.Millisecond)

	context.Stop(pollPID)
	as.Shutdown()
}
