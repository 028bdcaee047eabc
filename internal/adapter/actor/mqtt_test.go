package actor

import (
	"testing"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/util"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: mercury236.VoltageL1.Key(),
		},
		Value:    230.154,
		Decimals: 2,
	})
	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: mercury236.EnergyActive.Key(),
		},
		Value: 6172800,
	})
	es.Publish(domain.BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_BRIDGE_STATE,
		},
		Value: true,
	})
	// not a sensor update
	es.Publish("noise")

	assert.Eventually(func() bool {
		result, err := context.RequestFuture(pid, TopicsRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		return len(result.(TopicsResponse).Published) == 3
	}, 2*time.Second, 50*time.Millisecond)

	result, err = context.RequestFuture(pid, TopicsRequest{}, time.Second).Result()
	if assert.NoError(err) {
		published := result.(TopicsResponse).Published
		assert.Equal("230.15", published["mercury/sensor/voltage_l1/state"])
		assert.Equal("6172800", published["mercury/sensor/energy_active/state"])
		assert.Equal("online", published["mercury/bridge/state"])
	}

	context.Stop(pid)

	as.Shutdown()
}

func TestMQTTActorUnsubscribesOnStop(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	es := eventstream.EventStream{}

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) }))
	_, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	assert.NoError(t, err)
	assert.Equal(t, int32(1), es.Length())

	assert.NoError(t, context.StopFuture(pid).Wait())
	assert.Equal(t, int32(0), es.Length())

	as.Shutdown()
}
