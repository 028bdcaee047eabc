package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/berfenger/mercury2mqtt/internal/adapter/actor"
	"github.com/berfenger/mercury2mqtt/internal/config"
	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/util"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testMeterActorProvider(cfg config.Config, logger *zap.Logger) MeterActorProvider {
	return func() *adactor.MeterActor {
		return adactor.NewMeterActor(func() (mercury236.Transport, error) {
			return mercury236.CreateTestTransport(), nil
		}, nil, adactor.MeterActorConfig{
			Port:        cfg.Serial.Port,
			Reader:      cfg.Meter.ReaderConfig(),
			PassTimeout: cfg.Meter.PassTimeout(),
		}, logger)
	}
}

func testMasterProps(cfg config.Config, logger *zap.Logger) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, testMeterActorProvider(cfg, logger), func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
}

func TestMasterActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.MQTT.HADiscoveryEnable = true
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid, err := context.SpawnNamed(testMasterProps(cfg, logger), domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")
	assert.Equal(t, "ok", healthResp.State)

	// the first pass is started right away
	var snap domain.GetSnapshotResponse
	assert.Eventually(t, func() bool {
		res, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 2*time.Second).Result()
		if err != nil {
			return false
		}
		snap = res.(domain.GetSnapshotResponse)
		return snap.LastReport != nil
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, 3000.0, snap.Snapshot.PowerActive())
	assert.Empty(t, snap.LastReport.Failed())

	// sensor states and discovery configs reach the MQTT actor
	mqttPID := as.NewLocalPID(fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT))
	assert.Eventually(t, func() bool {
		res, err := context.RequestFuture(mqttPID, adactor.TopicsRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		published := res.(adactor.TopicsResponse).Published
		_, hasState := published["mercury/sensor/power_active/state"]
		_, hasDiscovery := published["homeassistant/binary_sensor/"+domain.BridgeDevice("mercury").Id+"/bridge/config"]
		return hasState && hasDiscovery
	}, 5*time.Second, 100*time.Millisecond)

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorWithoutMQTT(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.MQTT.Enable = false
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, testMeterActorProvider(cfg, logger), nil, logger)
	}))

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if !assert.NoError(err) {
		return
	}
	assert.True(res.(domain.ActorHealthResponse).Healthy)

	res, err = context.RequestFuture(pid, domain.GetMeterInfoRequest{}, 2*time.Second).Result()
	if assert.NoError(err) {
		assert.Equal(adactor.METER_MODEL, res.(domain.GetMeterInfoResponse).Info.Model)
	}

	res, err = context.RequestFuture(pid, domain.PollMeterRequest{}, 10*time.Second).Result()
	if assert.NoError(err) {
		resp := res.(domain.PollMeterResponse)
		assert.False(resp.HasResponseError())
		assert.InDelta(4.5, resp.Snapshot.CurrentL1(), 1e-9)
	}

	context.Stop(pid)

	as.Shutdown()
}

func TestHealthCheckResult(t *testing.T) {

	assert := assert.New(t)

	h := healthCheckResult{expected: []string{domain.ACTOR_ID_METER, domain.ACTOR_ID_POLL}}
	h.reset()
	assert.False(h.allReceived())

	h.received++
	h.healthy[domain.ACTOR_ID_METER] = true
	h.received++
	assert.True(h.allReceived())
	assert.False(h.allHealthy())
	assert.Equal([]string{domain.ACTOR_ID_POLL}, h.unhealthy())

	h.healthy[domain.ACTOR_ID_POLL] = true
	assert.True(h.allHealthy())
}
