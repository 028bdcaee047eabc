package service

import (
	"context"
	"testing"
	"time"

	adactor "github.com/berfenger/mercury2mqtt/internal/adapter/actor"
	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActorMeterQuery(t *testing.T) {

	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	pid := root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMeterActor(func() (mercury236.Transport, error) {
			return mercury236.CreateTestTransport(), nil
		}, nil, adactor.MeterActorConfig{
			Port:   "/dev/ttyTEST",
			Reader: mercury236.ReaderConfig{SettleDelay: time.Millisecond, MaxResponseBytes: 64},
		}, logger)
	}))

	q := NewActorMeterQuery(root, pid, 2*time.Second)
	ctx := context.Background()

	snap, report, err := q.Snapshot(ctx)
	require.NoError(err)
	require.Nil(report)
	require.Equal(0, snap.Len())

	_, err = root.RequestFuture(pid, domain.PollMeterRequest{}, 10*time.Second).Result()
	require.NoError(err)

	snap, report, err = q.Snapshot(ctx)
	require.NoError(err)
	require.NotNil(report)
	require.InDelta(229.80, snap.VoltageL2(), 1e-9)

	info, err := q.Info(ctx)
	require.NoError(err)
	require.Equal("/dev/ttyTEST", info.Port)

	health, err := q.Health(ctx)
	require.NoError(err)
	require.True(health.Healthy)

	root.Stop(pid)
	as.Shutdown()
}

func TestActorMeterQueryExpiredContext(t *testing.T) {

	as := actor.NewActorSystem()
	q := NewActorMeterQuery(as.Root, as.NewLocalPID("nobody"), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := q.Health(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	as.Shutdown()
}
