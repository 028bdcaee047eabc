package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/core/events"
	. "github.com/berfenger/mercury2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollActor asks the meter actor for a pass every interval and turns the result into
// sensor update events. The next tick is only scheduled once the previous pass answered.
type PollActor struct {
	behavior   actor.Behavior
	stash      *Stash
	scheduler  *scheduler.TimerScheduler
	cancelTick scheduler.CancelFunc

	meterActor     *actor.PID
	eventStream    *eventstream.EventStream
	interval       time.Duration
	requestTimeout time.Duration
	passes         uint
	failedPasses   uint

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollActor(interval, requestTimeout time.Duration, meterActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollActor {
	act := &PollActor{
		meterActor:     meterActor,
		eventStream:    eventStream,
		interval:       interval,
		requestTimeout: requestTimeout,
		behavior:       actor.NewBehavior(),
		stash:          &Stash{},
		logger:         ActorLogger(domain.ACTOR_ID_POLL, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poll@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		// first pass right away
		ctx.Send(ctx.Self(), pollTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("poll@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poll@default: ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case pollTick:
		state.logger.Debug("poll@default tick")
		state.cancelTick = nil
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.PollMeterRequest{}, state.requestTimeout), func(err error) any {
			return domain.PollMeterResponse{
				ActorResponseMixIn: domain.ResponseError(err),
			}
		})
		state.behavior.BecomeStacked(state.WaitingPollReceive)
	case *actor.Stopping:
		state.stopTicks()
	case *actor.Restarting:
		state.stopTicks()
	default:
		state.logger.Debug("poll@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollActor) WaitingPollReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PollMeterResponse:
		state.passes++
		if msg.HasResponseError() {
			state.failedPasses++
			state.logger.Error("poll@waiting PollMeterResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("poll@waiting PollMeterResponse", zap.Stringer("pass", msg.Report.Id),
				zap.Int("failed", len(msg.Report.Failed())), zap.Duration("duration", msg.Report.Duration))
		}

		// an interrupted pass still carries the values decoded so far
		for _, ev := range events.SnapshotToUpdateEvents(msg.Snapshot) {
			state.eventStream.Publish(ev)
		}
		if len(msg.Report.Results) > 0 {
			for _, ev := range events.PassReportToUpdateEvents(msg.Report) {
				state.eventStream.Publish(ev)
			}
		}

		// schedule next tick
		state.cancelTick = state.scheduler.SendOnce(state.interval, ctx.Self(), pollTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("polling"))
	case *actor.Stopping:
		state.stopTicks()
	case *actor.Restarting:
		state.stopTicks()
	default:
		state.logger.Debug("poll@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollActor) health(s string) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_POLL,
		Healthy: true,
		State:   fmt.Sprintf("%s (passes=%d failed=%d)", s, state.passes, state.failedPasses),
	}
}

func (state *PollActor) stopTicks() {
	if state.cancelTick != nil {
		state.cancelTick()
		state.cancelTick = nil
	}
}
