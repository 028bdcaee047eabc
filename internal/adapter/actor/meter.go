package actor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/util/actorutil"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	METER_MODEL          = "Mercury 236"
	DEFAULT_PASS_TIMEOUT = 40 * time.Second
)

// TransportOpener opens the line to the meter. It is called each time the actor starts.
type TransportOpener func() (mercury236.Transport, error)

type MeterActorConfig struct {
	Port        string
	Reader      mercury236.ReaderConfig
	PassTimeout time.Duration
}

// MeterActor owns the serial line and the Reader. Passes run in a background task;
// further poll requests are stashed until the running pass reports back.
type MeterActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	open       TransportOpener
	transport  mercury236.Transport
	catalogue  *mercury236.Catalogue
	cfg        MeterActorConfig
	instrument []mercury236.Instrument
	reader     *mercury236.Reader
	logger     *zap.Logger
	rootLogger *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewMeterActor(open TransportOpener, catalogue *mercury236.Catalogue, cfg MeterActorConfig, logger *zap.Logger, instrumentation ...mercury236.Instrument) *MeterActor {
	if catalogue == nil {
		catalogue = mercury236.DefaultCatalogue()
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DEFAULT_PASS_TIMEOUT
	}
	act := &MeterActor{
		open:       open,
		catalogue:  catalogue,
		cfg:        cfg,
		instrument: instrumentation,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_METER, logger),
		rootLogger: logger,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		transport, err := state.open()
		if err != nil {
			state.logger.Error("meter@starting could not open transport", zap.Error(err))
			panic(err)
		}
		state.transport = transport
		state.reader = mercury236.NewReader(transport, state.catalogue, state.cfg.Reader, state.rootLogger, state.instrument...)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("meter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METER,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetMeterInfoRequest:
		state.logger.Debug("meter@default: GetMeterInfoRequest")
		actorutil.ForRequest(msg).Respond(ctx, state.info())
	case domain.GetSnapshotRequest:
		state.logger.Debug("meter@default: GetSnapshotRequest")
		actorutil.ForRequest(msg).Respond(ctx, state.snapshot())
	case domain.PollMeterRequest:
		state.logger.Debug("meter@default: PollMeterRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		reader := state.reader

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func(taskCtx context.Context) *domain.PollMeterResponse {
			return poll(taskCtx, reader)
		}), mapTaskResult[domain.PollMeterResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PollMeterResponse{
					ActorResponseMixIn: domain.ResponseError(err),
					Snapshot:           reader.Snapshot(),
				},
				replyTo: sender,
			}
		}).WithTimeout(state.cfg.PassTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingPass)
	case *actor.Stopping:
		state.close()
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("meter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// WaitingPass answers read-only requests while a pass owns the line.
func (state *MeterActor) WaitingPass(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("meter@waitingPass backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METER,
			Healthy: true,
			State:   "polling",
		})
	case domain.GetMeterInfoRequest:
		actorutil.ForRequest(msg).Respond(ctx, state.info())
	case domain.GetSnapshotRequest:
		actorutil.ForRequest(msg).Respond(ctx, state.snapshot())
	case *actor.Stopping:
		state.close()
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("meter@waitingPass stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func poll(ctx context.Context, reader *mercury236.Reader) *domain.PollMeterResponse {
	report := reader.ReadAll(ctx)
	resp := &domain.PollMeterResponse{
		Snapshot: reader.Snapshot(),
		Report:   report,
	}
	if err := ctx.Err(); err != nil {
		resp.ResponseError = fmt.Errorf("pass %s interrupted after %d parameters: %w", report.Id, len(report.Results), err)
	}
	return resp
}

func (state *MeterActor) info() domain.GetMeterInfoResponse {
	var ids []string
	for _, p := range state.catalogue.Parameters() {
		ids = append(ids, p.Id)
	}
	return domain.GetMeterInfoResponse{
		Info: domain.MeterInfo{
			Model:      METER_MODEL,
			Port:       state.cfg.Port,
			Address:    state.catalogue.Address(),
			Parameters: ids,
		},
	}
}

func (state *MeterActor) snapshot() domain.GetSnapshotResponse {
	resp := domain.GetSnapshotResponse{
		Snapshot: state.reader.Snapshot(),
	}
	if report, ok := state.reader.LastReport(); ok {
		resp.LastReport = &report
	}
	return resp
}

func (state *MeterActor) close() {
	if closer, ok := state.transport.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			state.logger.Warn("meter: close transport", zap.Error(err))
		}
	}
	state.transport = nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
