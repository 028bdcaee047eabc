package service

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/internal/core/port"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/asynkron/protoactor-go/actor"
)

var ErrUnexpectedResponse = errors.New("unexpected actor response")

// ActorMeterQuery answers queries by asking the actor tree (the master or the meter actor directly).
type ActorMeterQuery struct {
	root    *actor.RootContext
	target  *actor.PID
	timeout time.Duration
}

var _ port.MeterQuery = (*ActorMeterQuery)(nil)

func NewActorMeterQuery(root *actor.RootContext, target *actor.PID, timeout time.Duration) *ActorMeterQuery {
	return &ActorMeterQuery{
		root:    root,
		target:  target,
		timeout: timeout,
	}
}

func (q *ActorMeterQuery) Snapshot(ctx context.Context) (mercury236.Snapshot, *mercury236.PassReport, error) {
	res, err := q.request(ctx, domain.GetSnapshotRequest{})
	if err != nil {
		return mercury236.Snapshot{}, nil, err
	}
	resp, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return mercury236.Snapshot{}, nil, ErrUnexpectedResponse
	}
	if resp.HasResponseError() {
		return mercury236.Snapshot{}, nil, resp.GetResponseError()
	}
	return resp.Snapshot, resp.LastReport, nil
}

func (q *ActorMeterQuery) Info(ctx context.Context) (domain.MeterInfo, error) {
	res, err := q.request(ctx, domain.GetMeterInfoRequest{})
	if err != nil {
		return domain.MeterInfo{}, err
	}
	resp, ok := res.(domain.GetMeterInfoResponse)
	if !ok {
		return domain.MeterInfo{}, ErrUnexpectedResponse
	}
	return resp.Info, resp.GetResponseError()
}

func (q *ActorMeterQuery) Health(ctx context.Context) (domain.ActorHealthResponse, error) {
	res, err := q.request(ctx, domain.ActorHealthRequest{})
	if err != nil {
		return domain.ActorHealthResponse{}, err
	}
	resp, ok := res.(domain.ActorHealthResponse)
	if !ok {
		return domain.ActorHealthResponse{}, ErrUnexpectedResponse
	}
	return resp, nil
}

func (q *ActorMeterQuery) request(ctx context.Context, msg any) (any, error) {
	timeout := q.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return q.root.RequestFuture(q.target, msg, timeout).Result()
}
