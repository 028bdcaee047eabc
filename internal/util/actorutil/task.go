package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// TASK_TIMEOUT_GRACE is how long a task may run past its context deadline before
// it is abandoned and its error recovered.
const TASK_TIMEOUT_GRACE = time.Second

// SafeBackgroundTask runs a blocking call off the actor's mailbox and delivers its
// result, or a recovered error, back as a message. The function receives a context
// that is cancelled when the timeout expires. A function that returns on
// cancellation delivers its own (partial) result.
type SafeBackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func(context.Context) (*T, error)
	timeout *time.Duration
	onError func(error)
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func(context.Context) *T) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn: func(c context.Context) (*T, error) {
			return fn(c), nil
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo starts the task and sends its value to pid. It returns immediately.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.ctx.ActorSystem().Root
	go t.run(func(value T) {
		root.Send(pid, value)
	})
}

// RunSync runs the task on the calling goroutine.
func (t *SafeBackgroundTask[T]) RunSync(onSuccess func(T)) {
	t.run(onSuccess)
}

func (t *SafeBackgroundTask[T]) run(onSuccess func(T)) {
	runCtx := context.Background()
	cancel := func() {}
	if t.timeout != nil {
		runCtx, cancel = context.WithTimeout(runCtx, *t.timeout)
	}
	defer cancel()

	bgFn := io.Eval(func() (*T, error) {
		return t.fn(runCtx)
	})
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout + TASK_TIMEOUT_GRACE)(bg)
	}
	result := io.RunSync(bg)
	value := result.Value
	if result.Error != nil {
		if t.recover != nil {
			value = t.recover(result.Error)
		} else {
			if t.onError != nil {
				t.onError(result.Error)
			}
			return
		}
	}

	if onSuccess != nil {
		onSuccess(value)
	}
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	newFn := func(c context.Context) (*T2, error) {
		r, err := bgt.fn(c)
		if err != nil {
			return nil, err
		}
		return mapFn(r), nil
	}
	return &SafeBackgroundTask[T2]{
		ctx:     bgt.ctx,
		fn:      newFn,
		timeout: bgt.timeout,
	}
}
