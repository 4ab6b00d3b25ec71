package scheduler

import (
	"context"

	"github.com/google/uuid"
)

// AddWork schedules w and returns a Future that receives exactly one Result.
//
// The work context is derived from the scheduler and is cancelled by
// Future.Stop or once every worker has exited. Work cancelled while still
// queued is not run and resolves with the context error. Rejected or
// discarded work resolves with the corresponding scheduler error.
func (s *Scheduler) AddWork(w Work[any]) *Future[Result[any]] {
	return s.AddNamedWork("", w)
}

func (s *Scheduler) AddNamedWork(name string, w Work[any]) *Future[Result[any]] {
	c := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	var (
		data    any
		skipErr error
	)
	j := job{
		id:   uuid.NewString(),
		name: name,
		run: func() error {
			if err := ctx.Err(); err != nil {
				skipErr = err
				return nil
			}
			v, err := w(ctx)
			data = v
			return err
		},
		done: func(rec TaskRecord) {
			defer cancel()
			if skipErr != nil {
				c <- Result[any]{Err: skipErr}
				return
			}
			c <- Result[any]{Data: data, Err: rec.Err}
		},
		discard: func(err error) {
			defer cancel()
			c <- Result[any]{Err: err}
		},
	}

	if err := s.enqueue(j); err != nil {
		cancel()
		c <- Result[any]{Err: err}
	}

	f := NewFuture(c, cancel)
	f.id = j.id
	return f
}
