package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

type recordingObserver struct {
	mu       sync.Mutex
	records  []scheduler.TaskRecord
	rejected []string
	depths   []int
}

func (o *recordingObserver) TaskFinished(rec scheduler.TaskRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

func (o *recordingObserver) TaskRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

func (o *recordingObserver) QueueDepth(depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depths = append(o.depths, depth)
}

func (o *recordingObserver) Records() []scheduler.TaskRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]scheduler.TaskRecord(nil), o.records...)
}

type panickingObserver struct{}

func (panickingObserver) TaskFinished(scheduler.TaskRecord) { panic("finished") }
func (panickingObserver) TaskRejected(string)              { panic("rejected") }
func (panickingObserver) QueueDepth(int)                   { panic("depth") }

// blockWorker occupies one worker until the returned func is called.
func blockWorker(s *scheduler.Scheduler) func() {
	started := make(chan struct{})
	release := make(chan struct{})
	Expect(s.Schedule(func() {
		close(started)
		<-release
	})).To(Succeed())
	Eventually(started, 2*time.Second).Should(BeClosed())
	return func() { close(release) }
}

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler

	AfterEach(func() {
		if s != nil {
			s.Stop()
		}
	})

	Describe("Start", func() {
		It("should size the pool to the hardware concurrency by default", func() {
			restore := scheduler.SetNumCPU(func() int { return 3 })
			defer restore()

			s = scheduler.NewScheduler(0)
			Expect(s.Start()).To(Succeed())

			stats := s.Stats()
			Expect(stats.State).To(Equal(scheduler.StateRunning))
			Expect(stats.Workers).To(Equal(3))
			Expect(stats.LiveWorkers).To(Equal(3))
		})

		It("should fall back to one worker when the CPU count is unavailable", func() {
			restore := scheduler.SetNumCPU(func() int { return 0 })
			defer restore()

			s = scheduler.NewScheduler(-1)
			Expect(s.Start()).To(Succeed())
			Expect(s.Stats().Workers).To(Equal(1))
		})

		It("should use the configured worker count", func() {
			s = scheduler.NewScheduler(5)
			Expect(s.Start()).To(Succeed())
			Expect(s.Stats().Workers).To(Equal(5))
		})

		It("should return an error when started twice", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			err := s.Start()
			Expect(srvErrors.IsAlreadyStartedError(err)).To(BeTrue())
		})

		It("should not restart a stopped scheduler", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			s.Stop()

			Expect(srvErrors.IsAlreadyStartedError(s.Start())).To(BeTrue())
			Expect(s.State()).To(Equal(scheduler.StateStopped))
		})

		It("should run tasks scheduled before start", func() {
			s = scheduler.NewScheduler(2)
			var counter atomic.Int32
			for range 5 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}
			Consistently(counter.Load, 100*time.Millisecond).Should(BeZero())

			Expect(s.Start()).To(Succeed())
			Eventually(counter.Load, 2*time.Second).Should(BeEquivalentTo(5))
		})
	})

	Describe("Schedule", func() {
		It("should reject nil tasks", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Schedule(nil)).To(MatchError(scheduler.ErrNilTask))
			_, err := s.Submit("nil", nil)
			Expect(err).To(MatchError(scheduler.ErrNilTask))
		})

		It("should start tasks in FIFO order with a single worker", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			var mu sync.Mutex
			var log []int
			for i := range 50 {
				Expect(s.Schedule(func() {
					mu.Lock()
					log = append(log, i)
					mu.Unlock()
				})).To(Succeed())
			}
			s.Stop()

			Expect(log).To(HaveLen(50))
			Expect(sort.IntsAreSorted(log)).To(BeTrue())
		})

		It("should dequeue tasks in FIFO order across workers", func() {
			obs := &recordingObserver{}
			s = scheduler.NewScheduler(4, scheduler.WithObserver(obs))
			s.Pause()
			Expect(s.Start()).To(Succeed())

			for i := range 200 {
				_, err := s.Submit(strconv.Itoa(i), func() error { return nil })
				Expect(err).NotTo(HaveOccurred())
			}
			s.Resume()
			s.Stop()

			records := obs.Records()
			Expect(records).To(HaveLen(200))
			sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
			for i, rec := range records {
				Expect(rec.Seq).To(BeEquivalentTo(i + 1))
				Expect(rec.Name).To(Equal(strconv.Itoa(i)))
			}
		})

		It("should execute every task exactly once", func() {
			s = scheduler.NewScheduler(8)
			Expect(s.Start()).To(Succeed())

			counters := make([]atomic.Int32, 500)
			for i := range counters {
				c := &counters[i]
				Expect(s.Schedule(func() { c.Add(1) })).To(Succeed())
			}
			s.Stop()

			for i := range counters {
				Expect(counters[i].Load()).To(BeEquivalentTo(1), "task %d", i)
			}
			Expect(s.Stats().Executed).To(BeEquivalentTo(500))
		})

		It("should run tasks concurrently when the pool has several workers", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())

			started := make(chan struct{}, 2)
			release := make(chan struct{})
			for range 2 {
				Expect(s.Schedule(func() {
					started <- struct{}{}
					<-release
				})).To(Succeed())
			}

			Eventually(func() int { return len(started) }, 2*time.Second).Should(Equal(2))
			Expect(s.Stats().Active).To(Equal(2))
			close(release)
		})

		It("should serialize tasks with a single worker", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			var mu sync.Mutex
			var aEnd, bStart time.Time
			var counter atomic.Int32
			Expect(s.Schedule(func() {
				time.Sleep(50 * time.Millisecond)
				mu.Lock()
				aEnd = time.Now()
				mu.Unlock()
			})).To(Succeed())
			Expect(s.Schedule(func() {
				mu.Lock()
				bStart = time.Now()
				mu.Unlock()
				counter.Add(1)
			})).To(Succeed())
			s.Stop()

			Expect(counter.Load()).To(BeEquivalentTo(1))
			Expect(bStart).To(BeTemporally(">=", aEnd))
		})

		It("should allow tasks to schedule more tasks", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			var counter atomic.Int32
			errs := make(chan error, 1)
			Expect(s.Schedule(func() {
				errs <- s.Schedule(func() { counter.Add(1) })
			})).To(Succeed())

			Eventually(errs, 2*time.Second).Should(Receive(BeNil()))
			Eventually(counter.Load, 2*time.Second).Should(BeEquivalentTo(1))
		})

		It("should run 100 tasks on 4 workers and join them all on stop", func() {
			s = scheduler.NewScheduler(4)
			Expect(s.Start()).To(Succeed())

			var counter atomic.Int64
			for range 100 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}
			s.Stop()

			Expect(counter.Load()).To(BeEquivalentTo(100))
			stats := s.Stats()
			Expect(stats.State).To(Equal(scheduler.StateStopped))
			Expect(stats.LiveWorkers).To(BeZero())
			Expect(stats.Active).To(BeZero())
		})

		It("should report the queue depth to observers", func() {
			obs := &recordingObserver{}
			s = scheduler.NewScheduler(1, scheduler.WithObserver(obs))

			for range 3 {
				Expect(s.Schedule(func() {})).To(Succeed())
			}

			obs.mu.Lock()
			Expect(obs.depths).To(Equal([]int{1, 2, 3}))
			obs.mu.Unlock()
		})

		It("should end on an empty queue depth after concurrent producers drain", func() {
			obs := &recordingObserver{}
			s = scheduler.NewScheduler(4, scheduler.WithObserver(obs))
			Expect(s.Start()).To(Succeed())

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for range 200 {
						Expect(s.Schedule(func() {})).To(Succeed())
					}
				}()
			}
			wg.Wait()
			s.Stop()

			obs.mu.Lock()
			defer obs.mu.Unlock()
			Expect(obs.depths).NotTo(BeEmpty())
			Expect(obs.depths[len(obs.depths)-1]).To(BeZero())
		})
	})

	Describe("Stop", func() {
		It("should return promptly with an empty queue", func() {
			s = scheduler.NewScheduler(4)
			Expect(s.Start()).To(Succeed())

			done := make(chan struct{})
			go func() {
				s.Stop()
				close(done)
			}()
			Eventually(done, 1*time.Second).Should(BeClosed())
			Expect(s.Done()).To(BeClosed())
		})

		It("should be idempotent", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())
			s.Stop()
			s.Stop()
			s.RequestStop()
			Expect(s.State()).To(Equal(scheduler.StateStopped))
		})

		It("should drain the backlog before returning by default", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			var counter atomic.Int32
			for range 10 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}
			s.RequestStop()
			Expect(s.State()).To(Equal(scheduler.StateStopRequested))

			release()
			s.Wait()
			Expect(counter.Load()).To(BeEquivalentTo(10))
			Expect(s.Stats().Discarded).To(BeZero())
		})

		It("should discard the backlog with the discard policy", func() {
			s = scheduler.NewScheduler(1, scheduler.WithDrainPolicy(scheduler.DrainPolicyDiscard))
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			var counter atomic.Int32
			for range 5 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}
			s.RequestStop()
			release()
			s.Wait()

			Expect(counter.Load()).To(BeZero())
			stats := s.Stats()
			Expect(stats.Discarded).To(BeEquivalentTo(5))
			Expect(stats.Executed).To(BeEquivalentTo(1))
		})

		It("should reject tasks scheduled after stop", func() {
			obs := &recordingObserver{}
			s = scheduler.NewScheduler(1, scheduler.WithObserver(obs))
			Expect(s.Start()).To(Succeed())
			s.Stop()

			err := s.Schedule(func() {})
			Expect(srvErrors.IsSchedulerStoppedError(err)).To(BeTrue())
			Expect(s.Stats().Rejected).To(BeEquivalentTo(1))
			Expect(obs.rejected).To(Equal([]string{"stopped"}))
		})

		It("should reject tasks scheduled while draining", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			s.RequestStop()
			Expect(srvErrors.IsSchedulerStoppedError(s.Schedule(func() {}))).To(BeTrue())
			release()
		})

		It("should discard the backlog of a scheduler that never started", func() {
			s = scheduler.NewScheduler(2)
			var counter atomic.Int32
			Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())

			s.Stop()
			Expect(s.Done()).To(BeClosed())
			Expect(counter.Load()).To(BeZero())
			Expect(s.Stats().Discarded).To(BeEquivalentTo(1))
		})

		It("should wait for in-flight work to finish", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			closeDone := make(chan struct{})
			go func() {
				s.Stop()
				close(closeDone)
			}()

			Consistently(closeDone, 200*time.Millisecond).ShouldNot(BeClosed())
			release()
			Eventually(closeDone, 1*time.Second).Should(BeClosed())
		})

		It("should accept a stop request from inside a task", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())
			Expect(s.Schedule(func() { s.RequestStop() })).To(Succeed())

			Eventually(s.Done(), 2*time.Second).Should(BeClosed())
		})
	})

	Describe("Run", func() {
		It("should block until the context is cancelled", func() {
			s = scheduler.NewScheduler(2)
			ctx, cancel := context.WithCancel(context.Background())

			runDone := make(chan error, 1)
			go func() { runDone <- s.Run(ctx) }()

			Eventually(s.State, time.Second).Should(Equal(scheduler.StateRunning))
			Consistently(runDone, 100*time.Millisecond).ShouldNot(Receive())

			cancel()
			Eventually(runDone, time.Second).Should(Receive(BeNil()))
			Expect(s.State()).To(Equal(scheduler.StateStopped))
		})

		It("should return once the scheduler is stopped elsewhere", func() {
			s = scheduler.NewScheduler(1)
			runDone := make(chan error, 1)
			go func() { runDone <- s.Run(context.Background()) }()

			Eventually(s.State, time.Second).Should(Equal(scheduler.StateRunning))
			s.RequestStop()
			Eventually(runDone, time.Second).Should(Receive(BeNil()))
		})
	})

	Describe("Task failures", func() {
		It("should contain panics and keep the worker alive", func() {
			failures := make(chan scheduler.TaskRecord, 1)
			s = scheduler.NewScheduler(1, scheduler.WithErrorHandler(func(rec scheduler.TaskRecord) {
				failures <- rec
			}))
			Expect(s.Start()).To(Succeed())

			var counter atomic.Int32
			Expect(s.Schedule(func() { panic("boom") })).To(Succeed())
			Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())

			var rec scheduler.TaskRecord
			Eventually(failures, 2*time.Second).Should(Receive(&rec))
			Expect(rec.Panicked).To(BeTrue())
			Expect(srvErrors.IsTaskPanicError(rec.Err)).To(BeTrue())

			Eventually(counter.Load, 2*time.Second).Should(BeEquivalentTo(1))
			Expect(s.Stats().LiveWorkers).To(Equal(1))
			Expect(s.Stats().Panicked).To(BeEquivalentTo(1))
		})

		It("should keep the worker alive when an observer or error handler panics", func() {
			s = scheduler.NewScheduler(1,
				scheduler.WithObserver(panickingObserver{}),
				scheduler.WithErrorHandler(func(scheduler.TaskRecord) { panic("handler") }),
			)
			Expect(s.Start()).To(Succeed())

			var counter atomic.Int32
			Expect(s.Schedule(func() { panic("boom") })).To(Succeed())
			for range 3 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}

			Eventually(counter.Load, 2*time.Second).Should(BeEquivalentTo(3))
			Expect(s.Stats().LiveWorkers).To(Equal(1))

			s.Stop()
			_, err := s.Submit("late", func() error { return nil })
			Expect(srvErrors.IsSchedulerStoppedError(err)).To(BeTrue())
		})

		It("should record errors returned by submitted tasks", func() {
			obs := &recordingObserver{}
			s = scheduler.NewScheduler(1, scheduler.WithObserver(obs))
			Expect(s.Start()).To(Succeed())

			boom := errors.New("boom")
			id, err := s.Submit("failing", func() error { return boom })
			Expect(err).NotTo(HaveOccurred())
			s.Stop()

			records := obs.Records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal(id))
			Expect(records[0].Name).To(Equal("failing"))
			Expect(records[0].Err).To(MatchError(boom))
			Expect(records[0].Panicked).To(BeFalse())
			Expect(records[0].Worker).To(Equal("scheduler-worker-1"))
			Expect(records[0].Duration()).To(BeNumerically(">=", 0))
			Expect(s.Stats().Failed).To(BeEquivalentTo(1))
		})
	})

	Describe("Pause", func() {
		It("should hold queued tasks until resumed", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())
			s.Pause()

			var counter atomic.Int32
			Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			Consistently(counter.Load, 150*time.Millisecond).Should(BeZero())
			Expect(s.Stats().Paused).To(BeTrue())

			s.Resume()
			Eventually(counter.Load, 2*time.Second).Should(BeEquivalentTo(1))
		})

		It("should drain a paused scheduler on stop", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())
			s.Pause()

			var counter atomic.Int32
			for range 3 {
				Expect(s.Schedule(func() { counter.Add(1) })).To(Succeed())
			}
			s.Stop()
			Expect(counter.Load()).To(BeEquivalentTo(3))
		})
	})

	Describe("AddWork", func() {
		It("should add work and return a future", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			future := s.AddWork(func(ctx context.Context) (any, error) {
				return "done", nil
			})
			Expect(future).NotTo(BeNil())
			Expect(future.ID()).NotTo(BeEmpty())

			var result scheduler.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Data).To(Equal("done"))
			Expect(result.Err).NotTo(HaveOccurred())
		})

		It("should execute multiple work items", func() {
			s = scheduler.NewScheduler(2)
			Expect(s.Start()).To(Succeed())

			results := make(chan int, 3)
			for i := range 3 {
				s.AddWork(func(ctx context.Context) (any, error) {
					results <- i
					return i, nil
				})
			}

			Eventually(func() int {
				return len(results)
			}, 2*time.Second, 100*time.Millisecond).Should(Equal(3))
		})

		It("should cancel work via future.Stop()", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			cancelled := make(chan bool, 1)
			started := make(chan struct{})
			future := s.AddWork(func(ctx context.Context) (any, error) {
				close(started)
				select {
				case <-ctx.Done():
					cancelled <- true
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return "completed", nil
				}
			})

			Eventually(started, 2*time.Second).Should(BeClosed())
			future.Stop()

			Eventually(cancelled, 2*time.Second).Should(Receive(BeTrue()))
			var result scheduler.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(context.Canceled))
		})

		It("should skip work cancelled while still queued", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			var ran atomic.Bool
			future := s.AddWork(func(ctx context.Context) (any, error) {
				ran.Store(true)
				return nil, nil
			})
			future.Stop()
			release()

			var result scheduler.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(context.Canceled))
			Expect(ran.Load()).To(BeFalse())
		})

		It("should keep the work context alive while the backlog drains", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			future := s.AddWork(func(ctx context.Context) (any, error) {
				return nil, ctx.Err()
			})
			s.RequestStop()
			release()
			s.Wait()

			var result scheduler.Result[any]
			Eventually(future.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).NotTo(HaveOccurred())
		})

		It("should report panics through the future", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())

			future := s.AddWork(func(ctx context.Context) (any, error) {
				panic("broken work")
			})

			var result scheduler.Result[any]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(srvErrors.IsTaskPanicError(result.Err)).To(BeTrue())
		})

		It("should resolve discarded work with a discarded error", func() {
			s = scheduler.NewScheduler(1, scheduler.WithDrainPolicy(scheduler.DrainPolicyDiscard))
			Expect(s.Start()).To(Succeed())
			release := blockWorker(s)

			future := s.AddNamedWork("discarded", func(ctx context.Context) (any, error) {
				return "never", nil
			})
			s.RequestStop()
			release()

			var result scheduler.Result[any]
			Eventually(future.C(), time.Second).Should(Receive(&result))
			Expect(srvErrors.IsTaskDiscardedError(result.Err)).To(BeTrue())
		})

		It("should return a stopped error when AddWork is called after Stop", func() {
			s = scheduler.NewScheduler(1)
			Expect(s.Start()).To(Succeed())
			s.Stop()

			future := s.AddWork(func(ctx context.Context) (any, error) {
				return "done", nil
			})

			var result scheduler.Result[any]
			Eventually(future.C(), 1*time.Second).Should(Receive(&result))
			Expect(srvErrors.IsSchedulerStoppedError(result.Err)).To(BeTrue())
		})
	})

	Describe("State", func() {
		It("should print readable names", func() {
			Expect(fmt.Sprint(scheduler.StateCreated)).To(Equal("created"))
			Expect(scheduler.StateStopRequested.String()).To(Equal("stop-requested"))
			Expect(scheduler.DrainPolicyDiscard.String()).To(Equal("discard"))
			Expect(scheduler.DrainPolicyRun.String()).To(Equal("run"))
		})
	})
})
