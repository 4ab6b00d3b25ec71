package services_test

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kubev2v/engine-scheduler/internal/models"
	"github.com/kubev2v/engine-scheduler/internal/services"
	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

var _ = Describe("Workload", func() {
	var (
		s    *scheduler.Scheduler
		main *scheduler.MainQueue
	)

	fastRetry := services.WithWorkloadRetry(
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(2),
	)

	BeforeEach(func() {
		s = scheduler.NewScheduler(4)
		main = scheduler.NewMainQueue()
		Expect(s.Start()).To(Succeed())
	})

	AfterEach(func() {
		s.Stop()
	})

	accounted := func(w *services.Workload) func() int {
		return func() int {
			main.ExecuteAll()
			sum := w.Summary()
			return sum.Completed + sum.Failed
		}
	}

	It("should run every frame and account completions on the main queue", func() {
		w := services.NewWorkloadService(s, main, fastRetry, services.WithFailureSource(func() float64 { return 0.9 }))

		ids, err := w.Start(models.WorkloadSpec{Tasks: 20, Duration: 1, FailureRate: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(20))
		Expect(ids[0]).NotTo(Equal(ids[1]))

		Eventually(accounted(w), 5*time.Second, 10*time.Millisecond).Should(Equal(20))
		sum := w.Summary()
		Expect(sum.Submitted).To(Equal(20))
		Expect(sum.Completed).To(Equal(20))
		Expect(sum.Failed).To(BeZero())
	})

	It("should report frames that keep failing after retries", func() {
		// a single worker keeps the roll counter race free
		s.Stop()
		s = scheduler.NewScheduler(1)
		Expect(s.Start()).To(Succeed())

		rolls := 0
		w := services.NewWorkloadService(s, main, fastRetry, services.WithFailureSource(func() float64 {
			rolls++
			return 0
		}))

		_, err := w.Start(models.WorkloadSpec{Tasks: 3, FailureRate: 1})
		Expect(err).NotTo(HaveOccurred())

		Eventually(accounted(w), 5*time.Second, 10*time.Millisecond).Should(Equal(3))
		Expect(w.Summary().Failed).To(Equal(3))
		s.Stop()
		Expect(rolls).To(Equal(6))
	})

	DescribeTable("should reject invalid workloads",
		func(spec models.WorkloadSpec) {
			w := services.NewWorkloadService(s, main)
			_, err := w.Start(spec)
			Expect(srvErrors.IsInvalidArgumentError(err)).To(BeTrue())
		},
		Entry("no tasks", models.WorkloadSpec{Tasks: 0}),
		Entry("too many tasks", models.WorkloadSpec{Tasks: 10001}),
		Entry("negative duration", models.WorkloadSpec{Tasks: 1, Duration: -1}),
		Entry("failure rate above one", models.WorkloadSpec{Tasks: 1, FailureRate: 1.5}),
	)

	It("should refuse workloads once closed", func() {
		w := services.NewWorkloadService(s, main)
		w.Close()

		_, err := w.Start(models.WorkloadSpec{Tasks: 1})
		Expect(srvErrors.IsSchedulerStoppedError(err)).To(BeTrue())
	})

	// Given a producer submitting workloads in a loop
	// When the scheduler stops and the workload closes in host order
	// Then shutdown completes and every admitted frame is accounted for
	It("should shut down cleanly while workloads are being started", func() {
		// Arrange
		w := services.NewWorkloadService(s, main)
		started := make(chan struct{})
		producerDone := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(producerDone)
			once := false
			for {
				_, err := w.Start(models.WorkloadSpec{Tasks: 1})
				if !once {
					once = true
					close(started)
				}
				if err != nil {
					Expect(srvErrors.IsSchedulerStoppedError(err)).To(BeTrue())
					return
				}
			}
		}()
		Eventually(started, 2*time.Second).Should(BeClosed())

		// Act
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Stop()
			w.Close()
			main.ExecuteAll()
		}()

		// Assert
		Eventually(done, 10*time.Second).Should(BeClosed())
		Eventually(producerDone, 2*time.Second).Should(BeClosed())
		sum := w.Summary()
		Expect(sum.Submitted).To(BeNumerically(">", 0))
		Expect(sum.Completed + sum.Failed).To(Equal(sum.Submitted))
	})

	It("should refuse workloads once the scheduler is stopped", func() {
		w := services.NewWorkloadService(s, main)
		s.Stop()

		_, err := w.Start(models.WorkloadSpec{Tasks: 1})
		Expect(srvErrors.IsSchedulerStoppedError(err)).To(BeTrue())
	})
})

var _ = Describe("Engine", func() {
	It("should pause and resume the scheduler", func() {
		s := scheduler.NewScheduler(1, scheduler.WithName("engine"))
		Expect(s.Start()).To(Succeed())
		defer s.Stop()

		e := services.NewEngineService(s, nil)

		status := e.Pause()
		Expect(status.Name).To(Equal("engine"))
		Expect(status.Stats.Paused).To(BeTrue())
		Expect(status.Stats.State).To(Equal(scheduler.StateRunning))

		status = e.Resume()
		Expect(status.Stats.Paused).To(BeFalse())
		Expect(status.Stats.Workers).To(Equal(1))
	})

	It("should log each pause and resume once", func() {
		core, logs := observer.New(zap.InfoLevel)
		restore := zap.ReplaceGlobals(zap.New(core))
		defer restore()

		s := scheduler.NewScheduler(1)
		Expect(s.Start()).To(Succeed())
		defer s.Stop()

		e := services.NewEngineService(s, nil)
		e.Pause()
		e.Resume()

		Expect(logs.FilterMessage("scheduler paused").Len()).To(Equal(1))
		Expect(logs.FilterMessage("scheduler resumed").Len()).To(Equal(1))
	})
})
