package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
	"github.com/kubev2v/engine-scheduler/test/e2e/infra"
	"github.com/kubev2v/engine-scheduler/test/e2e/service"
)

const e2eSecret = "e2e-secret"

func statusCode(err error) int {
	var se *service.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

var _ = Describe("engine", Ordered, func() {
	var (
		svc     *service.EngineSvc
		dataDir string
	)

	BeforeAll(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "engine-e2e-")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		baseURL, err := engine.Start(ctx, infra.EngineConfig{
			Port:       cfg.Port,
			Workers:    cfg.Workers,
			AuthSecret: e2eSecret,
			DataFolder: dataDir,
		})
		Expect(err).NotTo(HaveOccurred())

		token, err := infra.GenerateToken(e2eSecret, "e2e", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		svc = service.NewEngineService(baseURL).WithToken(token)
	})

	AfterAll(func() {
		_, _ = engine.Stop()
		if !cfg.KeepDataDir {
			_ = os.RemoveAll(dataDir)
		}
	})

	It("rejects requests without a token", func() {
		_, err := service.NewEngineService(svc.BaseURL()).Status()
		Expect(statusCode(err)).To(Equal(http.StatusUnauthorized))
	})

	It("reports a running scheduler", func() {
		status, err := svc.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.State).To(Equal("running"))
		Expect(status.Workers).To(Equal(cfg.Workers))
	})

	It("runs a workload and records every task", func() {
		resp, err := svc.CreateWorkload(v1.WorkloadRequest{Tasks: 50, DurationMs: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.TaskIds).To(HaveLen(50))

		Eventually(func() (int, error) {
			list, err := svc.ListTasks(url.Values{"pageSize": []string{"1"}})
			if err != nil {
				return 0, err
			}
			return list.Total, nil
		}, 20*time.Second, 200*time.Millisecond).Should(Equal(50))

		task, err := svc.GetTask(resp.TaskIds[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(task.Name).To(Equal("frame"))
		Expect(task.Error).To(BeNil())
	})

	It("holds tasks while paused", func() {
		_, err := svc.Pause()
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.CreateWorkload(v1.WorkloadRequest{Tasks: 5})
		Expect(err).NotTo(HaveOccurred())

		Consistently(func() (int, error) {
			status, err := svc.Status()
			if err != nil {
				return 0, err
			}
			return status.Queued, nil
		}, time.Second, 100*time.Millisecond).Should(Equal(5))

		status, err := svc.Resume()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Paused).To(BeFalse())

		Eventually(func() (int, error) {
			status, err := svc.Status()
			if err != nil {
				return -1, err
			}
			return status.Queued, nil
		}, 5*time.Second, 100*time.Millisecond).Should(BeZero())
	})

	It("keeps the history across restarts", func() {
		before, err := svc.ListTasks(nil)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err = engine.Restart(ctx)
		Expect(err).NotTo(HaveOccurred())

		after, err := svc.ListTasks(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.Total).To(BeNumerically(">=", before.Total))
	})

	It("prints a summary on shutdown", func() {
		_, err := svc.CreateWorkload(v1.WorkloadRequest{Tasks: 3})
		Expect(err).NotTo(HaveOccurred())

		out, err := engine.Stop()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("stopped"))
		Expect(out).To(ContainSubstring("workload   3/3 completed"))
	})
})
