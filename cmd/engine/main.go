package main

import (
	"os"

	"go.uber.org/zap"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		zap.S().Errorw("engine failed", "error", err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
	_ = zap.L().Sync()
}
