package main

import (
	"os"

	"github.com/rr-brian/rts-ai/internal/command"
	"github.com/rr-brian/rts-ai/internal/logger"
)

func main() {
	if err := command.Execute(); err != nil {
		logger.L.Error("rts-ai failed", "error", err.Error())
		os.Exit(1)
	}
}
