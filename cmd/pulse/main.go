// main is the entry point of the pulse CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/pulse/cmd"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/iocache"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute(ctx)

	stop()
	iocache.CloseStores()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
