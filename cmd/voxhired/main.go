// SPDX-License-Identifier: MIT

// voxhired is the interview platform daemon: REST API, realtime gateway,
// and the interviewer bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/voxhire/voxhire/internal/daemon"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	shutdownTimeout := flag.Duration("shutdown-timeout", 30*time.Second, "graceful shutdown drain budget")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxhired %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	ctx := context.Background()
	d, err := daemon.New(ctx, daemon.Options{
		ConfigPath:      *configPath,
		ShutdownTimeout: *shutdownTimeout,
	})
	if err != nil {
		base := log.Base()
		base.Error().Err(err).Str("event", "daemon.startup_failed").Msg("voxhired failed to start")
		os.Exit(1)
	}

	if err := d.Run(ctx); err != nil {
		base := log.Base()
		base.Error().Err(err).Str("event", "daemon.run_failed").Msg("voxhired exited with error")
		os.Exit(1)
	}
}
