package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/printwatch/internal/config"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/pid"
	"codeberg.org/mutker/printwatch/internal/server"
	"codeberg.org/mutker/printwatch/internal/service"
	"codeberg.org/mutker/printwatch/internal/shell"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config (%s): %v\n", errors.CodeOf(err), err)
		return 1
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		return 1
	}
	defer logger.Close()

	log := logger.Get()
	log.Info().Msg("Initializing print job monitoring system...")

	if err := pid.Write(cfg.PIDFile); err != nil {
		logError(err, "Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			log.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	svc, err := newService(cfg, log)
	if err != nil {
		logError(err, "Failed to initialize collection service")
		return 1
	}

	code := serve(cfg, svc, log)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		logError(err, "Failed to shut down cleanly")
		return 1
	}

	if code == 0 {
		log.Info().Msg("Print job monitoring system exited normally.")
	}
	return code
}

// serve runs the command shell, the status server and signal handling until
// one of them ends the process.
func serve(cfg *config.Config, svc *service.CollectorService, log logger.Logger) int {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if cfg.Autostart {
		if err := svc.Start(); err != nil {
			return 1
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Listen != "" {
		srv := server.New(server.Config{
			Listen:    cfg.Server.Listen,
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		}, svc, log)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if logger.IsService() {
		log.Debug().Msg("Running without command shell")
	} else {
		sh := shell.New(svc, os.Stdin, os.Stdout, log)
		g.Go(func() error {
			defer cancel()
			return sh.Run(gctx)
		})
	}

	notify(daemon.SdNotifyReady, log)

	g.Go(func() error {
		<-gctx.Done()
		if sigCtx.Err() != nil {
			log.Info().Msg("Received termination signal.")
		}
		return nil
	})

	err := g.Wait()
	notify(daemon.SdNotifyStopping, log)

	if err != nil {
		logError(err, "Fatal error")
		return 1
	}
	return 0
}

func notify(state string, log logger.Logger) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		log.Debug().Str("state", state).Msg("Notified systemd")
	}
}

func logError(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
