package commands

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netconfd/netconfd/internal/api"
	"github.com/netconfd/netconfd/internal/config"
	"github.com/netconfd/netconfd/internal/log"
	"github.com/netconfd/netconfd/internal/platform"
	"github.com/netconfd/netconfd/internal/service"
)

func CreateServiceCommand() *ServiceCommand {
	sc := &ServiceCommand{
		fs: flag.NewFlagSet("service", flag.ExitOnError),
	}
	return sc
}

// ServiceCommand runs the reconcile daemon: kernel event feed,
// reconcile loop and the HTTP API.
type ServiceCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config

	platform   platform.Platform
	reconciler *service.Reconciler
}

func (s *ServiceCommand) Name() string {
	return s.fs.Name()
}

func (s *ServiceCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	s.cfg = cfg

	s.platform = newPlatform(ctx)

	reconciler, err := service.NewReconciler(s.platform, s.cfg)
	if err != nil {
		return err
	}
	s.reconciler = reconciler

	return nil
}

func (s *ServiceCommand) Run() error {
	log.Infof("Starting netconfd service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	// The kernel event feed only exists on the real platform.
	if l, ok := s.platform.(*platform.Linux); ok {
		g.Go(func() error {
			if err := l.Run(gctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	reconcileRunner := service.NewRestartableRunner(service.RunnerConfig{Name: "reconciler"}, func(ctx context.Context) error {
		if err := s.reconciler.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	if err := reconcileRunner.Start(gctx); err != nil {
		return err
	}

	var apiServer *api.Server
	if addr := s.cfg.General.APIListen; addr != "" {
		apiServer = api.NewServer(addr, s.platform, s.cfg, s.reconciler)
		apiRunner := service.NewRestartableRunner(service.RunnerConfig{Name: "api-server"}, func(ctx context.Context) error {
			return apiServer.Start()
		})
		if err := apiRunner.Start(gctx); err != nil {
			return err
		}
	} else {
		log.Infof("API disabled (empty api_listen)")
	}

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, shutting down...", sig)
	case <-gctx.Done():
		log.Warnf("Component failed, shutting down...")
	}

	cancel()

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Errorf("API shutdown: %v", err)
		}
	}
	if err := reconcileRunner.Stop(); err != nil {
		log.Errorf("Reconciler shutdown: %v", err)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Infof("netconfd stopped")
	return nil
}
