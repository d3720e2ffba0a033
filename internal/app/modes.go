package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"projector/internal/config"
	"projector/internal/domain"
	"projector/internal/hooks"
	"projector/pkg/logging"
)

// shutdownTimeout bounds the graceful stop of the status API.
const shutdownTimeout = 15 * time.Second

// runServeMode starts the long-running components and blocks until ctx is
// done or SIGINT/SIGTERM is received.
//
// Start order: file watcher, status API, scheduler, then the admin ensure
// event. Components are stopped in reverse order.
func runServeMode(ctx context.Context, cfg *config.Config, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := services.Close(); err != nil {
			logging.Warn("Bootstrap", "Failed to close services: %v", err)
		}
	}()

	if services.Watcher != nil {
		if err := services.Watcher.Start(ctx); err != nil {
			logging.Error("Bootstrap", err, "Failed to start file watcher")
			return err
		}
		defer func() {
			if err := services.Watcher.Stop(); err != nil {
				logging.Warn("Bootstrap", "Failed to stop file watcher: %v", err)
			}
		}()
	}

	if services.Server != nil {
		if err := services.Server.Start(cfg.Server.Address); err != nil {
			logging.Error("Bootstrap", err, "Failed to start status API")
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := services.Server.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Bootstrap", "Status API did not shut down cleanly: %v", err)
			}
		}()
	}

	services.Scheduler.Start(ctx, cfg.Sync.OnStartup)
	defer services.Scheduler.Stop()

	services.Bus.Publish(hooks.UserCreateAdmin, adminUser(cfg.Admin))

	notify(daemon.SdNotifyReady)
	logging.Info("Bootstrap", "projector is running. Press Ctrl+C to stop.")

	<-ctx.Done()

	notify(daemon.SdNotifyStopping)
	logging.Info("Bootstrap", "Shutting down with %d hook keys in flight", services.Bus.Pending())
	return nil
}

// notify reports state to systemd when running under a notify unit.
func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logging.Warn("Bootstrap", "Failed to notify systemd: %v", err)
	case sent:
		logging.Debug("Bootstrap", "Notified systemd: %s", state)
	}
}

func adminUser(a config.AdminConfig) domain.User {
	return domain.User{
		Username: a.Username,
		Email:    a.Email,
		FullName: a.FullName,
		IsAdmin:  true,
	}
}
