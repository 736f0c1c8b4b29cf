package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "homeworkbot/pkg/logx"
)

// systemd speaks the sd_notify protocol. Outside a systemd unit
// (NOTIFY_SOCKET unset) every call is a no-op.
type systemd struct {
	log logx.Logger
}

func newSystemd(log logx.Logger) *systemd { return &systemd{log: log} }

func (s *systemd) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		s.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		s.log.Debug("sd_notify", logx.String("state", state))
	}
}

func (s *systemd) ready()    { s.notify(daemon.SdNotifyReady) }
func (s *systemd) stopping() { s.notify(daemon.SdNotifyStopping) }

// cycle pings the watchdog after each poll cycle.
func (s *systemd) cycle() {
	if s.watchdogInterval() > 0 {
		s.notify(daemon.SdNotifyWatchdog)
	}
}

// watchdogInterval returns half of WatchdogSec, or 0 when the watchdog is off.
func (s *systemd) watchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	return d / 2
}

// keepAlive pings between cycles; the poll interval is usually longer than WatchdogSec.
func (s *systemd) keepAlive(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.notify(daemon.SdNotifyWatchdog)
		}
	}
}
