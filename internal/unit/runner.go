// internal/unit/runner.go
package unit

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/devicedata/internal/poller"
	"github.com/tamzrod/devicedata/internal/status"
)

// Run drives the unit until ctx is cancelled: the poller produces results,
// this loop owns the health tracker and its 1 Hz seconds ticker.
func (u *Unit) Run(ctx context.Context) {
	if u.poller == nil || u.poller.Len() == 0 {
		u.statusMu.Lock()
		u.tracker.Disable()
		u.statusMu.Unlock()
		u.log.Info("nothing to observe", slog.String("health", status.HealthName(status.HealthDisabled)))
		<-ctx.Done()
		return
	}

	out := make(chan poller.PollResult)
	go u.poller.Run(ctx, out)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-out:
			if res.Err != nil {
				u.log.Warn("poll cycle failed",
					slog.Int("reads", res.Reads),
					slog.Any("error", res.Err),
				)
			}
			u.statusMu.Lock()
			snap, changed := u.tracker.Apply(res.At, res.Err)
			u.statusMu.Unlock()
			if changed {
				u.logStatus(slog.LevelInfo, snap)
			}

		case now := <-secTicker.C:
			u.statusMu.Lock()
			snap, changed := u.tracker.Tick(now)
			u.statusMu.Unlock()
			if changed {
				u.logStatus(slog.LevelDebug, snap)
			}
		}
	}
}

func (u *Unit) logStatus(level slog.Level, s status.Snapshot) {
	u.log.Log(context.Background(), level, "unit status",
		slog.String("health", status.HealthName(s.Health)),
		slog.Int("last_error_code", int(s.LastErrorCode)),
		slog.Int("seconds_in_error", int(s.SecondsInError)),
	)
}
