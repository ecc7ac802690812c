package vm

import (
	"context"
	"time"
)

// FrameRate is the rate at which the timers count down and hosts refresh their output.
const FrameRate = 60

// FrameFunc is called by Run at FrameRate to let the host render output
// and poll input. A non-nil error ends Run.
type FrameFunc func() error

// Run drives the machine until ctx is done or frame fails. Steps run at the
// machine's cycle time while it is running; frame is called at FrameRate
// whether or not it is.
//
// A CPU failure does not end Run: the machine halts and stays paused
// until the host resets it. Use Fault to inspect the failure.
func (m *Machine) Run(ctx context.Context, frame FrameFunc) error {
	cycle := time.NewTicker(m.cycleTime)
	defer cycle.Stop()

	refresh := time.NewTicker(time.Second / FrameRate)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-cycle.C:
			// Errors are retained as the machine fault.
			_ = m.Update()

		case <-refresh.C:
			if frame == nil {
				continue
			}
			if err := frame(); err != nil {
				return err
			}
		}
	}
}
