package liveness

import (
	"time"

	"github.com/NebulousLabs/threadgroup"
	"github.com/golang/glog"
)

// RunSweepLoop starts the periodic liveness-and-reaper task (§4.2, §5) and
// registers it with tg so the coordinator can shut it down cooperatively
// (grounded in NebulousLabs-Sia's use of threadgroup to stop background
// loops cleanly rather than leaking a goroutine on process exit).
func (t *Tracker) RunSweepLoop(tg *threadgroup.ThreadGroup) error {
	if err := tg.Add(); err != nil {
		return err
	}
	go func() {
		defer tg.Done()
		ticker := time.NewTicker(t.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tg.StopChan():
				return
			case now := <-ticker.C:
				if n := t.Sweep(now); n > 0 {
					glog.Infof("liveness sweep: %d node(s) went down", n)
				}
			}
		}
	}()
	return nil
}
