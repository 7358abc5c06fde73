package reb

import "time"

// Stats summarizes one re-replication sweep (§4.4 "Stats"), in the style of
// the teacher's stats.BaseXactStats/ExtRebalanceStats embedding pattern,
// collapsed to the handful of counters this engine actually produces. Not
// part of the §6 wire contract — an operational/test aid.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time

	BlocksScanned  int
	BlocksDegraded int
	HealsAttempted int
	HealsSucceeded int
}

// Duration is a convenience accessor mirroring BaseXactStats.StartTime/EndTime.
func (s Stats) Duration() time.Duration { return s.EndTime.Sub(s.StartTime) }
