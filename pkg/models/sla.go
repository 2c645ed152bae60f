package models

import "time"

// SLAStatus is the derived health label of a workflow state duration
// compared against its configured threshold.
type SLAStatus string

const (
	SLAStatusOK     SLAStatus = "OK"
	SLAStatusWarn   SLAStatus = "WARN"
	SLAStatusBreach SLAStatus = "BREACH"
)

// warnRatio is the fraction of the threshold at which a state is flagged
// before actually breaching.
const warnRatio = 0.8

// SLAStatusFor labels elapsed time against a threshold. A non-positive
// threshold means no SLA is configured and always reads OK.
func SLAStatusFor(elapsed, threshold time.Duration) SLAStatus {
	if threshold <= 0 {
		return SLAStatusOK
	}

	switch {
	case elapsed >= threshold:
		return SLAStatusBreach
	case float64(elapsed) >= warnRatio*float64(threshold):
		return SLAStatusWarn
	default:
		return SLAStatusOK
	}
}
