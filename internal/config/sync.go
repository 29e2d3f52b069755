package config

import "time"

// Default recovery sequence: four quick probes then two wider ones.
// The remote store usually becomes read-consistent well inside this window.
var defaultRecoveryDelaysMs = []int64{200, 200, 200, 200, 400, 400}

const defaultStaleAfterSeconds = 30

type SyncConfig struct {
	RecoveryDelaysMs  []int64 `yaml:"recovery-delays-ms"`
	StaleAfterSeconds int64   `yaml:"stale-after-seconds"`
}

func (c *SyncConfig) RecoveryDelays() []time.Duration {
	ms := c.RecoveryDelaysMs
	if len(ms) == 0 {
		ms = defaultRecoveryDelaysMs
	}
	delays := make([]time.Duration, 0, len(ms))
	for _, d := range ms {
		delays = append(delays, time.Duration(d)*time.Millisecond)
	}
	return delays
}

func (c *SyncConfig) StaleAfter() time.Duration {
	secs := c.StaleAfterSeconds
	if secs <= 0 {
		secs = defaultStaleAfterSeconds
	}
	return time.Duration(secs) * time.Second
}
