package config

import (
	"strings"
	"time"
)

// Lock backends accepted in LOCK_BACKEND.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// LockConfig selects how the per-date booking scope is enforced. "local"
// only serialises requests inside one process; run several instances with
// "redis".
//
// TTL is the Redis lease. It is not renewed while held, so values below
// lock.MinTTL (the create request deadline) are raised to it.
type LockConfig struct {
	Backend string
	Prefix  string
	TTL     time.Duration
	Wait    time.Duration
}

// LoadLockConfig reads the LOCK_* variables.
func LoadLockConfig() LockConfig {
	return LockConfig{
		Backend: strings.ToLower(envStr("LOCK_BACKEND", LockLocal)),
		Prefix:  envStr("LOCK_PREFIX", "lock:booking"),
		TTL:     envDur("LOCK_TTL", 10*time.Second),
		Wait:    envDur("LOCK_WAIT", 5*time.Second),
	}
}
