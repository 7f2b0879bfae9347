// Package perf reports slow gateway handlers.
package perf

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/util"
)

const (
	envGatewayPerfThresholdMs     = "BOTDASH_GATEWAY_PERF_THRESHOLD_MS"
	defaultGatewayPerfThresholdMs = int64(1500)
)

var (
	gatewayThresholdOnce sync.Once
	gatewayThreshold     time.Duration
)

// Interaction responses must start within three seconds, so the default
// warns well before that.
func gatewayPerfThreshold() time.Duration {
	gatewayThresholdOnce.Do(func() {
		ms := util.EnvInt64(envGatewayPerfThresholdMs, defaultGatewayPerfThresholdMs)
		if ms <= 0 {
			gatewayThreshold = 0
			return
		}
		gatewayThreshold = time.Duration(ms) * time.Millisecond
	})
	return gatewayThreshold
}

// StartGatewayEvent tracks how long a gateway handler takes and logs only when slow.
// Set BOTDASH_GATEWAY_PERF_THRESHOLD_MS to 0 to disable.
func StartGatewayEvent(event string, attrs ...slog.Attr) func() {
	return startWithThreshold(gatewayPerfThreshold(), event, attrs...)
}

func startWithThreshold(threshold time.Duration, event string, attrs ...slog.Attr) func() {
	if threshold <= 0 {
		return func() {}
	}
	start := time.Now()
	return func() {
		duration := time.Since(start)
		if duration < threshold {
			return
		}
		name := strings.TrimSpace(event)
		if name == "" {
			name = "unknown"
		}
		args := make([]any, 0, len(attrs)+2)
		args = append(args, slog.String("event", name), slog.Int64("duration_ms", duration.Milliseconds()))
		for _, attr := range attrs {
			args = append(args, attr)
		}
		log.DiscordLogger().Warn("Slow gateway event handler", args...)
	}
}
