package dnsresolver

import "log/slog"

// Logger wraps a *slog.Logger to give the resolver a nil-safe, optional
// hop-level logging seam. Supplying one on Options turns on one structured
// log record per hop: step, server, role, question, RTT, cache status, and
// any transport error. The response rcode is not logged.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l for use as a Resolver's hop logger.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) logHop(h Hop) {
	if l == nil || l.l == nil {
		return
	}

	attrs := []any{
		"step", h.Step,
		"server", h.Server,
		"role", h.Role,
		"name", h.Question.Name,
		"type", h.Question.Type,
		"cached", h.Cached,
	}
	if h.RTTMillis != nil {
		attrs = append(attrs, "rtt_ms", *h.RTTMillis)
	}
	if h.Error != "" {
		attrs = append(attrs, "error", h.Error)
		l.l.Warn("dns hop failed", attrs...)
		return
	}

	l.l.Debug("dns hop", attrs...)
}
