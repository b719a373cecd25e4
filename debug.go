package vs10x3

import (
	"context"
	"log/slog"
)

// levelTrace is used for per transaction logs. Enabled by setting the
// handler level to slog.LevelDebug-1.
const levelTrace slog.Level = slog.LevelDebug - 1

func (d *Device) logerr(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelError, msg, attrs...)
}

func (d *Device) warn(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelWarn, msg, attrs...)
}

func (d *Device) info(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelInfo, msg, attrs...)
}

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	d.logattrs(slog.LevelDebug, msg, attrs...)
}

func (d *Device) trace(msg string, attrs ...slog.Attr) {
	if !d._traceenabled {
		return // Avoid context and attr handling in the pacing hot path.
	}
	d.logattrs(levelTrace, msg, attrs...)
}

func (d *Device) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if d.logger == nil {
		return
	}
	d.logger.LogAttrs(context.Background(), level, "vs10x3:"+msg, attrs...)
}
