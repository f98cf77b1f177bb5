// Package xlog wires the ambient structured logger shared across
// codec/compute/colortransform packages. It defaults to a no-op logger so
// library code never forces output on a caller that hasn't opted in.
package xlog

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger installs l as the package-wide logger. Passing nil restores
// the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the current logger, always non-nil.
func L() *zap.Logger { return logger }

// Named returns a child logger scoped to a package/component name, the
// convention codec/compute packages use to tag their diagnostics (e.g.
// "codec.exr", "compute.cpu").
func Named(name string) *zap.Logger { return logger.Named(name) }
