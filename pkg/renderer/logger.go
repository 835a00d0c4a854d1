package renderer

import (
	"strings"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"go.uber.org/zap"
)

// zapLogger adapts a zap logger to the narrow core.Logger interface used in
// rendering code
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger as a core.Logger
func NewZapLogger(l *zap.Logger) core.Logger {
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Printf(format string, args ...interface{}) {
	z.sugar.Infof(strings.TrimRight(format, "\n"), args...)
}
