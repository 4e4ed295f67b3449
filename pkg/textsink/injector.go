// Package textsink provides Injector implementations consumed by
// pipeline.InjectorSink. Real injection backends (compositor portals,
// virtual-keyboard protocols, uinput) are out of scope; this package
// supplies a logging stand-in suitable for local testing and as a
// template for a future backend.
package textsink

import (
	"github.com/burka/voicsh/internal/logger"
)

// LoggingInjector implements pipeline.Injector by logging each delivered
// string at info level rather than forwarding it to a compositor. It
// exists so InjectorSink can be wired end-to-end without a real desktop
// injection backend.
type LoggingInjector struct {
	log *logger.Scoped
}

// NewLoggingInjector builds a LoggingInjector.
func NewLoggingInjector(log *logger.Logger) *LoggingInjector {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoggingInjector{log: log.With("injector")}
}

// Inject implements pipeline.Injector.
func (l *LoggingInjector) Inject(text string) error {
	l.log.Info("inject: %s", text)
	return nil
}

// String implements fmt.Stringer for debugging convenience.
func (l *LoggingInjector) String() string {
	return "LoggingInjector"
}
