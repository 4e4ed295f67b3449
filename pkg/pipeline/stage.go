package pipeline

import (
	"time"

	"github.com/burka/voicsh/internal/logger"
)

// Stage is the contract every non-source stage satisfies (§4.1, §9): a
// pure per-message handler, a name for reports and logs, and a shutdown
// hook invoked once after the input channel drains. The runner is the only
// polymorphic piece; Stage itself carries no behavior beyond these three
// operations, so any value realizing them — struct, closure bundle, or
// otherwise — qualifies.
type Stage[In, Out any] interface {
	// Process handles one input message. It returns (output, true, nil) to
	// emit a value downstream, (zero, false, nil) to emit nothing, or a
	// non-nil *StageError to report and either continue (Recoverable) or
	// stop (Fatal). Process must not block on anything but its own
	// compute; the runner owns the blocking send to the output channel.
	Process(in In) (out Out, emit bool, err *StageError)
	Name() string
	// Shutdown runs once after the input channel is drained and closed. It
	// may emit a final output, e.g. the Chunker's buffered tail chunk.
	Shutdown() (out Out, emit bool)
}

// joinTimeout bounds how long the owner waits for a stage's goroutine to
// exit during shutdown (§5 step 5).
const joinTimeout = time.Second

// runStage drives one Stage: read from in, call Process, forward emitted
// values to out, report errors via reporter, and close out once in is
// drained and shutdown has run. It never drops a message silently; a full
// out channel simply blocks the send, which is how backpressure reaches
// upstream producers.
func runStage[In, Out any](stage Stage[In, Out], in <-chan In, out chan<- Out, reporter ErrorReporter, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	for msg := range in {
		result, emit, stageErr := stage.Process(msg)
		if stageErr != nil {
			reporter.Report(stage.Name(), stageErr.Kind, stageErr.Error())
			if stageErr.Kind == Fatal {
				if final, ok := stage.Shutdown(); ok {
					out <- final
				}
				return
			}
			continue
		}
		if emit {
			out <- result
		}
	}

	if final, ok := stage.Shutdown(); ok {
		out <- final
	}
}

// scopedLogger is a small convenience shared by stage implementations that
// want a component-tagged logger but may be constructed with a nil Logger
// in tests.
func scopedLogger(log *logger.Logger, component string) *logger.Scoped {
	if log == nil {
		log = logger.NewNop()
	}
	return log.With(component)
}
