package textsink

import "testing"

func TestLoggingInjectorNeverErrors(t *testing.T) {
	injector := NewLoggingInjector(nil)
	if err := injector.Inject("hello world"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
}
