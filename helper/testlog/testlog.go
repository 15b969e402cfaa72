// Package testlog adapts the test logging framework to hclog so unit tests
// get structured output attached to `go test -v` on failure.
package testlog

import (
	"github.com/hashicorp/go-hclog"
)

// T is the subset of *testing.T this package needs, so callers don't have
// to import "testing" through us.
type T interface {
	Name() string
	Logf(format string, args ...any)
}

// HCLogger returns an hclog.Logger that writes through t.Logf.
func HCLogger(t T) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   t.Name(),
		Level:  hclog.Trace,
		Output: &testWriter{t: t},
	})
}

type testWriter struct {
	t T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", string(p))
	return len(p), nil
}
