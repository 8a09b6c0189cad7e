package ack

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if any test leaks a goroutine, which keeps the
// manager's shutdown discipline honest.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
