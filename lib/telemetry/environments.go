package telemetry

import (
	"context"
	"os"
	"sync"
	"testing"
)

var testSetupMu sync.Mutex
var testSetupDone = map[string]bool{}

// SetupForTesting initializes telemetry once per service name across
// a test binary. Without a telemetry.json5 in the environment, tests
// run with no exporters and the cleanup is a no-op.
func SetupForTesting(t testing.TB, serviceName string) func() {
	testSetupMu.Lock()
	defer testSetupMu.Unlock()

	if testSetupDone[serviceName] {
		return func() {}
	}
	testSetupDone[serviceName] = true

	InitSlog(true)

	err := SetupFromEnv(context.Background(), serviceName)
	if os.IsNotExist(err) {
		return func() {}
	}
	if err != nil {
		t.Fatal(err)
	}

	return func() {
		err := Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
