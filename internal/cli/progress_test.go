package cli

import "testing"

func TestStartProgressDisabled(t *testing.T) {
	testConfig(t)
	old := progressEnabled
	progressEnabled = func() bool { return false }
	t.Cleanup(func() { progressEnabled = old })

	out := captureStdout(t, func() {
		stop := startProgress("scanning")
		stop()
	})
	if out != "" {
		t.Errorf("disabled progress wrote %q", out)
	}
}

func TestStartProgressStops(t *testing.T) {
	testConfig(t)
	old := progressEnabled
	progressEnabled = func() bool { return true }
	t.Cleanup(func() { progressEnabled = old })

	stop := startProgress("scanning")
	stop()
	stop()
}

func TestProgressEnabledOffWhenVerbose(t *testing.T) {
	c := testConfig(t)
	c.Verbose = true
	if progressEnabled() {
		t.Error("spinner enabled together with verbose logging")
	}
}
