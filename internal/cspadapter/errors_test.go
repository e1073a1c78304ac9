package cspadapter

import (
	"errors"
	"testing"
)

func TestExitCodesAreAllTerminal(t *testing.T) {
	cause := errors.New("boom")
	errs := []ExitCoder{
		&NoMatchingVolumeDimensionError{Metric: "nodes", Value: 500},
		&MissingTieredDimensionError{Metric: "nodes", Value: 20},
		&ConsumptionReportingInvalidError{Metric: "nodes", Value: "bogus"},
		&FailedToSaveCacheError{Cause: cause},
		&FailedToSaveCSPConfigError{Cause: cause},
		&InvalidConfigError{Cause: cause},
	}

	for _, e := range errs {
		if e.ExitCode() != 2 {
			t.Errorf("%T: expected exit code 2, got %d", e, e.ExitCode())
		}
		if e.Error() == "" {
			t.Errorf("%T: expected a non-empty error message", e)
		}
	}
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	cause := errors.New("disk full")

	cacheErr := &FailedToSaveCacheError{Cause: cause}
	if !errors.Is(cacheErr, cause) {
		t.Error("expected FailedToSaveCacheError to unwrap to its cause")
	}

	cspErr := &FailedToSaveCSPConfigError{Cause: cause}
	if !errors.Is(cspErr, cause) {
		t.Error("expected FailedToSaveCSPConfigError to unwrap to its cause")
	}

	cfgErr := &InvalidConfigError{Cause: cause}
	if !errors.Is(cfgErr, cause) {
		t.Error("expected InvalidConfigError to unwrap to its cause")
	}
}
