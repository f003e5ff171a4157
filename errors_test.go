package guardrail_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/guardrail-dev/guardrail"
)

func TestSentinelsAreToolkitErrors(t *testing.T) {
	sentinels := []error{
		guardrail.ErrRateLimited,
		guardrail.ErrCircuitOpen,
		guardrail.ErrBulkheadFull,
	}

	for _, sentinel := range sentinels {
		var te guardrail.ToolkitError
		if !errors.As(sentinel, &te) {
			t.Fatalf("%v does not implement ToolkitError", sentinel)
		}
		if !te.IsToolkit() {
			t.Fatalf("%v.IsToolkit() = false, want true", sentinel)
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetching quotes: %w", guardrail.ErrCircuitOpen)

	if !errors.Is(wrapped, guardrail.ErrCircuitOpen) {
		t.Fatal("wrapped sentinel no longer matches ErrCircuitOpen")
	}
}

func TestDownstreamErrorsAreNotToolkitErrors(t *testing.T) {
	var te guardrail.ToolkitError
	if errors.As(errors.New("downstream"), &te) {
		t.Fatal("plain error unexpectedly classified as a toolkit error")
	}
}
