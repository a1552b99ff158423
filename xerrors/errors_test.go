package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestSentinelMatchingSurvivesDetail(t *testing.T) {
	err := ErrConfiguration.WithDetail("num_trees must be >= 1, got %d", 0)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatal("clone should match its sentinel")
	}
	if errors.Is(err, ErrEmptyDataset) {
		t.Fatal("different codes must not match")
	}
	if ErrConfiguration.Detail != "" {
		t.Fatal("sentinel must not be mutated")
	}
	if !strings.Contains(err.Error(), "got 0") {
		t.Fatalf("detail missing from message: %s", err)
	}
}

func TestWrapKeepsCode(t *testing.T) {
	inner := ErrPredictionShape.WithDetail("expected 3 features, got 2")
	wrapped := Wrap(fmt.Errorf("row 4: %w", inner), ErrInternal, "predict batch").WithContext("row", 4)

	if !errors.Is(wrapped, ErrPredictionShape) {
		t.Fatal("wrapped error should still match the inner sentinel")
	}
	if wrapped.Code != ErrPredictionShape.Code || wrapped.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("unexpected code/status %d/%d", wrapped.Code, wrapped.HTTPStatus())
	}
	if wrapped.Context["row"] != 4 {
		t.Fatalf("context lost: %v", wrapped.Context)
	}
	if Wrap(nil, ErrInternal, "x") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ErrConfiguration, http.StatusBadRequest},
		{ErrNotBuilt, http.StatusNotFound},
		{ErrDatasetFetch, http.StatusServiceUnavailable},
		{ErrBuildCanceled, http.StatusRequestTimeout},
		{ErrPredictCanceled, http.StatusRequestTimeout},
		{ErrPredictTimeout, http.StatusGatewayTimeout},
		{Internal("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.err.Message, tt.want, got)
		}
	}
}

func TestFromError(t *testing.T) {
	if _, ok := FromError(errors.New("plain")); ok {
		t.Fatal("plain error is not an *Error")
	}
	e, ok := FromError(fmt.Errorf("ctx: %w", ErrNotBuilt))
	if !ok || e.Code != ErrNotBuilt.Code {
		t.Fatalf("expected ErrNotBuilt, got %v", e)
	}
	cause := errors.New("dial tcp: refused")
	if !errors.Is(ErrDatasetFetch.WithCause(cause), cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
}
