package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAcquisitionFailure_UnwrapsLastProviderError(t *testing.T) {
	first := errors.New("timeout")
	last := NewTransientProviderError("tencent", 3, ErrEmptyPayload)
	f := NewAcquisitionFailure("A股-沪深300", []ProviderAttempt{
		{Provider: "eastmoney", Attempts: 3, LastErr: first},
		{Provider: "tencent", Attempts: 3, LastErr: last},
	})
	if !errors.Is(f, ErrEmptyPayload) {
		t.Errorf("expected failure to wrap ErrEmptyPayload, got %v", f)
	}
	if !strings.Contains(f.Error(), "eastmoney(3)") || !strings.Contains(f.Error(), "tencent(3)") {
		t.Errorf("message should list every provider: %s", f.Error())
	}

	var tpe *TransientProviderError
	if !errors.As(f, &tpe) || tpe.Provider != "tencent" {
		t.Errorf("expected transient error from tencent in chain, got %v", tpe)
	}
}

func TestAcquisitionFailure_NoProviders(t *testing.T) {
	f := NewAcquisitionFailure("港股-恒生指数", nil)
	if f.Unwrap() != nil {
		t.Errorf("expected nil cause, got %v", f.Unwrap())
	}
	if !strings.Contains(f.Error(), "no candidate providers") {
		t.Errorf("unexpected message: %s", f.Error())
	}
}

func TestIsConfiguration(t *testing.T) {
	ce := NewConfigurationError(nil, "index %q not found", "x")
	wrapped := fmt.Errorf("startup: %w", ce)
	if !IsConfiguration(wrapped) {
		t.Error("expected wrapped configuration error to be detected")
	}
	if IsConfiguration(NewComputationError(time.Time{}, ErrZeroAverage)) {
		t.Error("computation error is not a configuration error")
	}
}

func TestComputationError_Message(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := NewComputationError(d, ErrZeroAverage)
	if !errors.Is(err, ErrZeroAverage) {
		t.Error("expected ErrZeroAverage in chain")
	}
	if !strings.Contains(err.Error(), "2024-03-01") {
		t.Errorf("expected date in message: %s", err.Error())
	}
}
