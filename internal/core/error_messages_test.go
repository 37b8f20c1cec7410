package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"nil", nil, "", http.StatusOK},
		{"unsupported format", fmt.Errorf("%w: .txt", ErrUnsupportedFormat), "IMP001", http.StatusUnsupportedMediaType},
		{"empty batch", fmt.Errorf("%w in a.csv", ErrEmptyBatch), "IMP002", http.StatusUnprocessableEntity},
		{"decode failure", &DecodeError{Format: "xlsx", Err: errors.New("zip: not a valid zip file")}, "IMP003", http.StatusUnprocessableEntity},
		{"too many imports", ErrTooManyImports, "IMP004", http.StatusTooManyRequests},
		{"file too large", fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge), "IMP005", http.StatusRequestEntityTooLarge},
		{"not authenticated", ErrNotAuthenticated, "AUTH001", http.StatusUnauthorized},
		{"not found", ErrNotFound, "STO002", http.StatusNotFound},
		{"store failure", &StoreError{Op: "insert leads", Err: errors.New("tx aborted")}, "STO001", http.StatusBadGateway},
		{"store failure with driver text", &StoreError{Op: "insert leads", Err: errors.New("dial tcp: connection refused")}, "DB004", http.StatusServiceUnavailable},
		{"unknown stage", fmt.Errorf("%w: %q", ErrUnknownStage, "x"), "VAL002", http.StatusBadRequest},
		{"validation", ValidationErrors{{Field: "name", Message: "required field is empty"}}, "VAL001", http.StatusBadRequest},
		{"drag in progress", ErrDragInProgress, "VAL004", http.StatusConflict},
		{"deadline", &StoreError{Op: "query", Err: context.DeadlineExceeded}, "REQ002", http.StatusGatewayTimeout},
		{"case insensitive pattern", errors.New("ERROR: DUPLICATE KEY value"), "DB001", http.StatusConflict},
		{"unknown", errors.New("some random internal error"), "ERR000", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got := HTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyBatch)
	want := "No valid records found in the file (Code: IMP002). Every row needs a name and an email; check the header row"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrUnsupportedFormat) {
		t.Error("ErrUnsupportedFormat should be user facing")
	}
	if IsUserFacing(errors.New("random internal error xyz")) {
		t.Error("unknown errors should not be user facing")
	}
}

func TestStoreErr_PassesNotFoundThrough(t *testing.T) {
	if err := storeErr("get lead", ErrNotFound); err != ErrNotFound {
		t.Errorf("storeErr(ErrNotFound) = %v, want ErrNotFound unchanged", err)
	}
	var se *StoreError
	if err := storeErr("get lead", errors.New("boom")); !errors.As(err, &se) || se.Op != "get lead" {
		t.Errorf("storeErr() = %v, want *StoreError", err)
	}
	if storeErr("x", nil) != nil {
		t.Error("storeErr(nil) should be nil")
	}
}
