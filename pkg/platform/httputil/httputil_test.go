package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "zac/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

func TestStatusFor_LifecycleCodes(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeInvalidTransition:           http.StatusConflict,
		dErrors.CodeConcurrentModification:      http.StatusConflict,
		dErrors.CodeDecisionPreventsTermination: http.StatusConflict,
		dErrors.CodeUnknownEndingReason:         http.StatusUnprocessableEntity,
		dErrors.CodeConfigurationNotFound:       http.StatusNotFound,
		dErrors.CodeUnauthorized:                http.StatusUnauthorized,
		dErrors.CodeForbidden:                   http.StatusForbidden,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

type pingRequest struct {
	Name string `json:"name"`
}

func (p *pingRequest) Validate() error {
	if p.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("decodes and validates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"zaak"}`))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-1")
		if !ok || req.Name != "zaak" {
			t.Fatalf("expected decoded request, got ok=%v req=%+v", ok, req)
		}
	})

	t.Run("validation failure writes error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-2")
		if ok {
			t.Fatal("expected validation failure")
		}
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[pingRequest](w, r, logger, r.Context(), "req-3")
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

type extendBody struct {
	ExtraDays int    `json:"extra_days" validate:"min=1,max=365"`
	Reason    string `json:"reason" validate:"required"`
	Kind      string `json:"kind" validate:"omitempty,oneof=FOLLOWUP SUBJECT"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(extendBody{ExtraDays: 5, Reason: "waiting"}); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}

	err := ValidateStruct(extendBody{ExtraDays: 0, Reason: "waiting"})
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "extra_days must be at least 1") {
		t.Fatalf("expected JSON field name in message, got %q", err.Error())
	}

	err = ValidateStruct(extendBody{ExtraDays: 3, Reason: "x", Kind: "OTHER"})
	if !strings.Contains(err.Error(), "kind must be one of") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
