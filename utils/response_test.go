package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendSuccessResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendSuccessResponse(rec, "Settings saved", map[string]string{"mode": "invoice"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error decoding body: %v", err)
	}
	if resp.Status != "ok" || resp.Message != "Settings saved" {
		t.Errorf("envelope = %+v, want status ok with the message set", resp)
	}
	if resp.Data == nil {
		t.Error("data missing from the envelope")
	}
}

func TestSendErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendErrorResponse(rec, http.StatusUnprocessableEntity, "salutation is required for DE")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error decoding body: %v", err)
	}
	if resp.Status != "error" || resp.Message != "salutation is required for DE" {
		t.Errorf("envelope = %+v, want status error with the message set", resp)
	}
}
