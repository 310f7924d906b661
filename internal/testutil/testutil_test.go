package testutil

import (
	"io"
	"net/http"
	"testing"
)

// recordingTB captures failures instead of failing the enclosing test.
type recordingTB struct {
	testing.TB
	errors int
	fatals int
}

func (r *recordingTB) Helper()                       {}
func (r *recordingTB) Errorf(string, ...interface{}) { r.errors++ }
func (r *recordingTB) Fatalf(string, ...interface{}) { r.fatals++ }

func TestAssertStatusCode(t *testing.T) {
	rec := &recordingTB{TB: t}
	AssertStatusCode(rec, http.StatusOK, http.StatusOK)
	if rec.errors != 0 {
		t.Errorf("matching codes reported %d errors", rec.errors)
	}
	AssertStatusCode(rec, http.StatusOK, http.StatusBadRequest)
	if rec.errors != 1 {
		t.Errorf("mismatched codes reported %d errors, want 1", rec.errors)
	}
}

func TestAssertNoError(t *testing.T) {
	rec := &recordingTB{TB: t}
	AssertNoError(rec, nil)
	AssertNoError(rec, io.EOF)
	if rec.fatals != 1 {
		t.Errorf("fatals = %d, want 1", rec.fatals)
	}
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/api/config", map[string]int{"inference_threshold": 4})
	if req.Method != http.MethodPost || req.URL.Path != "/api/config" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"inference_threshold":4}` {
		t.Errorf("body = %s", body)
	}

	raw := NewJSONRequest(t, http.MethodPost, "/api/config", "{bad")
	body, _ = io.ReadAll(raw.Body)
	if string(body) != "{bad" {
		t.Errorf("raw body = %s", body)
	}
}

func TestServeAndDecode(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"empty"}`)
	})
	rec := Serve(h, NewTestRequest(http.MethodGet, "/api/status"))
	AssertStatusCode(t, rec.Code, http.StatusOK)

	var got struct{ Status string }
	DecodeJSON(t, rec, &got)
	if got.Status != "empty" {
		t.Errorf("status = %q", got.Status)
	}
}
