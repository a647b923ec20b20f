package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSONResponse(rec, http.StatusCreated, map[string]int{"n": 1}); err != nil {
		t.Fatalf("WriteJSONResponse() error = %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Body.String() != `{"n":1}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestWriteJSONResponseEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSONResponse(rec, http.StatusOK, map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected encode error")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("nothing should be written on failure, got %q", rec.Body.String())
	}
}

func TestWriteRawJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	_ = WriteRawJSON(rec, http.StatusNotFound, nil)
	if rec.Code != http.StatusNotFound || rec.Body.String() != "null" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	_ = WriteRawJSON(rec, http.StatusOK, json.RawMessage(`[1,2]`))
	if rec.Body.String() != "[1,2]" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		remote, xff, xrip, want string
	}{
		{"10.0.0.5:5123", "", "", "10.0.0.5"},
		{"10.0.0.5:5123", "203.0.113.7, 10.0.0.1", "", "203.0.113.7"},
		{"10.0.0.5:5123", "", " 198.51.100.2 ", "198.51.100.2"},
		{"[::1]:80", "", "", "::1"},
		{"pipe", "", "", "pipe"},
	}
	for _, tc := range cases {
		if got := GetClientIP(tc.remote, tc.xff, tc.xrip); got != tc.want {
			t.Errorf("GetClientIP(%q, %q, %q) = %q, want %q", tc.remote, tc.xff, tc.xrip, got, tc.want)
		}
	}
}
