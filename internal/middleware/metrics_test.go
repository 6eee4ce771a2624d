package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrapMethodsDispatchesByMethod(t *testing.T) {
	h := WrapMethods("test", map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("get"))
		},
		http.MethodPost: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != "get" {
		t.Errorf("GET: status = %d body = %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusAccepted {
		t.Errorf("POST: status = %d, want 202", w.Code)
	}
}

func TestWrapMethodsRejectsUnknownMethod(t *testing.T) {
	h := WrapMethods("test", map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {},
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestResponseWriterCapturesImplicitOK(t *testing.T) {
	h := WrapHandler("test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}
