// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("CSRF cookie not set")
	return nil
}

func TestNewCSRFSecureFlag(t *testing.T) {
	for _, secure := range []bool{true, false} {
		handler := NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/api/pages/tree", nil))

		c := csrfCookie(t, rr)
		if c.Secure != secure {
			t.Errorf("cookie Secure: got %v, want %v", c.Secure, secure)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie SameSite: got %v, want StrictMode", c.SameSite)
		}
		if len(c.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(c.Value))
		}
	}
}

func TestCSRF(t *testing.T) {
	handler := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	getRR := httptest.NewRecorder()
	handler.ServeHTTP(getRR, httptest.NewRequest(http.MethodGet, "/admin/api/pages/tree", nil))
	cookie := csrfCookie(t, getRR)

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{name: "safe method without token", method: http.MethodGet, want: http.StatusOK},
		{name: "options without token", method: http.MethodOptions, want: http.StatusOK},
		{name: "post without token", method: http.MethodPost, want: http.StatusForbidden},
		{name: "put with wrong token", method: http.MethodPut, header: "nope", want: http.StatusForbidden},
		{name: "post with token", method: http.MethodPost, header: cookie.Value, want: http.StatusOK},
		{name: "delete with token", method: http.MethodDelete, header: cookie.Value, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/admin/api/pages/order", nil)
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFTokenFromCtx(t *testing.T) {
	var ctxToken string
	handler := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxToken = CSRFTokenFromCtx(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if c := csrfCookie(t, rr); ctxToken != c.Value {
		t.Errorf("context token %q does not match cookie %q", ctxToken, c.Value)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if ctxToken != "existing" {
		t.Errorf("context token: got %q, want existing cookie value", ctxToken)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("a new cookie was issued although one was sent")
	}
}
