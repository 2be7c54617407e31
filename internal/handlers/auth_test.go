package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"controlling_fermenter/internal/service"
)

func authRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSignUp(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantKey  string
		wantVal  any
	}{
		{"created", `{"username":"brewer","password":"pw"}`, nil, http.StatusOK, "id", float64(42)},
		{"missing password", `{"username":"brewer"}`, nil, http.StatusBadRequest, "", nil},
		{"wrong type", `{"username":1,"password":"pw"}`, nil, http.StatusBadRequest, "", nil},
		{
			"username taken",
			`{"username":"brewer","password":"pw"}`,
			fmt.Errorf("insert user %q: %w", "brewer", service.ErrUsernameTaken),
			http.StatusConflict, "error", service.ErrUsernameTaken.Error(),
		},
		{"other failure", `{"username":"brewer","password":"pw"}`, errors.New("password is empty"), http.StatusBadRequest, "error", "password is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 42, signUpErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authRequest("/auth/sign-up", tc.body))
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantKey == "" {
				if auth.lastSignUpUsername != "" {
					t.Fatalf("SignUp called for a rejected body")
				}
				return
			}
			var out map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out[tc.wantKey] != tc.wantVal {
				t.Fatalf("%s = %v, want %v", tc.wantKey, out[tc.wantKey], tc.wantVal)
			}
			if auth.lastSignUpUsername != "brewer" || auth.lastSignUpPassword != "pw" {
				t.Fatalf("SignUp got (%q, %q)", auth.lastSignUpUsername, auth.lastSignUpPassword)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		err       error
		wantCode  int
		wantToken string
	}{
		{"issued", `{"username":"brewer","password":"pw"}`, nil, http.StatusOK, "tok123"},
		{"bad body", `{"username":1}`, nil, http.StatusBadRequest, ""},
		{"wrong password", `{"username":"brewer","password":"pw"}`, service.ErrInvalidPassword, http.StatusUnauthorized, ""},
		{"unknown user", `{"username":"brewer","password":"pw"}`, service.ErrUserNotFound, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{genTokenToken: "tok123", genTokenErr: tc.err}
			r := newTestRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authRequest("/auth/sign-in", tc.body))
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			var out map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out["token"] != tc.wantToken {
				t.Fatalf("token = %q, want %q", out["token"], tc.wantToken)
			}
			if tc.wantCode == http.StatusUnauthorized && out["error"] != "invalid credentials" {
				t.Fatalf("error = %q, want generic credentials message", out["error"])
			}
			if tc.wantCode != http.StatusBadRequest && auth.lastGenUsername != "brewer" {
				t.Fatalf("GenerateToken got username %q", auth.lastGenUsername)
			}
		})
	}
}
