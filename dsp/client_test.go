package dsp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/dsp"
	"github.com/pilosa/dspxml/test"
)

func newServer(t *testing.T, loggedOut *bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/authentication", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Errorf("decoding credentials: %v", err)
			}
			if creds["email"] != "root@example.com" || creds["password"] != "test" {
				http.Error(w, "bad credentials", http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
		case http.MethodDelete:
			if r.Header.Get("Authorization") != "Bearer tok" {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}
			*loggedOut = true
		}
	})
	mux.HandleFunc("/v2/metadata/projects/0820/resources", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Query().Get("format") != "JSON" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[
  {"resourceClassIri": "http://0.0.0.0:3333/ontology/0820/demo/v2#Person", "resourceIri": "http://rdfh.ch/0820/p1", "label": "Ann", "arkUrl": "ark:/72163/1/0820/p1"}
]`))
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	var loggedOut bool
	srv := newServer(t, &loggedOut)
	defer srv.Close()
	ctx := context.Background()

	c := dsp.NewClient(srv.URL)
	_, err := c.Resources(ctx, "0820")
	test.ErrKind(t, err, dspxml.KindAPI, "without login")

	test.ErrKind(t, c.Login(ctx, "root@example.com", "wrong"), dspxml.KindAPI, "bad login")
	test.ErrNil(t, c.Login(ctx, "root@example.com", "test"), "login")
	res, err := c.Resources(ctx, "0820")
	test.ErrNil(t, err, "resources")
	test.MustBe(t, len(res), 1)
	test.MustBe(t, res[0].ClassName(), "Person")
	test.MustBe(t, res[0].ResourceIRI, "http://rdfh.ch/0820/p1")
	test.MustBe(t, res[0].Label, "Ann")

	test.ErrNil(t, c.Logout(ctx), "logout")
	test.MustBe(t, loggedOut, true)
	test.ErrNil(t, c.Logout(ctx), "second logout")
}

func TestCredentials(t *testing.T) {
	t.Setenv("EMAIL", "")
	t.Setenv("PASSWORD", "")
	_, _, err := dsp.Credentials()
	test.ErrKind(t, err, dspxml.KindInput, "missing")

	t.Setenv("EMAIL", "root@example.com")
	t.Setenv("PASSWORD", "test")
	email, pw, err := dsp.Credentials()
	test.ErrNil(t, err, "set")
	test.MustBe(t, email+":"+pw, "root@example.com:test")
}
