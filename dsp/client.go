// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package dsp is a minimal client for the DSP API: it logs in, fetches the
// metadata of a project's resources and logs out again.
package dsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

// ClientOption is a functional option type for Client.
type ClientOption func(c *Client)

// OptClientHTTP sets the http.Client used for requests.
func OptClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// OptClientLogger sets the logger.
func OptClientLogger(l dspxml.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// Client talks to one DSP server.
type Client struct {
	base  string
	hc    *http.Client
	log   dspxml.Logger
	token string
}

// NewClient creates a client for server, a host name (https is assumed) or a
// URL.
func NewClient(server string, opts ...ClientOption) *Client {
	base := strings.TrimRight(server, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	c := &Client{
		base: base,
		hc:   &http.Client{Timeout: 30 * time.Second},
		log:  dspxml.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials reads EMAIL and PASSWORD from the environment after loading a
// .env file from the working directory, if there is one.
func Credentials() (email, password string, err error) {
	_ = godotenv.Load()
	email, password = os.Getenv("EMAIL"), os.Getenv("PASSWORD")
	if email == "" || password == "" {
		return "", "", dspxml.InputErrorf("EMAIL and PASSWORD must be set to fetch resources from the server")
	}
	return email, password, nil
}

// Login authenticates and keeps the token for later requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return errors.Wrap(err, "encoding credentials")
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/authentication", bytes.NewReader(body), &resp); err != nil {
		return errors.Wrap(err, "logging in")
	}
	if resp.Token == "" {
		return dspxml.APIError(nil, "login response has no token")
	}
	c.token = resp.Token
	c.log.Debugf("logged in to %s as %s", c.base, email)
	return nil
}

// Logout invalidates the token. It does nothing when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/v2/authentication", nil, nil)
	c.token = ""
	return errors.Wrap(err, "logging out")
}

// ResourceMetadata describes one resource which exists on the server.
type ResourceMetadata struct {
	ResourceClassIRI string `json:"resourceClassIri"`
	ResourceIRI      string `json:"resourceIri"`
	Label            string `json:"label"`
	ArkURL           string `json:"arkUrl"`
}

// ClassName is the local name of the resource class, e.g. "Book" for
// http://api.example.org/ontology/0820/demo/v2#Book.
func (m ResourceMetadata) ClassName() string {
	s := m.ResourceClassIRI
	if i := strings.LastIndexAny(s, "#/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Resources returns the metadata of every resource of the project.
func (c *Client) Resources(ctx context.Context, shortcode string) ([]ResourceMetadata, error) {
	var res []ResourceMetadata
	path := fmt.Sprintf("/v2/metadata/projects/%s/resources?format=JSON", shortcode)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, errors.Wrap(err, "fetching resource metadata")
	}
	c.log.Debugf("fetched %d resources of project %s", len(res), shortcode)
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return dspxml.APIError(err, "building request")
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return dspxml.APIError(err, method+" "+path)
	}
	defer resp.Body.Close()
	if resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dspxml.APIError(nil, fmt.Sprintf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dspxml.APIError(err, "decoding response of "+path)
	}
	return nil
}
