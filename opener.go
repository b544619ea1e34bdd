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

package dspxml

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Opener is an interface to a resource which can be repeatedly Opened (and the
// returned ReadCloser can be subsequently read). Each call to Open should
// return a ReadCloser which reads from the beginning of the resource.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// OpenStringer is an Opener which also has a String method which should return
// the name of the resource being opened (e.g. a file or URL).
type OpenStringer interface {
	fmt.Stringer
	Opener
}

// OpenerFunc builds an OpenStringer for a location with a registered scheme.
type OpenerFunc func(location string) (OpenStringer, error)

var (
	schemeMu sync.RWMutex
	schemes  = map[string]OpenerFunc{}
)

// RegisterScheme makes locations of the form "<scheme>://..." resolvable by
// NewOpener. Packages providing remote storage call it from init.
func RegisterScheme(scheme string, fn OpenerFunc) {
	schemeMu.Lock()
	defer schemeMu.Unlock()
	schemes[scheme] = fn
}

// NewOpener turns a location into an OpenStringer. Locations with a
// registered scheme are handed to that scheme; http(s) URLs are fetched with
// a GET; anything else is a file path, resolved against dir when relative.
func NewOpener(location, dir string) (OpenStringer, error) {
	if i := strings.Index(location, "://"); i > 0 {
		scheme := location[:i]
		schemeMu.RLock()
		fn, ok := schemes[scheme]
		schemeMu.RUnlock()
		if ok {
			return fn(location)
		}
		if scheme == "http" || scheme == "https" {
			return urlOpener(location), nil
		}
		return nil, InputErrorf("unsupported location scheme %q in %s", scheme, location)
	}
	if !filepath.IsAbs(location) && dir != "" {
		location = filepath.Join(dir, location)
	}
	return fileOpener(location), nil
}

// urlOpener fetches a URL over http(s).
type urlOpener string

func (u urlOpener) Open() (io.ReadCloser, error) {
	resp, err := http.Get(string(u))
	if err != nil {
		return nil, APIError(err, "getting "+string(u)+" via http")
	}
	if resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, APIError(nil, fmt.Sprintf("getting %s: %s", u, resp.Status))
	}
	return resp.Body, nil
}

func (u urlOpener) String() string {
	return string(u)
}

// fileOpener opens a local file.
type fileOpener string

func (f fileOpener) Open() (io.ReadCloser, error) {
	content, err := os.Open(string(f))
	if err != nil {
		return nil, IOError(err, "opening file")
	}
	return content, nil
}

func (f fileOpener) String() string {
	return string(f)
}

// ReadAll opens o and reads it completely.
func ReadAll(o Opener) ([]byte, error) {
	rc, err := o.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", o)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, IOError(err, fmt.Sprintf("reading %v", o))
	}
	return data, nil
}
