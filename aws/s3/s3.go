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

// Package s3 makes workbooks and data models addressable as
// s3://bucket/key. Importing it registers the scheme with dspxml.NewOpener.
package s3

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

func init() {
	dspxml.RegisterScheme("s3", func(location string) (dspxml.OpenStringer, error) {
		return NewOpener(location)
	})
}

// OpenerOption configures an Opener.
type OpenerOption func(o *Opener)

// OptOpenerRegion sets the AWS region. The default is $AWS_REGION, or
// us-east-1.
func OptOpenerRegion(region string) OpenerOption {
	return func(o *Opener) {
		o.region = region
	}
}

// OptOpenerClient sets the S3 client instead of creating one from a new
// session.
func OptOpenerClient(client s3iface.S3API) OpenerOption {
	return func(o *Opener) {
		o.client = client
	}
}

// Opener reads one S3 object.
type Opener struct {
	bucket string
	key    string
	region string

	mu     sync.Mutex
	client s3iface.S3API
}

// NewOpener parses an s3://bucket/key location.
func NewOpener(location string, opts ...OpenerOption) (*Opener, error) {
	rest := strings.TrimPrefix(location, "s3://")
	if rest == location {
		return nil, dspxml.InputErrorf("%q is not an s3:// location", location)
	}
	i := strings.Index(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return nil, dspxml.InputErrorf("s3 location %q needs a bucket and a key", location)
	}
	o := &Opener{
		bucket: rest[:i],
		key:    rest[i+1:],
		region: os.Getenv("AWS_REGION"),
	}
	if o.region == "" {
		o.region = "us-east-1"
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Opener) getClient() (s3iface.S3API, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		return o.client, nil
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(o.region)},
	)
	if err != nil {
		return nil, dspxml.APIError(err, "creating aws session")
	}
	o.client = s3.New(sess)
	return o.client, nil
}

// Open fetches the object.
func (o *Opener) Open() (io.ReadCloser, error) {
	client, err := o.getClient()
	if err != nil {
		return nil, err
	}
	result, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, errors.Wrapf(dspxml.APIError(err, "fetching object"), "fetching %v", o)
	}
	return result.Body, nil
}

func (o *Opener) String() string {
	return "s3://" + o.bucket + "/" + o.key
}
