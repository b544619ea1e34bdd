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

package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
)

// Parser checks one scalar of a value type and returns its canonical form.
type Parser interface {
	Parse(string) (string, error)
}

// IntParser is a parser for integer values.
type IntParser struct{}

// DecimalParser is a parser for decimal values.
type DecimalParser struct{}

// BooleanParser is a parser for boolean values.
type BooleanParser struct{}

// TimeParser is a parser for timestamps.
type TimeParser struct{}

// ListParser accepts the names of the nodes of List.
type ListParser struct {
	List *datamodel.List
}

// StringParser accepts anything.
type StringParser struct{}

// Parse parses an integer string.
func (p IntParser) Parse(field string) (string, error) {
	i, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return "", dspxml.ParsingErrorf("%q is not an integer", field)
	}
	return strconv.FormatInt(i, 10), nil
}

var decimalSyntax = regexp.MustCompile(`^[+-]?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// Parse parses a finite decimal string in plain or exponent notation. The
// value is kept as written.
func (p DecimalParser) Parse(field string) (string, error) {
	if !decimalSyntax.MatchString(field) {
		return "", dspxml.ParsingErrorf("%q is not a decimal", field)
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", dspxml.ParsingErrorf("%q is not a finite decimal", field)
	}
	return field, nil
}

// Parse maps true/false, yes/no and 1/0 to true or false.
func (p BooleanParser) Parse(field string) (string, error) {
	switch strings.ToLower(field) {
	case "true", "yes", "1":
		return "true", nil
	case "false", "no", "0":
		return "false", nil
	}
	return "", dspxml.ParsingErrorf("%q is not a boolean", field)
}

var timestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ](\d{2}:\d{2}:\d{2}(\.\d+)?)(Z|[+-]\d{2}:\d{2})$`)

// Parse checks for YYYY-MM-DDTHH:MM:SS with optional fraction and a zone;
// a blank instead of the T is accepted and replaced.
func (p TimeParser) Parse(field string) (string, error) {
	m := timestamp.FindStringSubmatch(field)
	if m == nil {
		return "", dspxml.ParsingErrorf("%q is not a timestamp of the form YYYY-MM-DDTHH:MM:SS+HH:MM", field)
	}
	return m[1] + "T" + m[2] + m[4], nil
}

// Parse checks that field names a node of the list.
func (p ListParser) Parse(field string) (string, error) {
	if !p.List.HasNode(field) {
		return "", dspxml.ParsingErrorf("%q is not a node of list %s", field, p.List.Name)
	}
	return field, nil
}

// Parse is an identity parser.
func (p StringParser) Parse(field string) (string, error) {
	return field, nil
}

// ParserFor returns the parser for the value type of prop.
func ParserFor(prop *datamodel.Property, dm *datamodel.DataModel) (Parser, error) {
	switch prop.Type.Kind {
	case datamodel.KindInteger:
		return IntParser{}, nil
	case datamodel.KindDecimal:
		return DecimalParser{}, nil
	case datamodel.KindBoolean:
		return BooleanParser{}, nil
	case datamodel.KindTime:
		return TimeParser{}, nil
	case datamodel.KindList:
		l, err := dm.List(prop.ListName)
		if err != nil {
			return nil, err
		}
		return ListParser{List: l}, nil
	}
	return StringParser{}, nil
}
