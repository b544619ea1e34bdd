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

package cmd

import (
	"io"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/dspxml/convert"
	"github.com/spf13/cobra"
)

// XMLMain is wrapped by NewXMLCommand and only exported for testing purposes.
var XMLMain *convert.Main

// NewXMLCommand returns a new cobra command wrapping XMLMain.
func NewXMLCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	XMLMain = convert.NewMain()
	xmlCommand := &cobra.Command{
		Use:   "xml",
		Short: "xml - convert the sheets described by a parse-info file into DSP XML",
		Long: `Reads the parse-info file given with --transform, loads its data model
and workbooks, runs the transformations of every sheet and writes one XML
file per resource class. Relative paths in the parse-info are resolved
against its directory, which is also where the XML files are written unless
--out is given.

Existing resources can be referenced with update_with_server: their IRIs
come from an id2iri file (--id2iri, --id2iri-resource) or from a DSP server
(--server, with EMAIL and PASSWORD in the environment or a .env file).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			XMLMain.Log = newLogger(stderr, XMLMain.Verbose)
			if err := XMLMain.Run(); err != nil {
				return err
			}
			XMLMain.Log.Printf("Done: %v", time.Since(start))
			return nil
		},
	}
	flags := xmlCommand.Flags()
	err := commandeer.Flags(flags, XMLMain)
	if err != nil {
		panic(err)
	}
	return xmlCommand
}

func init() {
	subcommandFns["xml"] = NewXMLCommand
}
