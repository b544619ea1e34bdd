package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/dspxml/scaffold"
	"github.com/spf13/cobra"
)

// HCLMain is wrapped by NewHCLCommand and only exported for testing purposes.
var HCLMain *scaffold.Main

// NewHCLCommand returns a new cobra command wrapping HCLMain.
func NewHCLCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	HCLMain = scaffold.NewMain()
	hclCommand := &cobra.Command{
		Use:   "hcl",
		Short: "hcl - draft a parse-info file for a folder of workbooks",
		Long: `Looks for exactly one data model (.json) and at least one workbook (.xlsx)
in --folder and writes a parse-info file with one sheet block per sheet.
Each sheet is mapped to the resource class it most likely holds, and headers
which equal a property name are assigned to that property.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			HCLMain.Log = newLogger(stderr, HCLMain.Verbose)
			return HCLMain.Run()
		},
	}
	flags := hclCommand.Flags()
	err := commandeer.Flags(flags, HCLMain)
	if err != nil {
		panic(err)
	}
	return hclCommand
}

func init() {
	subcommandFns["hcl"] = NewHCLCommand
}
