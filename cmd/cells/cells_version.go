package main

import (
	"fmt"
	"os"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/constants"
)

var cellsVersion = &util.Command{
	Run:       runVersion,
	UsageLine: "version",
	Short:     "Print the cells wire version",
	Long:      "Prints the wire format version this binary speaks. Stores and clients refuse to interoperate across versions.",
	Flags:     setupVersionFlags,
	Nargs:     0,
}

func setupVersionFlags() *flag.FlagSet {
	return flag.NewFlagSet("version", flag.ExitOnError)
}

func runVersion(args []string) int {
	fmt.Fprintf(os.Stdout, "format version: %v\n", constants.Version)
	return 0
}
