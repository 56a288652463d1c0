package main

import (
	"fmt"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/entity"
)

var cellsID = &util.Command{
	Run:       runID,
	UsageLine: "id [<name>]",
	Short:     "Mint an entity id",
	Long:      "Prints a new entity id for 'cells put'. With a name the id is derived from it and stable; without one it is fresh and random.",
	Flags:     setupIDFlags,
	Nargs:     0,
}

func setupIDFlags() *flag.FlagSet {
	return flag.NewFlagSet("id", flag.ExitOnError)
}

func runID(args []string) int {
	if len(args) == 0 {
		fmt.Println(entity.FreshID())
	} else {
		fmt.Println(entity.DeriveIDFromString(args[0]))
	}
	return 0
}
