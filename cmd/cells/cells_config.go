package main

import (
	"fmt"
	"os"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
)

var cellsConfig = &util.Command{
	Run:       runConfig,
	UsageLine: "config",
	Short:     "Display the active configuration",
	Long:      "Prints the active configuration if a .cellsconfig file is present",
	Flags:     setupConfigFlags,
	Nargs:     0,
}

func setupConfigFlags() *flag.FlagSet {
	return flag.NewFlagSet("config", flag.ExitOnError)
}

func runConfig(args []string) int {
	c, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	if c == nil {
		fmt.Fprintf(os.Stdout, "no config active\n")
	} else {
		fmt.Fprintf(os.Stdout, "%s\n\n%s", c.File, c.String())
	}
	return 0
}
