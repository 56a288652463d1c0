package main

import (
	"fmt"
	"os"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

var getRaw bool

var cellsGet = &util.Command{
	Run:       runGet,
	UsageLine: "get [options] <store> <id>",
	Short:     "Print the current revision of a document",
	Long:      "Prints the stored value of the document at <id>. Store specs are mem, ldb:<path>, http(s)://<host> or aws:<table>; a bare word is looked up as an alias in .cellsconfig first.",
	Flags:     setupGetFlags,
	Nargs:     2,
}

func setupGetFlags() *flag.FlagSet {
	getFlagSet := flag.NewFlagSet("get", flag.ExitOnError)
	getFlagSet.BoolVar(&getRaw, "raw", false, "print the stored bytes without re-indenting")
	verbose.RegisterVerboseFlags(getFlagSet)
	return getFlagSet
}

func runGet(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	st, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer st.Close()

	id := args[1]
	if !entity.ValidID(id) {
		util.CheckError(fmt.Errorf("invalid entity id %q", id))
	}

	rev := st.Get(entity.JSONAt(id))
	if rev.IsZero() {
		util.CheckErrorNoUsage(fmt.Errorf("no document at %s", id))
	}
	if rev.IsRetraction() {
		util.CheckErrorNoUsage(fmt.Errorf("%s is retracted as of version %s", id, rev.Version))
	}

	verbose.Log("version %s", rev.Version)
	if getRaw {
		os.Stdout.Write(rev.Value.Encode())
		fmt.Println()
	} else {
		printValue(os.Stdout, rev.Value)
	}
	return 0
}
