package main

import (
	"fmt"
	"io/ioutil"
	"os"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/replica"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

var putRetract bool

var cellsPut = &util.Command{
	Run:       runPut,
	UsageLine: "put [options] <store> <id> [<json>]",
	Short:     "Write the next revision of a document",
	Long:      "Writes the next revision of the document at <id>. The value is read from the argument, or from stdin when the argument is omitted. --retract writes a revision with no value. The new version is printed on success.",
	Flags:     setupPutFlags,
	Nargs:     2,
}

func setupPutFlags() *flag.FlagSet {
	putFlagSet := flag.NewFlagSet("put", flag.ExitOnError)
	putFlagSet.BoolVar(&putRetract, "retract", false, "write a revision with no value")
	verbose.RegisterVerboseFlags(putFlagSet)
	return putFlagSet
}

func runPut(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	st, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer st.Close()

	id := args[1]
	if !entity.ValidID(id) {
		util.CheckError(fmt.Errorf("invalid entity id %q; mint one with 'cells id'", id))
	}

	var v *value.Node
	if putRetract {
		if len(args) > 2 {
			util.CheckError(fmt.Errorf("--retract does not take a value"))
		}
	} else {
		var data []byte
		if len(args) > 2 {
			data = []byte(args[2])
		} else {
			data, err = ioutil.ReadAll(os.Stdin)
			util.CheckErrorNoUsage(err)
		}
		v, err = value.Decode(data)
		util.CheckErrorNoUsage(err)
	}

	rev := replica.New(st).Put(entity.JSONAt(id), v)
	verbose.Log("wrote %s", entity.JSONAt(id).Key())
	fmt.Println(rev.Version)
	return 0
}
