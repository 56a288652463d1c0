package main

import (
	"fmt"
	"os"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/replica"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

var (
	queryPath   string
	querySchema string
	queryLedger bool
)

var cellsQuery = &util.Command{
	Run:       runQuery,
	UsageLine: "query [options] <store> <id>",
	Short:     "Materialize a document and print the result",
	Long:      "Materializes the document at <id> and prints the result. --path narrows the read to a subtree; --schema filters it. Links are resolved through the store; subtrees that fail the schema come out undefined.",
	Flags:     setupQueryFlags,
	Nargs:     2,
}

func setupQueryFlags() *flag.FlagSet {
	queryFlagSet := flag.NewFlagSet("query", flag.ExitOnError)
	queryFlagSet.StringVar(&queryPath, "path", "", "pointer to the subtree to materialize, e.g. /items/0")
	queryFlagSet.StringVar(&querySchema, "schema", "", "JSON schema to materialize under, inline or @file")
	queryFlagSet.BoolVar(&queryLedger, "ledger", false, "also print the documents and selectors the query depended on")
	verbose.RegisterVerboseFlags(queryFlagSet)
	return queryFlagSet
}

func runQuery(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	st, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer st.Close()

	id := args[1]
	if !entity.ValidID(id) {
		util.CheckError(fmt.Errorf("invalid entity id %q", id))
	}

	sel := parseSelector(queryPath, querySchema)
	r := replica.New(st)
	out, led := r.Query(entity.JSONAt(id), sel)

	if missing := r.Missing(); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "%d documents were not in the store; 'cells pull --resolve' can fetch them:\n", len(missing))
		for _, addr := range missing {
			fmt.Fprintf(os.Stderr, "  %s\n", addr.Key())
		}
	}

	if out == nil {
		fmt.Fprintln(os.Stderr, "result is undefined")
		return 1
	}
	printValue(os.Stdout, out)

	if queryLedger {
		fmt.Println("reads:")
		for _, key := range led.Keys() {
			fmt.Printf("  %s\n", key)
			for _, s := range led.Selectors(key) {
				fmt.Printf("    %s\n", s)
			}
		}
	}
	return 0
}
