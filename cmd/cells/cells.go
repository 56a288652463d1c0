package main

import (
	"log"
	"os"

	"github.com/attic-labs/kingpin"
	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

var commands = []*util.Command{
	cellsConfig,
	cellsGet,
	cellsID,
	cellsPull,
	cellsPut,
	cellsQuery,
	cellsServe,
	cellsStats,
	cellsVersion,
}

func main() {
	// allow short (-h) help
	kingpin.EnableFileExpansion = false
	kingpin.CommandLine.HelpFlag.Short('h')
	cells := kingpin.New("cells", "Cells is a tool for working with replicated cell documents.")

	// global flags
	verboseVal := cells.Flag("verbose", "show more").Short('v').Bool()
	quietVal := cells.Flag("quiet", "show less").Short('q').Bool()

	// set up docs for the gnuflag commands
	addCellsDocs(cells)

	kingpin.MustParse(cells.Parse(os.Args[1:]))

	// apply global flags
	verbose.SetVerbose(*verboseVal)
	verbose.SetQuiet(*quietVal)

	flag.Parse(false)
	args := flag.Args()

	// Don't prefix log messages with timestamp when running interactively
	log.SetFlags(0)

	for _, cmd := range commands {
		if cmd.Name() == args[0] {
			flags := cmd.Flags()
			flags.Usage = cmd.Usage

			flags.Parse(true, args[1:])
			args = flags.Args()
			if cmd.Nargs != 0 && len(args) < cmd.Nargs {
				cmd.Usage()
			}
			exitCode := cmd.Run(args)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return
		}
	}
}

// addStoreArg adds a "store" arg to the passed command
func addStoreArg(cmd *kingpin.CmdClause) (arg *string) {
	return cmd.Arg("store", "a store spec or .cellsconfig alias").Required().String()
}

// addCellsDocs adds documentation (docs only, not commands) for the gnuflag commands.
func addCellsDocs(cells *kingpin.Application) {
	// config
	cells.Command("config", "Prints the active configuration if a .cellsconfig file is present")

	// get
	get := cells.Command("get", `Prints the current revision of a document
Store specs are mem, ldb:<path>, http(s)://<host> or aws:<table>; a bare word is looked up as an alias in .cellsconfig first.
`)
	get.Flag("raw", "print the stored bytes without re-indenting").Bool()
	addStoreArg(get)
	get.Arg("id", "an entity id").Required().String()

	// id
	id := cells.Command("id", `Mints an entity id
With a name the id is derived from it and stable; without one it is fresh and random.
`)
	id.Arg("name", "derive the id from this string").String()

	// pull
	pull := cells.Command("pull", `Copies document revisions from one store into another
With --resolve the named document is materialized locally instead, pulling whatever each pass finds missing until the traversal completes or the pass budget runs out.
`)
	pull.Flag("resolve", "materialize the document, pulling missing dependencies between passes").Bool()
	pull.Flag("path", "pointer to the subtree to materialize, with --resolve").String()
	pull.Flag("schema", "JSON schema to materialize under, inline or @file, with --resolve").String()
	pull.Flag("max-passes", "give up resolving after this many passes").Default("8").Int()
	pull.Flag("stdout-is-tty", "value of 1 forces tty output, 0 forces non-tty output (provided for use by other programs)").Default("-1").Int()
	pull.Arg("dest", "the store to copy into").Required().String()
	pull.Arg("src", "the store to copy from").Required().String()
	pull.Arg("id", "entity ids to copy").Required().Strings()

	// put
	put := cells.Command("put", `Writes the next revision of a document
The value is read from the argument, or from stdin when the argument is omitted.
`)
	put.Flag("retract", "write a revision with no value").Bool()
	addStoreArg(put)
	put.Arg("id", "an entity id").Required().String()
	put.Arg("json", "the value to write").String()

	// query
	query := cells.Command("query", `Materializes a document and prints the result
Links are resolved through the store; subtrees that fail their schema come out undefined.
`)
	query.Flag("path", "pointer to the subtree to materialize").String()
	query.Flag("schema", "JSON schema to materialize under, inline or @file").String()
	query.Flag("ledger", "also print the documents and selectors the query depended on").Bool()
	addStoreArg(query)
	query.Arg("id", "an entity id").Required().String()

	// serve
	serve := cells.Command("serve", "Serves a store over HTTP")
	serve.Flag("port", "port to listen on").Default("8000").Int()
	addStoreArg(serve)

	// stats
	stats := cells.Command("stats", "Prints document and byte counts for a store")
	addStoreArg(stats)

	// version
	cells.Command("version", "Print the cells wire version")
}
