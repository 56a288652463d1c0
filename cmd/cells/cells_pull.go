package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	flag "github.com/juju/gnuflag"
	"github.com/mattn/go-isatty"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/replica"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/util/status"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

var (
	pullResolve     bool
	pullPath        string
	pullSchema      string
	pullMaxPasses   int
	pullStdoutIsTty int
)

var cellsPull = &util.Command{
	Run:       runPull,
	UsageLine: "pull [options] <dest> <src> <id>...",
	Short:     "Copy document revisions between stores",
	Long:      "Copies the named revisions from <src> into <dest>. With --resolve the one named document is materialized against <dest>, pulling whatever each pass finds missing from <src> until the traversal completes or the pass budget runs out; the result is printed like 'cells query'.",
	Flags:     setupPullFlags,
	Nargs:     3,
}

func setupPullFlags() *flag.FlagSet {
	pullFlagSet := flag.NewFlagSet("pull", flag.ExitOnError)
	pullFlagSet.BoolVar(&pullResolve, "resolve", false, "materialize the document, pulling missing dependencies between passes")
	pullFlagSet.StringVar(&pullPath, "path", "", "pointer to the subtree to materialize, with --resolve")
	pullFlagSet.StringVar(&pullSchema, "schema", "", "JSON schema to materialize under, inline or @file, with --resolve")
	pullFlagSet.IntVar(&pullMaxPasses, "max-passes", 8, "give up resolving after this many passes")
	pullFlagSet.IntVar(&pullStdoutIsTty, "stdout-is-tty", -1, "value of 1 forces tty output, 0 forces non-tty output (provided for use by other programs)")
	verbose.RegisterVerboseFlags(pullFlagSet)
	return pullFlagSet
}

func runPull(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	dest, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer dest.Close()
	src, err := cfg.GetStore(args[1])
	util.CheckErrorNoUsage(err)
	defer src.Close()

	useStatus := pullStdoutIsTty == 1
	if pullStdoutIsTty < 0 {
		useStatus = isatty.IsTerminal(os.Stdout.Fd())
	}
	status.Enable(useStatus)

	ids := args[2:]
	addrs := make([]entity.Address, len(ids))
	for i, id := range ids {
		if !entity.ValidID(id) {
			util.CheckError(fmt.Errorf("invalid entity id %q", id))
		}
		addrs[i] = entity.JSONAt(id)
	}

	r := replica.New(dest)
	if pullResolve {
		return runResolve(r, src, addrs)
	}

	pulled := r.Pull(src, addrs, func(done, total int, bytes uint64) {
		status.Printf("%d of %d documents, %s...", done, total, humanize.Bytes(bytes))
	})
	status.Done()
	if pulled < len(addrs) {
		fmt.Fprintf(os.Stderr, "%d of %d documents are not on the source\n", len(addrs)-pulled, len(addrs))
		return 1
	}
	fmt.Printf("pulled %d documents\n", pulled)
	return 0
}

func runResolve(r *replica.Replica, src storage.Store, addrs []entity.Address) int {
	if len(addrs) != 1 {
		util.CheckError(fmt.Errorf("--resolve takes exactly one id"))
	}
	if pullMaxPasses < 1 {
		util.CheckError(fmt.Errorf("--max-passes must be positive"))
	}

	out, err := r.Resolve(src, addrs[0], parseSelector(pullPath, pullSchema), pullMaxPasses)
	if err != nil && out != nil {
		printValue(os.Stdout, out)
	}
	util.CheckErrorNoUsage(err)

	if out == nil {
		fmt.Fprintln(os.Stderr, "result is undefined")
		return 1
	}
	printValue(os.Stdout, out)
	return 0
}
