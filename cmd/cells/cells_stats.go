package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/storage"
)

var cellsStats = &util.Command{
	Run:       runStats,
	UsageLine: "stats <store>",
	Short:     "Print document and byte counts for a store",
	Long:      "Prints how many documents the store holds and how much they weigh.",
	Flags:     setupStatsFlags,
	Nargs:     1,
}

func setupStatsFlags() *flag.FlagSet {
	return flag.NewFlagSet("stats", flag.ExitOnError)
}

func runStats(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	st, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer st.Close()

	reporter, ok := st.(storage.StatsReporter)
	if !ok {
		util.CheckErrorNoUsage(fmt.Errorf("the %s backend does not report stats", args[0]))
	}

	stats := reporter.Stats()
	fmt.Printf("documents: %s\n", humanize.Comma(int64(stats.Entries)))
	fmt.Printf("size: %s\n", humanize.Bytes(stats.Bytes))
	return 0
}
