package main

import (
	"os"
	"os/signal"
	"syscall"

	flag "github.com/juju/gnuflag"

	"github.com/commontoolsinc/labs-sub005/cmd/cells/util"
	"github.com/commontoolsinc/labs-sub005/config"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

var servePort int

var cellsServe = &util.Command{
	Run:       runServe,
	UsageLine: "serve [options] <store>",
	Short:     "Serve a store over HTTP",
	Long:      "Serves the store to 'cells pull' and remote replicas until interrupted.",
	Flags:     setupServeFlags,
	Nargs:     1,
}

func setupServeFlags() *flag.FlagSet {
	serveFlagSet := flag.NewFlagSet("serve", flag.ExitOnError)
	serveFlagSet.IntVar(&servePort, "port", 8000, "port to listen on")
	verbose.RegisterVerboseFlags(serveFlagSet)
	return serveFlagSet
}

func runServe(args []string) int {
	cfg, err := config.LoadConfig(".")
	util.CheckErrorNoUsage(err)
	st, err := cfg.GetStore(args[0])
	util.CheckErrorNoUsage(err)
	defer st.Close()

	server := storage.NewServer(st, servePort)

	// Shutdown gracefully so held connections drain
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)
	go func() {
		<-c
		server.Stop()
	}()

	server.Run()
	return 0
}
