package util

import (
	"fmt"
	"os"

	flag "github.com/juju/gnuflag"
)

// CheckError prints err with the usage text and exits. Commands call it
// where the failure means the invocation was wrong.
func CheckError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		flag.Usage()
		os.Exit(1)
	}
}

// CheckErrorNoUsage prints err and exits. For failures where usage
// information would just be noise.
func CheckErrorNoUsage(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
