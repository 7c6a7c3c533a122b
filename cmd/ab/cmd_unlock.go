package main

import (
	"fmt"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"
)

func (a *app) cmdUnlock(args []string) int {
	flags := flag.NewFlagSet("unlock", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab unlock <resource> [--json]")
		return 1
	}

	resource := flags.Arg(0)
	var result struct {
		Resource string `json:"resource"`
		Released bool   `json:"released"`
	}
	if err := a.call(http.MethodPost, "/api/locks/release", map[string]any{"resource": resource}, &result); err != nil {
		fmt.Fprintf(os.Stderr, "ab: unlock: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(result)
	} else {
		fmt.Printf("unlocked %s\n", resource)
	}
	return 0
}
