package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdRenew(args []string) int {
	flags := flag.NewFlagSet("renew", flag.ContinueOnError)
	ttlSec := flags.Int("ttl", 3600, "new TTL in seconds, from now")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab renew <resource> [--ttl N] [--json]")
		return 1
	}

	resource := flags.Arg(0)
	var lock model.Lock
	err := a.call(http.MethodPost, "/api/locks/renew", map[string]any{
		"resource":    resource,
		"ttl_seconds": *ttlSec,
	}, &lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: renew: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(lock)
	} else {
		fmt.Printf("renewed %s until %s\n", resource, lock.ExpiresAt.Local().Format(time.Kitchen))
	}
	return 0
}
