package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdLock(args []string) int {
	flags := flag.NewFlagSet("lock", flag.ContinueOnError)
	agent := flags.String("agent", "", "requesting agent ID")
	ttlSec := flags.Int("ttl", 3600, "lock TTL in seconds")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab lock <resource> [--agent ID] [--ttl N] [--json]")
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: %v\n", err)
		return 1
	}

	resource := flags.Arg(0)
	var lock model.Lock
	err = a.call(http.MethodPost, "/api/locks", map[string]any{
		"resource":    resource,
		"holder":      agentID,
		"ttl_seconds": *ttlSec,
	}, &lock)
	if err != nil {
		if isConflict(err) {
			if *jsonOut {
				printJSON(map[string]any{"granted": false, "reason": err.Error()})
			} else {
				fmt.Printf("DENIED: %s\n", err)
			}
			return 2
		}
		fmt.Fprintf(os.Stderr, "ab: lock: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]any{"granted": true, "lock": lock})
	} else {
		fmt.Printf("locked %s until %s (ttl=%ds)\n",
			resource, lock.ExpiresAt.Local().Format(time.Kitchen), *ttlSec)
	}
	return 0
}
