package main

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/bridge"
)

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var status bridge.Status
	if err := a.call(http.MethodGet, "/api/status", nil, &status); err != nil {
		fmt.Fprintf(os.Stderr, "ab: status: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(status)
		return 0
	}

	fmt.Printf("bridge at %s\n", a.baseURL)

	fmt.Printf("\nmessages: %d total\n", status.TotalMessages)
	if len(status.PendingMessages) == 0 {
		fmt.Println("  no pending messages")
	} else {
		recipients := make([]string, 0, len(status.PendingMessages))
		for r := range status.PendingMessages {
			recipients = append(recipients, r)
		}
		sort.Strings(recipients)
		for _, r := range recipients {
			fmt.Printf("  %s: %d pending\n", r, status.PendingMessages[r])
		}
	}

	fmt.Printf("\nlocks: %d active\n", len(status.ActiveLocks))
	for _, l := range status.ActiveLocks {
		fmt.Printf("  %s held by %s until %s\n",
			l.Resource, l.Holder, l.ExpiresAt.Local().Format(time.Kitchen))
	}

	total := 0
	for _, n := range status.Contracts {
		total += n
	}
	fmt.Printf("\ncontracts: %d\n", total)
	for s, n := range status.Contracts {
		fmt.Printf("  %s: %d\n", s, n)
	}

	fmt.Printf("\nevents: %d published, %d subscriber(s)\n",
		status.EventsPublished, status.Subscribers)
	return 0
}
