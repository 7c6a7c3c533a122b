package main

import (
	"fmt"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"
)

func (a *app) cmdAck(args []string) int {
	flags := flag.NewFlagSet("ack", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab ack <message-id>... [--json]")
		return 1
	}

	var result struct {
		Acknowledged int `json:"acknowledged"`
	}
	if err := a.call(http.MethodPost, "/api/messages/ack", map[string]any{"ids": flags.Args()}, &result); err != nil {
		fmt.Fprintf(os.Stderr, "ab: ack: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(result)
	} else {
		fmt.Printf("acknowledged %d of %d message(s)\n", result.Acknowledged, flags.NArg())
	}
	return 0
}
