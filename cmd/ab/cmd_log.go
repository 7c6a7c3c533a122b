package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/config"
	"github.com/daviddao/agentbridge/pkg/journal"
)

// cmdLog reads the persisted event journal directly, so it works even
// when the bridge server is down.
func cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	configPath := flags.String("config", defaultConfigPath, "config file path")
	since := flags.Int64("since", 0, "only rows after this journal row ID")
	typeFilter := flags.String("type", "", "only events of this exact type")
	limit := flags.Int("limit", 50, "maximum rows to return")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: log: %v\n", err)
		return 1
	}
	path := cfg.JournalPath()
	if path == "" {
		fmt.Fprintln(os.Stderr, "ab: log: journaling is disabled (journal_file is empty)")
		return 1
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "ab: log: no journal at %s (has the bridge run yet?)\n", path)
		return 1
	}

	j, err := journal.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: log: %v\n", err)
		return 1
	}
	defer j.Close()

	var entries []journal.Entry
	if *typeFilter != "" {
		entries, err = j.ListByType(*typeFilter, *since, *limit)
	} else {
		entries, err = j.ListSince(*since, *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: log: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]any{"entries": entries, "count": len(entries)})
		return 0
	}

	if len(entries) == 0 {
		fmt.Println("no journaled events")
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%6d  %s  %-26s %s\n",
			e.RowID, e.CreatedAt.Local().Format(time.DateTime), e.Type, e.Data)
	}
	return 0
}
