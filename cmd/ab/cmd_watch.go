package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdWatch(args []string) int {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	typeFilter := flags.String("type", "", "only show events of this type (prefix match, e.g. lock.)")
	lastID := flags.String("last-event-id", "", "resume after a previously seen event ID")
	jsonOut := flags.Bool("json", false, "JSON output, one event per line")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/api/events", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: watch: %v\n", err)
		return 1
	}
	if *lastID != "" {
		req.Header.Set("Last-Event-ID", *lastID)
	}

	// The stream is long-lived, so no client timeout.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: watch: cannot reach bridge at %s: %v\n", a.baseURL, err)
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "ab: watch: server returned %d\n", resp.StatusCode)
		return 1
	}

	if !*jsonOut {
		fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", a.baseURL)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		if *typeFilter != "" && !strings.HasPrefix(ev.Type, *typeFilter) {
			continue
		}
		if *jsonOut {
			raw, _ := json.Marshal(ev)
			fmt.Println(string(raw))
			continue
		}
		printEvent(ev)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "ab: watch: stream closed: %v\n", err)
		return 1
	}
	return 0
}

func printEvent(ev model.Event) {
	summary := ""
	if data, ok := ev.Data.(map[string]any); ok {
		switch {
		case data["resource"] != nil:
			summary = fmt.Sprint(data["resource"])
		case data["recipient"] != nil:
			summary = fmt.Sprint(data["recipient"])
		case data["id"] != nil:
			summary = fmt.Sprint(data["id"])
		}
	}
	fmt.Printf("%s  %-26s %s\n", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, summary)
}
