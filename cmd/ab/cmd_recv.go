package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdRecv(args []string) int {
	flags := flag.NewFlagSet("recv", flag.ContinueOnError)
	agent := flags.String("agent", "", "recipient agent ID")
	ack := flags.Bool("ack", false, "acknowledge fetched messages")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: %v\n", err)
		return 1
	}

	var pending struct {
		Recipient string          `json:"recipient"`
		Messages  []model.Message `json:"messages"`
		Count     int             `json:"count"`
	}
	path := "/api/messages/pending?recipient=" + url.QueryEscape(agentID)
	if err := a.call(http.MethodGet, path, nil, &pending); err != nil {
		fmt.Fprintf(os.Stderr, "ab: recv: %v\n", err)
		return 1
	}

	acked := 0
	if *ack && len(pending.Messages) > 0 {
		ids := make([]string, len(pending.Messages))
		for i, m := range pending.Messages {
			ids[i] = m.ID
		}
		var result struct {
			Acknowledged int `json:"acknowledged"`
		}
		if err := a.call(http.MethodPost, "/api/messages/ack", map[string]any{"ids": ids}, &result); err != nil {
			fmt.Fprintf(os.Stderr, "ab: recv: ack: %v\n", err)
			return 1
		}
		acked = result.Acknowledged
	}

	if *jsonOut {
		printJSON(map[string]any{
			"recipient": pending.Recipient,
			"messages":  pending.Messages,
			"count":     pending.Count,
			"acked":     acked,
		})
		return 0
	}

	if pending.Count == 0 {
		fmt.Printf("no pending messages for %s\n", agentID)
		return 0
	}
	fmt.Printf("%d pending message(s) for %s:\n", pending.Count, agentID)
	for _, m := range pending.Messages {
		from := m.Sender
		if from == "" {
			from = "(unknown)"
		}
		fmt.Printf("  [%s] %s: %s", m.ID, from, m.Content)
		if m.ContractID != "" {
			fmt.Printf(" (contract %s)", m.ContractID)
		}
		fmt.Println()
	}
	if acked > 0 {
		fmt.Printf("acknowledged %d message(s)\n", acked)
	}
	return 0
}
