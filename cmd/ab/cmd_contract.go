package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/contract"
	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdContract(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab contract <create|get|update> ...")
		return 1
	}
	switch args[0] {
	case "create":
		return a.contractCreate(args[1:])
	case "get":
		return a.contractGet(args[1:])
	case "update":
		return a.contractUpdate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "ab: unknown contract subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) contractCreate(args []string) int {
	flags := flag.NewFlagSet("contract create", flag.ContinueOnError)
	agent := flags.String("agent", "", "initiating agent ID")
	title := flags.String("title", "", "contract title (required)")
	desc := flags.String("description", "", "longer description")
	owner := flags.String("owner", "", "agent responsible for the work")
	priority := flags.String("priority", "", "low|medium|high|critical (default medium)")
	tags := flags.StringSlice("tag", nil, "tag (repeatable)")
	files := flags.StringSlice("file", nil, "file the contract touches (repeatable)")
	meta := flags.StringToString("meta", nil, "metadata key=value (repeatable)")
	due := flags.String("due", "", "due date, RFC 3339")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: %v\n", err)
		return 1
	}

	input := contract.CreateInput{
		Title:       *title,
		Description: *desc,
		Initiator:   agentID,
		Owner:       *owner,
		Priority:    model.Priority(*priority),
		Tags:        *tags,
		Files:       *files,
		Metadata:    *meta,
	}
	if *due != "" {
		t, err := time.Parse(time.RFC3339, *due)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ab: contract: bad --due %q: %v\n", *due, err)
			return 1
		}
		input.DueAt = &t
	}

	var created model.Contract
	if err := a.call(http.MethodPost, "/api/contracts", input, &created); err != nil {
		fmt.Fprintf(os.Stderr, "ab: contract: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(created)
	} else {
		fmt.Printf("contract %s created (%s, %s priority)\n", created.ID, created.Status, created.Priority)
	}
	return 0
}

func (a *app) contractGet(args []string) int {
	flags := flag.NewFlagSet("contract get", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab contract get <id> [--json]")
		return 1
	}

	var c model.Contract
	if err := a.call(http.MethodGet, "/api/contracts/"+url.PathEscape(flags.Arg(0)), nil, &c); err != nil {
		fmt.Fprintf(os.Stderr, "ab: contract: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(c)
		return 0
	}
	printContract(&c)
	return 0
}

func (a *app) contractUpdate(args []string) int {
	flags := flag.NewFlagSet("contract update", flag.ContinueOnError)
	agent := flags.String("agent", "", "acting agent ID")
	status := flags.String("status", "", "new status")
	owner := flags.String("owner", "", "new owner")
	note := flags.String("note", "", "history note")
	meta := flags.StringToString("meta", nil, "metadata key=value to merge (repeatable)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: ab contract update <id> [--status S] [--owner O] [--note N] [--json]")
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: %v\n", err)
		return 1
	}

	input := contract.UpdateInput{
		Actor:    agentID,
		Status:   model.ContractStatus(*status),
		Note:     *note,
		Metadata: *meta,
	}
	if *owner != "" {
		input.Owner = owner
	}

	var updated model.Contract
	path := "/api/contracts/" + url.PathEscape(flags.Arg(0))
	if err := a.call(http.MethodPatch, path, input, &updated); err != nil {
		fmt.Fprintf(os.Stderr, "ab: contract: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(updated)
	} else {
		fmt.Printf("contract %s updated (%s)\n", updated.ID, updated.Status)
	}
	return 0
}

func printContract(c *model.Contract) {
	fmt.Printf("contract %s\n", c.ID)
	fmt.Printf("  title:     %s\n", c.Title)
	if c.Description != "" {
		fmt.Printf("  desc:      %s\n", c.Description)
	}
	fmt.Printf("  status:    %s\n", c.Status)
	fmt.Printf("  priority:  %s\n", c.Priority)
	fmt.Printf("  initiator: %s\n", c.Initiator)
	if c.Owner != "" {
		fmt.Printf("  owner:     %s\n", c.Owner)
	}
	if len(c.Tags) > 0 {
		fmt.Printf("  tags:      %s\n", strings.Join(c.Tags, ", "))
	}
	if len(c.Files) > 0 {
		fmt.Printf("  files:     %s\n", strings.Join(c.Files, ", "))
	}
	if c.DueAt != nil {
		fmt.Printf("  due:       %s\n", c.DueAt.Format(time.RFC3339))
	}
	if c.RelatedMessageID != "" {
		fmt.Printf("  message:   %s\n", c.RelatedMessageID)
	}
	fmt.Printf("  history (%d):\n", len(c.History))
	for _, h := range c.History {
		line := fmt.Sprintf("    %s  %s -> %s", h.Timestamp.Format(time.RFC3339), h.Actor, h.Status)
		if h.Note != "" {
			line += ": " + h.Note
		}
		fmt.Println(line)
	}
}
