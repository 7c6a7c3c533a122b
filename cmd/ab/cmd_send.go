package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/daviddao/agentbridge/pkg/bridge"
	"github.com/daviddao/agentbridge/pkg/contract"
	"github.com/daviddao/agentbridge/pkg/model"
)

func (a *app) cmdSend(args []string) int {
	flags := flag.NewFlagSet("send", flag.ContinueOnError)
	agent := flags.String("agent", "", "sender agent ID")
	contractID := flags.String("contract", "", "link the message to an existing contract")
	title := flags.String("title", "", "create a contract inline with this title")
	priority := flags.String("priority", "", "inline contract priority (low|medium|high|critical)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: ab send <to> <message> [--agent ID] [--contract ID | --title T] [--json]")
		return 1
	}

	agentID, err := a.resolveAgent(*agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ab: %v\n", err)
		return 1
	}

	input := bridge.PublishInput{
		Recipient:  flags.Arg(0),
		Content:    strings.Join(flags.Args()[1:], " "),
		Sender:     agentID,
		ContractID: *contractID,
	}
	if *title != "" {
		input.Contract = &contract.CreateInput{
			Title:     *title,
			Initiator: agentID,
			Priority:  model.Priority(*priority),
		}
	}

	var result bridge.PublishResult
	if err := a.call(http.MethodPost, "/api/messages", input, &result); err != nil {
		fmt.Fprintf(os.Stderr, "ab: send: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(result)
	} else {
		fmt.Printf("sent to %s (message %s)\n", input.Recipient, result.Message.ID)
		if result.Contract != nil {
			fmt.Printf("  contract %s (%s)\n", result.Contract.ID, result.Contract.Status)
		}
	}
	return 0
}
