// Command ab is the agentbridge CLI — a local coordination bridge for
// concurrent AI agent sessions: messages, contracts, file locks, and a
// live event feed over HTTP.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("ab", version)
		return
	case "serve":
		os.Exit(cmdServe(os.Args[2:]))
	case "init":
		os.Exit(cmdInit(os.Args[2:]))
	case "log":
		os.Exit(cmdLog(os.Args[2:]))
	}

	a := newApp()

	switch os.Args[1] {
	case "send":
		os.Exit(a.cmdSend(os.Args[2:]))
	case "recv":
		os.Exit(a.cmdRecv(os.Args[2:]))
	case "ack":
		os.Exit(a.cmdAck(os.Args[2:]))
	case "contract":
		os.Exit(a.cmdContract(os.Args[2:]))
	case "lock":
		os.Exit(a.cmdLock(os.Args[2:]))
	case "renew":
		os.Exit(a.cmdRenew(os.Args[2:]))
	case "unlock":
		os.Exit(a.cmdUnlock(os.Args[2:]))
	case "watch":
		os.Exit(a.cmdWatch(os.Args[2:]))
	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "ab: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'ab --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`ab — local coordination bridge for concurrent AI agent sessions

Messages with explicit acknowledgment. Work contracts with history.
TTL file locks. A replayable event feed over SSE.

Usage:
  ab <command> [flags]

Server:
  serve [--addr HOST:PORT]    Run the bridge server
  init                        Create the data directory and config file

Messaging:
  send <to> <message>         Publish a message to an agent's mailbox
  recv [--ack]                Fetch pending messages for an agent
  ack <id>...                 Acknowledge messages by ID

Contracts:
  contract create --title T   Propose a work contract
  contract get <id>           Show a contract with its history
  contract update <id>        Change status, owner, note, metadata

Locks:
  lock <resource> [--ttl N]   Acquire an exclusive TTL lock
  renew <resource> [--ttl N]  Extend a held lock
  unlock <resource>           Release a lock

Observability:
  watch [--type T]            Stream the live event feed
  status                      Pending counts, locks, contract totals
  log [--since N] [--type T]  Query the persisted event journal

Environment:
  AGENTBRIDGE_URL    Bridge server base URL (default: http://127.0.0.1:8787)
  AGENTBRIDGE_AGENT  Default agent ID (avoids passing --agent every time)

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  lock denied (conflict)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ab: "+format+"\n", args...)
	os.Exit(1)
}
