package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/daviddao/agentbridge/pkg/config"
)

const (
	defaultDir        = ".agentbridge"
	defaultConfigPath = ".agentbridge/config.yaml"
)

const (
	agentsBeginMarker = "<!-- BEGIN AGENTBRIDGE INTEGRATION -->"
	agentsEndMarker   = "<!-- END AGENTBRIDGE INTEGRATION -->"
)

const agentsSection = `<!-- BEGIN AGENTBRIDGE INTEGRATION -->
## Multi-Agent Coordination with ab (agentbridge)

This project uses **ab** for coordinating concurrent AI agent sessions.
Start the bridge with ` + "`ab serve`" + `, then coordinate through it.

**Quick reference:**
- ` + "`ab recv --ack`" + `          — Fetch and acknowledge pending messages
- ` + "`ab lock <path>`" + `         — Acquire file lock before editing
- ` + "`ab unlock <path>`" + `       — Release when done
- ` + "`ab send <to> <msg>`" + `     — Message another agent
- ` + "`ab contract create`" + `     — Propose a work contract
- ` + "`ab status`" + `              — Pending messages, locks, contracts

**Environment:** ` + "`export AGENTBRIDGE_AGENT=<your-id>`" + `

**Session close:** Release all locks and acknowledge your inbox before ending.
<!-- END AGENTBRIDGE INTEGRATION -->
`

func cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	configPath := flags.String("config", defaultConfigPath, "config file to create")
	agentsFile := flags.String("agents-md", "AGENTS.md", "path to AGENTS.md")
	skipAgents := flags.Bool("skip-agents-md", false, "don't touch AGENTS.md")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg := config.Default()
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "ab: init: cannot create %s: %v\n", cfg.DataDir, err)
		return 1
	}

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		raw, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ab: init: %v\n", err)
			return 1
		}
		if err := os.MkdirAll(filepath.Dir(*configPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "ab: init: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*configPath, raw, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "ab: init: write %s: %v\n", *configPath, err)
			return 1
		}
		fmt.Printf("initialized agentbridge (config: %s)\n", *configPath)
	} else {
		fmt.Printf("agentbridge already initialized (config: %s)\n", *configPath)
	}

	if !*skipAgents {
		if err := injectAgentsSection(*agentsFile); err != nil {
			fmt.Fprintf(os.Stderr, "ab: AGENTS.md: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  ab serve &                       # start the bridge")
	fmt.Println("  export AGENTBRIDGE_AGENT=<your-id>")
	fmt.Println("  ab status                        # verify the bridge is up")

	return 0
}

// injectAgentsSection creates or updates AGENTS.md with the bridge
// section. Uses HTML markers for idempotent updates.
func injectAgentsSection(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		newContent := "# Agent Instructions\n\n" + agentsSection
		if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		fmt.Printf("  created %s with agentbridge section\n", path)
		return nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	text := string(content)

	if strings.Contains(text, agentsBeginMarker) {
		start := strings.Index(text, agentsBeginMarker)
		end := strings.Index(text, agentsEndMarker)
		if start >= 0 && end >= 0 {
			endOfMarker := end + len(agentsEndMarker)
			if nl := strings.Index(text[endOfMarker:], "\n"); nl >= 0 {
				endOfMarker += nl + 1
			}
			newContent := text[:start] + agentsSection + text[endOfMarker:]
			if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
				return fmt.Errorf("update %s: %w", path, err)
			}
			fmt.Printf("  updated agentbridge section in %s\n", path)
			return nil
		}
	}

	newContent := text
	if !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}
	newContent += "\n" + agentsSection
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	fmt.Printf("  added agentbridge section to %s\n", path)
	return nil
}
