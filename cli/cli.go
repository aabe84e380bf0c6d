// Package cli provides the line-oriented sandbox front end: terminal I/O,
// output formatting and meta-command dispatch for the spellcore engine.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nathoo/spellcore/engine"
	"github.com/nathoo/spellcore/engine/snapshot"
)

// CLI handles terminal interaction with the caster.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine: eng,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run starts the sandbox loop. It shows the scene title and status, then
// loops: prompt, input, dispatch, output.
func (c *CLI) Run() {
	if title := c.Engine.Catalog.Title; title != "" {
		c.printLine(title)
		c.printLine("")
	}
	c.printResult(c.Engine.Step("status"))

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printResult(result)
		if c.Trace {
			c.printTrace(result)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should
// end.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/snapshot":
		c.cmdSnapshot(arg)

	case "/restore":
		c.cmdRestore(arg)

	case "/help":
		c.cmdHelp()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

// cmdSnapshot writes the session image to path, or prints it when no path
// is given.
func (c *CLI) cmdSnapshot(path string) {
	data, err := snapshot.Encode(c.Engine.Snapshot())
	if err != nil {
		c.printSystem(fmt.Sprintf("Snapshot failed: %v", err))
		return
	}
	if path == "" {
		c.printLine(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Snapshot failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Snapshot written to %s.", path))
}

func (c *CLI) cmdRestore(path string) {
	if path == "" {
		c.printSystem("Usage: /restore <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Restore failed: %v", err))
		return
	}
	s, err := snapshot.Decode(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Restore failed: %v", err))
		return
	}
	c.Engine.Rewind(s)
	c.printSystem(fmt.Sprintf("Restored %s (t = %.1fs).", path, s.Time))
	c.printResult(c.Engine.Step("status"))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /snapshot [path]  Write the session image (prints it without a path)",
		"  /restore <path>   Rewind to a written image",
		"  /trace            Toggle event trace output",
		"  /help             Show this help",
		"  /quit             Exit",
		"",
		"Sandbox commands:",
		"  cast <spell> [at <target>[, <target>...]] [to x,y,z] [level N]",
		"  tick [N]          Advance the simulation N ticks (wait works too)",
		"  status (l)        Show the scene",
		"  spells (ls)       List the known spells",
		"  dispel <effect>   End an active physics effect",
		"  again (g)         Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) printTrace(result engine.Result) {
	if len(result.Events) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
	for _, ev := range result.Events {
		c.printSystem(fmt.Sprintf("[trace]   %.2f %s %s", ev.Time, ev.Type, formatData(ev.Data)))
	}
}

func (c *CLI) printResult(result engine.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

// formatData renders event data as key=value pairs in key order.
func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}
