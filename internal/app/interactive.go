package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const interactiveHelp = `commands:
  foreground | background | gameplay-enter | gameplay-exit | gameplay-exit-resume
  resume     resume the ambient track
  status     print both channels
  help       show this text
  quit       release everything and exit
`

// RunInteractive reads host events line by line from in until quit, EOF or
// ctx is done, writing snapshots to out after each command.
func RunInteractive(ctx context.Context, core *Core, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprint(out, interactiveHelp)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if done := handleCommand(core, strings.TrimSpace(line), out); done {
				return nil
			}
		}
	}
}

func handleCommand(core *Core, cmd string, out io.Writer) (quit bool) {
	switch strings.ToLower(cmd) {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(out, interactiveHelp)
		return false
	case "status":
	case "resume":
		core.Orchestrator.ResumeAmbient()
	default:
		if err := core.Lifecycle.Dispatch(cmd); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
	}
	printStatus(core, out)
	return false
}

func printStatus(core *Core, out io.Writer) {
	for _, snap := range core.Orchestrator.Snapshot() {
		fmt.Fprintf(out, "%-8s %-9s gen=%d source=%s\n",
			snap.Channel, snap.State, snap.Generation, snap.Source)
	}
}
