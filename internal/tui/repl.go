package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/session"
	"golang.org/x/term"
)

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunREPL runs a line-oriented chat for non-terminal use. Every input line
// is a message; "/clear", "/attach <name>" and "/quit" are commands.
func RunREPL(ctx context.Context, in io.Reader, out io.Writer, manager *session.Manager, displayName string) error {
	s := manager.Open(ctx, displayName)
	defer manager.CancelAll()

	label := s.AssistantName()
	printMessage(out, s.History()[0], label)

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line = <-lines:
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "/quit", "/exit":
			return nil

		case "/clear":
			manager.Clear(ctx, s)
			printMessage(out, s.History()[0], label)
			continue

		case "/attach":
			name := strings.TrimSpace(arg)
			if name == "" {
				fmt.Fprintln(out, "usage: /attach <file name>")
				continue
			}
			fmt.Fprintln(out, manager.SelectFile(ctx, s, name))
			continue
		}

		outcome, err := manager.Submit(ctx, s, line)
		if err != nil {
			return err
		}
		if outcome.Appended() {
			printMessage(out, outcome.Message, label)
		}
		if outcome.Kind == session.OutcomeCancelled {
			return nil
		}
	}
}

func printMessage(out io.Writer, msg domain.Message, assistantLabel string) {
	who := assistantLabel
	if msg.IsUser() {
		who = "User"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", msg.Timestamp.Format("15:04"), who, msg.Text)
}
