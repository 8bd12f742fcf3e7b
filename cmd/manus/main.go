// Command manus is the CLI for the browser orchestration daemon. It can
// create sessions, run tasks (answering questions interactively from stdin),
// inspect status, and tear sessions down.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/HarxSan/Mini-Manus/pkg/client"
)

const usage = `Usage: manus [flags] <command> [args]

Commands:
  init                       create a browser session, print its id
  run <session-id> <task>    run a task, answering questions from stdin
  status <session-id>        print the session's current status
  input <session-id> <text>  answer a pending question
  close <session-id>         close the session and release its browser

Flags:
  -url string    service base URL (default http://localhost:8000)
  -poll          force status polling instead of the event stream
  -steps int     max steps for run (default: server-side default)
`

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "service base URL")
		poll     = flag.Bool("poll", false, "force status polling instead of the event stream")
		maxSteps = flag.Int("steps", 0, "max steps for run")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(client.Config{
		BaseURL:       *baseURL,
		DisableStream: *poll,
	})

	ctx := context.Background()
	if err := dispatch(ctx, c, args, *maxSteps); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, c *client.Client, args []string, maxSteps int) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		id, err := c.Initialize(ctx, client.InitializeOptions{})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "run":
		if len(rest) < 2 {
			return fmt.Errorf("run needs a session id and a task")
		}
		return runTask(ctx, c, rest[0], strings.Join(rest[1:], " "), maxSteps)

	case "status":
		if len(rest) != 1 {
			return fmt.Errorf("status needs a session id")
		}
		snap, err := c.Status(ctx, rest[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil

	case "input":
		if len(rest) < 2 {
			return fmt.Errorf("input needs a session id and an answer")
		}
		return c.ProvideInput(ctx, rest[0], strings.Join(rest[1:], " "))

	case "close":
		if len(rest) != 1 {
			return fmt.Errorf("close needs a session id")
		}
		return c.CloseSession(ctx, rest[0])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runTask(ctx context.Context, c *client.Client, sessionID, task string, maxSteps int) error {
	stdin := bufio.NewReader(os.Stdin)

	outcome, err := c.RunTask(ctx, sessionID, task, maxSteps, func(ctx context.Context, question string) (string, error) {
		fmt.Printf("\n❓ %s\n> ", question)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return strings.TrimSpace(line), nil
	})
	if err != nil {
		return err
	}

	if !outcome.Success {
		fmt.Fprintf(os.Stderr, "Task failed (%s): %s\n", outcome.ErrorKind, outcome.Error)
		os.Exit(1)
	}
	fmt.Println(outcome.Result)
	return nil
}
