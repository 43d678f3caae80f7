// Package interactive provides the interactive command-line interface
// for pubsync-sim.
package interactive

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/pubsync/pubsync-go/pkg/backoff"
	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// Simulator is what the console drives. The main package's simulator
// implements it.
type Simulator interface {
	Subscribe(ctx context.Context, id subscription.DataItemID, def subscription.Definition) (bool, error)
	Unsubscribe(ctx context.Context, id subscription.DataItemID) error
	Activate(ctx context.Context, id subscription.DataItemID, requestSequenceNr uint32) error
	SetBatching(ctx context.Context, lane subscription.Lane, enabled bool) error
	GoOnline(ctx context.Context) error
	GoOffline(ctx context.Context, reason string) error
	Subscriptions(ctx context.Context) ([]subscription.Info, error)
	Stats(ctx context.Context) (subscription.Stats, error)

	Connected() bool
	Disconnect() error
	Break(reason string) (int, error)
	Warnings() int64
}

// Console handles interactive mode for pubsync-sim.
type Console struct {
	sim Simulator
	rl  *readline.Instance
	out io.Writer

	// Last request sequence number used per subscription.
	seqs map[subscription.DataItemID]uint32

	// Print DATA notifications too. Notify runs on the engine goroutine.
	verbose atomic.Bool
}

// New creates a console reading commands from the terminal. sim may be nil
// and attached later, before Run.
func New(sim Simulator) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pubsync> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(sim, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(sim Simulator, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		sim:  sim,
		out:  out,
		seqs: make(map[subscription.DataItemID]uint32),
	}
}

// Attach sets the simulator the console drives.
func (c *Console) Attach(sim Simulator) {
	c.sim = sim
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Notify prints a notification. DATA notifications are only shown in
// verbose mode.
func (c *Console) Notify(n subscription.Notification) {
	if n.Kind == subscription.NotifyData && !c.verbose.Load() {
		return
	}
	fmt.Fprintf(c.out, "[%s] %s\n", time.Now().Format("15:04:05.000"), n)
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the console should
// exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "subscribe", "sub":
		c.cmdSubscribe(ctx, args)

	case "activate", "a":
		c.cmdActivate(ctx, args)

	case "unsubscribe", "unsub":
		c.cmdUnsubscribe(ctx, args)

	case "batch":
		c.cmdBatch(ctx, args)

	case "online":
		c.report("online", c.sim.GoOnline(ctx))

	case "offline":
		reason := "operator"
		if len(args) > 0 {
			reason = strings.Join(args, " ")
		}
		c.report("offline", c.sim.GoOffline(ctx, reason))

	case "list", "ls":
		c.cmdList(ctx)

	case "status":
		c.cmdStatus(ctx)

	case "break":
		c.cmdBreak(args)

	case "disconnect":
		c.report("disconnect", c.sim.Disconnect())

	case "verbose":
		verbose := !c.verbose.Load()
		c.verbose.Store(verbose)
		fmt.Fprintf(c.out, "Data notifications %s\n", onOff(verbose))

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
pubsync-sim Commands:
  Subscriptions:
    subscribe <id> <channel> [options] - Register a subscription
        key=<key>       referencable key (omit for a one-off query)
        lane=high       send on the high-priority lane
        retry=<algo>    default, referencable, nonreferencable, never
        timeout=<dur>   response timeout, e.g. 2s
        forbid-resend   never send the request twice
    activate <id> [seq]               - Send (or resend) the request
    unsubscribe <id>                  - Remove a subscription
    list                              - List subscriptions

  Engine:
    batch <normal|high> <on|off>      - Hold or release a lane
    online                            - Mark the transport usable
    offline [reason]                  - Mark the transport unusable
    status                            - Show engine counters

  Publisher:
    break [reason]                    - Cancel every open stream
    disconnect                        - Drop the connection (reconnects)

  Other:
    verbose                           - Toggle DATA notifications
    help                              - Show this help
    quit                              - Exit`)
}

func (c *Console) cmdSubscribe(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: subscribe <id> <channel> [key=<key>] [lane=high] [retry=<algo>] [timeout=<dur>] [forbid-resend]")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	def, err := parseDefinition(args[1], args[2:])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	online, err := c.sim.Subscribe(ctx, id, def)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	delete(c.seqs, id)
	fmt.Fprintf(c.out, "Subscription %d registered (online: %v)\n", id, online)
}

func (c *Console) cmdActivate(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: activate <id> [seq]")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	seq := c.seqs[id] + 1
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			fmt.Fprintf(c.out, "Error: invalid sequence number %q\n", args[1])
			return
		}
		seq = uint32(n)
	}

	if err := c.sim.Activate(ctx, id, seq); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.seqs[id] = seq
	fmt.Fprintf(c.out, "Subscription %d activated (seq %d)\n", id, seq)
}

func (c *Console) cmdUnsubscribe(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: unsubscribe <id>")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := c.sim.Unsubscribe(ctx, id); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	delete(c.seqs, id)
	fmt.Fprintf(c.out, "Subscription %d removed\n", id)
}

func (c *Console) cmdBatch(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: batch <normal|high> <on|off>")
		return
	}
	lane, err := subscription.ParseLane(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	var enabled bool
	switch strings.ToLower(args[1]) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
	default:
		fmt.Fprintf(c.out, "Error: expected on or off, got %q\n", args[1])
		return
	}
	if err := c.sim.SetBatching(ctx, lane, enabled); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Batching on %s lane %s\n", lane, onOff(enabled))
}

func (c *Console) cmdList(ctx context.Context) {
	infos, err := c.sim.Subscriptions(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}

	fmt.Fprintf(c.out, "%-6s %-20s %-7s %-26s %-5s %-5s %s\n", "ID", "CHANNEL", "LANE", "STATE", "SEQ", "SENT", "RETRY")
	for _, info := range infos {
		retryIn := "-"
		if !info.RetryAt.IsZero() {
			retryIn = time.Until(info.RetryAt).Round(100 * time.Millisecond).String()
		}
		fmt.Fprintf(c.out, "%-6d %-20s %-7s %-26s %-5d %-5v %s\n",
			info.ID, info.Channel, info.Lane, info.State, info.RequestSequenceNr, info.BeenSentAtLeastOnce, retryIn)
	}
}

func (c *Console) cmdStatus(ctx context.Context) {
	stats, err := c.sim.Stats(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(c.out, "\nEngine Status:")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Connected:       %v\n", c.sim.Connected())
	fmt.Fprintf(c.out, "  Online:          %v\n", stats.Online)
	fmt.Fprintf(c.out, "  Subscriptions:   %d\n", stats.Subscriptions)

	states := make([]subscription.State, 0, len(stats.ByState))
	for st := range stats.ByState {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	for _, st := range states {
		fmt.Fprintf(c.out, "    %-26s %d\n", st, stats.ByState[st])
	}

	fmt.Fprintf(c.out, "  Queued (high):   %d\n", stats.HighQueued)
	fmt.Fprintf(c.out, "  Queued (normal): %d\n", stats.NormalQueued)
	fmt.Fprintf(c.out, "  Waiting:         %d\n", stats.Waiting)
	fmt.Fprintf(c.out, "  Pending retries: %d\n", stats.PendingRetries)
	fmt.Fprintf(c.out, "  Server warnings: %d\n", c.sim.Warnings())
	fmt.Fprintln(c.out)
}

func (c *Console) cmdBreak(args []string) {
	reason := "stream cancelled"
	if len(args) > 0 {
		reason = strings.Join(args, " ")
	}
	n, err := c.sim.Break(reason)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Publisher cancelled %d stream(s)\n", n)
}

func (c *Console) report(what string, err error) {
	if err != nil {
		fmt.Fprintf(c.out, "Error: %s: %v\n", what, err)
		return
	}
	fmt.Fprintf(c.out, "OK: %s\n", what)
}

func parseID(s string) (subscription.DataItemID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid subscription id %q", s)
	}
	return subscription.DataItemID(n), nil
}

// parseDefinition builds a definition from a channel and key=value options.
func parseDefinition(channel string, opts []string) (subscription.Definition, error) {
	def := subscription.Definition{Channel: channel}
	for _, opt := range opts {
		name, value, _ := strings.Cut(opt, "=")
		switch strings.ToLower(name) {
		case "key":
			def.ReferencableKey = value
		case "lane":
			lane, err := subscription.ParseLane(value)
			if err != nil {
				return def, err
			}
			def.Lane = lane
		case "retry":
			algo, err := backoff.ParseAlgorithm(value)
			if err != nil {
				return def, err
			}
			def.RetryAlgorithm = algo
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return def, fmt.Errorf("invalid timeout %q: %w", value, err)
			}
			def.ResponseTimeout = d
		case "forbid-resend":
			def.ForbidResend = true
		default:
			return def, fmt.Errorf("unknown option %q", opt)
		}
	}
	return def, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
