package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/config"
	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/bridge"
	"github.com/vango-dev/editstream/pkg/interp"
	"github.com/vango-dev/editstream/pkg/memdom"
	"github.com/vango-dev/editstream/pkg/protocol"
	"github.com/vango-dev/editstream/pkg/transport"
)

type connectOptions struct {
	click string
	times int
	exit  bool
	quiet bool
}

func connectCmd(load configLoader) *cobra.Command {
	var opts connectOptions

	cmd := &cobra.Command{
		Use:   "connect URL",
		Short: "Connect an in-memory renderer to a model server",
		Long: `Connect to a model server's /ws endpoint, apply every stream it
sends to an in-memory document, and print the tree after each one.

--click sends click events to the first element with a click listener
whose text is the given string, once the tree has been mounted.

Examples:
  editstream connect ws://localhost:8080/ws
  editstream connect ws://localhost:8080/ws --click + --times 3 --exit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, cfg, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.click, "click", "", "Text of the element to click after the mount")
	cmd.Flags().IntVar(&opts.times, "times", 1, "Number of clicks")
	cmd.Flags().BoolVar(&opts.exit, "exit", false, "Disconnect after the last click was applied")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print trees")

	return cmd
}

func runConnect(ctx context.Context, cfg *config.Config, url string, opts connectOptions, w io.Writer) error {
	logger := cfg.Logger(os.Stderr)

	doc := memdom.NewDocument()
	in := interp.New[*memdom.Node](doc, nil,
		interp.WithBudget(cfg.Budget()),
		interp.WithLogger(logger),
	)
	if err := in.Mount(0, doc.Root()); err != nil {
		return err
	}

	applied := make(chan error, 16)
	clientCfg := transport.ClientConfig{
		Link:   transport.DefaultLinkConfig(),
		Codec:  cfg.Codec(),
		Logger: logger,
		OnApply: func(seq uint64, rebuild bool, err error) {
			if err != nil {
				fmt.Fprintf(w, "stream %d rejected: %v\n", seq, err)
			} else if !opts.quiet {
				kind := "diff"
				if rebuild {
					kind = "rebuild"
				}
				fmt.Fprintf(w, "── stream %d (%s)\n%s", seq, kind, doc.String())
			}
			select {
			case applied <- err:
			default:
			}
		},
	}
	clientCfg.Link.PingInterval = cfg.PingInterval()

	client, err := transport.Dial(ctx, url, in, bridge.New[*memdom.Node](in.Registry()), clientCfg)
	if err != nil {
		return errors.New("E300").Wrap(err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	if opts.click != "" {
		if err := clickLoop(ctx, client, doc, opts, applied, runErr); err != nil {
			_ = client.Close()
			return err
		}
		if opts.exit {
			_ = client.Close()
			<-runErr
			return nil
		}
	}

	select {
	case err := <-runErr:
		if err != nil {
			return errors.New("E300").Wrap(err)
		}
		return nil
	case <-ctx.Done():
		_ = client.Close()
		<-runErr
		return nil
	}
}

// clickLoop waits for the mount, then clicks the target opts.times times,
// waiting for each resulting stream.
func clickLoop(ctx context.Context, client *transport.Client[*memdom.Node], doc *memdom.Document, opts connectOptions, applied <-chan error, runErr <-chan error) error {
	wait := func() error {
		select {
		case <-applied:
			return nil
		case err := <-runErr:
			if err == nil {
				err = transport.ErrLinkClosed
			}
			return errors.New("E300").Wrap(err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := wait(); err != nil {
		return err
	}
	for i := 0; i < opts.times; i++ {
		target := findClickable(doc, opts.click)
		if target == nil {
			return errors.New("E900").WithDetail(fmt.Sprintf("no clickable element with text %q", opts.click))
		}
		if err := client.Submit(ctx, &memdom.PointerEvent{EventType: string(protocol.EventClick), Node: target}); err != nil {
			return err
		}
		if err := wait(); err != nil {
			return err
		}
	}
	return nil
}

func findClickable(doc *memdom.Document, text string) *memdom.Node {
	var found *memdom.Node
	doc.Walk(doc.Root(), func(n *memdom.Node) {
		if found != nil {
			return
		}
		if _, ok := n.Listener(string(protocol.EventClick)); ok && n.TextContent() == text {
			found = n
		}
	})
	return found
}
