package main

import (
	"bufio"
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/demo"
	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

func recordCmd() *cobra.Command {
	var (
		out    string
		clicks int
		codec  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a demo counter session to a stream file",
		Long: `Record the demo counter's initial mount followed by one diff per
click on its "+" button.

Examples:
  editstream record --out counter.edits
  editstream record --out counter.edits --clicks 5 --codec cbor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := protocol.ParseCodec(codec)
			if err != nil {
				return errors.New("E900").Wrap(err)
			}
			if out == "" {
				return errors.New("E900").WithDetail("--out is required")
			}
			n, err := record(cmd.Context(), out, clicks, c)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Recorded %d streams to %s", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().IntVarP(&clicks, "clicks", "n", 3, "Number of clicks to record")
	cmd.Flags().StringVar(&codec, "codec", "binary", "Payload codec: binary or cbor")

	return cmd
}

func record(ctx context.Context, path string, clicks int, codec protocol.Codec) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.New("E900").Wrap(err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	counter := demo.NewCounter(0)
	mount, err := counter.Rebuild(ctx)
	if err != nil {
		return 0, err
	}
	if err := writeStream(w, codec, mount, true); err != nil {
		return 0, err
	}
	n := 1

	for i := 0; i < clicks; i++ {
		_, inc := counter.Buttons()
		dirty, err := counter.HandleEvent(ctx, protocol.Event{Seq: uint64(i + 1), Target: inc, Kind: protocol.EventClick})
		if err != nil {
			return n, err
		}
		if !dirty {
			continue
		}
		s, err := counter.Diff(ctx)
		if err != nil {
			return n, err
		}
		if err := writeStream(w, codec, s, false); err != nil {
			return n, err
		}
		n++
	}

	if err := w.Flush(); err != nil {
		return n, err
	}
	return n, f.Close()
}
