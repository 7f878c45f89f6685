package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/interp"
	"github.com/vango-dev/editstream/pkg/memdom"
	"github.com/vango-dev/editstream/pkg/protocol"
)

func applyCmd(load configLoader) *cobra.Command {
	var (
		root  uint64
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "apply FILE...",
		Short: "Apply stream files to an in-memory surface and print the tree",
		Long: `Apply every stream in the files to an in-memory document, in
order, and print the resulting tree. Streams flagged as rebuilds reset the
document first. The apply budget comes from interp.budget.

Examples:
  editstream apply counter.edits
  editstream apply --quiet session-*.edits`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			doc := memdom.NewDocument()
			in := interp.New[*memdom.Node](doc, nil,
				interp.WithBudget(cfg.Budget()),
				interp.WithLogger(cfg.Logger(cmd.ErrOrStderr())),
			)
			if err := in.Mount(protocol.NodeID(root), doc.Root()); err != nil {
				return errors.New("E900").Wrap(err)
			}

			applied := 0
			for _, path := range args {
				streams, err := readStreamFile(path)
				if err != nil {
					return err
				}
				for _, fs := range streams {
					if fs.Rebuild {
						if err := in.Reset(ctx); err != nil {
							return errors.New("E202").Wrap(err)
						}
					}
					if err := in.Apply(ctx, fs.Stream); err != nil {
						return errors.New("E202").WithRenderError(path, err)
					}
					applied++
				}
			}

			w := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprint(w, doc.String())
			}
			success(w, "Applied %d streams, %d nodes", applied, doc.Len())
			return nil
		},
	}

	cmd.Flags().Uint64Var(&root, "root", 0, "Id of the mount point")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the tree")

	return cmd
}
