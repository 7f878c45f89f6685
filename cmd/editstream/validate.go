package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/protocol"
)

func validateCmd() *cobra.Command {
	var roots []uint

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check stream files without applying them",
		Long: `Check that every stream in the files keeps the operand stack
balanced and only references ids introduced by earlier streams. Files are
checked in order against one shared id history.

Examples:
  editstream validate counter.edits
  editstream validate --root 0 --root 100 a.edits b.edits`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]protocol.NodeID, len(roots))
			for i, r := range roots {
				ids[i] = protocol.NodeID(r)
			}
			checker := protocol.NewChecker(ids...)

			for _, path := range args {
				streams, err := readStreamFile(path)
				if err != nil {
					return err
				}
				edits := 0
				for _, fs := range streams {
					if err := checker.Check(fs.Stream); err != nil {
						return errors.New("E201").WithRenderError(path, err)
					}
					edits += fs.Stream.Len()
				}
				success(cmd.OutOrStdout(), "%s: %d streams, %d edits", path, len(streams), edits)
			}
			return nil
		},
	}

	cmd.Flags().UintSliceVar(&roots, "root", []uint{0}, "Pre-registered root ids")

	return cmd
}
