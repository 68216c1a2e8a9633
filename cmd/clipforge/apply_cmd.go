package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/avtoolkit/clipforge/internal/editor"
	"github.com/avtoolkit/clipforge/internal/plan"
)

func newApplyCommand(a *app) *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "apply <video>",
		Short: "Apply a YAML edit plan to a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editPlan, err := plan.Load(planPath)
			if err != nil {
				return err
			}

			// The scanner is only needed for autorotate steps; without a
			// configured cascade the plan can still run if it has none.
			scanner, err := a.optionalScanner()
			if err != nil {
				return err
			}

			return a.runEdit(args[0], func(ctx context.Context, ed *editor.Editor) error {
				return editPlan.Apply(ctx, ed, scanner)
			})
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to the edit plan (YAML)")
	cmd.MarkFlagRequired("plan")
	return cmd
}
