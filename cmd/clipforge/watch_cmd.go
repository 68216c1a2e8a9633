package main

import (
	"github.com/spf13/cobra"

	"github.com/avtoolkit/clipforge/internal/event"
	"github.com/avtoolkit/clipforge/internal/plan"
	"github.com/avtoolkit/clipforge/internal/queue"
	"github.com/avtoolkit/clipforge/pkg/logger"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		watchPath string
		planPath  string
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and process videos as they appear",
		Long: `Runs the batch service: every video appearing in the watched directory is
processed automatically. A video with a same-stem .jpg/.png next to it gets
that image spliced into the start of its timeline; other videos have the
directory's edit plan applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Watch
			if watchPath != "" {
				cfg.WatchPath = watchPath
			}
			if planPath != "" {
				cfg.PlanPath = planPath
			}
			if reportDir != "" {
				cfg.ReportDirPath = reportDir
			}

			var editPlan *plan.Plan
			if cfg.PlanPath != "" {
				loaded, err := plan.Load(cfg.PlanPath)
				if err != nil {
					return err
				}
				editPlan = loaded
			}

			scanner, err := a.optionalScanner()
			if err != nil {
				return err
			}

			eventBus := event.New()
			service, err := queue.New(cfg, a.editorConfig(), editPlan, scanner, eventBus)
			if err != nil {
				return err
			}

			eventBus.RegisterHandlerFunction(event.JobCompleteEvent, func(_ event.Event, payload event.Payload) {
				snapshot, ok := payload.(queue.Snapshot)
				if !ok {
					return
				}
				if snapshot.Error != "" {
					log.Emit(logger.ERROR, "Job %s for %s failed: %s\n", snapshot.ID, snapshot.SourcePath, snapshot.Error)
				} else {
					log.Emit(logger.SUCCESS, "Job %s for %s finished: %s\n", snapshot.ID, snapshot.SourcePath, snapshot.OutputPath)
				}
			})

			ctx, cancel := signalContext()
			defer cancel()

			log.Emit(logger.INFO, "Watching %s (parallelism=%d)\n", cfg.WatchPath, cfg.Parallelism)
			return service.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&watchPath, "path", "", "directory to watch (overrides config)")
	cmd.Flags().StringVar(&planPath, "plan", "", "edit plan applied to unpaired videos (overrides config)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory receiving per-job JSON reports (overrides config)")
	return cmd
}
