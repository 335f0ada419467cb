package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/assetlib/internal/orchestrator"
	"github.com/standardbeagle/assetlib/pkg/pathutil"
)

var scanCommand = &cli.Command{
	Name:  "scan",
	Usage: "scan the current project, blocking until the scan reaches a terminal phase",
	Action: func(c *cli.Context) error {
		project, err := lib.GetCurrentProject()
		if err != nil {
			return err
		}
		if project == nil {
			return cli.Exit("no project root configured; run \"assetlibd root set <path>\" first", 1)
		}

		done := make(chan orchestrator.Phase, 1)
		err = lib.StartScan(project.ID, func(p orchestrator.Progress) {
			switch p.Phase {
			case orchestrator.PhaseCounting:
				fmt.Printf("counting... %d found\n", p.Scanned)
			case orchestrator.PhaseIndexing:
				rel := pathutil.ToRelative(p.CurrentPath, project.RootPath)
				fmt.Printf("indexing %d/%d (%d changed, %d unchanged) %s\n", p.Scanned, p.Total, p.Changed, p.Skipped, rel)
			case orchestrator.PhaseDependencies:
				fmt.Printf("resolving dependencies %d/%d\n", p.Scanned, p.Total)
			case orchestrator.PhaseComplete, orchestrator.PhaseCancelled, orchestrator.PhaseError:
				done <- p.Phase
			}
		})
		if err != nil {
			return err
		}

		phase := <-done
		switch phase {
		case orchestrator.PhaseComplete:
			fmt.Println("scan complete")
			return nil
		case orchestrator.PhaseCancelled:
			return cli.Exit("scan cancelled", 2)
		default:
			return cli.Exit("scan failed", 1)
		}
	},
}

var cancelCommand = &cli.Command{
	Name:  "cancel",
	Usage: "cancel the currently running scan, if any",
	Action: func(c *cli.Context) error {
		lib.CancelOperation()
		return nil
	},
}
