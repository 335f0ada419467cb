package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var rootCommand = &cli.Command{
	Name:  "root",
	Usage: "manage the configured project root",
	Subcommands: []*cli.Command{
		{
			Name:      "set",
			Usage:     "set the project root directory and register it as a project",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <path>", 1)
				}
				project, err := lib.SetProjectRoot(c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(project)
			},
		},
		{
			Name:  "show",
			Usage: "print the current settings and project",
			Action: func(c *cli.Context) error {
				settings := lib.GetSettings()
				project, err := lib.GetCurrentProject()
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"settings": settings,
					"project":  project,
				})
			},
		},
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
