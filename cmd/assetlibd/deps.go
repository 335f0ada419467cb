package main

import (
	"github.com/urfave/cli/v2"
)

var depsCommand = &cli.Command{
	Name:  "deps",
	Usage: "inspect resolved dependency edges for an asset",
	Subcommands: []*cli.Command{
		{
			Name:      "out",
			Usage:     "print what an asset depends on",
			ArgsUsage: "<asset-id>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <asset-id>", 1)
				}
				deps, err := lib.GetDependencies(c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(deps)
			},
		},
		{
			Name:      "in",
			Usage:     "print what depends on an asset",
			ArgsUsage: "<asset-id>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <asset-id>", 1)
				}
				deps, err := lib.GetDependents(c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(deps)
			},
		},
	},
}
