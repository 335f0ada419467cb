package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var thumbnailsCommand = &cli.Command{
	Name:  "thumbnails",
	Usage: "fetch or regenerate cached thumbnails",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "print an asset's thumbnail as a data: URL, a sentinel string, or \"(none)\"",
			ArgsUsage: "<asset-id>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <asset-id>", 1)
				}
				thumb, err := lib.GetThumbnailBase64(c.Args().First())
				if err != nil {
					return err
				}
				if thumb == nil {
					fmt.Println("(none)")
					return nil
				}
				fmt.Println(*thumb)
				return nil
			},
		},
		{
			Name:  "regenerate",
			Usage: "clear and rebuild every thumbnail for the current project",
			Action: func(c *cli.Context) error {
				project, err := currentProjectOrExit()
				if err != nil {
					return err
				}
				return lib.RegenerateThumbnails(project.ID, func(generated int) {
					fmt.Printf("generated %d\n", generated)
				})
			},
		},
	},
}
