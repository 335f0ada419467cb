package main

import (
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/assetlib/internal/model"
)

var assetsCommand = &cli.Command{
	Name:  "assets",
	Usage: "list or inspect indexed assets for the current project",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list assets, optionally filtered by a search substring or asset type",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "substring match against relative path or file name"},
				&cli.StringSliceFlag{Name: "type", Aliases: []string{"t"}, Usage: "restrict to one or more asset types (texture, material, model, ...); repeatable"},
				&cli.IntFlag{Name: "page", Value: 0, Usage: "zero-indexed page number"},
				&cli.IntFlag{Name: "page-size", Value: 50, Usage: "results per page"},
			},
			Action: func(c *cli.Context) error {
				project, err := currentProjectOrExit()
				if err != nil {
					return err
				}
				types := c.StringSlice("type")
				typeFilters := make([]model.AssetType, len(types))
				for i, t := range types {
					typeFilters[i] = model.AssetType(t)
				}
				page, err := lib.GetAssets(project.ID, c.String("query"), typeFilters, c.Int("page"), c.Int("page-size"))
				if err != nil {
					return err
				}
				return printJSON(page)
			},
		},
		{
			Name:      "show",
			Usage:     "print one asset by id, including its material/model metadata",
			ArgsUsage: "<asset-id>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <asset-id>", 1)
				}
				asset, err := lib.GetAsset(c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(asset)
			},
		},
		{
			Name:  "counts",
			Usage: "print asset counts grouped by type",
			Action: func(c *cli.Context) error {
				project, err := currentProjectOrExit()
				if err != nil {
					return err
				}
				counts, err := lib.GetTypeCounts(project.ID)
				if err != nil {
					return err
				}
				return printJSON(counts)
			},
		},
		{
			Name:      "bundle-preview",
			Usage:     "print an asset's transitive dependency closure and combined size",
			ArgsUsage: "<asset-id>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one argument: <asset-id>", 1)
				}
				preview, err := lib.GetBundlePreview(c.Args().First())
				if err != nil {
					return err
				}
				return printJSON(preview)
			},
		},
	},
}

func currentProjectOrExit() (*model.Project, error) {
	project, err := lib.GetCurrentProject()
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, cli.Exit("no project root configured; run \"assetlibd root set <path>\" first", 1)
	}
	return project, nil
}
