package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/assetlib"
	"github.com/standardbeagle/assetlib/internal/version"
)

var (
	Version = version.Version
	lib     *assetlib.Library
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assetlib"
	}
	return filepath.Join(home, ".assetlib")
}

func openLibrary(c *cli.Context) error {
	dataDir := c.String("data-dir")
	opened, err := assetlib.Open(
		filepath.Join(dataDir, "settings.json"),
		filepath.Join(dataDir, "library.db"),
		filepath.Join(dataDir, "thumbnails"),
	)
	if err != nil {
		return fmt.Errorf("failed to open library at %s: %w", dataDir, err)
	}
	lib = opened
	return nil
}

func closeLibrary(c *cli.Context) error {
	if lib != nil {
		return lib.Close()
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:    "assetlibd",
		Usage:   "index and resolve dependencies across a 3D content project directory",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory holding settings, the asset database, and the thumbnail cache",
				Value: defaultDataDir(),
			},
		},
		Before: openLibrary,
		After:  closeLibrary,
		Commands: []*cli.Command{
			rootCommand,
			scanCommand,
			cancelCommand,
			assetsCommand,
			depsCommand,
			thumbnailsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
