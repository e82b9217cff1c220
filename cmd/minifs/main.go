// Command minifs is a small demonstration shell around the engine: format a
// new image, inspect it, and create, list and delete files through pathwalk.
// It exists to give the engine a realistic caller beyond its unit
// tests, the same role cmd/main.go plays for the teacher's disk drivers.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/pasha112sergey/minifs/geometry"
	"github.com/pasha112sergey/minifs/image"
	"github.com/pasha112sergey/minifs/inodetable"
	"github.com/pasha112sergey/minifs/pathwalk"
)

func main() {
	app := &cli.App{
		Name:  "minifs",
		Usage: "create and inspect in-memory UNIX-style file system images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "create a new, empty image file",
				ArgsUsage: "PRESET OUTPUT_FILE",
				Action:    formatImage,
			},
			{
				Name:      "stat",
				Usage:     "print the geometry and usage of an image file",
				ArgsUsage: "IMAGE_FILE",
				Action:    statImage,
			},
			{
				Name:      "mkfile",
				Usage:     "create an empty file inside an image",
				ArgsUsage: "IMAGE_FILE PATH",
				Action:    mkFile,
			},
			{
				Name:      "ls",
				Usage:     "list the contents of a directory inside an image",
				ArgsUsage: "IMAGE_FILE [PATH]",
				Action:    listDir,
			},
			{
				Name:      "rm",
				Usage:     "delete a file inside an image",
				ArgsUsage: "IMAGE_FILE PATH",
				Action:    removeFile,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("minifs: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: minifs format PRESET OUTPUT_FILE")
	}
	preset := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	g, err := geometry.Preset(preset)
	if err != nil {
		return err
	}

	fs, err := image.New(g)
	if err != nil {
		return err
	}

	raw, err := image.Save(fs)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, raw, 0o644); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"preset": preset,
		"output": outputPath,
	}).Info("formatted new image")
	return nil
}

func loadImage(path string) (*image.FileSystem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return image.Load(raw)
}

func statImage(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: minifs stat IMAGE_FILE")
	}
	fs, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Printf("inodes: %d total, %d free\n", fs.Geometry.InodeCount, fs.Inodes.Available())
	fmt.Printf("blocks: %d total, %d free\n", fs.Geometry.DblockCount, fs.Pool.Available())
	return nil
}

func mkFile(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: minifs mkfile IMAGE_FILE PATH")
	}
	imagePath := c.Args().Get(0)
	targetPath := c.Args().Get(1)

	fs, err := loadImage(imagePath)
	if err != nil {
		return err
	}

	walker := pathwalk.New(fs)
	if _, err := walker.NewFile(targetPath, inodetable.DataFile, inodetable.PermRead|inodetable.PermWrite); err != nil {
		return err
	}

	raw, err := image.Save(fs)
	if err != nil {
		return err
	}
	return os.WriteFile(imagePath, raw, 0o644)
}

func listDir(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: minifs ls IMAGE_FILE [PATH]")
	}
	path := "/"
	if c.Args().Len() > 1 {
		path = c.Args().Get(1)
	}

	fs, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}

	walker := pathwalk.New(fs)
	entries, err := walker.List(path)
	if err != nil {
		return err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.NameString()
	}
	fmt.Println(strings.Join(names, "\n"))
	return nil
}

func removeFile(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: minifs rm IMAGE_FILE PATH")
	}
	imagePath := c.Args().Get(0)
	targetPath := c.Args().Get(1)

	fs, err := loadImage(imagePath)
	if err != nil {
		return err
	}

	walker := pathwalk.New(fs)
	if err := walker.RemoveFile(targetPath); err != nil {
		return err
	}

	raw, err := image.Save(fs)
	if err != nil {
		return err
	}
	return os.WriteFile(imagePath, raw, 0o644)
}
