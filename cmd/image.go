package cmd

import (
	"fmt"
	"os"

	"github.com/sergev/fdimage/format"
	"github.com/sergev/fdimage/fsio"
	"github.com/sergev/fdimage/geometry"
	"github.com/sergev/fdimage/host"
	"github.com/sergev/fdimage/track"
	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Inspect and exercise sector-image files directly (no USB adapter)",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Do nothing - the image subcommands never touch USB hardware.
	},
}

var infoCmd = &cobra.Command{
	Use:   "info IMAGE",
	Short: "Print the geometry the engine resolved for IMAGE",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		im, handler, f := openForInspect(args[0])
		defer f.Close()
		fmt.Printf("opened by: %s\n", handler)
		fmt.Printf("cylinders: %d, sides: %d\n", im.NrCyls, im.NrSides)
		size, err := im.Extend()
		if err != nil {
			cobra.CheckErr(err)
		}
		fmt.Printf("canonical size: %d bytes\n", size)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump IMAGE CYL SIDE OUT.bin",
	Short: "Emit the raw MFM/FM bitstream for one track to OUT.bin",
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		im, _, f := openForInspect(args[0])
		defer f.Close()

		var cyl, side int
		if _, err := fmt.Sscanf(args[1], "%d", &cyl); err != nil {
			cobra.CheckErr(fmt.Errorf("invalid cylinder %q: %w", args[1], err))
		}
		if _, err := fmt.Sscanf(args[2], "%d", &side); err != nil {
			cobra.CheckErr(fmt.Errorf("invalid side %q: %w", args[2], err))
		}

		fetcher := format.NewFetcher(f)
		c := track.NewCursor(im, fetcher, 0)
		if err := c.SeekTrack(cyl, side); err != nil {
			cobra.CheckErr(err)
		}

		buf := make([]byte, 1<<20)
		n, _, err := c.ReadTrack(buf)
		if err != nil {
			cobra.CheckErr(err)
		}
		if err := os.WriteFile(args[3], buf[:n], 0644); err != nil {
			cobra.CheckErr(err)
		}
		fmt.Printf("wrote %d bytes of raw bitcells to %s\n", n, args[3])
	},
}

func openForInspect(path string) (*geometry.Image, string, fsio.File) {
	f, err := fsio.Open(path, false)
	if err != nil {
		cobra.CheckErr(fmt.Errorf("failed to open %s: %w", path, err))
	}
	im, handler, err := format.OpenImage(f, path)
	if err != nil {
		cobra.CheckErr(fmt.Errorf("failed to recognize %s: %w", path, err))
	}
	return im, handler, f
}

func init() {
	imageCmd.AddCommand(infoCmd)
	imageCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(imageCmd)
	format.RegisterAll(host.Generic, nil, nil, nil)
}
