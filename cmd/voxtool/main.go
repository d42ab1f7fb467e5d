// voxtool is a CLI utility for voxel scenes, raw grid dumps and meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/voxelray/internal/device"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/game"
	"github.com/Faultbox/voxelray/internal/scene"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/formats"
	"github.com/Faultbox/voxelray/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "voxelize":
		cmdVoxelize(args)
	case "render":
		cmdRender(args)
	case "dump2img":
		cmdDump2Img(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`voxtool - voxel scene and grid utility

Usage:
  voxtool <command> [options]

Commands:
  info <scene.yaml|grid.raw>               Show grid size and palette usage
  voxelize [-side N] [-size N] <in.obj> <out.raw>
                                           Voxelize a mesh into a raw dump
  render [-strategy S] [-width W] [-height H] <scene.yaml> <out.png|bmp>
                                           Render one frame of a scene
  dump2img [-width W] [-height H] <dump.txt> <out.png|bmp>
                                           Convert a pixel memory dump

Examples:
  voxtool info scenes/demo.yaml
  voxtool voxelize -side 128 teapot.obj teapot.raw
  voxtool render -strategy face scenes/demo.yaml demo.png
  voxtool dump2img ocram.txt frame.bmp`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadGrid(path string) (voxel.Grid, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".raw") {
		raw, err := formats.LoadRawGrid(path, 0)
		if err != nil {
			return nil, "", err
		}
		g, err := voxel.NewSparse(raw.Side, voxel.SparseOptions{InitialCapacity: len(raw.Voxels)})
		if err != nil {
			return nil, "", err
		}
		for _, v := range raw.Voxels {
			if err := g.Set(voxel.Coord{X: v.X, Y: v.Y, Z: v.Z}, v.Value); err != nil {
				return nil, "", err
			}
		}
		return g, filepath.Base(path), nil
	}

	s, err := scene.Load(path)
	if err != nil {
		return nil, "", err
	}
	res, err := s.Build(context.Background(), scene.BuildOptions{})
	if err != nil {
		return nil, "", err
	}
	return res.Grid, res.Name, nil
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: voxtool info <scene.yaml|grid.raw>")
		os.Exit(1)
	}

	g, name, err := loadGrid(args[0])
	if err != nil {
		fail(err)
	}

	usage := make(map[uint8]int)
	lo := voxel.Coord{X: g.Side(), Y: g.Side(), Z: g.Side()}
	hi := voxel.Coord{X: -1, Y: -1, Z: -1}
	g.Each(func(c voxel.Coord, p uint8) bool {
		usage[p]++
		lo = voxel.Coord{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
		hi = voxel.Coord{X: max(hi.X, c.X), Y: max(hi.Y, c.Y), Z: max(hi.Z, c.Z)}
		return true
	})

	fmt.Printf("Scene:   %s\n", name)
	fmt.Printf("Side:    %d\n", g.Side())
	fmt.Printf("Voxels:  %d\n", g.Count())
	if g.Count() == 0 {
		return
	}
	fmt.Printf("Bounds:  %s - %s\n", lo, hi)
	fmt.Println()
	fmt.Println("Voxels by palette index:")

	type palStat struct {
		index uint8
		count int
	}
	var stats []palStat
	for p, n := range usage {
		stats = append(stats, palStat{p, n})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].count > stats[j].count
	})
	for _, s := range stats {
		fmt.Printf("  %3d %d\n", s.index, s.count)
	}
}

func cmdVoxelize(args []string) {
	fs := flag.NewFlagSet("voxelize", flag.ExitOnError)
	side := fs.Int("side", 64, "Grid side of the output dump")
	size := fs.Int("size", 0, "Cells spanned by the longest model axis (0 = side)")
	pal := fs.Int("palette", 1, "Palette index written into every cell")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: voxtool voxelize [-side N] [-size N] <in.obj> <out.raw>")
		os.Exit(1)
	}

	mesh, err := formats.LoadOBJ(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	src := mesh.Triangles()
	tris := make([]voxel.Triangle, len(src))
	for i, t := range src {
		for j := range t {
			tris[i][j] = math.Vec3{X: t[j][0], Y: t[j][1], Z: t[j][2]}
		}
	}

	g, err := voxel.NewDense(*side)
	if err != nil {
		fail(err)
	}
	n, err := voxel.Voxelize(g, tris, voxel.VoxelizeOptions{
		Size:    *size,
		Center:  voxel.Coord{X: *side / 2, Y: *side / 2, Z: *side / 2},
		Palette: uint8(*pal),
	})
	if err != nil {
		fail(err)
	}

	var out []formats.RawVoxel
	g.Each(func(c voxel.Coord, p uint8) bool {
		out = append(out, formats.RawVoxel{X: c.X, Y: c.Y, Z: c.Z, Value: p})
		return true
	})
	data, err := formats.EncodeRawGrid(out, *side)
	if err != nil {
		fail(err)
	}
	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		fail(err)
	}
	fmt.Printf("Voxelized %d triangles into %d cells -> %s\n", len(tris), n, fs.Arg(1))
}

func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	strategy := fs.String("strategy", "raycast", "Rasterizer: raycast, raymarch or face")
	width := fs.Int("width", framebuffer.DefaultWidth, "Image width")
	height := fs.Int("height", framebuffer.DefaultHeight, "Image height")
	fixed := fs.Bool("fixed", false, "Send camera registers as Q8.8 fixed point")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: voxtool render [-strategy S] <scene.yaml> <out.png|bmp>")
		os.Exit(1)
	}

	s, err := scene.Load(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	res, err := s.Build(context.Background(), scene.BuildOptions{})
	if err != nil {
		fail(err)
	}

	format := device.FormatFloat
	if *fixed {
		format = device.FormatFixed
	}
	fb, err := game.Snapshot(context.Background(), res, game.SnapshotOptions{
		Width:    *width,
		Height:   *height,
		Strategy: *strategy,
		Format:   format,
	})
	if err != nil {
		fail(err)
	}
	if err := framebuffer.Save(fs.Arg(1), fb); err != nil {
		fail(err)
	}
	fmt.Printf("Rendered %s (%d voxels, %s) -> %s\n", res.Name, res.Grid.Count(), *strategy, fs.Arg(1))
}

func cmdDump2Img(args []string) {
	fs := flag.NewFlagSet("dump2img", flag.ExitOnError)
	width := fs.Int("width", framebuffer.DefaultWidth, "Visible width")
	height := fs.Int("height", framebuffer.DefaultHeight, "Visible height")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: voxtool dump2img [-width W] [-height H] <dump.txt> <out.png|bmp>")
		os.Exit(1)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	defer f.Close()

	pix, err := formats.ParsePixelDump(f, *width, *height)
	if err != nil {
		fail(err)
	}
	w, h := *width, *height
	fb := framebuffer.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fb.Set(x, y, pix[y*w+x])
		}
	}
	if err := framebuffer.Save(fs.Arg(1), fb); err != nil {
		fail(err)
	}
	fmt.Printf("Converted %dx%d dump -> %s\n", *width, *height, fs.Arg(1))
}
