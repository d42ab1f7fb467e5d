package scene

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/formats"
	"github.com/Faultbox/voxelray/pkg/math"
)

// BuildOptions tunes grid allocation.
type BuildOptions struct {
	SparseCapacity int
	MaxRecords     int
}

// Result is a scene ready to render.
type Result struct {
	Name       string
	Grid       voxel.Grid
	Palette    *palette.Palette
	Camera     camera.Camera
	HasCamera  bool
	FOVDegrees float32
	Background uint16
}

// Build allocates the grid and applies the scene in order: palette,
// background, camera, raw import, mesh, fills, single voxels, then the script.
func (s *Scene) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	log := logger.Named("scene")

	res := &Result{Name: s.Name, Palette: palette.Default(), Camera: camera.Default()}

	var err error
	if s.Sparse {
		res.Grid, err = voxel.NewSparse(s.Side, voxel.SparseOptions{
			InitialCapacity: opts.SparseCapacity,
			MaxRecords:      opts.MaxRecords,
		})
	} else {
		res.Grid, err = voxel.NewDense(s.Side)
	}
	if err != nil {
		return nil, fmt.Errorf("allocating grid: %w", err)
	}

	for i, name := range s.Palette {
		c, err := palette.ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("palette %d: %w", i, err)
		}
		if i < 0 || i >= palette.Size {
			return nil, fmt.Errorf("palette %d: %w", i, palette.ErrIndexOutOfRange)
		}
		if err := res.Palette.Set(uint8(i), c); err != nil {
			return nil, fmt.Errorf("palette %d: %w", i, err)
		}
	}

	if s.Background != "" {
		if res.Background, err = palette.ParseColor(s.Background); err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
	}

	if c := s.Camera; c != nil {
		res.Camera = camera.New(toVec(c.Position), toVec(c.Look), toVec(c.Up))
		res.HasCamera = true
		res.FOVDegrees = c.FOVDegrees
	}

	if s.Raw != nil {
		n, err := s.importRaw(res.Grid)
		if err != nil {
			return nil, err
		}
		log.Debug("Imported raw dump", zap.String("path", s.Raw.Path), zap.Int("voxels", n))
	}

	if s.OBJ != nil {
		n, err := s.importMesh(res.Grid)
		if err != nil {
			return nil, err
		}
		log.Debug("Voxelized mesh", zap.String("path", s.OBJ.Path), zap.Int("voxels", n))
	}

	for i, f := range s.Fills {
		if err := res.Grid.FillRange(toCoord(f.From), toCoord(f.To), f.Palette); err != nil {
			return nil, fmt.Errorf("fill %d: %w", i, err)
		}
	}
	for i, v := range s.Voxels {
		if err := res.Grid.Set(toCoord(v.At), v.Palette); err != nil {
			return nil, fmt.Errorf("voxel %d: %w", i, err)
		}
	}

	if s.Script != "" || s.Source != "" {
		if err := s.runScript(ctx, res); err != nil {
			return nil, err
		}
	}

	log.Info("Scene built",
		zap.String("name", s.Name),
		zap.Int("side", s.Side),
		zap.Bool("sparse", s.Sparse),
		zap.Int("voxels", res.Grid.Count()))
	return res, nil
}

func (s *Scene) importRaw(g voxel.Grid) (int, error) {
	raw, err := formats.LoadRawGrid(s.resolve(s.Raw.Path), s.Raw.Side)
	if err != nil {
		return 0, fmt.Errorf("raw import: %w", err)
	}
	off := toCoord(s.Raw.Offset)
	n := 0
	for _, v := range raw.Voxels {
		c := voxel.Coord{X: v.X + off.X, Y: v.Y + off.Y, Z: v.Z + off.Z}
		if !voxel.InBounds(c, g.Side()) {
			continue
		}
		p := v.Value
		if s.Raw.Palette != 0 {
			p = s.Raw.Palette
		}
		if int(p) >= palette.Size {
			p %= palette.Size
			if p == 0 {
				p = palette.White
			}
		}
		if err := g.Set(c, p); err != nil {
			return n, fmt.Errorf("raw import: %w", err)
		}
		n++
	}
	return n, nil
}

func (s *Scene) importMesh(g voxel.Grid) (int, error) {
	mesh, err := formats.LoadOBJ(s.resolve(s.OBJ.Path))
	if err != nil {
		return 0, fmt.Errorf("mesh import: %w", err)
	}
	src := mesh.Triangles()
	tris := make([]voxel.Triangle, len(src))
	for i, t := range src {
		for j := range t {
			tris[i][j] = math.Vec3{X: t[j][0], Y: t[j][1], Z: t[j][2]}
		}
	}
	n, err := voxel.Voxelize(g, tris, voxel.VoxelizeOptions{
		Size:    s.OBJ.Size,
		Center:  toCoord(s.OBJ.Center),
		Palette: s.OBJ.Palette,
	})
	if err != nil {
		return n, fmt.Errorf("mesh import: %w", err)
	}
	return n, nil
}

func toVec(v Vec) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func toCoord(c Cell) voxel.Coord {
	return voxel.Coord{X: c[0], Y: c[1], Z: c[2]}
}
