// Package scene loads voxel scenes: a YAML description of the grid,
// palette and camera, optionally filled from a raw dump, a voxelized OBJ
// mesh and a Lua script.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoSide is returned for a scene that does not say how big its grid is.
var ErrNoSide = errors.New("scene grid side not set")

// Vec is a 3-component vector.
type Vec [3]float32

// Cell is an integer grid position.
type Cell [3]int

// Scene is the parsed scene file.
type Scene struct {
	Name       string         `yaml:"name"`
	Side       int            `yaml:"side"`
	Sparse     bool           `yaml:"sparse"`
	Background string         `yaml:"background"`
	Palette    map[int]string `yaml:"palette"`
	Camera     *Camera        `yaml:"camera"`
	Voxels     []Voxel        `yaml:"voxels"`
	Fills      []Fill         `yaml:"fills"`
	Raw        *Raw           `yaml:"raw"`
	OBJ        *Mesh          `yaml:"obj"`
	Script     string         `yaml:"script"`        // Path to a Lua file
	Source     string         `yaml:"script_source"` // Inline Lua

	// dir resolves relative paths.
	dir string
}

// Camera is the initial pose.
type Camera struct {
	Position   Vec     `yaml:"position,flow"`
	Look       Vec     `yaml:"look,flow"`
	Up         Vec     `yaml:"up,flow"`
	FOVDegrees float32 `yaml:"fov_degrees"`
}

// Voxel sets one cell.
type Voxel struct {
	At      Cell  `yaml:"at,flow"`
	Palette uint8 `yaml:"palette"`
}

// Fill sets an inclusive box.
type Fill struct {
	From    Cell  `yaml:"from,flow"`
	To      Cell  `yaml:"to,flow"`
	Palette uint8 `yaml:"palette"`
}

// Raw imports a raw voxel dump.
type Raw struct {
	Path string `yaml:"path"`
	// Side of the dump. Zero infers it from the file size.
	Side int `yaml:"side"`
	// Offset is added to every imported cell.
	Offset Cell `yaml:"offset,flow"`
	// Palette replaces every non-zero value when set.
	Palette uint8 `yaml:"palette"`
}

// Mesh voxelizes an OBJ model.
type Mesh struct {
	Path    string `yaml:"path"`
	Size    int    `yaml:"size"` // Cells spanned by the longest axis
	Center  Cell   `yaml:"center,flow"`
	Palette uint8  `yaml:"palette"`
}

// Parse decodes a scene. Relative paths inside it are resolved against dir.
func Parse(data []byte, dir string) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if s.Side == 0 {
		return nil, ErrNoSide
	}
	s.dir = dir
	return &s, nil
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

func (s *Scene) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// demoScript draws a floor and a row of coloured pillars.
const demoScript = `
local n = side()
local c = math.floor(n / 2)
if n < 16 then
  set_voxel(c, c, c, 2)
  return
end
fill_range(0, 0, 0, n - 1, 0, n - 1, 8)
local w = math.max(1, math.floor(n / 32))
for i = 1, 7 do
  local x = math.floor(n * i / 8)
  local h = math.floor(n * i / 16)
  fill_range(x - w, 1, c - w, x + w, h, c + w, i + 1)
end
set_camera(c, n / 3, n * 1.5, 0, -0.25, -1)
`

// Demo returns the built-in scene used when none is configured.
func Demo(side int, sparse bool) *Scene {
	return &Scene{Name: "demo", Side: side, Sparse: sparse, Source: demoScript}
}
