package scene

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/math"
)

// Libraries opened for scene scripts. io, os and package are left out so a
// script can only touch the grid.
var scriptLibs = []scriptLib{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.MathLibName, lua.OpenMath},
	{lua.StringLibName, lua.OpenString},
}

type scriptLib struct {
	name string
	open lua.LGFunction
}

// script binds a Lua state to a scene result.
type script struct {
	res *Result
	log *zap.Logger
}

func (s *Scene) runScript(ctx context.Context, res *Result) error {
	L, err := newState(ctx)
	if err != nil {
		return fmt.Errorf("scene script: %w", err)
	}
	defer L.Close()

	sc := &script{res: res, log: logger.Named("script")}
	sc.register(L)

	if s.Source != "" {
		err = L.DoString(s.Source)
	} else {
		err = L.DoFile(s.resolve(s.Script))
	}
	if err != nil {
		return fmt.Errorf("scene script: %w", err)
	}
	return nil
}

func newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openLibs(L, scriptLibs); err != nil {
		L.Close()
		return nil, err
	}
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	if ctx != nil {
		L.SetContext(ctx)
	}
	return L, nil
}

func openLibs(L *lua.LState, libs []scriptLib) error {
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("opening %s library: %w", lib.name, err)
		}
	}
	return nil
}

func (sc *script) register(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"side":       sc.side,
		"count":      sc.count,
		"clear":      sc.clear,
		"get_voxel":  sc.getVoxel,
		"set_voxel":  sc.setVoxel,
		"fill_range": sc.fillRange,
		"set_color":  sc.setColor,
		"set_camera": sc.setCamera,
		"log":        sc.print,
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func (sc *script) side(L *lua.LState) int {
	L.Push(lua.LNumber(sc.res.Grid.Side()))
	return 1
}

func (sc *script) count(L *lua.LState) int {
	L.Push(lua.LNumber(sc.res.Grid.Count()))
	return 1
}

func (sc *script) clear(L *lua.LState) int {
	sc.res.Grid.Clear()
	return 0
}

// get_voxel(x, y, z) returns the palette index, or 0 outside the grid.
func (sc *script) getVoxel(L *lua.LState) int {
	c := checkCoord(L, 1)
	p, err := sc.res.Grid.Get(c)
	if err != nil {
		p = palette.Empty
	}
	L.Push(lua.LNumber(p))
	return 1
}

// set_voxel(x, y, z, p)
func (sc *script) setVoxel(L *lua.LState) int {
	c := checkCoord(L, 1)
	p := checkPalette(L, 4)
	if err := sc.res.Grid.Set(c, p); err != nil {
		L.RaiseError("set_voxel: %v", err)
	}
	return 0
}

// fill_range(x0, y0, z0, x1, y1, z1, p)
func (sc *script) fillRange(L *lua.LState) int {
	c0 := checkCoord(L, 1)
	c1 := checkCoord(L, 4)
	p := checkPalette(L, 7)
	if err := sc.res.Grid.FillRange(c0, c1, p); err != nil {
		L.RaiseError("fill_range: %v", err)
	}
	return 0
}

// set_color(i, "#rrggbb")
func (sc *script) setColor(L *lua.LState) int {
	i := L.CheckInt(1)
	c, err := palette.ParseColor(L.CheckString(2))
	if err != nil {
		L.RaiseError("set_color: %v", err)
		return 0
	}
	if i < 0 || i >= palette.Size {
		L.RaiseError("set_color: %v: %d", palette.ErrIndexOutOfRange, i)
		return 0
	}
	if err := sc.res.Palette.Set(uint8(i), c); err != nil {
		L.RaiseError("set_color: %v", err)
	}
	return 0
}

// set_camera(px, py, pz, lx, ly, lz [, ux, uy, uz])
func (sc *script) setCamera(L *lua.LState) int {
	pos := checkVec(L, 1)
	look := checkVec(L, 4)
	up := math.Vec3{Y: 1}
	if L.GetTop() >= 9 {
		up = checkVec(L, 7)
	}
	if look == (math.Vec3{}) {
		L.ArgError(4, "look must be nonzero")
		return 0
	}
	sc.res.Camera = camera.New(pos, look, up)
	sc.res.HasCamera = true
	return 0
}

func (sc *script) print(L *lua.LState) int {
	sc.log.Info(L.CheckString(1))
	return 0
}

func checkCoord(L *lua.LState, n int) voxel.Coord {
	return voxel.Coord{X: L.CheckInt(n), Y: L.CheckInt(n + 1), Z: L.CheckInt(n + 2)}
}

func checkVec(L *lua.LState, n int) math.Vec3 {
	return math.Vec3{
		X: float32(L.CheckNumber(n)),
		Y: float32(L.CheckNumber(n + 1)),
		Z: float32(L.CheckNumber(n + 2)),
	}
}

func checkPalette(L *lua.LState, n int) uint8 {
	p := L.CheckInt(n)
	if p < 0 || p >= palette.Size {
		L.ArgError(n, fmt.Sprintf("palette index %d out of range", p))
	}
	return uint8(p)
}
