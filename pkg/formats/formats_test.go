package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRawGridRoundTrip(t *testing.T) {
	voxels := []RawVoxel{
		{X: 0, Y: 0, Z: 0, Value: 1},
		{X: 3, Y: 1, Z: 2, Value: 7},
		{X: 1, Y: 3, Z: 3, Value: 2},
	}
	data, err := EncodeRawGrid(voxels, 4)
	if err != nil {
		t.Fatalf("EncodeRawGrid failed: %v", err)
	}
	if len(data) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(data))
	}

	// x fastest, then z, then y
	if data[3+2*4+1*16] != 7 {
		t.Errorf("expected value 7 at x + z*N + y*N^2, got %d", data[3+2*4+16])
	}

	g, err := ParseRawGrid(data, 4)
	if err != nil {
		t.Fatalf("ParseRawGrid failed: %v", err)
	}
	if len(g.Voxels) != 3 {
		t.Fatalf("expected 3 voxels, got %d", len(g.Voxels))
	}
	found := map[RawVoxel]bool{}
	for _, v := range g.Voxels {
		found[v] = true
	}
	for _, v := range voxels {
		if !found[v] {
			t.Errorf("voxel %+v lost in round trip", v)
		}
	}
}

func TestParseRawGridErrors(t *testing.T) {
	if _, err := ParseRawGrid(make([]byte, 7), 2); !errors.Is(err, ErrTruncatedGrid) {
		t.Errorf("expected ErrTruncatedGrid, got %v", err)
	}
	if _, err := ParseRawGrid(nil, 0); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide, got %v", err)
	}
	if _, err := EncodeRawGrid([]RawVoxel{{X: 2}}, 2); err == nil {
		t.Error("expected error for voxel outside the cube")
	}
}

func TestInferRawSide(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1},
		{8, 2},
		{27, 3},
		{16777216, 256},
		{9, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := InferRawSide(tt.n); got != tt.want {
			t.Errorf("InferRawSide(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestLoadRawGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.raw")
	data, _ := EncodeRawGrid([]RawVoxel{{X: 1, Y: 2, Z: 0, Value: 3}}, 3)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}

	g, err := LoadRawGrid(path, 0)
	if err != nil {
		t.Fatalf("LoadRawGrid failed: %v", err)
	}
	if g.Side != 3 || len(g.Voxels) != 1 || g.Voxels[0] != (RawVoxel{X: 1, Y: 2, Z: 0, Value: 3}) {
		t.Errorf("unexpected grid %+v", g)
	}
}

const cubeOBJ = `# unit square and a triangle
o square
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
vt 0 0
f 1/1/1 2/1/1 3/1/1 4/1/1
f -4//1 -3//1 -1//1
`

func TestParseOBJ(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader(cubeOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ failed: %v", err)
	}
	if len(m.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(m.Vertices))
	}
	if len(m.Faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(m.Faces))
	}
	if got := fmt.Sprint(m.Faces[1]); got != "[0 1 3]" {
		t.Errorf("negative indices resolved to %s, want [0 1 3]", got)
	}

	tris := m.Triangles()
	if len(tris) != 3 {
		t.Fatalf("expected quad fan (2) + triangle (1), got %d", len(tris))
	}
	if tris[1][2] != [3]float32{0, 1, 0} {
		t.Errorf("second fan triangle should end at vertex 4, got %v", tris[1][2])
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no faces", "v 0 0 0\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"bad coordinate", "v 0 x 0\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOBJ(strings.NewReader(tt.src)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParsePixelDump(t *testing.T) {
	// Two rows of a 4-pixel-wide image. Each row starts 256 words apart.
	var b strings.Builder
	b.WriteString("// ocram dump\n")
	words := make([]uint32, 256+2)
	words[0] = 0x07E0F800   // (0,0) red, (1,0) green
	words[1] = 0xFFFF001F   // (2,0) blue, (3,0) white
	words[256] = 0x00000001 // (0,1)
	words[257] = 0xABCD0000 // (3,1)
	for _, w := range words {
		fmt.Fprintf(&b, "%08x\n", w)
	}

	pix, err := ParsePixelDump(strings.NewReader(b.String()), 4, 2)
	if err != nil {
		t.Fatalf("ParsePixelDump failed: %v", err)
	}
	want := []uint16{0xF800, 0x07E0, 0x001F, 0xFFFF, 0x0001, 0, 0, 0xABCD}
	for i := range want {
		if pix[i] != want[i] {
			t.Errorf("pixel %d = %#04x, want %#04x", i, pix[i], want[i])
		}
	}
}

func TestParsePixelDumpTruncated(t *testing.T) {
	_, err := ParsePixelDump(strings.NewReader("00000000\n"), 4, 2)
	if !errors.Is(err, ErrTruncatedDump) {
		t.Errorf("expected ErrTruncatedDump, got %v", err)
	}
	if _, err := ParsePixelDump(strings.NewReader("zz\n"), 1, 1); err == nil {
		t.Error("expected parse error for bad hex")
	}
}
