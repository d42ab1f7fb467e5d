package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrEmptyOBJ        = errors.New("OBJ has no faces")
	ErrInvalidOBJIndex = errors.New("OBJ face index out of range")
)

// OBJMesh holds the geometry of a Wavefront OBJ file. Only positions and
// faces are kept; normals, texture coordinates and materials are skipped.
type OBJMesh struct {
	Vertices [][3]float32
	// Faces are zero-based vertex indices, three or more per face.
	Faces [][]int
}

// ParseOBJ reads an OBJ stream.
func ParseOBJ(r io.Reader) (*OBJMesh, error) {
	m := &OBJMesh{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var v [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[1+i], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				v[i] = float32(f)
			}
			m.Vertices = append(m.Vertices, v)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs 3 vertices", line)
			}
			face := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				idx, err := m.resolve(ref)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				face = append(face, idx)
			}
			m.Faces = append(m.Faces, face)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}
	if len(m.Faces) == 0 {
		return nil, ErrEmptyOBJ
	}
	return m, nil
}

// resolve turns a "v", "v/vt", "v//vn" or "v/vt/vn" reference into a
// zero-based index. Negative indices count back from the last vertex.
func (m *OBJMesh) resolve(ref string) (int, error) {
	head, _, _ := strings.Cut(ref, "/")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("face index %q: %w", ref, err)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += len(m.Vertices)
	default:
		return 0, fmt.Errorf("%w: 0", ErrInvalidOBJIndex)
	}
	if n < 0 || n >= len(m.Vertices) {
		return 0, fmt.Errorf("%w: %s with %d vertices", ErrInvalidOBJIndex, ref, len(m.Vertices))
	}
	return n, nil
}

// LoadOBJ parses an OBJ file from disk.
func LoadOBJ(path string) (*OBJMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f)
}

// Triangles fan-triangulates every face.
func (m *OBJMesh) Triangles() [][3][3]float32 {
	var out [][3][3]float32
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			out = append(out, [3][3]float32{m.Vertices[f[0]], m.Vertices[f[i]], m.Vertices[f[i+1]]})
		}
	}
	return out
}
