package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PixelDumpStride is the number of pixels per row in on-chip memory. Rows
// start on 1 KiB boundaries regardless of the visible width.
const PixelDumpStride = 512

// ErrTruncatedDump is returned when a dump ends before the last row.
var ErrTruncatedDump = errors.New("truncated pixel dump")

// ParsePixelDump reads a memory dump of 32-bit hex words, one per line,
// each holding two little-endian RGB565 pixels. Lines starting with "//"
// are comments. The visible width x height region is returned row-major.
func ParsePixelDump(r io.Reader, width, height int) ([]uint16, error) {
	if width <= 0 || height <= 0 || width > PixelDumpStride {
		return nil, fmt.Errorf("invalid dump size %dx%d", width, height)
	}

	var mem []byte
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		w, err := strconv.ParseUint(text, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		mem = binary.LittleEndian.AppendUint32(mem, uint32(w))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}

	last := (height-1)*PixelDumpStride*2 + width*2
	if len(mem) < last {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrTruncatedDump, last, len(mem))
	}

	pix := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := y<<10 | x<<1
			pix[y*width+x] = binary.LittleEndian.Uint16(mem[off:])
		}
	}
	return pix, nil
}
