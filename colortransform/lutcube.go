package colortransform

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/deepteams/vfximg/lut"
)

// CubeDecoder parses the common ".cube" 1D/3D LUT text format (Adobe/
// Iridas), the default LutDecoder this repo supplies for the external
// LUT-file collaborator seam (spec.md §6; SPEC_FULL.md §C.5).
type CubeDecoder struct{}

var _ LutDecoder = CubeDecoder{}

func (CubeDecoder) DecodeLut(data []byte) (*Transform, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var size int
	var title string
	domMin := [3]float64{0, 0, 0}
	domMax := [3]float64{1, 1, 1}
	var rows [][3]float64
	is3D := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "TITLE":
			title = strings.Join(fields[1:], " ")
		case "LUT_3D_SIZE":
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("colortransform: cube: bad LUT_3D_SIZE: %w", err)
			}
			size = n
			is3D = true
		case "LUT_1D_SIZE":
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("colortransform: cube: bad LUT_1D_SIZE: %w", err)
			}
			size = n
		case "DOMAIN_MIN":
			domMin = parseTriplet(fields[1:])
		case "DOMAIN_MAX":
			domMax = parseTriplet(fields[1:])
		default:
			if len(fields) != 3 {
				continue
			}
			rows = append(rows, parseTriplet(fields))
		}
	}
	if size == 0 {
		return nil, fmt.Errorf("colortransform: cube: missing LUT size declaration")
	}
	_ = title

	if is3D {
		want := size * size * size
		if len(rows) != want {
			return nil, fmt.Errorf("colortransform: cube: expected %d rows for %dx%dx%d LUT3D, got %d", want, size, size, size, len(rows))
		}
		l, err := lut.NewLut3D(size)
		if err != nil {
			return nil, err
		}
		l.DomMin = [3]float32{float32(domMin[0]), float32(domMin[1]), float32(domMin[2])}
		l.DomMax = [3]float32{float32(domMax[0]), float32(domMax[1]), float32(domMax[2])}
		// .cube files enumerate with the Red index fastest-varying; convert
		// to this package's blue-major storage (spec.md §3.3).
		i := 0
		for b := 0; b < size; b++ {
			for g := 0; g < size; g++ {
				for r := 0; r < size; r++ {
					row := rows[i]
					l.SetNode(r, g, b, [3]float32{float32(row[0]), float32(row[1]), float32(row[2])})
					i++
				}
			}
		}
		return &Transform{Kind: KindLut3D, Lut3D: &Lut3DPayload{Lut: l, Tetrahedral: true}}, nil
	}

	if len(rows) != size {
		return nil, fmt.Errorf("colortransform: cube: expected %d rows for LUT1D, got %d", size, len(rows))
	}
	l, err := lut.NewLut1D(size, 3, float32(domMin[0]), float32(domMax[0]))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		l.Entries[i] = []float32{float32(row[0]), float32(row[1]), float32(row[2])}
	}
	return &Transform{Kind: KindLut1D, Lut1D: &Lut1DPayload{Lut: l}}, nil
}

func parseTriplet(fields []string) [3]float64 {
	var out [3]float64
	for i := 0; i < 3 && i < len(fields); i++ {
		v, _ := strconv.ParseFloat(fields[i], 64)
		out[i] = v
	}
	return out
}
