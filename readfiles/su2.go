// Package readfiles imports and exports the mesh tuple the engine consumes:
// SU2-format triangle grids plus a plain-text metric file.
package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_Line     SU2ElementType = 3
	ELType_Triangle SU2ElementType = 5
)

// Grid2D is the import/export tuple: coordinates, the element-to-node table
// in positive orientation, and per-facet boundary tags (facet i of an
// element is opposite its i'th vertex; 0 marks interior, positive values are
// the 1-based index of the boundary marker).
type Grid2D struct {
	NNodes    int
	NElements int
	Coords    []float64 // NNodes x 2
	EToV      []int     // NElements x 3
	Boundary  []int     // NElements x 3
	Markers   []string  // boundary marker labels, tag i+1 <-> Markers[i]
}

// ReadSU2 reads a 2D triangle grid in SU2 format.
func ReadSU2(filename string) (*Grid2D, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reader := bufio.NewReader(f)

	g := &Grid2D{}
	bcEdges := make(map[string][][2]int)

	for {
		line, err := getLine(reader)
		if err != nil {
			break
		}
		switch {
		case strings.HasPrefix(line, "NDIME="):
			var ndime int
			if _, err = fmt.Sscanf(line, "NDIME= %d", &ndime); err != nil {
				return nil, fmt.Errorf("unable to read NDIME: %w", err)
			}
			if ndime != 2 {
				return nil, fmt.Errorf("unsupported dimension %d, want 2", ndime)
			}
		case strings.HasPrefix(line, "NELEM="):
			if _, err = fmt.Sscanf(line, "NELEM= %d", &g.NElements); err != nil {
				return nil, fmt.Errorf("unable to read NELEM: %w", err)
			}
			g.EToV = make([]int, 0, 3*g.NElements)
			for i := 0; i < g.NElements; i++ {
				eline, err := getLine(reader)
				if err != nil {
					return nil, fmt.Errorf("truncated element section: %w", err)
				}
				var ntype, v1, v2, v3 int
				if _, err = fmt.Sscanf(eline, "%d %d %d %d", &ntype, &v1, &v2, &v3); err != nil {
					return nil, fmt.Errorf("unable to read element %d: %w", i, err)
				}
				if SU2ElementType(ntype) != ELType_Triangle {
					return nil, fmt.Errorf("element %d has type %d, only triangles are supported", i, ntype)
				}
				g.EToV = append(g.EToV, v1, v2, v3)
			}
		case strings.HasPrefix(line, "NPOIN="):
			if _, err = fmt.Sscanf(line, "NPOIN= %d", &g.NNodes); err != nil {
				return nil, fmt.Errorf("unable to read NPOIN: %w", err)
			}
			g.Coords = make([]float64, 0, 2*g.NNodes)
			for i := 0; i < g.NNodes; i++ {
				vline, err := getLine(reader)
				if err != nil {
					return nil, fmt.Errorf("truncated point section: %w", err)
				}
				var x, y float64
				if _, err = fmt.Sscanf(vline, "%f %f", &x, &y); err != nil {
					return nil, fmt.Errorf("unable to read vertex %d: %w", i, err)
				}
				g.Coords = append(g.Coords, x, y)
			}
		case strings.HasPrefix(line, "NMARK="):
			var nmark int
			if _, err = fmt.Sscanf(line, "NMARK= %d", &nmark); err != nil {
				return nil, fmt.Errorf("unable to read NMARK: %w", err)
			}
			for n := 0; n < nmark; n++ {
				label, edges, err := readMarker(reader)
				if err != nil {
					return nil, err
				}
				g.Markers = append(g.Markers, label)
				bcEdges[label] = edges
			}
		}
	}

	if g.NNodes == 0 || g.NElements == 0 {
		return nil, fmt.Errorf("%s: missing NPOIN or NELEM section", filename)
	}
	g.buildBoundary(bcEdges)
	return g, nil
}

func readMarker(reader *bufio.Reader) (label string, edges [][2]int, err error) {
	line, err := getLine(reader)
	if err != nil {
		return "", nil, fmt.Errorf("truncated marker section: %w", err)
	}
	if _, err = fmt.Sscanf(line, "MARKER_TAG= %s", &label); err != nil {
		return "", nil, fmt.Errorf("unable to read MARKER_TAG: %w", err)
	}
	line, err = getLine(reader)
	if err != nil {
		return "", nil, fmt.Errorf("truncated marker section: %w", err)
	}
	var nEdges int
	if _, err = fmt.Sscanf(line, "MARKER_ELEMS= %d", &nEdges); err != nil {
		return "", nil, fmt.Errorf("unable to read MARKER_ELEMS: %w", err)
	}
	for i := 0; i < nEdges; i++ {
		line, err = getLine(reader)
		if err != nil {
			return "", nil, fmt.Errorf("truncated marker section: %w", err)
		}
		var ntype, v1, v2 int
		if _, err = fmt.Sscanf(line, "%d %d %d", &ntype, &v1, &v2); err != nil {
			return "", nil, fmt.Errorf("unable to read marker edge: %w", err)
		}
		if SU2ElementType(ntype) != ELType_Line {
			return "", nil, fmt.Errorf("marker %s contains non-line element type %d", label, ntype)
		}
		edges = append(edges, [2]int{v1, v2})
	}
	return label, edges, nil
}

// buildBoundary converts the marker edge lists into per-facet element tags.
func (g *Grid2D) buildBoundary(bcEdges map[string][][2]int) {
	tagOf := make(map[[2]int]int)
	for mi, label := range g.Markers {
		for _, e := range bcEdges[label] {
			key := [2]int{minI(e[0], e[1]), maxI(e[0], e[1])}
			tagOf[key] = mi + 1
		}
	}
	g.Boundary = make([]int, 3*g.NElements)
	for e := 0; e < g.NElements; e++ {
		n := g.EToV[e*3 : e*3+3]
		for i := 0; i < 3; i++ {
			a, b := n[(i+1)%3], n[(i+2)%3]
			key := [2]int{minI(a, b), maxI(a, b)}
			g.Boundary[e*3+i] = tagOf[key]
		}
	}
}

// WriteSU2 writes the grid back out, reconstructing the marker sections from
// the per-facet tags.
func WriteSU2(filename string, g *Grid2D) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintf(w, "NDIME= 2\n")
	fmt.Fprintf(w, "NELEM= %d\n", g.NElements)
	for e := 0; e < g.NElements; e++ {
		n := g.EToV[e*3 : e*3+3]
		fmt.Fprintf(w, "%d %d %d %d %d\n", ELType_Triangle, n[0], n[1], n[2], e)
	}
	fmt.Fprintf(w, "NPOIN= %d\n", g.NNodes)
	for v := 0; v < g.NNodes; v++ {
		fmt.Fprintf(w, "%.17g %.17g %d\n", g.Coords[v*2], g.Coords[v*2+1], v)
	}

	markerEdges := make([][][2]int, len(g.Markers))
	seen := make(map[[2]int]bool)
	for e := 0; e < g.NElements; e++ {
		n := g.EToV[e*3 : e*3+3]
		for i := 0; i < 3; i++ {
			tag := g.Boundary[e*3+i]
			if tag <= 0 || tag > len(g.Markers) {
				continue
			}
			a, b := n[(i+1)%3], n[(i+2)%3]
			key := [2]int{minI(a, b), maxI(a, b)}
			if seen[key] {
				continue
			}
			seen[key] = true
			markerEdges[tag-1] = append(markerEdges[tag-1], [2]int{a, b})
		}
	}
	fmt.Fprintf(w, "NMARK= %d\n", len(g.Markers))
	for mi, label := range g.Markers {
		fmt.Fprintf(w, "MARKER_TAG= %s\n", label)
		fmt.Fprintf(w, "MARKER_ELEMS= %d\n", len(markerEdges[mi]))
		for _, e := range markerEdges[mi] {
			fmt.Fprintf(w, "%d %d %d\n", ELType_Line, e[0], e[1])
		}
	}
	return nil
}

// getLine returns the next non-empty, non-comment line.
func getLine(reader *bufio.Reader) (string, error) {
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "%") {
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}
