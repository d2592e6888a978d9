package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// WriteASC writes points as CloudCompare-compatible ASC text, one
// "X Y Z R" row per point where R is the distance from the origin.
func WriteASC(w io.Writer, points []r3.Vec) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to export")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z Radial\n")
	for _, p := range points {
		fmt.Fprintf(bw, "%.6f %.6f %.6f %.6f\n", p.X, p.Y, p.Z, r3.Norm(p))
	}
	return bw.Flush()
}

// SaveASC writes points to an ASC file at path.
func SaveASC(path string, points []r3.Vec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteASC(f, points); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("Exported %d points to %s", len(points), path)
	return nil
}
