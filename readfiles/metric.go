package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadMetric reads a per-vertex metric file: one row of msize doubles per
// vertex, packed [m00 m01 m11] in 2D.
func ReadMetric(filename string, nnodes, msize int) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	metric := make([]float64, 0, nnodes*msize)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != msize {
			return nil, fmt.Errorf("metric row %d has %d entries, want %d", len(metric)/msize, len(fields), msize)
		}
		for _, fs := range fields {
			var v float64
			if _, err := fmt.Sscanf(fs, "%f", &v); err != nil {
				return nil, fmt.Errorf("unable to parse metric entry %q: %w", fs, err)
			}
			metric = append(metric, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(metric) != nnodes*msize {
		return nil, fmt.Errorf("metric file has %d rows, want %d", len(metric)/msize, nnodes)
	}
	return metric, nil
}

// WriteMetric writes the packed metric field, one vertex per row.
func WriteMetric(filename string, metric []float64, msize int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	for i := 0; i < len(metric); i += msize {
		for j := 0; j < msize; j++ {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.17g", metric[i+j])
		}
		fmt.Fprintln(w)
	}
	return nil
}
