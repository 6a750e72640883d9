package matrix

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadText parses a whitespace-separated text matrix, one row per line.
// Blank lines are ignored.
func ReadText(r io.Reader) (*mat.Dense, error) {
	var (
		values []float64
		rows   int
		cols   = -1
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols < 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, artifactError(ErrRaggedText, "line %d has %d values, want %d", line, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, artifactError(err, "line %d", line)
			}
			values = append(values, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("matrix: read text: %w", err)
	}
	if rows == 0 {
		return nil, artifactError(ErrEmpty, "no rows")
	}
	return mat.NewDense(rows, cols, values), nil
}

// WriteText writes m as whitespace-separated text, one row per line.
func WriteText(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	for i := range rows {
		for j := range cols {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
