package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	scierrors "github.com/YuminosukeSato/sciforest/pkg/errors"
)

// ReadSVMLight parses the svmlight/libsvm text format:
//
//	<label> <index>:<value> <index>:<value> ... # comment
//
// Column indices are 1-based on disk. qid tokens are ignored. nFeatures fixes the column
// count; 0 infers it from the largest index seen.
func ReadSVMLight(r io.Reader, nFeatures int) (*Sparse, []float64, error) {
	const op = "matrix.ReadSVMLight"
	var (
		labels  []float64
		rows    [][]Entry
		maxCol  = -1
		lineNum int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if k := strings.IndexByte(line, '#'); k >= 0 {
			line = line[:k]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, scierrors.Wrapf(err, "%s: line %d: bad label", op, lineNum)
		}
		row := make([]Entry, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			key, val, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, nil, scierrors.Newf("%s: line %d: malformed token %q", op, lineNum, tok)
			}
			if key == "qid" {
				continue
			}
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, nil, scierrors.Wrapf(err, "%s: line %d: bad index", op, lineNum)
			}
			if idx < 1 {
				return nil, nil, scierrors.NewIndexError(op, idx, 1)
			}
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, nil, scierrors.Wrapf(err, "%s: line %d: bad value", op, lineNum)
			}
			row = append(row, Entry{Col: idx - 1, Value: v})
			if idx-1 > maxCol {
				maxCol = idx - 1
			}
		}
		labels = append(labels, label)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, scierrors.Wrap(err, "matrix: failed to scan svmlight input")
	}

	cols := nFeatures
	if cols == 0 {
		cols = maxCol + 1
	} else if maxCol >= cols {
		return nil, nil, scierrors.NewIndexError(op, maxCol, cols)
	}
	X, err := SparseFromRows(cols, rows)
	if err != nil {
		return nil, nil, err
	}
	return X, labels, nil
}

// WriteSVMLight writes X and y in svmlight format. Zero entries are omitted.
func WriteSVMLight(w io.Writer, X FeatureView, y []float64) error {
	if len(y) != X.Rows() {
		return scierrors.NewShapeError("matrix.WriteSVMLight", []int{X.Rows()}, []int{len(y)})
	}
	bw := bufio.NewWriter(w)
	for i := 0; i < X.Rows(); i++ {
		bw.WriteString(strconv.FormatFloat(y[i], 'g', -1, 64))
		if err := X.DoRowEntries(i, func(j int, v float64) {
			if v != 0 {
				fmt.Fprintf(bw, " %d:%s", j+1, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}); err != nil {
			return err
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return scierrors.Wrap(err, "matrix: failed to write svmlight")
	}
	return nil
}

// ReadSVMLightFile opens path and calls ReadSVMLight.
func ReadSVMLightFile(path string, nFeatures int) (_ *Sparse, _ []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, scierrors.Wrapf(err, "matrix: failed to open %s", path)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return ReadSVMLight(f, nFeatures)
}

// WriteSVMLightFile creates path and calls WriteSVMLight.
func WriteSVMLightFile(path string, X FeatureView, y []float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "matrix: failed to create %s", path)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return WriteSVMLight(f, X, y)
}
