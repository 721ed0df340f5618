package vecadd

import (
	"bufio"
	"io"
	"strconv"
)

// WriteValues writes each value followed by a space, then a newline.
func WriteValues(w io.Writer, values []float32) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for _, v := range values {
		buf = strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32)
		buf = append(buf, ' ')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}
