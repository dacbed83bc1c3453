// Package pdfinspect reads PDF structure without rendering it.
package pdfinspect

import (
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
)

// PageCount returns the number of pages declared by the document's page tree.
func PageCount(data io.ReaderAt, size int64) (n int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("open PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return 0, fmt.Errorf("open PDF: %w", err)
	}
	n = reader.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("open PDF: no pages")
	}
	return n, nil
}

// PageCountFile is PageCount for a file on disk.
func PageCountFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return PageCount(f, st.Size())
}
