package extract

import (
	"bytes"
	"fmt"

	"github.com/dslipak/pdf"
)

// extractPDF pulls the plain text out of a PDF payload.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("buffering pdf text: %w", err)
	}
	return buf.String(), nil
}
