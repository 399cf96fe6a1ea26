// Package utils contains small helper functions used across the project.
package utils

import (
	"fmt"
	"io"

	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
)

// PrintJSON writes v to w as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	data, err := jsoncodec.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("write json: %w", err)
	}

	return nil
}
