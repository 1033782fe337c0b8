package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the HTTP media type
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Export exports the identity to JSON
func (c *JSONCodec) Export(doc Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(newIdentityView(doc)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
