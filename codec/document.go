package codec

// Document encodes self-describing metadata such as backup manifests.
// Implementations must be safe for concurrent use.
type Document interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// DefaultDocument encodes and decodes backup manifests.
var DefaultDocument Document = GoJSON{}
