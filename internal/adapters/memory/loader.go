package memory

// Loader implements ports.DocumentLoader over an in-memory document, which
// keeps test fixtures next to the tests that use them.
type Loader struct {
	data []byte
}

// NewLoader wraps raw document bytes.
func NewLoader(data []byte) *Loader {
	return &Loader{data: data}
}

// NewLoaderString wraps a document literal.
func NewLoaderString(data string) *Loader {
	return &Loader{data: []byte(data)}
}

// Load returns the wrapped document.
func (l *Loader) Load() ([]byte, error) {
	return l.data, nil
}
