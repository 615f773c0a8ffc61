package ports

// DocumentLoader defines how the engine retrieves the raw workflow document.
// This decouples the compiler from the storage layer (filesystem, memory,
// embedded test fixtures).
type DocumentLoader interface {
	// Load returns the raw document bytes which the compiler will parse.
	Load() ([]byte, error)
}
