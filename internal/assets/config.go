package assets

type Config struct {
	// Directory entry modules are resolved against
	WorkDir string
	// Metafile name, written inside the output directory
	MetafileName string
	// Whether to write .zst siblings for js and css outputs
	Precompress bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		WorkDir:      ".",
		MetafileName: "meta.json",
	}
}
