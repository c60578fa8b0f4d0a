package core

// PageConfig describes a standalone page rendered from one source document.
type PageConfig struct {
	Source   string `koanf:"source" yaml:"source"`
	Template string `koanf:"template" yaml:"template"`
	Output   string `koanf:"output" yaml:"output"`
}

// ServeConfig holds configuration for the development server.
type ServeConfig struct {
	Port int    `koanf:"port" yaml:"port"`
	Host string `koanf:"host" yaml:"host"`
}
