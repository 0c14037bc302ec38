package relay

const (
	// DefaultListenAddr is the relay's default listening address.
	DefaultListenAddr = ":8080"

	// DefaultPath is the route chat requests are posted to.
	DefaultPath = "/chat"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Path is the chat route (e.g., "/chat")
	Path string

	// Model is the upstream model name recorded on exchange events.
	Model string
}

func (c Config) withDefaults() Config {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	return c
}
