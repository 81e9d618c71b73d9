package config

import (
	"fmt"
	"strings"
	"time"
)

// NATSConfig configures catalog event publishing. Publishing is off unless Enabled is set.
// When Required is false an unreachable server at startup disables publishing instead of failing.
type NATSConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Required bool          `koanf:"required"`
	Url      string        `koanf:"url"`
	Timeout  time.Duration `koanf:"timeout"`
	Stream   string        `koanf:"stream"`
}

func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	if !c.Enabled {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  required: %t\n", c.Required))
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.Url)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Url, "nats://") && !strings.HasPrefix(c.Url, "tls://") {
		return fmt.Errorf("nats.url must start with 'nats://' or 'tls://': %s", MaskURL(c.Url))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats.timeout must be greater than 0")
	}
	if c.Stream == "" {
		return fmt.Errorf("nats stream is not configured")
	}
	return nil
}
