package runtime

import (
	"strings"
	"time"

	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/google/uuid"
)

// Config defines the client runtime's channel and writer behavior.
type Config struct {
	ClientID       string
	QueueCapacity  int
	EnqueuePolicy  channel.Policy
	EnqueueTimeout time.Duration
	WriteTimeout   time.Duration
	DrainOnStop    bool
}

func DefaultConfig() Config {
	return Config{
		QueueCapacity:  256,
		EnqueuePolicy:  channel.PolicyBlock,
		EnqueueTimeout: 5 * time.Second,
		WriteTimeout:   15 * time.Second,
		DrainOnStop:    true,
	}
}

// WithDefaults fills zero values from DefaultConfig and assigns a client id.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	c.ClientID = strings.TrimSpace(c.ClientID)
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.QueueCapacity < 0 {
		c.QueueCapacity = 0
	}
	if c.EnqueuePolicy == "" {
		c.EnqueuePolicy = def.EnqueuePolicy
	}
	if c.EnqueueTimeout < 0 {
		c.EnqueueTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	return c
}
