package app

import (
	"database/sql"
	"net/http"

	"github.com/domainsync/domainsync/internal/jobs"
	"github.com/domainsync/domainsync/internal/message_broaker"
	"github.com/redis/go-redis/v9"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject custom connections instead of creating them from config
	db         *sql.DB
	redis      *redis.Client
	broker     message_broaker.MessageBroker
	registrar  jobs.Registrar
	httpClient *http.Client
}

// WithDB injects a database connection. Migrations still run against it.
func WithDB(db *sql.DB) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

// WithRedis injects a Redis client for the redis lock driver.
func WithRedis(redis *redis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

// WithBroker replaces the broker built from the RabbitMQ config.
func WithBroker(broker message_broaker.MessageBroker) ContainerOption {
	return func(c *containerConfig) {
		c.broker = broker
	}
}

// WithRegistrar replaces the Porkbun client.
func WithRegistrar(registrar jobs.Registrar) ContainerOption {
	return func(c *containerConfig) {
		c.registrar = registrar
	}
}

// WithHTTPClient sets the HTTP client the Porkbun client sends requests with.
func WithHTTPClient(client *http.Client) ContainerOption {
	return func(c *containerConfig) {
		c.httpClient = client
	}
}
