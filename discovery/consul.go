// Package discovery registers the game server with a Consul agent so load
// balancers and other services can find healthy instances.
package discovery

import (
	"fmt"
	"os"

	consul "github.com/hashicorp/consul/api"
	"github.com/hashicorp/go-hclog"
)

// HealthPath is the endpoint Consul polls
const HealthPath = "/api/health"

// Config describes one service instance
type Config struct {
	// ConsulAddr is the agent address; empty uses CONSUL_HTTP_ADDR or the client default
	ConsulAddr  string
	ServiceName string
	// Host is the address Consul uses to reach the health endpoint
	Host string
	Port int
	Tags []string
}

// ServiceID returns the unique id for this instance
func (c Config) ServiceID() string {
	return fmt.Sprintf("%s-%s", c.ServiceName, c.checkHost())
}

func (c Config) checkHost() string {
	if c.Host != "" && c.Host != "0.0.0.0" {
		return c.Host
	}
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	h, _ := os.Hostname()
	return h
}

// Registration builds the agent registration, including an HTTP check
// against the health endpoint.
func Registration(cfg Config) *consul.AgentServiceRegistration {
	return &consul.AgentServiceRegistration{
		ID:   cfg.ServiceID(),
		Name: cfg.ServiceName,
		Port: cfg.Port,
		Tags: cfg.Tags,
		Check: &consul.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d%s", cfg.checkHost(), cfg.Port, HealthPath),
			Timeout:                        "5s",
			Interval:                       "10s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

// Register registers the instance and returns a func that deregisters it
func Register(cfg Config, logger hclog.Logger) (func() error, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	clientCfg := consul.DefaultConfig()
	if cfg.ConsulAddr != "" {
		clientCfg.Address = cfg.ConsulAddr
	}

	client, err := consul.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	reg := Registration(cfg)
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return nil, fmt.Errorf("register %s with consul: %w", reg.ID, err)
	}
	logger.Info("registered with consul", "id", reg.ID, "address", clientCfg.Address)

	return func() error {
		if err := client.Agent().ServiceDeregister(reg.ID); err != nil {
			return fmt.Errorf("deregister %s: %w", reg.ID, err)
		}
		logger.Info("deregistered from consul", "id", reg.ID)
		return nil
	}, nil
}
