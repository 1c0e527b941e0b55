package consul

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

var ErrNoHealthyInstance = errors.New("no healthy service instance")

func NewClient(addr string) (*consulapi.Client, error) {
	config := consulapi.DefaultConfig()
	if addr != "" {
		config.Address = addr
	}
	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return client, nil
}

// Registration describes this process to the agent. HealthURL is polled by
// consul; a failing check deregisters the instance after a minute.
type Registration struct {
	Name      string
	Addr      string
	Host      string
	Tags      []string
	HealthURL string
}

// Register adds the instance and returns its service id for Deregister.
func Register(client *consulapi.Client, r Registration) (string, error) {
	host, portStr, err := net.SplitHostPort(r.Addr)
	if err != nil {
		return "", fmt.Errorf("parsing address %q: %w", r.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parsing port %q: %w", portStr, err)
	}
	if r.Host != "" {
		host = r.Host
	}
	if host == "" {
		host = "localhost"
	}
	id := fmt.Sprintf("%s-%s-%d", r.Name, host, port)

	reg := &consulapi.AgentServiceRegistration{
		ID:      id,
		Name:    r.Name,
		Address: host,
		Port:    port,
		Tags:    r.Tags,
	}
	if r.HealthURL != "" {
		reg.Check = &consulapi.AgentServiceCheck{
			HTTP:                           r.HealthURL,
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		}
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return "", fmt.Errorf("registering %s: %w", id, err)
	}
	return id, nil
}

func Deregister(client *consulapi.Client, id string) error {
	return client.Agent().ServiceDeregister(id)
}

// GetServiceAddress returns the address of the first healthy instance of
// serviceName.
func GetServiceAddress(client *consulapi.Client, serviceName string) (string, int, error) {
	services, _, err := client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return "", 0, fmt.Errorf("looking up %s: %w", serviceName, err)
	}
	if len(services) == 0 {
		return "", 0, fmt.Errorf("%s: %w", serviceName, ErrNoHealthyInstance)
	}
	svc := services[0].Service
	address := svc.Address
	if address == "" {
		address = services[0].Node.Address
	}
	return address, svc.Port, nil
}
