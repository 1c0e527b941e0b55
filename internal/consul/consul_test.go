package consul

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent answers the handful of agent endpoints the package uses.
type fakeAgent struct {
	mu           sync.Mutex
	registered   map[string]consulapi.AgentServiceRegistration
	deregistered []string
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/v1/agent/service/register":
		var reg consulapi.AgentServiceRegistration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.registered[reg.ID] = reg
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/")
		delete(f.registered, id)
		f.deregistered = append(f.deregistered, id)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/health/service/"):
		name := strings.TrimPrefix(r.URL.Path, "/v1/health/service/")
		entries := []*consulapi.ServiceEntry{}
		for _, reg := range f.registered {
			if reg.Name == name {
				entries = append(entries, &consulapi.ServiceEntry{
					Node:    &consulapi.Node{Address: "10.0.0.1"},
					Service: &consulapi.AgentService{ID: reg.ID, Service: reg.Name, Address: reg.Address, Port: reg.Port},
				})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Consul-Index", "1")
		w.Header().Set("X-Consul-LastContact", "0")
		w.Header().Set("X-Consul-KnownLeader", "true")
		json.NewEncoder(w).Encode(entries)
	default:
		http.NotFound(w, r)
	}
}

func newAgent(t *testing.T) (*fakeAgent, *consulapi.Client) {
	t.Helper()
	agent := &fakeAgent{registered: map[string]consulapi.AgentServiceRegistration{}}
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	client, err := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	return agent, client
}

func TestRegisterDiscoverDeregister(t *testing.T) {
	agent, client := newAgent(t)

	id, err := Register(client, Registration{
		Name:      "storefront",
		Addr:      ":8080",
		Host:      "shop.internal",
		HealthURL: "http://shop.internal:8080/ping",
	})
	require.NoError(t, err)
	assert.Equal(t, "storefront-shop.internal-8080", id)
	require.Contains(t, agent.registered, id)
	assert.Equal(t, "10s", agent.registered[id].Check.Interval)

	host, port, err := GetServiceAddress(client, "storefront")
	require.NoError(t, err)
	assert.Equal(t, "shop.internal", host)
	assert.Equal(t, 8080, port)

	require.NoError(t, Deregister(client, id))
	assert.Equal(t, []string{id}, agent.deregistered)

	_, _, err = GetServiceAddress(client, "storefront")
	assert.ErrorIs(t, err, ErrNoHealthyInstance)
}

func TestRegisterRejectsBadAddress(t *testing.T) {
	_, client := newAgent(t)
	_, err := Register(client, Registration{Name: "storefront", Addr: "no-port"})
	assert.Error(t, err)
}
