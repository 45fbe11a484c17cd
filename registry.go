package sender

import (
	"context"
	"sync"
)

// Registry holds at most one Client. The first successful Init constructs it; later calls
// return the same client and ignore their configuration until Reset.
type Registry struct {
	mu     sync.Mutex
	client *Client
}

// DefaultRegistry backs the package level Init, Get and Reset.
var DefaultRegistry = &Registry{}

func (r *Registry) Init(ctx context.Context, config Config) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// InitFromMap is Init with keyword style options, see ConfigFromMap.
func (r *Registry) InitFromMap(ctx context.Context, options map[string]any) (*Client, error) {
	r.mu.Lock()
	existing := r.client
	r.mu.Unlock()
	if existing != nil {
		return existing, nil
	}

	config, err := ConfigFromMap(options)
	if err != nil {
		return nil, err
	}
	return r.Init(ctx, config)
}

// Get returns the current client, or nil.
func (r *Registry) Get() *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// Reset disconnects and drops the current client.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		r.client.Disconnect()
		r.client = nil
	}
}

func Init(ctx context.Context, config Config) (*Client, error) {
	return DefaultRegistry.Init(ctx, config)
}

func Get() *Client {
	return DefaultRegistry.Get()
}

func Reset() {
	DefaultRegistry.Reset()
}
