package llm

import (
	"context"
	"errors"
	"fmt"
)

// Router is a Client that sends each request to the provider owning the
// requested model. Requests without a model go to the default provider.
type Router struct {
	def     Provider
	clients map[Provider]Client
}

// NewRouter builds a router over the given clients. The first client is the
// default.
func NewRouter(clients ...Client) (*Router, error) {
	if len(clients) == 0 {
		return nil, errors.New("router needs at least one client")
	}
	r := &Router{def: clients[0].Provider(), clients: make(map[Provider]Client, len(clients))}
	for _, c := range clients {
		if _, dup := r.clients[c.Provider()]; dup {
			return nil, fmt.Errorf("duplicate client for provider %s", c.Provider())
		}
		r.clients[c.Provider()] = c
	}
	return r, nil
}

// Select returns the client that will serve model.
func (r *Router) Select(model string) (Client, error) {
	if model == "" {
		return r.clients[r.def], nil
	}
	p, err := ProviderForModel(model)
	if err != nil {
		return nil, err
	}
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("model %s needs provider %s, which is not configured", model, p)
	}
	return c, nil
}

func (r *Router) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	c, err := r.Select(req.Model)
	if err != nil {
		return nil, err
	}
	return c.Chat(ctx, req)
}

func (r *Router) Completion(ctx context.Context, prompt string) (*Response, error) {
	return r.clients[r.def].Completion(ctx, prompt)
}

func (r *Router) Stream(ctx context.Context, req *ChatRequest, output chan<- *Response) error {
	c, err := r.Select(req.Model)
	if err != nil {
		close(output)
		return err
	}
	return c.Stream(ctx, req, output)
}

func (r *Router) Model() string      { return r.clients[r.def].Model() }
func (r *Router) Provider() Provider { return r.def }

func (r *Router) Validate() error {
	for p, c := range r.clients {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
