package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// Service handles client master data. Clients carry no derived state; edits
// never touch sale ledgers.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns one client by id.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("client %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// List returns clients matching the request filters plus the total count.
func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new client.
func (s *Service) Create(ctx context.Context, client Client) (*Client, error) {
	if err := s.validate(client); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update edits a client's contact fields.
func (s *Service) Update(ctx context.Context, client Client) (*Client, error) {
	if err := s.validate(client); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, client); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("client %d: %w", client.ID, httpx.ErrNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, client.ID)
}

// Delete removes a client. The database restricts deletion while sales still
// reference the client.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("client %d: %w", id, httpx.ErrNotFound)
		}
		return err
	}
	return nil
}
