package mocks

import (
	"context"

	"github.com/domainsync/domainsync/internal/registrar/porkbun"
)

// MockRegistrar is a mock implementation of jobs.Registrar for testing.
type MockRegistrar struct {
	ListDomainsFunc    func(ctx context.Context) ([]porkbun.Domain, error)
	GetNameserversFunc func(ctx context.Context, domain string) ([]string, error)
}

func (m *MockRegistrar) ListDomains(ctx context.Context) ([]porkbun.Domain, error) {
	if m.ListDomainsFunc != nil {
		return m.ListDomainsFunc(ctx)
	}
	return nil, nil
}

func (m *MockRegistrar) GetNameservers(ctx context.Context, domain string) ([]string, error) {
	if m.GetNameserversFunc != nil {
		return m.GetNameserversFunc(ctx, domain)
	}
	return nil, nil
}
