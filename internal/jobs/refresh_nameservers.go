package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/domainsync/domainsync/client"
	"github.com/domainsync/domainsync/internal/constants"
	"github.com/domainsync/domainsync/internal/dnsprovider"
	"github.com/domainsync/domainsync/internal/store"
	"github.com/google/uuid"
)

// RefreshDomainsNameservers fans out one RefreshDomainNameservers per stored domain. It
// completes once every child is enqueued and never waits for them to run.
type RefreshDomainsNameservers struct{}

func (RefreshDomainsNameservers) Name() string { return RefreshDomainsNameserversName }

func (RefreshDomainsNameservers) Run(ctx context.Context, s *State) error {
	records, err := s.Domains.List(ctx)
	if err != nil {
		return err
	}

	for _, record := range records {
		child := RefreshDomainNameservers{PorkbunDomainID: record.ID}
		if _, err := client.Enqueue(ctx, s.Jobs, child, constants.BulkNameserversContext); err != nil {
			return fmt.Errorf("failed to enqueue nameserver refresh for %s: %w", record.Domain, err)
		}
	}

	s.Logger.Info("nameserver refreshes enqueued", slog.Int("domains", len(records)))
	return nil
}

// RefreshDomainNameservers stores the registrar's nameservers for one domain and the
// provider they point at.
type RefreshDomainNameservers struct {
	PorkbunDomainID uuid.UUID `json:"porkbun_domain_id"`
}

func (RefreshDomainNameservers) Name() string { return RefreshDomainNameserversName }

func (j RefreshDomainNameservers) Run(ctx context.Context, s *State) error {
	record, err := s.Domains.FindByID(ctx, j.PorkbunDomainID)
	if errors.Is(err, store.ErrDomainNotFound) {
		return client.Permanent(err)
	}
	if err != nil {
		return err
	}

	nameservers, err := s.Registrar.GetNameservers(ctx, record.Domain)
	if err != nil {
		return fmt.Errorf("failed to fetch nameservers of %s: %w", record.Domain, err)
	}

	provider := dnsprovider.Classify(nameservers)
	if err := s.Domains.UpdateNameservers(ctx, record.ID, nameservers, provider.String()); err != nil {
		return err
	}

	s.Logger.Debug("nameservers refreshed",
		slog.String("domain", record.Domain),
		slog.Any("nameservers", nameservers),
		slog.String("dns_provider", provider.String()))
	return nil
}
