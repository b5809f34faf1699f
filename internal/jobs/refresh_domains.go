package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/domainsync/domainsync/internal/registrar/porkbun"
	"github.com/domainsync/domainsync/types"
)

// RefreshDomains mirrors every registrar domain into the domain store.
type RefreshDomains struct{}

func (RefreshDomains) Name() string { return RefreshDomainsName }

// Run parses the whole listing before writing anything, so one malformed record fails
// the job without leaving a partial refresh behind.
func (RefreshDomains) Run(ctx context.Context, s *State) error {
	domains, err := s.Registrar.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list registrar domains: %w", err)
	}

	records := make([]types.DomainRecord, 0, len(domains))
	for _, d := range domains {
		record, err := toRecord(d)
		if err != nil {
			return fmt.Errorf("domain %s: %w", d.Domain, err)
		}
		records = append(records, record)
	}

	for _, record := range records {
		if err := s.Domains.Upsert(ctx, record); err != nil {
			return err
		}
	}

	s.Logger.Info("registrar domains refreshed", slog.Int("domains", len(records)))
	return nil
}

func toRecord(d porkbun.Domain) (types.DomainRecord, error) {
	purchased, err := porkbun.ParseDate(d.CreateDate)
	if err != nil {
		return types.DomainRecord{}, err
	}
	expires, err := porkbun.ParseDate(d.ExpireDate)
	if err != nil {
		return types.DomainRecord{}, err
	}

	var status *string
	if d.Status != "" {
		s := d.Status
		status = &s
	}

	return types.DomainRecord{
		Domain:       d.Domain,
		AutoRenew:    bool(d.AutoRenew),
		PurchaseDate: purchased,
		ExpireDate:   expires,
		NotLocal:     bool(d.NotLocal),
		SecurityLock: bool(d.SecurityLock),
		Status:       status,
		TLD:          d.TLD,
		WhoisPrivacy: bool(d.WhoisPrivacy),
	}, nil
}
