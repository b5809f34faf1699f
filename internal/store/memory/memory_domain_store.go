package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
	"github.com/google/uuid"
)

type DomainStore struct {
	mu       sync.RWMutex
	byDomain map[string]*types.DomainRecord
	clock    Clock
}

func NewDomainStore(opts ...Option) *DomainStore {
	o := buildOptions(opts)
	return &DomainStore{
		byDomain: make(map[string]*types.DomainRecord),
		clock:    o.clock,
	}
}

func (s *DomainStore) Upsert(_ context.Context, record types.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	existing, ok := s.byDomain[record.Domain]
	if !ok {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Nameservers = nil
		record.DNSProvider = ""
		record.CreatedAt = now
		record.UpdatedAt = now
		s.byDomain[record.Domain] = &record
		return nil
	}

	existing.AutoRenew = record.AutoRenew
	existing.PurchaseDate = record.PurchaseDate
	existing.ExpireDate = record.ExpireDate
	existing.NotLocal = record.NotLocal
	existing.SecurityLock = record.SecurityLock
	existing.Status = record.Status
	existing.TLD = record.TLD
	existing.WhoisPrivacy = record.WhoisPrivacy
	existing.UpdatedAt = now
	return nil
}

func (s *DomainStore) List(_ context.Context) ([]types.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]types.DomainRecord, 0, len(s.byDomain))
	for _, record := range s.byDomain {
		records = append(records, copyRecord(record))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].PurchaseDate.Equal(records[j].PurchaseDate) {
			return records[i].Domain < records[j].Domain
		}
		return records[i].PurchaseDate.After(records[j].PurchaseDate)
	})
	return records, nil
}

func (s *DomainStore) FindByID(_ context.Context, id uuid.UUID) (*types.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record := s.find(id)
	if record == nil {
		return nil, fmt.Errorf("domain %s: %w", id, store.ErrDomainNotFound)
	}
	c := copyRecord(record)
	return &c, nil
}

func (s *DomainStore) UpdateNameservers(_ context.Context, id uuid.UUID, nameservers []string, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.find(id)
	if record == nil {
		return fmt.Errorf("domain %s: %w", id, store.ErrDomainNotFound)
	}
	record.Nameservers = append([]string{}, nameservers...)
	record.DNSProvider = provider
	record.UpdatedAt = s.clock()
	return nil
}

func (s *DomainStore) find(id uuid.UUID) *types.DomainRecord {
	for _, record := range s.byDomain {
		if record.ID == id {
			return record
		}
	}
	return nil
}

func copyRecord(record *types.DomainRecord) types.DomainRecord {
	c := *record
	if record.Nameservers != nil {
		c.Nameservers = append([]string{}, record.Nameservers...)
	}
	return c
}
