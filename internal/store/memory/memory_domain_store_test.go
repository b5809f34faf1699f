package memory

import (
	"context"
	"testing"
	"time"

	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainStore_UpsertIsIdempotent(t *testing.T) {
	s := NewDomainStore()
	ctx := context.Background()
	record := types.DomainRecord{
		Domain:       "example.com",
		PurchaseDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TLD:          "com",
	}

	require.NoError(t, s.Upsert(ctx, record))
	require.NoError(t, s.Upsert(ctx, record))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEqual(t, uuid.Nil, records[0].ID)
}

func TestDomainStore_UpsertKeepsNameservers(t *testing.T) {
	s := NewDomainStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, types.DomainRecord{Domain: "example.com", TLD: "com"}))
	records, _ := s.List(ctx)
	id := records[0].ID

	require.NoError(t, s.UpdateNameservers(ctx, id, []string{"ada.ns.cloudflare.com"}, "Cloudflare"))
	require.NoError(t, s.Upsert(ctx, types.DomainRecord{Domain: "example.com", TLD: "com", AutoRenew: true}))

	record, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, record.AutoRenew)
	assert.Equal(t, "Cloudflare", record.DNSProvider)
	assert.Equal(t, []string{"ada.ns.cloudflare.com"}, []string(record.Nameservers))
}

func TestDomainStore_ListNewestPurchaseFirst(t *testing.T) {
	s := NewDomainStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, types.DomainRecord{Domain: "old.com", PurchaseDate: base}))
	require.NoError(t, s.Upsert(ctx, types.DomainRecord{Domain: "new.com", PurchaseDate: base.AddDate(1, 0, 0)}))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new.com", records[0].Domain)
	assert.Equal(t, "old.com", records[1].Domain)
}

func TestDomainStore_Missing(t *testing.T) {
	s := NewDomainStore()
	ctx := context.Background()
	id := uuid.New()

	_, err := s.FindByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrDomainNotFound)
	assert.ErrorIs(t, s.UpdateNameservers(ctx, id, nil, "Unknown"), store.ErrDomainNotFound)
}

func TestCronRunStore(t *testing.T) {
	s := NewCronRunStore()
	ctx := context.Background()

	_, ok, err := s.LastEnqueuedAt(ctx, "RefreshDomains")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastEnqueuedAt(ctx, "RefreshDomains", at))

	got, ok, err := s.LastEnqueuedAt(ctx, "RefreshDomains")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)
}
