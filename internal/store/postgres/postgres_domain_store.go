package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/domainsync/domainsync/internal/store"
	"github.com/domainsync/domainsync/types"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const domainColumns = `porkbun_domain_id, domain, auto_renew, purchase_date, expire_date, not_local,
		       security_lock, status, tld, whois_privacy, nameservers, dns_provider, created_at, updated_at`

type PostgresDomainStore struct {
	db *sqlx.DB
}

func NewPostgresDomainStore(db *sqlx.DB) *PostgresDomainStore {
	return &PostgresDomainStore{db: db}
}

// Upsert relies on the unique index on domain. The generated id is only used when the
// row is new; an existing row keeps its id, nameservers and provider.
func (s *PostgresDomainStore) Upsert(ctx context.Context, record types.DomainRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO domainsync.porkbun_domains
			(porkbun_domain_id, auto_renew, purchase_date, domain, expire_date, not_local, security_lock, status, tld, whois_privacy)
		VALUES
			(:porkbun_domain_id, :auto_renew, :purchase_date, :domain, :expire_date, :not_local, :security_lock, :status, :tld, :whois_privacy)
		ON CONFLICT (domain)
		DO UPDATE SET
			auto_renew = excluded.auto_renew,
			purchase_date = excluded.purchase_date,
			expire_date = excluded.expire_date,
			not_local = excluded.not_local,
			security_lock = excluded.security_lock,
			status = excluded.status,
			tld = excluded.tld,
			whois_privacy = excluded.whois_privacy,
			updated_at = NOW()
	`, record)
	if err != nil {
		return fmt.Errorf("failed to upsert domain %s: %w", record.Domain, err)
	}
	return nil
}

func (s *PostgresDomainStore) List(ctx context.Context) ([]types.DomainRecord, error) {
	var records []types.DomainRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT `+domainColumns+`
		FROM domainsync.porkbun_domains
		ORDER BY purchase_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return records, nil
}

func (s *PostgresDomainStore) FindByID(ctx context.Context, id uuid.UUID) (*types.DomainRecord, error) {
	var record types.DomainRecord
	err := s.db.GetContext(ctx, &record, `
		SELECT `+domainColumns+`
		FROM domainsync.porkbun_domains
		WHERE porkbun_domain_id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain %s: %w", id, store.ErrDomainNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find domain %s: %w", id, err)
	}
	return &record, nil
}

func (s *PostgresDomainStore) UpdateNameservers(ctx context.Context, id uuid.UUID, nameservers []string, provider string) error {
	if nameservers == nil {
		nameservers = []string{}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE domainsync.porkbun_domains
		SET nameservers = $1,
		    dns_provider = $2,
		    updated_at = NOW()
		WHERE porkbun_domain_id = $3
	`, pq.Array(nameservers), provider, id)
	if err != nil {
		return fmt.Errorf("failed to update nameservers of %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("domain %s: %w", id, store.ErrDomainNotFound)
	}
	return nil
}
