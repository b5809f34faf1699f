package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DomainRecord mirrors one registrar domain. Domain is the natural key.
type DomainRecord struct {
	ID           uuid.UUID      `db:"porkbun_domain_id" json:"porkbun_domain_id"`
	Domain       string         `db:"domain" json:"domain"`
	AutoRenew    bool           `db:"auto_renew" json:"auto_renew"`
	PurchaseDate time.Time      `db:"purchase_date" json:"purchase_date"`
	ExpireDate   time.Time      `db:"expire_date" json:"expire_date"`
	NotLocal     bool           `db:"not_local" json:"not_local"`
	SecurityLock bool           `db:"security_lock" json:"security_lock"`
	Status       *string        `db:"status" json:"status,omitempty"`
	TLD          string         `db:"tld" json:"tld"`
	WhoisPrivacy bool           `db:"whois_privacy" json:"whois_privacy"`
	Nameservers  pq.StringArray `db:"nameservers" json:"nameservers"`
	DNSProvider  string         `db:"dns_provider" json:"dns_provider"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
