// Package jobs holds the registrar sync jobs and their wiring into the job and cron
// registries.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/domainsync/domainsync/client"
	"github.com/domainsync/domainsync/internal/registrar/porkbun"
	"github.com/domainsync/domainsync/internal/store"
)

// Job names are persisted with every job row. Never rename one.
const (
	RefreshDomainsName            = "RefreshDomains"
	RefreshDomainsNameserversName = "RefreshDomainsNameservers"
	RefreshDomainNameserversName  = "RefreshDomainNameservers"
)

// Registrar is the part of the registrar API the jobs use.
type Registrar interface {
	ListDomains(ctx context.Context) ([]porkbun.Domain, error)
	GetNameservers(ctx context.Context, domain string) ([]string, error)
}

// State is shared by every job run.
type State struct {
	Domains   store.DomainStore
	Registrar Registrar
	Jobs      client.Enqueuer
	Logger    *slog.Logger
}

func Register(r *client.Registry[*State]) error {
	if err := client.Register(r, RefreshDomains{}); err != nil {
		return err
	}
	if err := client.Register(r, RefreshDomainsNameservers{}); err != nil {
		return err
	}
	return client.Register(r, RefreshDomainNameservers{})
}

// Schedule registers the recurring jobs. The single-domain job is only ever enqueued by
// the bulk job.
func Schedule(c *client.CronRegistry, refreshDomainsEvery, refreshNameserversEvery time.Duration) error {
	if err := c.Register(RefreshDomains{}, refreshDomainsEvery); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", RefreshDomainsName, err)
	}
	if err := c.Register(RefreshDomainsNameservers{}, refreshNameserversEvery); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", RefreshDomainsNameserversName, err)
	}
	return nil
}
