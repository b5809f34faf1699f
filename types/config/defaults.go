package config

import "time"

const (
	DefaultInstance       = "domainsync"
	DefaultWorkerCount    = 4
	DefaultPollInterval   = 2 * time.Second
	DefaultLockTimeout    = 5 * time.Minute
	DefaultMaxRetries     = 3
	DefaultRetryBackoff   = time.Minute
	DefaultCronTick       = 5 * time.Second
	DefaultStorageDriver  = Postgres
	DefaultLockDriver     = PostgresLock
	DefaultMaxOpenConns   = 5
	DefaultMaxIdleConns   = 5
	DefaultConnLifetime   = 30 * time.Minute
	DefaultRegistrarURL   = "https://api.porkbun.com/api/json/v3"
	DefaultRegistrarWait  = 30 * time.Second
	DefaultHTTPPort       = 3001
	DefaultNoticeQueue    = "domainsync.jobs"
	DefaultNoticeExchange = "domainsync"

	DefaultRefreshDomainsInterval     = time.Hour
	DefaultRefreshNameserversInterval = 6 * time.Hour
)
