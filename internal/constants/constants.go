package constants

// Advisory lock ids shared by every instance pointed at the same database.
const (
	MigrationLock = iota + 7001
	CronTickLock
)

const (
	Schema = "domainsync"

	BulkNameserversContext = "RefreshDomainsNameservers bulk"
	CronContextPrefix      = "cron: "
	HTTPContext            = "http: admin"
)
