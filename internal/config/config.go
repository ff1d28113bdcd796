package config

const (
	DefaultTimeZone = "Europe/Paris"

	// Import staging
	ImportSessionTTLHours = 2
	DefaultCleanSchedule  = "*/15 * * * *" // sweep stale import batches

	// Delimiter used by every CSV importer (CA detail, invoices)
	ImportDelimiter = ';'
)
