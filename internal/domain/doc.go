// Package domain models bikeshare trip data and the trend statistics derived
// from it.
//
// # Data Source
//
// Trips come from the operator's monthly CSV exports, one file per month.
// Older exports are latin-1 encoded; newer ones are UTF-8. The columns used
// here are:
//
//	Departure, Return                 trip start and end timestamps
//	Bike                              equipment id (discarded)
//	Electric bike                     "True" / "False"
//	Departure station, Return station "<4-digit id> <name>"
//	Membership type                   free-text plan name
//	Covered distance (m)              metres, may contain thousands separators
//	Duration (sec.)                   seconds, may be negative in raw data
//
// # Cleaning
//
// [Cleaner.Clean] turns raw rows into a [Table]. Rows missing a required
// field, with an unparseable departure time or with a negative duration are
// dropped. Station labels that changed over the years are collapsed to one
// canonical label per station id (see [DefaultRules]); rows touching workshop,
// yard or event pseudo-stations are dropped. Month, season and weekday are
// derived from the departure time.
//
// Seasons are meteorological:
//
//	Dec Jan Feb  Winter
//	Mar Apr May  Spring
//	Jun Jul Aug  Summer
//	Sep Oct Nov  Fall
//
// # Aggregation
//
// [Aggregate] filters the table by bike type, membership and month range and
// reduces it to one trip count and one mean distance per month. Series run
// December to November so the winter line is not split across the year end.
// Each series is also cut into four quarter windows that share boundary
// months, so adjacent chart lines meet.
//
// The per-month trip count is the mean of the (season, month) group counts.
// Every month belongs to exactly one season, so this equals the plain count.
//
// # ID Generation
//
// Trip IDs are truncated SHA-256 hashes of the cleaned departure time,
// stations, bike flag, membership, duration and distance. Re-publishing the
// same file yields the same Kafka keys. See [generateTripID].
package domain
