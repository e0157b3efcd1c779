// Package legacy holds the flat group model of the pre-resource-graph API.
//
// A group lists its light ids, a 2D location per light and the stream
// state (active flag and owner). Lights are plain records with no separate
// device, connectivity or entertainment resources. The Store implements
// ownership.Ledger over groups, so the same arbitration and watchdog apply
// as for entertainment configurations.
package legacy
