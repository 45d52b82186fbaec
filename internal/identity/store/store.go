// Package store persists DID records for the identity registry.
// Implementations satisfy identity.RecordStore.
package store
