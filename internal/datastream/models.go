package datastream

import (
	"time"

	id "canguard/pkg/domain"
)

// EncryptedBlob is the unit stored in the content store. The payload is
// ciphertext end to end; only Metadata travels in clear, and it must never
// contain behavioral values.
type EncryptedBlob struct {
	SchemaVersion int          `json:"schema_version"`
	EncryptedData []byte       `json:"encrypted_data"`
	Nonce         []byte       `json:"nonce"`
	Metadata      BlobMetadata `json:"metadata"`
}

// BlobMetadata carries non-sensitive tags alongside the ciphertext.
type BlobMetadata struct {
	DataType  string    `json:"data_type"`
	Timestamp time.Time `json:"timestamp"`
	OwnerDID  id.DID    `json:"owner_did"`
}

// BlobSchemaVersion is the current EncryptedBlob wire schema.
const BlobSchemaVersion = 1

// DataTypeTypingSample tags behavioral typing captures.
const DataTypeTypingSample = "typing-sample"
