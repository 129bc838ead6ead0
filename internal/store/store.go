// Package store provides the subscriber persistence layer. A subscriber is
// keyed by email address, so writing the same address twice overwrites the
// existing record instead of duplicating it, so subscribe is idempotent
// without an existence check.
package store

import (
	"context"
	"fmt"
)

// PartitionKey is the fixed partition marker grouping all subscriber
// records under one logical partition.
const PartitionKey = "EMAIL"

// SubscriberRecord is the sole persisted entity: one row per address.
// The email doubles as the sort key and is stored redundantly as a plain
// attribute for readability and export tooling.
type SubscriberRecord struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Email string `dynamodbav:"email"`
}

// NewSubscriberRecord builds the record for an address.
func NewSubscriberRecord(email string) SubscriberRecord {
	return SubscriberRecord{
		PK:    PartitionKey,
		SK:    email,
		Email: email,
	}
}

// SubscriberStore persists subscriber records. PutSubscriber is an
// idempotent upsert: it creates the record if absent or overwrites it
// identically if present. No read or list operation is part of the
// ingestion path; export is an administrative concern handled elsewhere.
type SubscriberStore interface {
	PutSubscriber(ctx context.Context, email string) error
}

// New creates a subscriber store for the configured backend.
func New(ctx context.Context, cfg Config) (SubscriberStore, error) {
	switch cfg.Type {
	case "dynamodb":
		return NewDynamoStore(ctx, cfg.TableName, cfg.Region, cfg.Profile)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// Config selects and parameterizes a store backend.
type Config struct {
	Type      string
	TableName string
	Region    string
	Profile   string
}
