package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoStore persists subscriber records in a DynamoDB table keyed by
// (PK, SK). The provider's last-write-wins semantics on the composite key
// are what make concurrent re-submission of the same address safe.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore creates a DynamoDB-backed subscriber store.
func NewDynamoStore(ctx context.Context, tableName, region, profile string) (*DynamoStore, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &DynamoStore{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

// PutSubscriber writes the record for an address, overwriting any existing
// record with the same key.
func (s *DynamoStore) PutSubscriber(ctx context.Context, email string) error {
	av, err := attributevalue.MarshalMap(NewSubscriberRecord(email))
	if err != nil {
		return fmt.Errorf("marshaling subscriber record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting subscriber to DynamoDB: %w", err)
	}

	return nil
}
