// Package documents reads user profiles from the primary document store.
package documents

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/config"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
)

// ProfileStore enumerates user profiles held by the document store.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]identity.Identity, error)
}

// profile is the subset of a profile document the sync cares about.
type profile struct {
	ID    string `dynamodbav:"id"`
	Email string `dynamodbav:"email"`
}

// DynamoProfileStore scans a DynamoDB profile table.
type DynamoProfileStore struct {
	api    dynamodb.ScanAPIClient
	table  string
	limit  int32
	logger logging.Logger
}

func NewDynamoProfileStore(api dynamodb.ScanAPIClient, table string, limit int32, logger logging.Logger) *DynamoProfileStore {
	return &DynamoProfileStore{api: api, table: table, limit: limit, logger: logger.With("module", "documents")}
}

// NewDynamoClient builds a DynamoDB client for cfg, honoring a custom endpoint
// (DynamoDB Local, LocalStack).
func NewDynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoRegion))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	if cfg.DynamoEndpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// ListProfiles scans the whole table. Profiles without id or email are skipped.
func (s *DynamoProfileStore) ListProfiles(ctx context.Context) ([]identity.Identity, error) {
	in := &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		ProjectionExpression: aws.String("id, email"),
	}
	if s.limit > 0 {
		in.Limit = aws.Int32(s.limit)
	}

	var out []identity.Identity
	skipped := 0

	p := dynamodb.NewScanPaginator(s.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		var items []profile
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}

		for _, it := range items {
			if it.ID == "" || it.Email == "" {
				skipped++
				continue
			}
			out = append(out, identity.Identity{ID: it.ID, Email: it.Email})
		}
	}

	if skipped > 0 {
		s.logger.Debug(ctx, "skipped incomplete profiles", "count", skipped)
	}
	return out, nil
}
