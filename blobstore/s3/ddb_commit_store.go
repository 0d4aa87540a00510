package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrCommitConflict is returned when another publisher committed the same
// version concurrently.
var ErrCommitConflict = errors.New("s3: commit conflict")

// CommitStore tracks the current published snapshot of a model prefix using
// DynamoDB conditional writes. S3 alone has no compare-and-swap, so
// concurrent publishers of the same model could otherwise clobber each
// other's manifest pointer.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 prefix of the model
//   - Sort key: version (number) - monotonically increasing version
type CommitStore struct {
	client DDBClient
	table  string
}

// NewCommitStore creates a CommitStore over the given table.
func NewCommitStore(client DDBClient, table string) *CommitStore {
	return &CommitStore{client: client, table: table}
}

// Commit records snapshotID as the next version for baseURI. The
// conditional write fails with ErrCommitConflict if that version already
// exists.
func (c *CommitStore) Commit(ctx context.Context, baseURI, snapshotID string, version int64) error {
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"base_uri":    &types.AttributeValueMemberS{Value: baseURI},
			"version":     &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
			"snapshot_id": &types.AttributeValueMemberS{Value: snapshotID},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("%w: version %d exists for %s", ErrCommitConflict, version, baseURI)
		}
		return err
	}
	return nil
}

// Current returns the latest committed snapshot id and version for baseURI.
func (c *CommitStore) Current(ctx context.Context, baseURI string) (string, int64, error) {
	out, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("base_uri = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", 0, err
	}
	if len(out.Items) == 0 {
		return "", 0, nil
	}
	item := out.Items[0]
	id, _ := item["snapshot_id"].(*types.AttributeValueMemberS)
	ver, _ := item["version"].(*types.AttributeValueMemberN)
	if id == nil || ver == nil {
		return "", 0, fmt.Errorf("s3: malformed commit record for %s", baseURI)
	}
	version, err := strconv.ParseInt(ver.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("s3: malformed commit version: %w", err)
	}
	return id.Value, version, nil
}
