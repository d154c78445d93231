package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/diskmap/blobstore"
)

// CurrentName is the base name of commit pointer blobs.
const CurrentName = "CURRENT"

// ErrConcurrentModification is returned when another writer committed the same version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// DDBClient is the subset of the DynamoDB API used by DDBCommitStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// DDBCommitStore is an S3 BlobStore whose commit pointers (blobs named
// CURRENT, at any depth) live in DynamoDB. Each pointer write is a
// conditional put of the next version, which gives concurrent exporters
// the compare-and-swap S3 lacks. All other blobs go to S3.
//
// Table schema:
//   - Partition key: base_uri (string), the base URI plus the pointer's directory
//   - Sort key: version (number), increasing per pointer
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name diskmap-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	*Store
	ddb     DDBClient
	table   string
	baseURI string
}

var _ blobstore.BlobStore = (*DDBCommitStore)(nil)

// NewDDBCommitStore wraps an S3 store. baseURI (e.g. "s3://bucket/prefix")
// namespaces the partition keys.
func NewDDBCommitStore(store *Store, ddb DDBClient, table, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		Store:   store,
		ddb:     ddb,
		table:   table,
		baseURI: baseURI,
	}
}

func isPointer(name string) bool {
	return path.Base(name) == CurrentName
}

func (s *DDBCommitStore) partition(name string) string {
	return s.baseURI + "#" + path.Dir(name)
}

// Open reads pointer blobs from DynamoDB and everything else from S3.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if !isPointer(name) {
		return s.Store.Open(ctx, name)
	}
	version, target, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return blobstore.BytesBlob(target), nil
}

// Put commits pointer blobs through a conditional write.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if !isPointer(name) {
		return s.Store.Put(ctx, name, data)
	}
	version, _, err := s.latest(ctx, name)
	if err != nil {
		return err
	}
	return s.commit(ctx, name, version+1, string(data))
}

// Delete removes a blob. For pointers all versions are removed.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if !isPointer(name) {
		return s.Store.Delete(ctx, name)
	}
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.partition(name)},
		},
	})
	if err != nil {
		return fmt.Errorf("s3: query commits: %w", err)
	}
	for _, item := range resp.Items {
		if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"base_uri": item["base_uri"],
				"version":  item["version"],
			},
		}); err != nil {
			return fmt.Errorf("s3: delete commit: %w", err)
		}
	}
	return nil
}

// Version returns the target recorded by a specific pointer version.
func (s *DDBCommitStore) Version(ctx context.Context, name string, version uint64) (string, error) {
	resp, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.partition(name)},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3: get commit: %w", err)
	}
	if resp.Item == nil {
		return "", blobstore.ErrNotFound
	}
	_, target, err := decodeCommit(resp.Item)
	return target, err
}

func (s *DDBCommitStore) latest(ctx context.Context, name string) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.partition(name)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commits: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}
	return decodeCommit(resp.Items[0])
}

func (s *DDBCommitStore) commit(ctx context.Context, name string, version uint64, target string) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.partition(name)},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit version %d: %w", version, err)
	}
	return nil
}

func decodeCommit(item map[string]types.AttributeValue) (uint64, string, error) {
	v, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute")
	}
	t, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid target attribute")
	}
	version, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse version: %w", err)
	}
	return version, t.Value, nil
}
