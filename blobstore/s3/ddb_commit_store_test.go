package s3

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/diskmap/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commitKey struct {
	partition string
	version   uint64
}

// fakeDDB is a commit table held in memory. It understands exactly the
// requests DDBCommitStore issues.
type fakeDDB struct {
	mu    sync.Mutex
	items map[commitKey]map[string]types.AttributeValue
}

var _ DDBClient = (*fakeDDB)(nil)

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[commitKey]map[string]types.AttributeValue)}
}

func keyOf(t map[string]types.AttributeValue) commitKey {
	v, _ := strconv.ParseUint(t["version"].(*types.AttributeValueMemberN).Value, 10, 64)
	return commitKey{partition: t["base_uri"].(*types.AttributeValueMemberS).Value, version: v}
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := keyOf(params.Item)
	if _, exists := f.items[k]; exists && aws.ToString(params.ConditionExpression) != "" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	}
	f.items[k] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	partition := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	var keys []commitKey
	for k := range f.items {
		if k.partition == partition {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b commitKey) int { return int(a.version) - int(b.version) })
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		slices.Reverse(keys)
	}
	if params.Limit != nil {
		keys = keys[:min(len(keys), int(*params.Limit))]
	}

	out := &dynamodb.QueryOutput{}
	for _, k := range keys {
		out.Items = append(out.Items, f.items[k])
	}
	return out, nil
}

func (f *fakeDDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(params.Key)]}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func newTestDDBCommitStore(ddb *fakeDDB, baseURI string) *DDBCommitStore {
	return NewDDBCommitStore(NewStore(&MockS3Client{}, "test-bucket", WithPrefix("test/")), ddb, "diskmap-commits", baseURI)
}

func readPointer(t *testing.T, store *DDBCommitStore, name string) string {
	t.Helper()
	got, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err)
	return string(got)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestDDBCommitStore(newFakeDDB(), "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, "users/CURRENT", []byte("users/v1.json")))
	assert.Equal(t, "users/v1.json", readPointer(t, store, "users/CURRENT"))
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestDDBCommitStore(newFakeDDB(), "s3://test-bucket/test/")

	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(ctx, "users/CURRENT", []byte(fmt.Sprintf("users/v%d.json", i))))
	}
	assert.Equal(t, "users/v12.json", readPointer(t, store, "users/CURRENT"))

	target, err := store.Version(ctx, "users/CURRENT", 3)
	require.NoError(t, err)
	assert.Equal(t, "users/v3.json", target)

	_, err = store.Version(ctx, "users/CURRENT", 99)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := newTestDDBCommitStore(newFakeDDB(), "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("v1")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, "CURRENT", []byte(fmt.Sprintf("v%d", id+2)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			assert.ErrorIs(t, err, ErrConcurrentModification)
		}(i)
	}
	wg.Wait()
	assert.Positive(t, successes)
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	store := newTestDDBCommitStore(newFakeDDB(), "s3://test-bucket/test/")

	_, err := store.Open(context.Background(), "users/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()

	a := newTestDDBCommitStore(ddb, "s3://bucket-a/path/")
	b := newTestDDBCommitStore(ddb, "s3://bucket-b/path/")

	require.NoError(t, a.Put(ctx, "users/CURRENT", []byte("A")))
	require.NoError(t, b.Put(ctx, "users/CURRENT", []byte("B")))
	require.NoError(t, a.Put(ctx, "orders/CURRENT", []byte("A-orders")))

	assert.Equal(t, "A", readPointer(t, a, "users/CURRENT"))
	assert.Equal(t, "B", readPointer(t, b, "users/CURRENT"))
	assert.Equal(t, "A-orders", readPointer(t, a, "orders/CURRENT"))
}

func TestDDBCommitStore_Delete(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, "users/CURRENT", []byte("v1")))
	require.NoError(t, store.Put(ctx, "users/CURRENT", []byte("v2")))
	require.NoError(t, store.Delete(ctx, "users/CURRENT"))

	_, err := store.Open(ctx, "users/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Empty(t, ddb.items)
}
