package dynamo

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/service/contact"
)

// fakeDynamo is an in-memory DynamoDB double that honors the PK/SK key
// schema, attribute_exists/attribute_not_exists conditions, transactional
// all-or-nothing semantics, and GSI1 queries.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // "PK|SK" -> item
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value + "|" +
		key["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) checkCondition(cond *string, exists bool) bool {
	if cond == nil {
		return true
	}
	switch *cond {
	case "attribute_exists(PK)":
		return exists
	case "attribute_not_exists(PK)":
		return !exists
	}
	return true
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[keyOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Item)
	_, exists := f.items[k]
	if !f.checkCondition(in.ConditionExpression, exists) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		gsi1pk, ok := item["GSI1PK"].(*types.AttributeValueMemberS)
		if ok && gsi1pk.Value == want {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a := matched[i]["GSI1SK"].(*types.AttributeValueMemberS).Value
		b := matched[j]["GSI1SK"].(*types.AttributeValueMemberS).Value
		return a > b // descending, ScanIndexForward=false
	})
	return &dynamodb.QueryOutput{Items: matched}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		var cond *string
		var k string
		switch {
		case ti.Put != nil:
			cond, k = ti.Put.ConditionExpression, itemKey(ti.Put.Item)
		case ti.Delete != nil:
			cond, k = ti.Delete.ConditionExpression, keyOf(ti.Delete.Key)
		}
		_, exists := f.items[k]
		if !f.checkCondition(cond, exists) {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		} else {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.items[itemKey(ti.Put.Item)] = ti.Put.Item
		case ti.Delete != nil:
			delete(f.items, keyOf(ti.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newTestRepo() (*ContactRepo, *fakeDynamo) {
	fake := newFakeDynamo()
	return NewContactRepoWithClient(fake, "contacts-test"), fake
}

func newContact(id, email string, at time.Time) *domain.Contact {
	return &domain.Contact{
		ID: id, Name: "Contact " + id, Email: email, Phone: "5551234567",
		CreatedAt: at, UpdatedAt: at,
	}
}

func TestInsertAndFindByID(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC().Truncate(time.Microsecond)

	c := newContact("c1", "ann@x.com", now)
	require.NoError(t, repo.Insert(context.Background(), c))

	got, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
}

func TestInsertDuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(context.Background(), newContact("c1", "ann@x.com", now)))

	err := repo.Insert(context.Background(), newContact("c2", "ann@x.com", now))
	assert.ErrorIs(t, err, contact.ErrDuplicateEmail)

	// The losing transaction must not have written a contact item.
	_, err = repo.FindByID(context.Background(), "c2")
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestFindByEmail(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(context.Background(), newContact("c1", "ann@x.com", now)))

	got, err := repo.FindByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	_, err = repo.FindByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestFindAllNewestFirst(t *testing.T) {
	repo, _ := newTestRepo()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(context.Background(), newContact("c1", "a@x.com", base)))
	require.NoError(t, repo.Insert(context.Background(), newContact("c2", "b@x.com", base.Add(time.Hour))))
	require.NoError(t, repo.Insert(context.Background(), newContact("c3", "c@x.com", base.Add(time.Minute))))

	list, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c3", list[1].ID)
	assert.Equal(t, "c1", list[2].ID)
}

func TestFindAllEmpty(t *testing.T) {
	repo, _ := newTestRepo()
	list, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUpdateSameEmail(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	c := newContact("c1", "ann@x.com", now)
	require.NoError(t, repo.Insert(context.Background(), c))

	c.Name = "Renamed"
	c.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Update(context.Background(), c, "ann@x.com"))

	got, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestUpdateEmailChanged(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	c := newContact("c1", "ann@x.com", now)
	require.NoError(t, repo.Insert(context.Background(), c))

	c.Email = "annie@x.com"
	require.NoError(t, repo.Update(context.Background(), c, "ann@x.com"))

	// Old guard released, new guard claimed.
	_, err := repo.FindByEmail(context.Background(), "ann@x.com")
	assert.ErrorIs(t, err, contact.ErrNotFound)
	got, err := repo.FindByEmail(context.Background(), "annie@x.com")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
}

func TestUpdateEmailCollision(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(context.Background(), newContact("c1", "ann@x.com", now)))
	c2 := newContact("c2", "bob@x.com", now)
	require.NoError(t, repo.Insert(context.Background(), c2))

	c2.Email = "ann@x.com"
	err := repo.Update(context.Background(), c2, "bob@x.com")
	assert.ErrorIs(t, err, contact.ErrDuplicateEmail)

	// Nothing moved: bob still owns his guard and his profile is intact.
	got, err := repo.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)
}

func TestUpdateUnknownID(t *testing.T) {
	repo, _ := newTestRepo()
	now := time.Now().UTC()

	c := newContact("ghost", "ghost@x.com", now)
	err := repo.Update(context.Background(), c, "ghost@x.com")
	assert.ErrorIs(t, err, contact.ErrNotFound)

	c.Email = "other@x.com"
	err = repo.Update(context.Background(), c, "ghost@x.com")
	assert.ErrorIs(t, err, contact.ErrNotFound)
}

func TestDeleteRemovesGuard(t *testing.T) {
	repo, fake := newTestRepo()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(context.Background(), newContact("c1", "ann@x.com", now)))
	require.NoError(t, repo.Delete(context.Background(), "c1"))

	assert.Empty(t, fake.items)
	assert.ErrorIs(t, repo.Delete(context.Background(), "c1"), contact.ErrNotFound)

	// Email freed for reuse.
	require.NoError(t, repo.Insert(context.Background(), newContact("c2", "ann@x.com", now)))
}
