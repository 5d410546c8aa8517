// Package dynamo implements the contact repository on DynamoDB.
//
// Single-table layout:
//
//	PK=CONTACT#<id>  SK=PROFILE  — the contact document
//	PK=EMAIL#<email> SK=UNIQUE   — uniqueness guard, holds the owning id
//
// Contact items also carry GSI1PK=CONTACT / GSI1SK=<createdAt>#<id> so the
// full list can be read newest-first from the GSI1 index without a scan.
//
// Every write that touches an email goes through TransactWriteItems with
// condition expressions on both items. The guard item is the authoritative
// duplicate-email signal: a create or update that collides is cancelled by
// DynamoDB itself, regardless of what any pre-check saw.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/contact-manager/internal/domain"
	"github.com/ignite/contact-manager/internal/service/contact"
)

const (
	skProfile   = "PROFILE"
	skUnique    = "UNIQUE"
	listPartKey = "CONTACT"
	listIndex   = "GSI1"
	timeLayout  = time.RFC3339Nano
)

// DynamoDBer is the subset of the DynamoDB client used by ContactRepo.
// Satisfied by *dynamodb.Client; tests provide a fake.
type DynamoDBer interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// ContactRepo implements contact.Repository against DynamoDB.
type ContactRepo struct {
	dynamoDB  DynamoDBer
	tableName string
}

// contactItem is the DynamoDB shape of a contact document.
type contactItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"`
	GSI1SK    string `dynamodbav:"GSI1SK"`
	ID        string `dynamodbav:"ID"`
	Name      string `dynamodbav:"Name"`
	Email     string `dynamodbav:"Email"`
	Phone     string `dynamodbav:"Phone"`
	CreatedAt string `dynamodbav:"CreatedAt"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// guardItem reserves an email address for a single contact.
type guardItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ContactID string `dynamodbav:"ContactID"`
}

// NewContactRepo creates a DynamoDB-backed contact repository.
func NewContactRepo(ctx context.Context, tableName, region, profile string) (*ContactRepo, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &ContactRepo{
		dynamoDB:  dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}, nil
}

// NewContactRepoWithClient wires an existing DynamoDB client (tests, custom
// endpoints).
func NewContactRepoWithClient(client DynamoDBer, tableName string) *ContactRepo {
	return &ContactRepo{dynamoDB: client, tableName: tableName}
}

func contactPK(id string) string  { return "CONTACT#" + id }
func emailPK(email string) string { return "EMAIL#" + email }

func listSK(c *domain.Contact) string {
	return c.CreatedAt.UTC().Format(timeLayout) + "#" + c.ID
}

func marshalContact(c *domain.Contact) (map[string]types.AttributeValue, error) {
	item := contactItem{
		PK:        contactPK(c.ID),
		SK:        skProfile,
		GSI1PK:    listPartKey,
		GSI1SK:    listSK(c),
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt: c.UpdatedAt.UTC().Format(timeLayout),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshaling contact: %w", err)
	}
	return av, nil
}

func unmarshalContact(av map[string]types.AttributeValue) (*domain.Contact, error) {
	var item contactItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling contact: %w", err)
	}
	createdAt, err := time.Parse(timeLayout, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing CreatedAt: %w", err)
	}
	updatedAt, err := time.Parse(timeLayout, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing UpdatedAt: %w", err)
	}
	return &domain.Contact{
		ID:        item.ID,
		Name:      item.Name,
		Email:     item.Email,
		Phone:     item.Phone,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (r *ContactRepo) Insert(ctx context.Context, c *domain.Contact) error {
	contactAV, err := marshalContact(c)
	if err != nil {
		return err
	}
	guardAV, err := attributevalue.MarshalMap(guardItem{
		PK:        emailPK(c.Email),
		SK:        skUnique,
		ContactID: c.ID,
	})
	if err != nil {
		return fmt.Errorf("marshaling email guard: %w", err)
	}

	_, err = r.dynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                contactAV,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                guardAV,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		// The guard item is the second transact entry.
		if conditionFailedAt(err, 1) {
			return contact.ErrDuplicateEmail
		}
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

func (r *ContactRepo) FindAll(ctx context.Context) ([]domain.Contact, error) {
	var out []domain.Contact
	var startKey map[string]types.AttributeValue

	for {
		result, err := r.dynamoDB.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(listIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: listPartKey},
			},
			ScanIndexForward:  aws.Bool(false), // newest first
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying contacts: %w", err)
		}

		for _, item := range result.Items {
			c, err := unmarshalContact(item)
			if err != nil {
				return nil, err
			}
			out = append(out, *c)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	// The GSI is eventually consistent; re-sort so the ordering contract
	// holds even when a page boundary lands mid-timestamp.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if out == nil {
		out = []domain.Contact{}
	}
	return out, nil
}

func (r *ContactRepo) FindByID(ctx context.Context, id string) (*domain.Contact, error) {
	result, err := r.dynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: contactPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	if result.Item == nil {
		return nil, contact.ErrNotFound
	}
	return unmarshalContact(result.Item)
}

func (r *ContactRepo) FindByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	result, err := r.dynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: emailPK(email)},
			"SK": &types.AttributeValueMemberS{Value: skUnique},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting email guard: %w", err)
	}
	if result.Item == nil {
		return nil, contact.ErrNotFound
	}

	var guard guardItem
	if err := attributevalue.UnmarshalMap(result.Item, &guard); err != nil {
		return nil, fmt.Errorf("unmarshaling email guard: %w", err)
	}
	return r.FindByID(ctx, guard.ContactID)
}

func (r *ContactRepo) Update(ctx context.Context, c *domain.Contact, prevEmail string) error {
	contactAV, err := marshalContact(c)
	if err != nil {
		return err
	}

	// Same email: a single conditional replace of the profile item.
	if c.Email == prevEmail {
		_, err = r.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                contactAV,
			ConditionExpression: aws.String("attribute_exists(PK)"),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				return contact.ErrNotFound
			}
			return fmt.Errorf("updating contact: %w", err)
		}
		return nil
	}

	// Email changed: replace the profile, claim the new guard, release the
	// old one — atomically, so no interleaving can leave two contacts on one
	// email or an orphaned guard.
	guardAV, err := attributevalue.MarshalMap(guardItem{
		PK:        emailPK(c.Email),
		SK:        skUnique,
		ContactID: c.ID,
	})
	if err != nil {
		return fmt.Errorf("marshaling email guard: %w", err)
	}

	_, err = r.dynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                contactAV,
				ConditionExpression: aws.String("attribute_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                guardAV,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: emailPK(prevEmail)},
					"SK": &types.AttributeValueMemberS{Value: skUnique},
				},
			}},
		},
	})
	if err != nil {
		if conditionFailedAt(err, 0) {
			return contact.ErrNotFound
		}
		if conditionFailedAt(err, 1) {
			return contact.ErrDuplicateEmail
		}
		return fmt.Errorf("updating contact: %w", err)
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, id string) error {
	// Read first to learn the guard key; the conditional delete below still
	// catches a concurrent removal between the two steps.
	c, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.dynamoDB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: contactPK(id)},
					"SK": &types.AttributeValueMemberS{Value: skProfile},
				},
				ConditionExpression: aws.String("attribute_exists(PK)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: emailPK(c.Email)},
					"SK": &types.AttributeValueMemberS{Value: skUnique},
				},
			}},
		},
	})
	if err != nil {
		if conditionFailedAt(err, 0) {
			return contact.ErrNotFound
		}
		return fmt.Errorf("deleting contact: %w", err)
	}
	return nil
}

// conditionFailedAt reports whether err is a cancelled transaction whose
// cancellation reason at index idx is a conditional check failure.
func conditionFailedAt(err error, idx int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	if idx >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[idx].Code) == "ConditionalCheckFailed"
}
