package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"telegram-phone-checker/internal/models"
)

// Attribute names of the key-value table
const (
	kvKeyAttribute       = "key"
	kvValueAttribute     = "value"
	kvExpiresAtAttribute = "expires_at"
	kvUpdatedAtAttribute = "updated_at"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the key-value store
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBService is a string key-value store on a single DynamoDB table
// keyed by "key", with values in "value" and TTL in "expires_at"
type DynamoDBService struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDynamoDBService creates a new key-value store on table
func NewDynamoDBService(client DynamoDBAPI, table string) *DynamoDBService {
	return &DynamoDBService{
		client: client,
		table:  table,
		now:    time.Now,
	}
}

// Get returns the value stored under key. Counters written by Increment are
// returned in their decimal form. Expired items are reported as absent.
func (s *DynamoDBService) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            kvKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if result.Item == nil {
		return "", false, nil
	}

	item, err := decodeKVItem(result.Item)
	if err != nil {
		return "", false, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	if item.Expired(s.now()) {
		return "", false, nil
	}

	return item.Value, true, nil
}

// PutIfAbsent stores value under key unless a live item already exists.
// When the key is taken it returns false and the current value.
func (s *DynamoDBService) PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	now := s.now()

	item, err := attributevalue.MarshalMap(models.KVItem{
		Key:       key,
		Value:     value,
		ExpiresAt: models.ExpiresAt(now, ttl),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#k) OR #exp <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#k":   kvKeyAttribute,
			"#exp": kvExpiresAtAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err == nil {
		return true, value, nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionFailed) {
		return false, "", fmt.Errorf("failed to put %s: %w", key, err)
	}

	current, found, err := s.Get(ctx, key)
	if err != nil {
		return false, "", err
	}
	if !found {
		// Released between the put and the read; report it as taken anyway
		// so the caller retries instead of assuming ownership.
		return false, "", nil
	}
	return false, current, nil
}

// Increment atomically adds delta to the counter under key and returns the new
// value. The TTL is set when the counter is created and left alone afterwards.
func (s *DynamoDBService) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	now := s.now()

	values := map[string]types.AttributeValue{
		":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		":now":   &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
	}
	update := "ADD #v :delta SET #u = :now"
	if expiresAt := models.ExpiresAt(now, ttl); expiresAt > 0 {
		update += ", #exp = if_not_exists(#exp, :exp)"
		values[":exp"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}
	}

	names := map[string]string{
		"#v": kvValueAttribute,
		"#u": kvUpdatedAtAttribute,
	}
	if ttl > 0 {
		names["#exp"] = kvExpiresAtAttribute
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       kvKey(key),
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	attr, ok := result.Attributes[kvValueAttribute]
	if !ok {
		return 0, fmt.Errorf("increment of %s returned no value", key)
	}
	raw, err := attributeString(attr)
	if err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s is not an integer: %w", key, err)
	}

	return total, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *DynamoDBService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       kvKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

// DeleteIfValue removes key only while it still holds value
func (s *DynamoDBService) DeleteIfValue(ctx context.Context, key, value string) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 kvKey(key),
		ConditionExpression: aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{
			"#v": kvValueAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
	if err == nil {
		return true, nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return false, nil
	}

	return false, fmt.Errorf("failed to delete %s: %w", key, err)
}

func kvKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		kvKeyAttribute: &types.AttributeValueMemberS{Value: key},
	}
}

// decodeKVItem reads an item whose value may be a string or a number
func decodeKVItem(raw map[string]types.AttributeValue) (*models.KVItem, error) {
	item := &models.KVItem{}

	if attr, ok := raw[kvKeyAttribute]; ok {
		key, err := attributeString(attr)
		if err != nil {
			return nil, err
		}
		item.Key = key
	}

	if attr, ok := raw[kvValueAttribute]; ok {
		value, err := attributeString(attr)
		if err != nil {
			return nil, err
		}
		item.Value = value
	}

	if attr, ok := raw[kvExpiresAtAttribute]; ok {
		if err := attributevalue.Unmarshal(attr, &item.ExpiresAt); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", kvExpiresAtAttribute, err)
		}
	}

	return item, nil
}

func attributeString(attr types.AttributeValue) (string, error) {
	switch v := attr.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	case *types.AttributeValueMemberB:
		return string(v.Value), nil
	default:
		return "", fmt.Errorf("unsupported attribute type %T", attr)
	}
}
