package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeDynamoDB is an in-memory table that understands the condition and
// update expressions issued by DynamoDBService
type fakeDynamoDB struct {
	mu    sync.Mutex
	items     map[string]map[string]types.AttributeValue
	err       error
	updateErr error
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[stringAttr(params.Key["key"])]}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	key := stringAttr(params.Item["key"])
	if params.ConditionExpression != nil {
		if existing, ok := f.items[key]; ok {
			now := intAttr(params.ExpressionAttributeValues[":now"])
			expiresAt := intAttr(existing["expires_at"])
			if expiresAt == 0 || expiresAt > now {
				return nil, conditionFailed()
			}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}

	key := stringAttr(params.Key["key"])
	item, ok := f.items[key]
	if !ok {
		item = map[string]types.AttributeValue{"key": params.Key["key"]}
		f.items[key] = item
	}

	total := intAttr(item["value"]) + intAttr(params.ExpressionAttributeValues[":delta"])
	item["value"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(total, 10)}
	item["updated_at"] = params.ExpressionAttributeValues[":now"]
	if exp, ok := params.ExpressionAttributeValues[":exp"]; ok {
		if _, set := item["expires_at"]; !set {
			item["expires_at"] = exp
		}
	}

	return &dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{"value": item["value"]},
	}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	key := stringAttr(params.Key["key"])
	if params.ConditionExpression != nil {
		existing, ok := f.items[key]
		if !ok || stringAttr(existing["value"]) != stringAttr(params.ExpressionAttributeValues[":v"]) {
			return nil, conditionFailed()
		}
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamoDB) put(key string, value types.AttributeValue, expiresAt int64) {
	item := map[string]types.AttributeValue{
		"key":   &types.AttributeValueMemberS{Value: key},
		"value": value,
	}
	if expiresAt > 0 {
		item["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}
	}
	f.items[key] = item
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func stringAttr(attr types.AttributeValue) string {
	switch v := attr.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func intAttr(attr types.AttributeValue) int64 {
	n, err := strconv.ParseInt(stringAttr(attr), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// fakeS3 records uploaded objects
type fakeS3 struct {
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, params.Body); err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = buf.Bytes()
	f.inputs = append(f.inputs, params)
	return &s3.PutObjectOutput{ETag: aws.String(`"etag-1"`)}, nil
}

var errBoom = errors.New("boom")
