package ratelimit

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
)

// UpdateItemAPI is the slice of the DynamoDB client the limiter needs
type UpdateItemAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoLimiter keeps one atomic counter per (key, window) item in DynamoDB,
// so every instance of the service shares the same budget.
type DynamoLimiter struct {
	client    UpdateItemAPI
	tableName string
	limit     int
	window    time.Duration
	keyPrefix string
	now       Clock
}

// counterEntry represents a rate limit item in DynamoDB
type counterEntry struct {
	PK        string `dynamodbav:"PK"`
	Count     int    `dynamodbav:"Count"`
	WindowEnd string `dynamodbav:"WindowEnd"`
	TTL       int64  `dynamodbav:"TTL"`
}

// NewDynamoLimiter creates a distributed limiter. keyPrefix separates
// independent limiters sharing one table.
func NewDynamoLimiter(client UpdateItemAPI, tableName, keyPrefix string, limit int, window time.Duration) *DynamoLimiter {
	return &DynamoLimiter{
		client:    client,
		tableName: tableName,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// WithClock replaces the limiter clock
func (r *DynamoLimiter) WithClock(now Clock) *DynamoLimiter {
	r.now = now
	return r
}

// CheckAndConsume increments the counter only while it is below the limit.
// Store failures allow the request and are returned for logging.
func (r *DynamoLimiter) CheckAndConsume(ctx context.Context, key string) (Decision, error) {
	now := r.now()
	windowStart := now.Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	pk := fmt.Sprintf("RATELIMIT#%s#%s#%d", r.keyPrefix, key, windowStart.Unix())

	update := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
		},
		UpdateExpression:    aws.String("SET #count = if_not_exists(#count, :zero) + :incr, WindowEnd = :window_end, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
			"#ttl":   "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":       &types.AttributeValueMemberN{Value: "0"},
			":incr":       &types.AttributeValueMemberN{Value: "1"},
			":limit":      &types.AttributeValueMemberN{Value: strconv.Itoa(r.limit)},
			":window_end": &types.AttributeValueMemberS{Value: windowEnd.Format(time.RFC3339)},
			":ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(windowEnd.Add(time.Hour).Unix(), 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := r.client.UpdateItem(ctx, update)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Decision{RetryAfter: windowEnd.Sub(now)}, nil
		}
		return Decision{Allowed: true}, fmt.Errorf("rate limiter store error (failing open): %w", err)
	}

	var entry counterEntry
	if err := attributevalue.UnmarshalMap(result.Attributes, &entry); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("failed to parse rate limit entry (failing open): %w", err)
	}

	if entry.Count > r.limit {
		return Decision{RetryAfter: windowEnd.Sub(now)}, nil
	}
	return Decision{Allowed: true}, nil
}
