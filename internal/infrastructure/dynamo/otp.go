package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-marketplace-identity/internal/domain"
)

// OTPRepo stores one challenge per email.
// PK: email. ttl is a Unix timestamp used as DynamoDB TTL; DynamoDB evicts
// lazily, so readers must still compare ExpiresAt.
type OTPRepo struct {
	client    API
	tableName string
}

type otpItem struct {
	domain.OTPChallenge
	TTL int64 `dynamodbav:"ttl"`
}

func NewOTPRepo(client API, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

// Upsert replaces any existing challenge for c.Email.
func (r *OTPRepo) Upsert(ctx context.Context, c *domain.OTPChallenge) error {
	item, err := attributevalue.MarshalMap(otpItem{OTPChallenge: *c, TTL: c.ExpiresAt.Unix()})
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put otp challenge", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*domain.OTPChallenge, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get otp challenge", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp challenge: %w", domain.ErrNotFound)
	}
	var it otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal otp challenge: %w", err)
	}
	return &it.OTPChallenge, nil
}

// MarkVerified flags the challenge as verified only while code is still the
// current one; a challenge replaced in the meantime wraps domain.ErrNotFound.
func (r *OTPRepo) MarkVerified(ctx context.Context, email, code string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldEmail, email),
		UpdateExpression:    aws.String("SET #v = :t"),
		ConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#v": fieldVerified,
			"#c": fieldCode,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":c": &types.AttributeValueMemberS{Value: code},
		},
	})
	if err == nil {
		return nil
	}
	if isConditionFailed(err) {
		return fmt.Errorf("otp challenge superseded: %w", domain.ErrNotFound)
	}
	return storeErr("mark otp verified", err)
}
