package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// PK: external_id. Email uniqueness is held by a claim item in the
// user_emails table (PK: email) written in the same transaction as the user.
type UserRepo struct {
	client      API
	usersTable  string
	emailsTable string
}

// emailClaim reserves an email for one external id.
type emailClaim struct {
	Email      string `dynamodbav:"email"`
	ExternalID string `dynamodbav:"external_id"`
}

func NewUserRepo(client API, tables config.DynamoTables) *UserRepo {
	return &UserRepo{client: client, usersTable: tables.Users, emailsTable: tables.UserEmails}
}

// Create writes the user and its email claim atomically. A taken email wraps
// domain.ErrAlreadyRegistered; a taken external id wraps domain.ErrDuplicateID.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                aws.String(r.usersTable),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": fieldExternalID},
		},
	}}
	if u.Email != "" {
		claim, err := attributevalue.MarshalMap(emailClaim{Email: u.Email, ExternalID: u.ExternalID})
		if err != nil {
			return fmt.Errorf("marshal email claim: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(r.emailsTable),
				Item:                     claim,
				ConditionExpression:      aws.String("attribute_not_exists(#e)"),
				ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	if idx, ok := failedConditions(err); ok && len(idx) > 0 {
		for _, i := range idx {
			if i == 1 {
				return fmt.Errorf("email %s: %w", u.Email, domain.ErrAlreadyRegistered)
			}
		}
		return fmt.Errorf("external id %s: %w", u.ExternalID, domain.ErrDuplicateID)
	}
	return storeErr("create user", err)
}

func (r *UserRepo) Get(ctx context.Context, externalID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.usersTable),
		Key:            strKey(fieldExternalID, externalID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", externalID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetByEmail resolves the email claim and then the user. Both reads are
// strongly consistent, so a user is visible right after Create returns.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	claim, err := r.getClaim(ctx, email)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, claim.ExternalID)
}

// Delete removes the user and its email claim. Deleting a missing user is a no-op.
func (r *UserRepo) Delete(ctx context.Context, externalID string) error {
	u, err := r.Get(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName: aws.String(r.usersTable),
			Key:       strKey(fieldExternalID, externalID),
		},
	}}
	if u.Email != "" {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:                aws.String(r.emailsTable),
				Key:                      strKey(fieldEmail, u.Email),
				ConditionExpression:      aws.String("#id = :id"),
				ExpressionAttributeNames: map[string]string{"#id": fieldExternalID},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": &types.AttributeValueMemberS{Value: externalID},
				},
			},
		})
	}
	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return storeErr("delete user", err)
	}
	return nil
}

func (r *UserRepo) getClaim(ctx context.Context, email string) (*emailClaim, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get email claim", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrNotFound)
	}
	var c emailClaim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal email claim: %w", err)
	}
	return &c, nil
}
