package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/domain"
	"github.com/go-marketplace-identity/internal/infrastructure/awscfg"
)

// Publisher is the subset of *sns.Client the alerter uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ Publisher = (*sns.Client)(nil)

// Alerter publishes reconciliation alerts when a registration leaves the
// record store and the identity provider out of sync.
type Alerter struct {
	client   Publisher
	topicARN string
}

func NewAlerter(ctx context.Context, cfg *config.Config) (*Alerter, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return NewAlerterWithClient(client, cfg.ReconciliationTopicARN), nil
}

func NewAlerterWithClient(client Publisher, topicARN string) *Alerter {
	return &Alerter{client: client, topicARN: topicARN}
}

type reconciliationAlert struct {
	Kind            string    `json:"kind"`
	AttemptID       string    `json:"attempt_id"`
	ExternalID      string    `json:"external_id"`
	Email           string    `json:"email,omitempty"`
	FailedStep      string    `json:"failed_step"`
	Cause           string    `json:"cause"`
	CompensationErr string    `json:"compensation_error"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ReportCompensationFailure publishes e to the reconciliation topic.
func (a *Alerter) ReportCompensationFailure(ctx context.Context, e *domain.CompensationFailedError) error {
	alert := reconciliationAlert{
		Kind:       "registration.compensation_failed",
		AttemptID:  e.AttemptID,
		ExternalID: e.ExternalID,
		Email:      e.Email,
		FailedStep: e.FailedStep,
		OccurredAt: time.Now().UTC(),
	}
	if e.Cause != nil {
		alert.Cause = e.Cause.Error()
	}
	if e.CompensationErr != nil {
		alert.CompensationErr = e.CompensationErr.Error()
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Registration reconciliation required"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"external_id": {DataType: aws.String("String"), StringValue: aws.String(e.ExternalID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish reconciliation alert: %w", err)
	}
	return nil
}
