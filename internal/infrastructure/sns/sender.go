package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/openmca/auth-api/internal/config"
	"github.com/openmca/auth-api/internal/domain"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type sender struct {
	client   *sns.Client
	senderID string
}

func NewSender(cfg *config.Config) (SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg), senderID: cfg.SMSSenderID}, nil
}

func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    strPtr("String"),
			StringValue: strPtr("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    strPtr("String"),
			StringValue: strPtr(s.senderID),
		}
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       &to,
		Message:           &message,
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish sms: %v: %w", err, domain.ErrSMSDelivery)
	}
	return nil
}

func strPtr(s string) *string { return &s }
