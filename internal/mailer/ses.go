package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/ignite/launchlist/internal/pkg/logger"
)

// SESMailer sends confirmation emails via AWS SES using the SDK v2.
// The from address must be a pre-verified SES identity; verification is an
// operational concern handled at deploy time.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	region    string
}

// NewSESMailer creates an SES mailer. When access/secret keys are empty the
// default credential chain is used (IAM role on ECS/Lambda).
func NewSESMailer(ctx context.Context, accessKey, secretKey, region, fromEmail string) (*SESMailer, error) {
	if region == "" {
		region = "us-east-1"
	}
	if fromEmail == "" {
		return nil, fmt.Errorf("SES from address is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESMailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		region:    region,
	}, nil
}

// Send delivers a single plain-text email through AWS SES.
func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	dispatchID := uuid.New().String()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromEmail),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("dispatch_id"), Value: aws.String(dispatchID)},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}

	logger.Info("confirmation email sent",
		"recipient", to,
		"message_id", messageID,
		"dispatch_id", dispatchID,
	)

	return nil
}
