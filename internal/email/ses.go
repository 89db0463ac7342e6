package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailSender delivers one message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

var ErrNoRecipient = errors.New("email recipient is required")

type SESOptions struct {
	Region string
	// Sender is the From address; it must be verified in SES.
	Sender string
	// AccessKeyID and SecretAccessKey are optional. When empty the default
	// AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// sesAPI is the part of the SES client we call.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient sends plain-text mail through Amazon SES v2.
type SESClient struct {
	api    sesAPI
	sender string
}

func NewSESClient(ctx context.Context, opts SESOptions) (*SESClient, error) {
	if strings.TrimSpace(opts.Region) == "" {
		return nil, errors.New("ses region is required")
	}
	if strings.TrimSpace(opts.Sender) == "" {
		return nil, errors.New("ses sender is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESClient{api: sesv2.NewFromConfig(awsCfg), sender: opts.Sender}, nil
}

func (c *SESClient) Send(ctx context.Context, recipient string, msg Message) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return ErrNoRecipient
	}
	_, err := c.api.SendEmail(ctx, sendEmailInput(c.sender, recipient, msg))
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", recipient, err)
	}
	return nil
}

func sendEmailInput(from, to string, msg Message) *sesv2.SendEmailInput {
	utf8 := aws.String("UTF-8")
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: utf8},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(msg.Body), Charset: utf8}},
			},
		},
	}
}
