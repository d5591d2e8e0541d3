package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/example/club-reservations/internal/persistence"
)

// ContactDirectory resolves club members to e-mail addresses.
type ContactDirectory interface {
	ListContacts(ctx context.Context, clubMemberIDs []string) ([]persistence.MemberContact, error)
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier e-mails notifications through Amazon SES v2.
type SESNotifier struct {
	client    sesAPI
	directory ContactDirectory
	fromEmail string
	location  *time.Location
	logger    *slog.Logger
}

// NewSESNotifier loads the default AWS configuration for region.
func NewSESNotifier(ctx context.Context, region, fromEmail string, directory ContactDirectory, location *time.Location, logger *slog.Logger) (*SESNotifier, error) {
	if fromEmail == "" {
		return nil, errors.New("notify: SES sender address is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESNotifier(sesv2.NewFromConfig(cfg), fromEmail, directory, location, logger), nil
}

func newSESNotifier(client sesAPI, fromEmail string, directory ContactDirectory, location *time.Location, logger *slog.Logger) *SESNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &SESNotifier{client: client, directory: directory, fromEmail: fromEmail, location: location, logger: logger}
}

// Notify implements Notifier. Each recipient gets its own e-mail; failures are joined.
func (n *SESNotifier) Notify(ctx context.Context, recipients []persistence.ClubMember, msg Message) error {
	if len(recipients) == 0 {
		return nil
	}
	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	contacts, err := n.directory.ListContacts(ctx, ids)
	if err != nil {
		return fmt.Errorf("notify: resolve contacts: %w", err)
	}

	subject := msg.Subject()
	body := msg.Body(n.location)

	var errs []error
	for _, contact := range contacts {
		if contact.Email == "" {
			continue
		}
		_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(n.fromEmail),
			Destination: &types.Destination{
				ToAddresses: []string{contact.Email},
			},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
					Body: &types.Body{
						Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
					},
				},
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", contact.ClubMemberID, err))
			continue
		}
		n.logger.DebugContext(ctx, "email sent",
			"template", string(msg.Template),
			"club_member_id", contact.ClubMemberID,
		)
	}
	return errors.Join(errs...)
}
