package newsletter

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendProvider keeps the audience in Resend. Unsubscribes flip the
// contact's flag instead of deleting it, preserving suppression history.
type ResendProvider struct {
	client     *resend.Client
	audienceID string
}

func NewResendProvider(apiKey, audienceID string) *ResendProvider {
	return &ResendProvider{
		client:     resend.NewClient(apiKey),
		audienceID: audienceID,
	}
}

func (p *ResendProvider) Subscribe(ctx context.Context, email string) error {
	_, err := p.client.Contacts.CreateWithContext(ctx, &resend.CreateContactRequest{
		Email:        email,
		AudienceId:   p.audienceID,
		Unsubscribed: false,
	})
	if err != nil {
		return fmt.Errorf("create resend contact: %w", err)
	}
	return nil
}

func (p *ResendProvider) Unsubscribe(ctx context.Context, email string) error {
	_, err := p.client.Contacts.UpdateWithContext(ctx, &resend.UpdateContactRequest{
		Email:        email,
		AudienceId:   p.audienceID,
		Unsubscribed: true,
	})
	if err != nil {
		return fmt.Errorf("update resend contact: %w", err)
	}
	return nil
}
