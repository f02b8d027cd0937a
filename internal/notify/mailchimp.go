package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

const mandrillSendURL = "https://mandrillapp.com/api/1.0/messages/send"

// MailchimpNotifier sends the team notification through Mailchimp's
// transactional (Mandrill) API. With no API key configured it degrades to a
// log line so the pipeline never depends on email being set up.
type MailchimpNotifier struct {
	apiKey    string
	fromEmail string
	teamEmail string
	logger    *utils.Logger
	client    *http.Client
}

func NewMailchimpNotifier(apiKey, fromEmail, teamEmail string, logger *utils.Logger) *MailchimpNotifier {
	return &MailchimpNotifier{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		teamEmail: teamEmail,
		logger:    logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type mandrillRequest struct {
	Key     string          `json:"key"`
	Message mandrillMessage `json:"message"`
}

type mandrillMessage struct {
	FromEmail string              `json:"from_email"`
	FromName  string              `json:"from_name"`
	Subject   string              `json:"subject"`
	Text      string              `json:"text"`
	To        []mandrillRecipient `json:"to"`
}

type mandrillRecipient struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (n *MailchimpNotifier) NotifyTeam(ctx context.Context, event models.NotifyTeamEvent) error {
	if n.apiKey == "" {
		n.logger.Info("Mailchimp not configured, logging team notification instead",
			"submission_id", event.SubmissionID,
			"tier", event.Tier,
			"overall_score", event.OverallScore,
			"book_title", event.BookTitle)
		return nil
	}

	subject := fmt.Sprintf("[%s-Tier] New Proposal: %s by %s", event.Tier, event.BookTitle, event.AuthorName)
	body := fmt.Sprintf(
		"New book proposal evaluation completed.\n\n"+
			"Submission ID: %s\nBook Title: %s\nAuthor: %s (%s)\n"+
			"Overall Score: %.1f/100\nTier: %s\n\nAction: %s\n",
		event.SubmissionID, event.BookTitle, event.AuthorName, event.AuthorEmail,
		event.OverallScore, event.Tier, tierAction(event.Tier))

	reqBody := mandrillRequest{
		Key: n.apiKey,
		Message: mandrillMessage{
			FromEmail: n.fromEmail,
			FromName:  "Write It Great",
			Subject:   subject,
			Text:      body,
			To: []mandrillRecipient{
				{Email: n.teamEmail, Type: "to"},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", mandrillSendURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		n.logger.Error("Mailchimp API error", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("mailchimp API returned status %d", resp.StatusCode)
	}

	return nil
}

func tierAction(tier string) string {
	switch tier {
	case "A":
		return "PRIORITY: Review and schedule strategy call within 24 hours"
	case "B":
		return "Review and schedule discovery call within 48 hours"
	case "C":
		return "Auto-processed - Feedback sent with coaching information"
	case "D":
		return "Auto-processed - Decline sent with feedback and resources"
	}
	return "Review required"
}
