package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// SlackNotifier posts run announcements to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a notifier posting to the given Slack webhook URL.
// It satisfies core.RunNotifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NotifyRunStarted announces a new run.
func (s *SlackNotifier) NotifyRunStarted(run *models.Run) error {
	if run == nil {
		return nil
	}

	body, err := json.Marshal(buildRunStartedMessage(run))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildRunStartedMessage(run *models.Run) slackMessage {
	// Slack mrkdwn treats these three characters as control characters.
	escape := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	fields := []slackText{
		{Type: "mrkdwn", Text: fmt.Sprintf("*Run*\n`%s`", escape.Replace(run.ID))},
		{Type: "mrkdwn", Text: fmt.Sprintf("*Host*\n%s", escape.Replace(run.Host.Hostname))},
		{Type: "mrkdwn", Text: fmt.Sprintf("*Started*\n%s", run.StartTime.UTC().Format("2006-01-02 15:04 UTC"))},
	}
	if run.Command != "" {
		fields = append(fields, slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Command*\n`%s`", escape.Replace(run.Command))})
	}

	return slackMessage{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("\U0001f680 %s started", run.Experiment.Name)},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: escape.Replace(run.Description)},
		},
		{Type: "section", Fields: fields},
	}}
}
