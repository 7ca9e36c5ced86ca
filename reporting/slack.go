package reporting

import (
	"autoblock/waf"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// DefaultSlackIcon is the icon of the messages when none is configured.
const DefaultSlackIcon = ":wolf:"

type slackMessage struct {
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	IconURL   string `json:"icon_url,omitempty"`
}

// NewSlackNotifier creates a notifier posting to a Slack incoming webhook. An icon starting with "http"
// is used as an icon URL, anything else as an emoji.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, icon string) waf.Notifier {
	if icon == "" {
		icon = DefaultSlackIcon
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = retryLogger{logger: logger}

	return &slackNotifier{logger: logger, webhookURL: webhookURL, icon: icon, client: client}
}

type slackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	icon       string
	client     *retryablehttp.Client
}

func (n *slackNotifier) Notify(ctx context.Context, username string, text string) (err error) {
	msg := slackMessage{Text: text, Username: username}
	if strings.HasPrefix(n.icon, "http") {
		msg.IconURL = n.icon
	} else {
		msg.IconEmoji = n.icon
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, body)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to post Slack message: %w", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("Slack webhook answered %s", resp.Status)
	}
	return
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
