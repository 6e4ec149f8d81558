package slack

import (
	"context"

	slackapi "github.com/slack-go/slack"
)

// Poster posts a plain-text message to a channel. The indirection keeps the
// dispatcher testable without the Slack Web API.
type Poster interface {
	Post(ctx context.Context, botToken, channelID, text string) error
}

type webAPIPoster struct{}

// NewPoster returns a Poster backed by the Slack Web API.
func NewPoster() Poster {
	return webAPIPoster{}
}

func (webAPIPoster) Post(ctx context.Context, botToken, channelID, text string) error {
	client := slackapi.New(botToken)
	_, _, err := client.PostMessageContext(ctx, channelID, slackapi.MsgOptionText(text, false))
	return err
}
