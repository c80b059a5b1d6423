package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tenreads/statuswatch/client/internal/config"
)

// maxDetailLen caps the payload excerpt quoted in chat notifications.
const maxDetailLen = 200

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// encoders build the request body for each webhook type.
var encoders = map[string]func(Event) any{
	"slack": slackBody,
	"teams": teamsBody,
	"http":  func(ev Event) any { return map[string]any{"event": ev} },
}

// deliver posts ev to every configured target. Errors are logged only.
func (n *Notifier) deliver(hooks []config.WebhookConfig, ev Event) {
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		encode, ok := encoders[wh.Type]
		if !ok {
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		body, err := json.Marshal(encode(ev))
		if err == nil {
			err = n.post(url, body)
		}
		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type, "id", ev.ID, "state", ev.State, "err", err)
			continue
		}
		slog.Debug("notify: webhook delivered", "type", wh.Type, "id", ev.ID, "state", ev.State)
	}
}

func slackBody(ev Event) any {
	text := "*" + headline(ev) + "*"
	if d := detail(ev.Payload); d != "" {
		text += "\n> " + d
	}
	return map[string]string{"text": text}
}

func teamsBody(ev Event) any {
	color := "2EB67D"
	if ev.State == StateDown {
		color = "FF4F6A"
	}
	card := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    headline(ev),
		"title":      headline(ev),
		"text":       ev.Message,
	}
	if d := detail(ev.Payload); d != "" {
		card["sections"] = []map[string]any{{
			"facts": []map[string]string{{"name": "Status", "value": d}},
		}}
	}
	return card
}

func headline(ev Event) string {
	if ev.State == StateDown {
		return "Monitor down"
	}
	return "Monitor recovered"
}

// detail extracts the first non-blank line of text from an HTML status
// fragment, shortened to maxDetailLen runes.
func detail(payload string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(payload, "\n"))
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxDetailLen {
			r := []rune(line)
			line = string(r[:maxDetailLen]) + "…"
		}
		return line
	}
	return ""
}

func (n *Notifier) post(url string, body []byte) error {
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
