package dto

import (
	"encoding/json"
	"errors"
	"strings"

	"ali_portfolio/internal/domain/models"

	"github.com/tidwall/gjson"
)

var ErrInvalidWebhook = errors.New("invalid inbound webhook payload")

// ParseInboundWebhook разбирает JSON провайдера. Поля читаются из корня,
// либо из data для событий вида {"type":"email.received","data":{...}}.
// Поле to бывает строкой или массивом адресов.
func ParseInboundWebhook(body []byte) (models.InboundEmail, error) {
	if !gjson.ValidBytes(body) {
		return models.InboundEmail{}, ErrInvalidWebhook
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return models.InboundEmail{}, ErrInvalidWebhook
	}

	src := root
	if data := root.Get("data"); data.IsObject() && data.Get("from").Exists() && !root.Get("from").Exists() {
		src = data
	}

	return models.InboundEmail{
		From:    address(src.Get("from")),
		To:      address(src.Get("to")),
		Subject: src.Get("subject").String(),
		Text:    src.Get("text").String(),
		HTML:    src.Get("html").String(),
		Payload: json.RawMessage(root.Raw),
	}, nil
}

func address(v gjson.Result) string {
	if !v.IsArray() {
		return v.String()
	}

	var parts []string
	for _, a := range v.Array() {
		if s := a.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
