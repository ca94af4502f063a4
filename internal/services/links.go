package services

import (
	"github.com/chatapp/realtime-chat/internal/models"

	"mvdan.cc/xurls/v2"
)

var strictURLs = xurls.Strict()

// ExtractLinks returns the URLs with a scheme found in text, in order.
func ExtractLinks(text string) []string {
	return strictURLs.FindAllString(text, -1)
}

// LinksFromMessages flattens the URLs of each message, keeping message order.
func LinksFromMessages(messages []models.Message) []models.SessionLink {
	links := []models.SessionLink{}
	for _, m := range messages {
		for _, u := range ExtractLinks(m.Content) {
			links = append(links, models.SessionLink{
				URL:       u,
				MessageID: m.ID,
				SenderID:  m.SenderID,
				CreatedAt: m.CreatedAt,
			})
		}
	}
	return links
}
