package entities

import (
	"fmt"
	"html"
)

// User is the acting Telegram user of an update.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// MentionHTML renders a tg://user link for HTML parse mode replies.
func (u User) MentionHTML() string {
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("%d", u.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}
