package chat

import "strings"

const (
	joinIcon      = "📢"
	leaveIcon     = "❌"
	anonymousName = "anonymous"
)

func joinAnnouncement(name string) []byte {
	return []byte(joinIcon + " " + name + " joined the chat")
}

func leaveAnnouncement(name string) []byte {
	return []byte(leaveIcon + " " + name + " left the chat")
}

func chatLine(name string, msg []byte) []byte {
	out := make([]byte, 0, len(name)+2+len(msg))
	out = append(out, name...)
	out = append(out, ": "...)
	return append(out, msg...)
}

// displayName turns the raw name message into the name shown to others.
func displayName(raw []byte) string {
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return anonymousName
	}
	return name
}
