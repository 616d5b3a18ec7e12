package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestExtractCommand(t *testing.T) {
	msg := &tgbotapi.Message{
		Text:     "/search foo bar",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}
	cmd := extractCommand(msg)
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if cmd.name != "/search" || cmd.args != "foo bar" {
		t.Fatalf("got name=%q args=%q", cmd.name, cmd.args)
	}
}

func TestExtractCommandNonCommand(t *testing.T) {
	msg := &tgbotapi.Message{Text: "just chatting"}
	if cmd := extractCommand(msg); cmd != nil {
		t.Fatalf("expected nil for non-command message, got %+v", cmd)
	}
}

func TestRemoteChatIcon(t *testing.T) {
	cases := []struct {
		chatType string
		linked   bool
		want     string
	}{
		{"private", false, "👤"},
		{"private", true, "🔗👤"},
		{"group", false, "👥"},
		{"group", true, "🔗👥"},
	}
	for _, c := range cases {
		if got := remoteChatIcon(c.chatType, c.linked); got != c.want {
			t.Errorf("remoteChatIcon(%q, %v) = %q, want %q", c.chatType, c.linked, got, c.want)
		}
	}
}

func TestTelegramLinkChatID(t *testing.T) {
	if got := telegramLinkChatID(-1001234567890); got != 1234567890 {
		t.Fatalf("got %d", got)
	}
	if got := telegramLinkChatID(-12345); got != -12345 {
		t.Fatalf("expected non-supergroup id untouched, got %d", got)
	}
}
