package bridge

import "testing"

func TestChatKindFromTelegramType(t *testing.T) {
	cases := map[string]ChatKind{
		"private":    ChatKindPrivate,
		"group":      ChatKindGroup,
		"supergroup": ChatKindSupergroup,
		"channel":    ChatKindChannel,
		"bogus":      ChatKindGroup,
	}
	for in, want := range cases {
		if got := ChatKindFromTelegramType(in); got != want {
			t.Errorf("ChatKindFromTelegramType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestChatKindString(t *testing.T) {
	cases := map[ChatKind]string{
		ChatKindPrivate:    "private",
		ChatKindGroup:      "group",
		ChatKindSupergroup: "supergroup",
		ChatKindChannel:    "channel",
		ChatKind(99):       "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("ChatKind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
