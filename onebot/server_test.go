package onebot

import (
	"context"
	"testing"

	"github.com/gliderlab/teleporter/config"
	"github.com/gliderlab/teleporter/onebot/protocol"
)

func TestInferPlatform(t *testing.T) {
	cases := []struct {
		ua   string
		want protocol.Platform
	}{
		{"LLOneBot/3.32.0", protocol.PlatformQQ},
		{"WeChatPadPro/1.0", protocol.PlatformWeChat},
		{"go-cqhttp/1.0", protocol.PlatformQQ},
		{"", protocol.PlatformQQ},
	}
	for _, c := range cases {
		if got := inferPlatform(c.ua); got != c.want {
			t.Errorf("inferPlatform(%q) = %v, want %v", c.ua, got, c.want)
		}
	}
}

func TestCallAPIUnknownEndpointErrors(t *testing.T) {
	s := NewServer(config.OnebotConfig{Addr: ":0", Token: "secret"})
	endpoint := protocol.Endpoint{Platform: protocol.PlatformQQ, ID: "10001"}
	req := protocol.NewGetLoginInfo()

	_, err := s.CallAPI(context.Background(), endpoint, req)
	if err == nil {
		t.Fatalf("expected error for disconnected endpoint")
	}
}

func TestConnectedReportsFalseInitially(t *testing.T) {
	s := NewServer(config.OnebotConfig{Addr: ":0"})
	endpoint := protocol.Endpoint{Platform: protocol.PlatformQQ, ID: "10001"}
	if s.Connected(endpoint) {
		t.Errorf("expected no connection registered yet")
	}
}

func TestBearerConstructedFromToken(t *testing.T) {
	s := NewServer(config.OnebotConfig{Addr: ":0", Token: "secret"})
	if s.bearer != "Bearer secret" {
		t.Errorf("expected bearer %q, got %q", "Bearer secret", s.bearer)
	}

	noToken := NewServer(config.OnebotConfig{Addr: ":0"})
	if noToken.bearer != "" {
		t.Errorf("expected empty bearer when no token configured, got %q", noToken.bearer)
	}
}
