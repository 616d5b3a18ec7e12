// Package protocol implements the typed OneBot wire model: events, requests,
// responses, message segments, and the tolerant id/payload decoding the
// protocol requires.
package protocol

import (
	"fmt"
	"strings"
)

// Platform identifies which remote messaging network an Endpoint belongs to.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformQQ       Platform = "qq"
	PlatformWeChat   Platform = "wechat"
)

func (p Platform) String() string { return string(p) }

// ParsePlatform validates a platform string from the wire or a DB row.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformTelegram, PlatformQQ, PlatformWeChat:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("invalid platform: %s", s)
	}
}

// Endpoint identifies one remote bot account: a platform plus its self id.
// It serializes as "<platform>:<id>".
type Endpoint struct {
	Platform Platform
	ID       string
}

func (e Endpoint) String() string {
	return e.Platform.String() + ":" + e.ID
}

// ParseEndpoint parses the "<platform>:<id>" wire form.
func ParseEndpoint(s string) (Endpoint, error) {
	platformStr, id, ok := strings.Cut(s, ":")
	if !ok {
		return Endpoint{}, fmt.Errorf("invalid endpoint format: %s", s)
	}
	platform, err := ParsePlatform(platformStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid platform: %s", s)
	}
	return Endpoint{Platform: platform, ID: id}, nil
}

// ChatType distinguishes a private (1:1) remote conversation from a group one.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

func (c ChatType) String() string { return string(c) }

func ParseChatType(s string) (ChatType, error) {
	switch ChatType(s) {
	case ChatTypePrivate, ChatTypeGroup:
		return ChatType(s), nil
	default:
		return "", fmt.Errorf("invalid chat type: %s", s)
	}
}

// DeliveryStatus tracks the lifecycle of a persisted Message mapping.
type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryFailed   DeliveryStatus = "failed"
	DeliverySent     DeliveryStatus = "sent"
	DeliveryRecalled DeliveryStatus = "recalled"
)

func (d DeliveryStatus) String() string { return string(d) }

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch DeliveryStatus(s) {
	case DeliveryPending, DeliveryFailed, DeliverySent, DeliveryRecalled:
		return DeliveryStatus(s), nil
	default:
		return "", fmt.Errorf("invalid delivery status: %s", s)
	}
}

// RemoteChatKey is the natural key of a RemoteChat row and the key used by
// the remote-chat cache and per-remote-chat lock map.
type RemoteChatKey struct {
	Endpoint Endpoint
	ChatType ChatType
	TargetID string
}

func (k RemoteChatKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Endpoint, k.ChatType, k.TargetID)
}
