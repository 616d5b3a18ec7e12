package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/bridge"
	"github.com/gliderlab/teleporter/onebot/protocol"
	"github.com/gliderlab/teleporter/storage"
)

// gifThreshold: an MP4 "GIF" animation above this size is relayed as a video
// instead of being transcoded, since the remote side is slow to handle
// large animated GIFs.
const gifThreshold = 100 * 1024

// isServiceMessage reports whether message is a Telegram chat-service
// notification (member joined/left, title changed, ...) rather than user
// content.
func isServiceMessage(m *tgbotapi.Message) bool {
	return len(m.NewChatMembers) > 0 ||
		m.LeftChatMember != nil ||
		m.NewChatTitle != "" ||
		len(m.NewChatPhoto) > 0 ||
		m.DeleteChatPhoto ||
		m.GroupChatCreated ||
		m.SuperGroupChatCreated ||
		m.ChannelChatCreated ||
		m.PinnedMessage != nil ||
		m.MigrateToChatID != 0 ||
		m.MigrateFromChatID != 0 ||
		m.ForumTopicCreated != nil ||
		m.ForumTopicClosed != nil ||
		m.ForumTopicReopened != nil ||
		m.ForumTopicEdited != nil
}

// isFromAdmin reports whether message was sent by the configured admin:
// only the admin's own outgoing messages are ever relayed to a remote chat.
func isFromAdmin(br *bridge.Bridge, m *tgbotapi.Message) bool {
	return m.From != nil && m.From.ID == br.AdminID()
}

// processMessage is the Telegram -> remote half of the relay: resolve which
// remote chat a plain (non-command) message targets, convert its content to
// OneBot segments, and send it.
func (c *Client) processMessage(ctx context.Context, message *tgbotapi.Message) error {
	if !isFromAdmin(c.bridge, message) || isServiceMessage(message) {
		return nil
	}

	remoteChat, err := c.resolveTarget(message)
	if err != nil {
		return err
	}
	if remoteChat == nil {
		reply := tgbotapi.NewMessage(message.Chat.ID, "<b>The message can't be mapped to a remote chat</b>")
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyToMessageID = message.MessageID
		_, sendErr := c.bot.Send(reply)
		return sendErr
	}

	return c.convertAndSend(ctx, remoteChat, message)
}

// resolveTarget finds the remote chat a Telegram message should be relayed
// to: a direct link on the chat, else (inside a forum archive) the topic's
// bound remote chat, else the remote chat of the message being replied to.
func (c *Client) resolveTarget(message *tgbotapi.Message) (*storage.RemoteChat, error) {
	if link, err := c.bridge.FindLinkByTg(message.Chat.ID); err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	} else if link != nil {
		return c.bridge.GetRemoteChatByID(link.RemoteChatID)
	}

	if message.MessageThreadID != 0 {
		rc, err := c.bridge.FindRemoteChatByArchiveTopic(message.Chat.ID, int32(message.MessageThreadID))
		if err != nil {
			return nil, fmt.Errorf("find archive topic: %w", err)
		}
		if rc != nil {
			return rc, nil
		}
	}

	if message.ReplyToMessage != nil {
		msg, err := c.bridge.FindMessageByTg(message.Chat.ID, int32(message.ReplyToMessage.MessageID))
		if err != nil {
			return nil, fmt.Errorf("find message by tg: %w", err)
		}
		if msg != nil {
			return c.bridge.GetRemoteChatByID(msg.RemoteChatID)
		}
	}
	return nil, nil
}

// convertAndSend builds the outgoing segment list from message's content and
// sends it to remoteChat.
func (c *Client) convertAndSend(ctx context.Context, remoteChat *storage.RemoteChat, message *tgbotapi.Message) error {
	segments, err := c.buildSegments(ctx, remoteChat, message)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		reply := tgbotapi.NewMessage(message.Chat.ID, "<b>Failed to convert message for remote</b>")
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyToMessageID = message.MessageID
		_, sendErr := c.bot.Send(reply)
		return sendErr
	}

	if replySeg, ok := c.replySegment(message); ok {
		segments = append([]protocol.Segment{replySeg}, segments...)
	}

	endpoint, err := protocol.ParseEndpoint(remoteChat.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint %q: %w", remoteChat.Endpoint, err)
	}
	params := protocol.SendMsgParams{Message: segments}
	if remoteChat.ChatType == protocol.ChatTypePrivate {
		params.MessageType = "private"
		userID := remoteChat.TargetID
		params.UserID = &userID
	} else {
		params.MessageType = "group"
		groupID := remoteChat.TargetID
		params.GroupID = &groupID
	}

	remoteMsgID, err := c.bridge.SendMsg(ctx, endpoint, params)
	if err != nil {
		reply := tgbotapi.NewMessage(message.Chat.ID, "<b>Failed to send message to remote</b>")
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyToMessageID = message.MessageID
		_, _ = c.bot.Send(reply)
		return fmt.Errorf("send_msg: %w", err)
	}

	content := renderSegments(segments)
	if _, err := c.bridge.SaveMessageByRemote(message.Chat.ID, int32(message.MessageID), remoteChat.ID, string(remoteMsgID), content); err != nil {
		return fmt.Errorf("save message mapping: %w", err)
	}
	return nil
}

// replySegment builds a reply segment for message when it replies to a
// previously relayed message (only when the reply target resolves to a
// known mapping: a bare "replying to the topic's root message" isn't a
// content reply).
func (c *Client) replySegment(message *tgbotapi.Message) (protocol.Segment, bool) {
	if message.ReplyToMessage == nil {
		return protocol.Segment{}, false
	}
	if message.MessageThreadID != 0 && message.ReplyToMessage.MessageID == message.MessageThreadID {
		return protocol.Segment{}, false
	}
	msg, err := c.bridge.FindMessageByTg(message.Chat.ID, int32(message.ReplyToMessage.MessageID))
	if err != nil || msg == nil {
		return protocol.Segment{}, false
	}
	return protocol.NewReply(msg.RemoteMsgID), true
}

// renderSegments builds the plain-text summary of segments stored as the
// content column of a relayed message's mapping row.
func renderSegments(segments []protocol.Segment) string {
	out := ""
	for _, seg := range segments {
		out += seg.Render()
	}
	return out
}

// buildSegments converts message's media and text into OneBot segments,
// dispatching on media type. The Bot API's typed Message fields make this
// simple: Photo/Animation/Sticker/Voice/Video/Document are distinct fields
// here, so there's no need to introspect a generic Document's mime type.
func (c *Client) buildSegments(ctx context.Context, remoteChat *storage.RemoteChat, message *tgbotapi.Message) ([]protocol.Segment, error) {
	var segments []protocol.Segment

	switch {
	case len(message.Photo) > 0:
		largest := message.Photo[len(message.Photo)-1]
		data, filename, err := c.downloadTelegramFile(ctx, largest.FileID)
		if err != nil {
			return nil, err
		}
		segments = append(segments, protocol.NewImage(inlineDataURL(data, filename)))

	case message.Voice != nil:
		data, filename, err := c.downloadTelegramFile(ctx, message.Voice.FileID)
		if err != nil {
			return nil, err
		}
		wav, err := bridge.OggToWav(ctx, c.ffmpegPath(), data)
		if err != nil {
			return nil, fmt.Errorf("transcode voice to wav: %w", err)
		}
		if fixed, ok := bridge.FixFilename(filename, "wav"); ok {
			filename = fixed
		}
		segments = append(segments, protocol.NewRecord(inlineDataURL(wav, filename)))

	case message.Video != nil:
		data, filename, err := c.downloadTelegramFile(ctx, message.Video.FileID)
		if err != nil {
			return nil, err
		}
		segments = append(segments, protocol.NewVideo(inlineDataURL(data, filename)))

	case message.Animation != nil:
		data, filename, err := c.downloadTelegramFile(ctx, message.Animation.FileID)
		if err != nil {
			return nil, err
		}
		if len(data) > gifThreshold {
			segments = append(segments, protocol.NewVideo(inlineDataURL(data, filename)))
		} else if gif, err := bridge.VideoToGif(ctx, c.ffmpegPath(), data); err == nil {
			if fixed, ok := bridge.FixFilename(filename, "gif"); ok {
				filename = fixed
			}
			segments = append(segments, protocol.NewImage(inlineDataURL(gif, filename)))
		} else {
			segments = append(segments, protocol.NewVideo(inlineDataURL(data, filename)))
		}

	case message.Sticker != nil:
		data, filename, err := c.downloadTelegramFile(ctx, message.Sticker.FileID)
		if err != nil {
			return nil, err
		}
		switch {
		case message.Sticker.IsVideo:
			if gif, err := bridge.WebmToGif(ctx, c.ffmpegPath(), data); err == nil {
				if fixed, ok := bridge.FixFilename(filename, "gif"); ok {
					filename = fixed
				}
				segments = append(segments, protocol.NewImage(inlineDataURL(gif, filename)))
			}
		case message.Sticker.IsAnimated:
			// Lottie/.tgsticker animated stickers have no rlottie-equivalent
			// renderer anywhere in this relay's dependency stack; relayed as
			// a plain file rather than rendered to GIF.
			segments = append(segments, protocol.NewFile(inlineDataURL(data, filename)))
		default:
			segments = append(segments, protocol.NewImage(inlineDataURL(data, filename)))
		}

	case message.Document != nil:
		data, filename, err := c.downloadTelegramFile(ctx, message.Document.FileID)
		if err != nil {
			return nil, err
		}
		segments = append(segments, protocol.NewFile(inlineDataURL(data, filename)))

	case message.Location != nil:
		if seg, ok := locationSegment(remoteChat, "Location", "", message.Location.Latitude, message.Location.Longitude); ok {
			segments = append(segments, seg)
		}

	case message.Venue != nil:
		if seg, ok := locationSegment(remoteChat, message.Venue.Title, message.Venue.Address, message.Venue.Location.Latitude, message.Venue.Location.Longitude); ok {
			segments = append(segments, seg)
		}
	}

	if message.Text != "" {
		segments = append(segments, protocol.NewText(message.Text))
	} else if message.Caption != "" {
		segments = append(segments, protocol.NewText(message.Caption))
	}

	return segments, nil
}

// ffmpegPath exposes the bridge's configured ffmpeg binary path for the
// transcoding helpers above.
func (c *Client) ffmpegPath() string { return c.bridge.FfmpegPath() }

// downloadTelegramFile fetches a Telegram-hosted file by id, returning its
// bytes and resolved filename.
func (c *Client) downloadTelegramFile(ctx context.Context, fileID string) ([]byte, string, error) {
	seg, err := c.bridge.DownloadMedia(ctx, fileID)
	if err != nil {
		return nil, "", fmt.Errorf("download telegram file %s: %w", fileID, err)
	}
	return seg.Data, seg.Filename, nil
}

// inlineDataURL frames downloaded bytes as a OneBot "base64://" file
// reference, the wire form LLOneBot/WeChat adapters accept for inline
// attachment data.
func inlineDataURL(data []byte, _ string) string {
	return bridge.InlineFileURL(data)
}

// locationSegment builds the platform-appropriate location segment: QQ has
// no native location message type, so it gets a Tencent map card embedded
// as a raw JSON segment; WeChat gets a proper location segment.
func locationSegment(remoteChat *storage.RemoteChat, title, content string, lat, lon float64) (protocol.Segment, bool) {
	endpoint, err := protocol.ParseEndpoint(remoteChat.Endpoint)
	if err != nil {
		return protocol.Segment{}, false
	}
	switch endpoint.Platform {
	case protocol.PlatformQQ:
		return protocol.Segment{
			Type: protocol.SegJSON,
			JSON: &protocol.JSONData{Data: bridge.QQLocationCard(title, content, lat, lon)},
		}, true
	case protocol.PlatformWeChat:
		return protocol.NewLocation(lat, lon), true
	default:
		return protocol.Segment{}, false
	}
}
