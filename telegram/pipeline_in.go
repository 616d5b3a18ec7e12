package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/gliderlab/teleporter/bridge"
	"github.com/gliderlab/teleporter/onebot"
	"github.com/gliderlab/teleporter/onebot/protocol"
	"github.com/gliderlab/teleporter/search"
	"github.com/gliderlab/teleporter/storage"
)

// bigFileSize and imageSlideLimit gate when an uploaded photo is sent as a
// Telegram document instead of an inline photo: images past these
// size/dimension thresholds Telegram would otherwise reject or silently
// downscale.
const (
	bigFileSize    = 10 * 1024 * 1024
	imageSlideLimit = 2560
)

// outKind is the shape the converted remote message ends up sent as.
type outKind int

const (
	outText outKind = iota
	outHTML
	outPhoto
	outSticker
	outVoice
	outVideo
	outDocument
	outLocation
)

// handleEvent dispatches one decoded OneBot event to its message/meta/notice
// handler.
func (c *Client) handleEvent(ctx context.Context, ev onebot.Event) error {
	switch ev.Raw.PostType {
	case protocol.PostMessage, protocol.PostMessageSent:
		return c.processOnebotMessage(ctx, ev.Endpoint, ev.Raw.Message)
	case protocol.PostMetaEvent:
		return c.processOnebotMeta(ctx, ev.Endpoint, ev.Raw.Meta)
	case protocol.PostNotice:
		return c.processOnebotNotice(ctx, ev.Endpoint, ev.Raw.Notice)
	default:
		return nil
	}
}

// uploadedMedia pairs a downloaded/transcoded attachment with the segment it
// came from, so the photo-vs-album decision below can inspect both the byte
// size and (for images) the pixel dimensions.
type uploadedMedia struct {
	seg  protocol.Segment
	data *bridge.DownloadedSegment
}

func (c *Client) processOnebotMessage(ctx context.Context, endpoint protocol.Endpoint, message *protocol.MessageEvent) error {
	if len(message.Message) == 0 {
		return nil
	}

	key := protocol.RemoteChatKey{Endpoint: endpoint, ChatType: message.GetChatType(), TargetID: message.GetChatID()}
	remoteChat, err := c.bridge.GetRemoteChat(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve remote chat %s: %w", key, err)
	}

	if existing, err := c.bridge.FindMessageByRemote(remoteChat.ID, message.MessageID); err != nil {
		return fmt.Errorf("check duplicate message: %w", err)
	} else if existing != nil {
		return nil
	}

	chatID, topicID, replyTo, title, err := c.fetchChatAndTitle(ctx, endpoint, remoteChat, message.Sender.DisplayName())
	if err != nil {
		return fmt.Errorf("resolve telegram destination: %w", err)
	}

	kind := outText
	var content strings.Builder
	var uploads []uploadedMedia
	var locTitle, locAddress string
	var lat, lon float64

	for _, seg := range message.Message {
		switch seg.Type {
		case protocol.SegText:
			if endpoint.Platform == protocol.PlatformWeChat {
				content.WriteString(bridge.ReplaceWeChatEmoji(seg.Text.Text))
			} else {
				content.WriteString(seg.Text.Text)
			}
		case protocol.SegFace:
			if endpoint.Platform == protocol.PlatformQQ {
				content.WriteString(bridge.ReplaceQQFace(seg.Face.ID))
			} else {
				fmt.Fprintf(&content, "/[Face%s]", seg.Face.ID)
			}
		case protocol.SegAt:
			if message.GroupID != "" {
				if member, err := c.bridge.GetGroupMemberInfo(ctx, endpoint, message.GroupID, seg.At.ID, true); err == nil {
					fmt.Fprintf(&content, "@%s", member.DisplayName())
				} else {
					fmt.Fprintf(&content, "@%s", seg.At.ID)
				}
			}
		case protocol.SegImage:
			uploaded, err := c.bridge.UploadSegment(ctx, endpoint, seg)
			if err != nil {
				content.WriteString("[图片上传失败]")
				continue
			}
			uploads = append(uploads, uploadedMedia{seg: seg, data: uploaded})
			content.WriteString("[图片]")
			if bridge.IsSticker(seg) {
				kind = outSticker
			} else {
				kind = outPhoto
			}
		case protocol.SegMarketFace:
			uploaded, err := c.bridge.UploadSegment(ctx, endpoint, seg)
			if err != nil {
				content.WriteString("[表情上传失败]")
				continue
			}
			uploads = append(uploads, uploadedMedia{seg: seg, data: uploaded})
			content.WriteString("[表情]")
			kind = outSticker
		case protocol.SegRecord:
			uploaded, err := c.bridge.UploadSegment(ctx, endpoint, seg)
			if err != nil {
				content.WriteString("[语音上传失败]")
				continue
			}
			uploads = append(uploads, uploadedMedia{seg: seg, data: uploaded})
			content.WriteString("[语音]")
			kind = outVoice
		case protocol.SegVideo:
			uploaded, err := c.bridge.UploadSegment(ctx, endpoint, seg)
			if err != nil {
				content.WriteString("[视频上传失败]")
				continue
			}
			uploads = append(uploads, uploadedMedia{seg: seg, data: uploaded})
			content.WriteString("[视频]")
			kind = outVideo
		case protocol.SegFile:
			uploaded, err := c.bridge.UploadSegment(ctx, endpoint, seg)
			if err != nil {
				content.WriteString("[文件上传失败]")
				continue
			}
			uploads = append(uploads, uploadedMedia{seg: seg, data: uploaded})
			content.WriteString("[文件]")
			kind = outDocument
		case protocol.SegReply:
			if entity, err := c.bridge.FindMessageByRemote(remoteChat.ID, seg.Reply.ID); err == nil && entity != nil {
				replyTo = entity.TgMsgID
			}
		case protocol.SegForward:
			content.WriteString("[合并消息]")
		case protocol.SegLocation:
			lat, lon = seg.Location.Lat, seg.Location.Lon
			if seg.Location.Title != nil {
				locTitle = *seg.Location.Title
			}
			if seg.Location.Content != nil {
				locAddress = *seg.Location.Content
			}
			kind = outLocation
		case protocol.SegShare:
			shareContent := ""
			if seg.Share.Content != nil {
				shareContent = *seg.Share.Content
			}
			fmt.Fprintf(&content, "<u>%s</u>\n\n%s\n\nvia <a href=\"%s\">%s</a>",
				seg.Share.Title, shareContent, seg.Share.URL, seg.Share.Title)
			kind = outHTML
		case protocol.SegJSON:
			if loc, ok := tryLocationCard(seg.JSON.Data); ok {
				locTitle, locAddress, lat, lon = loc.title, loc.address, loc.lat, loc.lon
				kind = outLocation
				break
			}
			if share, err := bridge.ExtractShareFromJSON(seg.JSON.Data); err == nil && share != "" {
				content.WriteString(share)
				kind = outHTML
				break
			}
			content.WriteString(seg.JSON.Data)
		}
	}

	sent, err := c.deliver(ctx, chatID, topicID, replyTo, title, content.String(), kind, uploads, locTitle, locAddress, lat, lon)
	if err != nil {
		return fmt.Errorf("deliver to telegram: %w", err)
	}

	for _, msg := range sent {
		if c.indexer != nil {
			doc := search.Document{ChatID: msg.Chat.ID, MessageID: int32(msg.MessageID), TopicID: topicID, Timestamp: message.Time, Content: content.String()}
			if err := c.indexer.IndexMessage(ctx, doc); err != nil {
				logWarnf("index message: %v", err)
			}
		}
		if _, err := c.bridge.SaveMessageByRemote(msg.Chat.ID, int32(msg.MessageID), remoteChat.ID, message.MessageID, content.String()); err != nil {
			logWarnf("save message mapping: %v", err)
		}
	}
	return nil
}

type locationCard struct {
	title, address string
	lat, lon        float64
}

func tryLocationCard(raw string) (locationCard, bool) {
	title, address, lat, lon, err := bridge.ExtractLocationFromJSON(raw)
	if err != nil {
		return locationCard{}, false
	}
	return locationCard{title: title, address: address, lat: lat, lon: lon}, true
}

// deliver sends the accumulated segment conversion to chatID/topicID as the
// shape kind selects, returning every Telegram message actually sent (more
// than one for a multi-photo album).
func (c *Client) deliver(ctx context.Context, chatID int64, topicID int32, replyTo int32, title, content string, kind outKind, uploads []uploadedMedia, locTitle, locAddress string, lat, lon float64) ([]tgbotapi.Message, error) {
	switch kind {
	case outText:
		msg, err := c.bridge.SendTelegramMessage(ctx, chatID, topicID, title+"\n"+content)
		return oneOrNone(msg, err)
	case outHTML:
		msg, err := c.bridge.SendTelegramMessage(ctx, chatID, topicID, title+"\n"+content)
		return oneOrNone(msg, err)
	case outPhoto:
		if len(uploads) == 0 {
			return nil, fmt.Errorf("photo message carries no uploaded media")
		}
		if len(uploads) == 1 {
			u := uploads[0].data
			w, h := bridge.ImageSize(u.Data, u.MimeType)
			if len(u.Data) > bigFileSize || w > imageSlideLimit || h > imageSlideLimit {
				msg, err := c.bridge.SendTelegramDocument(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title+"\n"+content)
				return oneOrNone(msg, err)
			}
			msg, err := c.bridge.SendTelegramPhoto(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title+"\n"+content)
			return oneOrNone(msg, err)
		}
		media := make([]interface{}, 0, len(uploads))
		for i, u := range uploads {
			photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: u.data.Filename, Bytes: u.data.Data})
			if i == 0 {
				photo.Caption = title + "\n" + content
				photo.ParseMode = tgbotapi.ModeHTML
			}
			media = append(media, photo)
		}
		return c.bridge.SendTelegramAlbum(ctx, chatID, topicID, media)
	case outSticker:
		u := uploads[len(uploads)-1].data
		msg, err := c.bridge.SendTelegramDocument(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title)
		return oneOrNone(msg, err)
	case outVoice:
		u := uploads[len(uploads)-1].data
		msg, err := c.bridge.SendTelegramVoice(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title)
		return oneOrNone(msg, err)
	case outVideo:
		u := uploads[len(uploads)-1].data
		msg, err := c.bridge.SendTelegramVideo(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title)
		return oneOrNone(msg, err)
	case outDocument:
		u := uploads[len(uploads)-1].data
		msg, err := c.bridge.SendTelegramDocument(ctx, chatID, topicID, replyTo, u.Data, u.Filename, title)
		return oneOrNone(msg, err)
	case outLocation:
		msg, err := c.bridge.SendTelegramVenue(ctx, chatID, topicID, replyTo, locTitle, locAddress, lat, lon)
		return oneOrNone(msg, err)
	default:
		return nil, fmt.Errorf("unhandled message kind %d", kind)
	}
}

func oneOrNone(msg *tgbotapi.Message, err error) ([]tgbotapi.Message, error) {
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	return []tgbotapi.Message{*msg}, nil
}

// processOnebotMeta handles lifecycle meta events: on connect, refreshes
// every known friend/group's cached name and informs the admin; on
// disconnect, just informs the admin.
func (c *Client) processOnebotMeta(ctx context.Context, endpoint protocol.Endpoint, meta *protocol.MetaEvent) error {
	if meta.Lifecycle == nil {
		return nil
	}
	switch meta.Lifecycle.SubType {
	case "connect":
		if friends, err := c.bridge.GetFriendList(ctx, endpoint); err == nil {
			for _, info := range friends {
				if _, err := c.bridge.UpdateRemotePrivateChat(endpoint, &info); err != nil {
					logWarnf("update remote private chat: %v", err)
				}
			}
		}
		if groups, err := c.bridge.GetGroupList(ctx, endpoint); err == nil {
			for _, info := range groups {
				if _, err := c.bridge.UpdateRemoteGroupChat(endpoint, &info); err != nil {
					logWarnf("update remote group chat: %v", err)
				}
			}
		}
		_, err := c.bridge.SendTelegramMessage(ctx, c.bridge.AdminID(), 0, fmt.Sprintf("<b>[INFO] %s connected</b>", endpoint))
		return err
	case "disconnect":
		_, err := c.bridge.SendTelegramMessage(ctx, c.bridge.AdminID(), 0, fmt.Sprintf("<b>[INFO] %s disconnected</b>", endpoint))
		return err
	default:
		return nil
	}
}

// processOnebotNotice handles a recall notice by editing the relayed
// message's delivery status and posting a strikethrough follow-up, since the
// Bot API cannot edit a message it didn't send as a caption-bearing type in
// every case.
func (c *Client) processOnebotNotice(ctx context.Context, endpoint protocol.Endpoint, notice *protocol.NoticeEvent) error {
	var messageID, senderName string
	var remoteChat *storage.RemoteChat
	var err error

	switch notice.Type {
	case protocol.NoticeFriendRecall:
		if notice.FriendRecall.SelfID == notice.FriendRecall.UserID {
			return nil
		}
		messageID = notice.FriendRecall.MessageID
		info, infoErr := c.bridge.GetStrangerInfo(ctx, endpoint, notice.FriendRecall.UserID, false)
		if infoErr != nil {
			return fmt.Errorf("get stranger info: %w", infoErr)
		}
		senderName = info.DisplayName()
		remoteChat, err = c.bridge.GetRemoteChat(ctx, protocol.RemoteChatKey{Endpoint: endpoint, ChatType: protocol.ChatTypePrivate, TargetID: notice.FriendRecall.UserID})
	case protocol.NoticeGroupRecall:
		messageID = notice.GroupRecall.MessageID
		member, infoErr := c.bridge.GetGroupMemberInfo(ctx, endpoint, notice.GroupRecall.GroupID, notice.GroupRecall.UserID, false)
		if infoErr != nil {
			return fmt.Errorf("get group member info: %w", infoErr)
		}
		senderName = member.DisplayName()
		remoteChat, err = c.bridge.GetRemoteChat(ctx, protocol.RemoteChatKey{Endpoint: endpoint, ChatType: protocol.ChatTypeGroup, TargetID: notice.GroupRecall.GroupID})
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve remote chat for recall: %w", err)
	}

	msg, err := c.bridge.FindMessageByRemote(remoteChat.ID, messageID)
	if err != nil {
		return fmt.Errorf("find recalled message: %w", err)
	}
	if msg == nil {
		return nil
	}
	if err := c.bridge.UpdateDeliveryStatus(msg.ID, protocol.DeliveryRecalled); err != nil {
		logWarnf("update delivery status: %v", err)
	}

	chatID, topicID, _, title, err := c.fetchChatAndTitle(ctx, endpoint, remoteChat, senderName)
	if err != nil {
		return fmt.Errorf("resolve telegram destination for recall: %w", err)
	}
	sent, err := c.bridge.SendTelegramMessage(ctx, chatID, topicID, title+"\n<del>Recalled this message</del>")
	if err != nil {
		return fmt.Errorf("send recall notice: %w", err)
	}

	fakeID := "fake:" + uuid.NewString()
	_, err = c.bridge.SaveMessageByRemote(sent.Chat.ID, int32(sent.MessageID), remoteChat.ID, fakeID, "")
	return err
}

// fetchChatAndTitle resolves the Telegram destination (chat id, forum topic
// id if any, reply-to message id if any) and the message's title line for
// remoteChat: a linked chat's own history, an archive's forum topic, or
// (failing both) a direct message to the admin.
func (c *Client) fetchChatAndTitle(ctx context.Context, endpoint protocol.Endpoint, remoteChat *storage.RemoteChat, senderName string) (chatID int64, topicID int32, replyTo int32, title string, err error) {
	if link, err := c.bridge.FindLinkByRemote(remoteChat.ID); err != nil {
		return 0, 0, 0, "", fmt.Errorf("find link by remote: %w", err)
	} else if link != nil {
		return link.TgChatID, 0, 0, senderName + ":", nil
	}

	archive, err := c.bridge.FindArchiveByEndpoint(endpoint.String())
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("find archive by endpoint: %w", err)
	}
	if archive != nil {
		tgTopicID, err := c.bridge.GetOrCreateTopic(archive.ID, archive.TgChatID, remoteChat)
		if err != nil {
			return 0, 0, 0, "", fmt.Errorf("get or create topic: %w", err)
		}
		return archive.TgChatID, tgTopicID, 0, senderName + ":", nil
	}

	switch remoteChat.ChatType {
	case protocol.ChatTypePrivate:
		title = fmt.Sprintf("👤 %s:", remoteChat.Name)
	default:
		title = fmt.Sprintf("👥 %s [%s]:", senderName, remoteChat.Name)
	}
	return c.bridge.AdminID(), 0, 0, title, nil
}
