package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/onebot/protocol"
)

// fetchUserAgent is sent on outbound attachment downloads; some remote
// adapters' media hosts reject requests without a browser-like UA.
const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var fetchClient = &http.Client{Timeout: 60 * time.Second}

// FfmpegPath returns the ffmpeg binary path this Bridge was configured with,
// for transcoding helpers outside the package (package telegram's Telegram
// -> remote pipeline).
func (b *Bridge) FfmpegPath() string { return b.ffmpegPath }

// InlineFileURL frames raw bytes as a OneBot "base64://" file reference, the
// wire form LLOneBot/WeChat adapters accept in place of a fetchable URL.
func InlineFileURL(data []byte) string {
	return "base64://" + base64.StdEncoding.EncodeToString(data)
}

// qqLocationCardTemplate is the Tencent map card JSON embedded for QQ, which
// has no native location message type.
const qqLocationCardTemplate = `{"app":"com.tencent.map","desc":"地图","view":"LocationShare","ver":"0.0.0.1","prompt":"[位置]%s","from":1,"meta":{"Location.Search":{"id":"12250896297164027526","name":"%s","address":"%s","lat":"%.5f","lng":"%.5f","from":"plusPanel"}},"config":{"forward":1,"autosize":1,"type":"card"}}`

// QQLocationCard builds the raw JSON segment payload for a location shared
// into a QQ chat.
func QQLocationCard(title, content string, lat, lon float64) string {
	return fmt.Sprintf(qqLocationCardTemplate, title, title, content, lat, lon)
}

// IsSticker reports whether a segment should be treated as a sticker for
// upload purposes: QQ market faces always are, and image segments carrying
// an emoji id or the "[动画表情]" summary (an animated sticker sent as a
// plain image segment) count too.
func IsSticker(seg protocol.Segment) bool {
	switch seg.Type {
	case protocol.SegMarketFace:
		return true
	case protocol.SegImage:
		if seg.Image == nil {
			return false
		}
		if seg.Image.EmojiID != nil {
			return true
		}
		return seg.Image.Summary != nil && *seg.Image.Summary == "[动画表情]"
	default:
		return false
	}
}

// ImageSize decodes just enough of data to report its pixel dimensions,
// returning (0, 0) if mimeType isn't an image type or decoding fails.
func ImageSize(data []byte, mimeType string) (int, int) {
	if !strings.HasPrefix(mimeType, "image") {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// sniffMime detects a content type from raw bytes, used whenever a remote
// adapter's response doesn't carry a usable Content-Type.
func sniffMime(data []byte) string {
	return mimetype.Detect(data).String()
}

// runFfmpeg writes input to a temp file (ffmpeg needs seekable input for
// these conversions) and captures stdout from a pipe.
func runFfmpeg(ctx context.Context, ffmpegPath string, input []byte, args ...string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "teleporter-media-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(input); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	fullArgs := append([]string{"-i", tmp.Name()}, args...)
	cmd := exec.CommandContext(ctx, ffmpegPath, fullArgs...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return stdout.Bytes(), nil
}

// GifToWebm transcodes an animated sticker to the WebM/VP9 shape Telegram
// requires for animated stickers: 30fps, capped at ~3s, scaled to fit
// 512x512, alpha preserved.
func GifToWebm(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data,
		"-r", "30",
		"-t", "2.99",
		"-an",
		"-c:v", "libvpx-vp9",
		"-pix_fmt", "yuva420p",
		"-vf", "scale=512:512:force_original_aspect_ratio=decrease",
		"-b:v", "400K",
		"-f", "webm",
		"pipe:1",
	)
}

// ImgToWebp transcodes a static sticker image to WebP. No pure-Go WebP
// encoder is worth pulling in for one conversion, so this reuses the same
// ffmpeg subprocess idiom as GifToWebm/WavToOgg instead of a cgo-bound
// encoder.
func ImgToWebp(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data,
		"-vf", "scale=512:512:force_original_aspect_ratio=decrease",
		"-f", "webp",
		"pipe:1",
	)
}

// WavToOgg transcodes a QQ voice message (WAV) to Opus-in-Ogg, the format
// Telegram voice messages require.
func WavToOgg(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data,
		"-c:a", "libopus",
		"-b:a", "24K",
		"-f", "ogg",
		"pipe:1",
	)
}

// VideoToGif transcodes a small Telegram animation (sent as an MP4 "GIF") to
// an actual animated GIF for remote adapters that don't understand MP4
// inline animations: palette-based, 15fps, scaled to 256px wide.
func VideoToGif(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data,
		"-vf", "fps=15,scale=256:-1:flags=lanczos,split[s0][s1];"+
			"[s0]palettegen=max_colors=64[p];[s1][p]paletteuse=dither=sierra2_4a",
		"-f", "gif",
		"-loop", "0",
		"pipe:1",
	)
}

// WebmToGif transcodes a Telegram animated (WebM/VP9) sticker to GIF before
// relaying it out to a remote adapter with no WebM sticker support.
func WebmToGif(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data,
		"-filter_complex", "[0:v]fps=10,scale=256:-1:flags=lanczos,colorkey=0xffffff:0.01:0.0,split[s0][s1];"+
			"[s0]palettegen[p];[s1][p]paletteuse",
		"-f", "gif",
		"-loop", "0",
		"pipe:1",
	)
}

// OggToWav transcodes a Telegram voice message (Opus-in-Ogg) to WAV, the
// format QQ's remote adapter expects for inbound voice messages.
func OggToWav(ctx context.Context, ffmpegPath string, data []byte) ([]byte, error) {
	return runFfmpeg(ctx, ffmpegPath, data, "-f", "wav", "pipe:1")
}

// fetchFile downloads rawURL with a browser User-Agent, returning the body
// and response headers for filename/content-type resolution.
func fetchFile(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return data, resp.Header, nil
}

// DownloadedSegment is the raw payload recovered from a remote attachment
// segment. DownloadSegment returns it as fetched; UploadSegment returns it
// after any transcoding it applies.
type DownloadedSegment struct {
	Data     []byte
	Filename string
	MimeType string
}

// DownloadSegment resolves a media segment's bytes from endpoint, by
// calling the matching OneBot API when the segment carries only a remote
// file id, or fetching the URL directly when one is already present.
func (b *Bridge) DownloadSegment(ctx context.Context, endpoint protocol.Endpoint, seg protocol.Segment) (*DownloadedSegment, error) {
	switch seg.Type {
	case protocol.SegImage:
		return b.downloadImageLike(ctx, endpoint, seg.Image.URL, seg.Image.File, seg.Image.EmojiID, seg.Image.Name)
	case protocol.SegMarketFace:
		return b.downloadImageLike(ctx, endpoint, seg.MarketFace.URL, "", &seg.MarketFace.EmojiID, nil)
	case protocol.SegRecord:
		outFormat := "ogg"
		if endpoint.Platform == protocol.PlatformQQ {
			outFormat = "wav"
		}
		info, err := b.GetRecord(ctx, endpoint, seg.Record.File, outFormat)
		if err != nil {
			return nil, fmt.Errorf("get_record: %w", err)
		}
		return b.materializeFileInfo(ctx, info)
	case protocol.SegVideo:
		info, err := b.GetFile(ctx, endpoint, seg.Video.File, "")
		if err != nil {
			return nil, fmt.Errorf("get_file (video): %w", err)
		}
		return b.materializeFileInfo(ctx, info)
	case protocol.SegFile:
		info, err := b.GetFile(ctx, endpoint, seg.File.File, "")
		if err != nil {
			return nil, fmt.Errorf("get_file: %w", err)
		}
		return b.materializeFileInfo(ctx, info)
	default:
		return nil, fmt.Errorf("segment type %q has no downloadable attachment", seg.Type)
	}
}

// downloadImageLike fetches an emoji/marketface/image segment directly by
// URL when one is already present on the wire (the common case for QQ
// market faces, which embed a CDN URL), falling back to get_image.
func (b *Bridge) downloadImageLike(ctx context.Context, endpoint protocol.Endpoint, directURL *string, file string, emojiID *string, name *string) (*DownloadedSegment, error) {
	if directURL != nil && *directURL != "" {
		data, headers, err := fetchFile(ctx, *directURL)
		if err != nil {
			return nil, err
		}
		mime := headers.Get("Content-Type")
		if mime == "" {
			mime = sniffMime(data)
		}
		filename := getFinalFilename(headers, *directURL)
		if name != nil && *name != "" {
			filename = sanitizeFilename(*name)
		}
		return &DownloadedSegment{Data: data, Filename: filename, MimeType: mime}, nil
	}

	info, err := b.GetImage(ctx, endpoint, file, "", emojiID)
	if err != nil {
		return nil, fmt.Errorf("get_image: %w", err)
	}
	return b.materializeFileInfo(ctx, info)
}

// materializeFileInfo turns a FileInfo response into bytes: decoding
// inline base64 when present, else fetching the reported URL.
func (b *Bridge) materializeFileInfo(ctx context.Context, info *protocol.FileInfo) (*DownloadedSegment, error) {
	if info.Base64 != nil && *info.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(*info.Base64)
		if err != nil {
			return nil, fmt.Errorf("decode base64 file data: %w", err)
		}
		mimeType := sniffMime(data)
		filename := info.FileName
		if filename == "" {
			filename = generateDefaultFilename(info.File, mimeType)
		}
		return &DownloadedSegment{Data: data, Filename: sanitizeFilename(filename), MimeType: mimeType}, nil
	}
	if info.URL != nil && *info.URL != "" {
		data, headers, err := fetchFile(ctx, *info.URL)
		if err != nil {
			return nil, err
		}
		mimeType := headers.Get("Content-Type")
		if mimeType == "" {
			mimeType = sniffMime(data)
		}
		filename := info.FileName
		if filename == "" {
			filename = getFinalFilename(headers, *info.URL)
		}
		return &DownloadedSegment{Data: data, Filename: sanitizeFilename(filename), MimeType: mimeType}, nil
	}
	return nil, fmt.Errorf("file info for %q carries neither base64 data nor a url", info.File)
}

// segmentCacheKey returns the remote file identifier a segment carries, for
// deduplicating downloads/transcodes through MediaCache. Segments with no
// stable identifier (a bare URL image, say) return "", false and are never
// cached.
func segmentCacheKey(seg protocol.Segment) (string, bool) {
	switch seg.Type {
	case protocol.SegImage:
		if seg.Image.File != "" {
			return seg.Image.File, true
		}
	case protocol.SegMarketFace:
		return seg.MarketFace.EmojiID, true
	case protocol.SegRecord:
		return seg.Record.File, true
	case protocol.SegVideo:
		return seg.Video.File, true
	case protocol.SegFile:
		return seg.File.File, true
	}
	return "", false
}

// UploadSegment resolves a remote segment's bytes and, when it's a sticker
// or a QQ voice clip, transcodes it into the shape Telegram expects
// (animated GIF -> WebM, static image -> WebP, WAV -> Opus-in-Ogg). Results
// are cached by endpoint and the segment's
// remote file id, so a sticker or voice clip relayed into multiple archived
// topics is only downloaded and transcoded once.
func (b *Bridge) UploadSegment(ctx context.Context, endpoint protocol.Endpoint, seg protocol.Segment) (*DownloadedSegment, error) {
	cacheKey, cacheable := segmentCacheKey(seg)
	if cacheable && b.media != nil {
		if data, ok := b.media.Get(endpoint.String(), cacheKey); ok {
			return decodeCachedSegment(data)
		}
	}

	downloaded, err := b.DownloadSegment(ctx, endpoint, seg)
	if err != nil {
		return nil, err
	}

	result := downloaded
	if IsSticker(seg) {
		if strings.HasPrefix(downloaded.MimeType, "image/gif") {
			webm, err := GifToWebm(ctx, b.ffmpegPath, downloaded.Data)
			if err != nil {
				return nil, fmt.Errorf("transcode gif to webm: %w", err)
			}
			result = &DownloadedSegment{Data: webm, Filename: "sticker.webm", MimeType: "video/webm"}
		} else {
			webp, err := ImgToWebp(ctx, b.ffmpegPath, downloaded.Data)
			if err != nil {
				return nil, fmt.Errorf("transcode image to webp: %w", err)
			}
			result = &DownloadedSegment{Data: webp, Filename: "sticker.webp", MimeType: "image/webp"}
		}
	} else if seg.Type == protocol.SegRecord && endpoint.Platform == protocol.PlatformQQ {
		ogg, err := WavToOgg(ctx, b.ffmpegPath, downloaded.Data)
		if err != nil {
			return nil, fmt.Errorf("transcode wav to ogg: %w", err)
		}
		result = &DownloadedSegment{Data: ogg, Filename: "voice.ogg", MimeType: "audio/ogg"}
	}

	if cacheable && b.media != nil {
		if encoded, err := encodeCachedSegment(result); err == nil {
			if err := b.media.Put(endpoint.String(), cacheKey, encoded); err != nil {
				log.Printf("[WARN] bridge: cache upload segment %s/%s: %v", endpoint, cacheKey, err)
			}
		}
	}
	return result, nil
}

// encodeCachedSegment/decodeCachedSegment round-trip a DownloadedSegment
// through MediaCache's []byte value, framing filename and mime type ahead of
// the payload so a single cache entry can hold all three fields.
func encodeCachedSegment(seg *DownloadedSegment) ([]byte, error) {
	var buf bytes.Buffer
	for _, field := range []string{seg.Filename, seg.MimeType} {
		if len(field) > 0xFFFF {
			return nil, fmt.Errorf("cached segment field too long: %d bytes", len(field))
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}
	buf.Write(seg.Data)
	return buf.Bytes(), nil
}

func decodeCachedSegment(data []byte) (*DownloadedSegment, error) {
	r := bytes.NewReader(data)
	readField := func() (string, error) {
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return "", err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		return string(buf), nil
	}
	filename, err := readField()
	if err != nil {
		return nil, fmt.Errorf("decode cached segment filename: %w", err)
	}
	mimeType, err := readField()
	if err != nil {
		return nil, fmt.Errorf("decode cached segment mime type: %w", err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode cached segment payload: %w", err)
	}
	return &DownloadedSegment{Data: rest, Filename: filename, MimeType: mimeType}, nil
}

// DownloadMedia fetches a Telegram-hosted file by its file id, for the
// Telegram-to-remote direction of the relay.
func (b *Bridge) DownloadMedia(ctx context.Context, fileID string) (*DownloadedSegment, error) {
	file, err := b.tg.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file %s: %w", fileID, err)
	}
	rawURL := file.Link(b.tg.Token)
	data, headers, err := fetchFile(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	mimeType := headers.Get("Content-Type")
	if mimeType == "" {
		mimeType = sniffMime(data)
	}
	return &DownloadedSegment{
		Data:     data,
		Filename: getTgDocFileName("", file.FileID, mimeType),
		MimeType: mimeType,
	}, nil
}
