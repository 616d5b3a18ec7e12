// Storage module - SQLite data storage for remote chats, Telegram links,
// forum archives and topics, and the cross-platform message map.

package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gliderlab/teleporter/onebot/protocol"
)

// addColumnSafe adds a column to a table if it doesn't exist.
// Returns true if the column was added, false if it already exists or on error.
func addColumnSafe(db *sql.DB, table, column, definition string) bool {
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table), column).Scan(&count)
	if err == nil && count > 0 {
		return false
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil {
		log.Printf("[WARN] Migration: add column %s.%s failed: %v (may be OK if already exists)", table, column, err)
		return false
	}
	return true
}

// Storage wraps the SQLite database holding the relay's chat-mapping state:
// which remote chats are known, which Telegram chat each is linked to,
// which forum topic within an archive each lives under, and the per-message
// delivery map used for edit/recall/reply propagation.
type Storage struct {
	db *sql.DB

	stmtGetRemoteChat    *sql.Stmt
	stmtUpsertRemoteChat *sql.Stmt
	stmtFindLinkByRemote *sql.Stmt
	stmtFindLinkByTg     *sql.Stmt
	stmtFindMsgByRemote  *sql.Stmt
	stmtFindMsgByTg      *sql.Stmt
	stmtInsertMessage    *sql.Stmt
	stmtUpdateDelivery   *sql.Stmt
}

// RemoteChat is a known remote conversation: a private chat with a user or
// a group, scoped to the OneBot endpoint (remote bot account) it was seen
// through.
type RemoteChat struct {
	ID        int64
	Endpoint  string
	ChatType  protocol.ChatType
	TargetID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Archive is a Telegram supergroup (with forum topics enabled) used to hold
// one or more remote chats as topics, scoped to the OneBot endpoint whose
// conversations it archives.
type Archive struct {
	ID        int64
	Endpoint  string
	TgChatID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Topic is a forum topic within an Archive dedicated to one RemoteChat.
type Topic struct {
	ID           int64
	ArchiveID    int64
	TgTopicID    int32
	RemoteChatID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Link is a direct 1:1 pairing between a Telegram chat and a RemoteChat,
// used for non-archived relay (every Telegram message in the chat maps to
// this one remote chat and vice versa).
type Link struct {
	ID           int64
	TgChatType   int32
	TgChatID     int64
	RemoteChatID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message records the cross-platform mapping for one relayed message, used
// to resolve edits, recalls and reply targets in either direction.
type Message struct {
	ID             int64
	TgChatID       int64
	TgMsgID        int32
	RemoteChatID   int64
	RemoteMsgID    string
	Content        string
	DeliveryStatus protocol.DeliveryStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Config holds the sqlite connection tuning knobs (WAL, sync mode, pool
// sizing) scoped to this package so storage stays self-contained.
type Config struct {
	DBPath          string
	WalMode         bool
	SyncMode        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sane defaults for a relay's local database file.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:          dbPath,
		WalMode:         true,
		SyncMode:        "NORMAL",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
	}
}

func New(dbPath string) (*Storage, error) {
	return NewWithConfig(DefaultConfig(dbPath))
}

// NewWithConfig opens (creating if needed) the database at cfg.DBPath,
// applies pragmas and connection-pool tuning, and runs schema migration.
func NewWithConfig(cfg Config) (*Storage, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path required")
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	s := &Storage{db: db}

	if cfg.WalMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return nil, fmt.Errorf("failed to set WAL: %w", err)
		}
	}

	syncMode := cfg.SyncMode
	if syncMode == "" {
		syncMode = "NORMAL"
	}
	if _, err := db.Exec("PRAGMA synchronous=" + syncMode + ";"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.initPreparedStmts(); err != nil {
		log.Printf("[WARN] Failed to prepare statements: %v (continuing without prepared statements)", err)
	}

	log.Printf("[OK] Storage: database %s", cfg.DBPath)
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initPreparedStmts() error {
	var err error

	if s.stmtGetRemoteChat, err = s.db.Prepare(
		"SELECT id, endpoint, chat_type, target_id, name, created_at, updated_at FROM remote_chat WHERE endpoint = ? AND chat_type = ? AND target_id = ?",
	); err != nil {
		return fmt.Errorf("GetRemoteChat: %w", err)
	}

	if s.stmtUpsertRemoteChat, err = s.db.Prepare(
		`INSERT INTO remote_chat (endpoint, chat_type, target_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT(endpoint, chat_type, target_id) DO UPDATE SET
		   name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
	); err != nil {
		return fmt.Errorf("UpsertRemoteChat: %w", err)
	}

	if s.stmtFindLinkByRemote, err = s.db.Prepare(
		"SELECT id, tg_chat_type, tg_chat_id, remote_chat_id, created_at, updated_at FROM link WHERE remote_chat_id = ?",
	); err != nil {
		return fmt.Errorf("FindLinkByRemote: %w", err)
	}

	if s.stmtFindLinkByTg, err = s.db.Prepare(
		"SELECT id, tg_chat_type, tg_chat_id, remote_chat_id, created_at, updated_at FROM link WHERE tg_chat_id = ?",
	); err != nil {
		return fmt.Errorf("FindLinkByTg: %w", err)
	}

	if s.stmtFindMsgByRemote, err = s.db.Prepare(
		"SELECT id, tg_chat_id, tg_msg_id, remote_chat_id, remote_msg_id, content, delivery_status, created_at, updated_at FROM message WHERE remote_chat_id = ? AND remote_msg_id = ?",
	); err != nil {
		return fmt.Errorf("FindMessageByRemote: %w", err)
	}

	if s.stmtFindMsgByTg, err = s.db.Prepare(
		"SELECT id, tg_chat_id, tg_msg_id, remote_chat_id, remote_msg_id, content, delivery_status, created_at, updated_at FROM message WHERE tg_chat_id = ? AND tg_msg_id = ?",
	); err != nil {
		return fmt.Errorf("FindMessageByTg: %w", err)
	}

	if s.stmtInsertMessage, err = s.db.Prepare(
		`INSERT INTO message (tg_chat_id, tg_msg_id, remote_chat_id, remote_msg_id, content, delivery_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
	); err != nil {
		return fmt.Errorf("InsertMessage: %w", err)
	}

	if s.stmtUpdateDelivery, err = s.db.Prepare(
		"UPDATE message SET delivery_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
	); err != nil {
		return fmt.Errorf("UpdateDelivery: %w", err)
	}

	return nil
}

func (s *Storage) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint TEXT NOT NULL,
			tg_chat_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS remote_chat (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint TEXT NOT NULL,
			chat_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS link (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tg_chat_type INTEGER NOT NULL DEFAULT 0,
			tg_chat_id INTEGER NOT NULL,
			remote_chat_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS topic (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			archive_id INTEGER NOT NULL,
			tg_topic_id INTEGER NOT NULL,
			remote_chat_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tg_chat_id INTEGER NOT NULL,
			tg_msg_id INTEGER NOT NULL,
			remote_chat_id INTEGER NOT NULL,
			remote_msg_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			delivery_status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	// Migration: columns added after the initial schema, following the
	// teacher's addColumnSafe idiom for forward-compatible upgrades.
	addColumnSafe(s.db, "message", "content", "TEXT NOT NULL DEFAULT ''")

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS archive_unq_endpoint ON archive(endpoint)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS remote_chat_unq_chat ON remote_chat(endpoint, chat_type, target_id)`,
		`CREATE INDEX IF NOT EXISTS remote_chat_idx_name ON remote_chat(name)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS link_unq_tg_chat ON link(tg_chat_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS link_unq_remote_chat ON link(remote_chat_id)`,
		`CREATE INDEX IF NOT EXISTS topic_idx_archive ON topic(archive_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS topic_unq_remote_chat ON topic(remote_chat_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS message_unq_tg_msg ON message(tg_chat_id, tg_msg_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS message_unq_remote_msg ON message(remote_chat_id, remote_msg_id, tg_chat_id, tg_msg_id)`,
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// GetRemoteChat looks up a known remote chat by its natural key.
func (s *Storage) GetRemoteChat(endpoint string, chatType protocol.ChatType, targetID string) (*RemoteChat, error) {
	row := s.stmtGetRemoteChat.QueryRow(endpoint, string(chatType), targetID)
	return scanRemoteChat(row)
}

// UpsertRemoteChat creates or refreshes the name of a remote chat.
func (s *Storage) UpsertRemoteChat(endpoint string, chatType protocol.ChatType, targetID, name string) (*RemoteChat, error) {
	if _, err := s.stmtUpsertRemoteChat.Exec(endpoint, string(chatType), targetID, name); err != nil {
		return nil, fmt.Errorf("upsert remote chat: %w", err)
	}
	return s.GetRemoteChat(endpoint, chatType, targetID)
}

func scanRemoteChat(row *sql.Row) (*RemoteChat, error) {
	var rc RemoteChat
	var chatType string
	if err := row.Scan(&rc.ID, &rc.Endpoint, &chatType, &rc.TargetID, &rc.Name, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rc.ChatType = protocol.ChatType(chatType)
	return &rc, nil
}

// CreateArchive registers a new Telegram forum supergroup as the archive
// destination for endpoint.
func (s *Storage) CreateArchive(endpoint string, tgChatID int64) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO archive (endpoint, tg_chat_id) VALUES (?, ?)",
		endpoint, tgChatID,
	)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	return res.LastInsertId()
}

// DeleteArchive removes an archive and its topics.
func (s *Storage) DeleteArchive(id int64) error {
	if _, err := s.db.Exec("DELETE FROM topic WHERE archive_id = ?", id); err != nil {
		return fmt.Errorf("delete archive topics: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM archive WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	return nil
}

// FindArchiveByEndpoint returns the archive configured for endpoint, if any.
func (s *Storage) FindArchiveByEndpoint(endpoint string) (*Archive, error) {
	row := s.db.QueryRow(
		"SELECT id, endpoint, tg_chat_id, created_at, updated_at FROM archive WHERE endpoint = ?",
		endpoint,
	)
	var a Archive
	if err := row.Scan(&a.ID, &a.Endpoint, &a.TgChatID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// FindRemoteChatByArchiveTopic resolves the remote chat backing a given
// forum topic, used when a Telegram message arrives inside an archive.
func (s *Storage) FindRemoteChatByArchiveTopic(tgChatID int64, tgTopicID int32) (*RemoteChat, error) {
	row := s.db.QueryRow(`
		SELECT rc.id, rc.endpoint, rc.chat_type, rc.target_id, rc.name, rc.created_at, rc.updated_at
		FROM topic t
		JOIN archive a ON a.id = t.archive_id
		JOIN remote_chat rc ON rc.id = t.remote_chat_id
		WHERE a.tg_chat_id = ? AND t.tg_topic_id = ?
	`, tgChatID, tgTopicID)
	var rc RemoteChat
	var chatType string
	if err := row.Scan(&rc.ID, &rc.Endpoint, &chatType, &rc.TargetID, &rc.Name, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rc.ChatType = protocol.ChatType(chatType)
	return &rc, nil
}

// GetOrCreateTopic returns the forum topic id already bound to remoteChatID
// within archiveID, or zero if none exists yet (the caller creates the
// Telegram-side topic and then calls CreateTopic).
func (s *Storage) GetOrCreateTopic(archiveID, remoteChatID int64) (int32, error) {
	var tgTopicID int32
	err := s.db.QueryRow("SELECT tg_topic_id FROM topic WHERE remote_chat_id = ?", remoteChatID).Scan(&tgTopicID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	_ = archiveID
	return tgTopicID, nil
}

// CreateTopic persists a newly created Telegram forum topic's binding.
func (s *Storage) CreateTopic(archiveID int64, tgTopicID int32, remoteChatID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO topic (archive_id, tg_topic_id, remote_chat_id) VALUES (?, ?, ?)",
		archiveID, tgTopicID, remoteChatID,
	)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// CreateLink binds a Telegram chat directly (1:1, no archive) to a remote
// chat.
func (s *Storage) CreateLink(tgChatType int32, tgChatID, remoteChatID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO link (tg_chat_type, tg_chat_id, remote_chat_id) VALUES (?, ?, ?)",
		tgChatType, tgChatID, remoteChatID,
	)
	if err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// DeleteLink removes a direct Telegram<->remote-chat link.
func (s *Storage) DeleteLink(id int64) error {
	_, err := s.db.Exec("DELETE FROM link WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// FindLinkByRemote returns the link bound to remoteChatID, if any.
func (s *Storage) FindLinkByRemote(remoteChatID int64) (*Link, error) {
	return scanLink(s.stmtFindLinkByRemote.QueryRow(remoteChatID))
}

// FindLinkByTg returns the link bound to tgChatID, if any.
func (s *Storage) FindLinkByTg(tgChatID int64) (*Link, error) {
	return scanLink(s.stmtFindLinkByTg.QueryRow(tgChatID))
}

func scanLink(row *sql.Row) (*Link, error) {
	var l Link
	if err := row.Scan(&l.ID, &l.TgChatType, &l.TgChatID, &l.RemoteChatID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// FindMessageByRemote resolves the Telegram side of a relayed message given
// its remote chat and remote message id.
func (s *Storage) FindMessageByRemote(remoteChatID int64, remoteMsgID string) (*Message, error) {
	return scanMessage(s.stmtFindMsgByRemote.QueryRow(remoteChatID, remoteMsgID))
}

// FindMessageByTg resolves the remote side of a relayed message given its
// Telegram chat and message id.
func (s *Storage) FindMessageByTg(tgChatID int64, tgMsgID int32) (*Message, error) {
	return scanMessage(s.stmtFindMsgByTg.QueryRow(tgChatID, tgMsgID))
}

func scanMessage(row *sql.Row) (*Message, error) {
	var m Message
	var status string
	if err := row.Scan(&m.ID, &m.TgChatID, &m.TgMsgID, &m.RemoteChatID, &m.RemoteMsgID, &m.Content, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m.DeliveryStatus = protocol.DeliveryStatus(status)
	return &m, nil
}

// SaveMessage persists a new relayed-message mapping with delivery status
// "sent".
func (s *Storage) SaveMessage(tgChatID int64, tgMsgID int32, remoteChatID int64, remoteMsgID, content string) (int64, error) {
	res, err := s.stmtInsertMessage.Exec(tgChatID, tgMsgID, remoteChatID, remoteMsgID, content, string(protocol.DeliverySent))
	if err != nil {
		return 0, fmt.Errorf("save message: %w", err)
	}
	return res.LastInsertId()
}

// UpdateDeliveryStatus marks a message mapping as failed, sent, or recalled.
func (s *Storage) UpdateDeliveryStatus(id int64, status protocol.DeliveryStatus) error {
	_, err := s.stmtUpdateDelivery.Exec(string(status), id)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	return nil
}

// ListArchives returns every configured archive, for the /archive command's
// endpoint-to-archive lookup.
func (s *Storage) ListArchives() ([]Archive, error) {
	rows, err := s.db.Query("SELECT id, endpoint, tg_chat_id, created_at, updated_at FROM archive")
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []Archive
	for rows.Next() {
		var a Archive
		if err := rows.Scan(&a.ID, &a.Endpoint, &a.TgChatID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListDistinctEndpoints returns every endpoint that has at least one known
// remote chat, for the /archive command's endpoint picker.
func (s *Storage) ListDistinctEndpoints() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT endpoint FROM remote_chat ORDER BY endpoint")
	if err != nil {
		return nil, fmt.Errorf("list distinct endpoints: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ep string
		if err := rows.Scan(&ep); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// GetRemoteChatByID looks up a remote chat by its primary key, used to
// render the currently-linked chat's name in the /link command.
func (s *Storage) GetRemoteChatByID(id int64) (*RemoteChat, error) {
	row := s.db.QueryRow("SELECT id, endpoint, chat_type, target_id, name, created_at, updated_at FROM remote_chat WHERE id = ?", id)
	return scanRemoteChat(row)
}

// RemoteChatWithLink pairs a remote chat with the id of the link already
// bound to it, if any (zero when unlinked).
type RemoteChatWithLink struct {
	RemoteChat
	LinkID int64
}

// ListRemoteChatsPage returns one page (limit/offset, ordered by id) of
// remote chats matching keyword (a substring match on name, or every remote
// chat when keyword is empty), each annotated with its link id if linked,
// plus the total number of matching rows for pagination.
func (s *Storage) ListRemoteChatsPage(keyword string, limit, offset int) ([]RemoteChatWithLink, int64, error) {
	where := ""
	args := []any{}
	if keyword != "" {
		where = "WHERE rc.name LIKE ?"
		args = append(args, "%"+keyword+"%")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM remote_chat rc %s", where)
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count remote chats: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT rc.id, rc.endpoint, rc.chat_type, rc.target_id, rc.name, rc.created_at, rc.updated_at,
		       COALESCE(l.id, 0)
		FROM remote_chat rc
		LEFT JOIN link l ON l.remote_chat_id = rc.id
		%s
		ORDER BY rc.id ASC
		LIMIT ? OFFSET ?
	`, where)
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list remote chats: %w", err)
	}
	defer rows.Close()

	var out []RemoteChatWithLink
	for rows.Next() {
		var rc RemoteChatWithLink
		var chatType string
		if err := rows.Scan(&rc.ID, &rc.Endpoint, &chatType, &rc.TargetID, &rc.Name, &rc.CreatedAt, &rc.UpdatedAt, &rc.LinkID); err != nil {
			return nil, 0, err
		}
		rc.ChatType = protocol.ChatType(chatType)
		out = append(out, rc)
	}
	return out, total, rows.Err()
}
