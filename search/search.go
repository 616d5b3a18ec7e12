// Package search is the relay's full-text message index: every message
// relayed out to Telegram gets indexed here, and the /search command queries
// it back. It's a plain SQLite FTS5 index with no vector/embedding side,
// since keyword search is all a chat relay needs.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gliderlab/teleporter/bridge"
)

// commitBatchSize and commitInterval bound how long a newly indexed message
// can go unsearchable: committed after either this many pending documents or
// this long, whichever comes first.
const (
	commitBatchSize = 100
	commitInterval  = 30 * time.Second
	docBufferSize   = 1024
	snippetChars    = 10
)

// Document is one message to index: its Telegram location (for scoping
// searches to a chat, and within an archive, to a topic) plus the text
// content to make searchable.
type Document struct {
	ChatID    int64
	MessageID int32
	TopicID   int32 // 0 when the chat isn't a forum archive topic
	Timestamp int64
	Content   string
}

// Index is a SQLite FTS5-backed message index with a single background
// writer goroutine, serializing all writes through one goroutine rather
// than letting SQLite arbitrate concurrent writers itself.
type Index struct {
	db     *sql.DB
	docs   chan Document
	commit chan chan struct{}
	done   chan struct{}
}

// New opens (creating if needed) the FTS5 index database at dbPath and
// starts its background writer.
func New(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping search index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	if _, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			content,
			chat_id UNINDEXED,
			topic_id UNINDEXED,
			message_id UNINDEXED,
			timestamp UNINDEXED
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fts5 table: %w", err)
	}

	idx := &Index{
		db:     db,
		docs:   make(chan Document, docBufferSize),
		commit: make(chan chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go idx.run()
	return idx, nil
}

func (idx *Index) run() {
	defer close(idx.done)

	tx, stmt, err := idx.beginBatch()
	if err != nil {
		log.Printf("[ERROR] search: begin index batch: %v", err)
		return
	}
	pending := 0

	ticker := time.NewTicker(commitInterval)
	defer ticker.Stop()

	commitBatch := func() {
		if pending == 0 {
			return
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			log.Printf("[WARN] search: commit index batch: %v", err)
		}
		pending = 0
		tx, stmt, err = idx.beginBatch()
		if err != nil {
			log.Printf("[ERROR] search: restart index batch: %v", err)
		}
	}

	for {
		select {
		case doc, ok := <-idx.docs:
			if !ok {
				stmt.Close()
				if err := tx.Commit(); err != nil {
					log.Printf("[WARN] search: final commit: %v", err)
				}
				return
			}
			if _, err := stmt.Exec(doc.Content, doc.ChatID, doc.TopicID, doc.MessageID, doc.Timestamp); err != nil {
				log.Printf("[WARN] search: index message %d: %v", doc.MessageID, err)
				continue
			}
			pending++
			if pending >= commitBatchSize {
				commitBatch()
			}
		case <-ticker.C:
			commitBatch()
		case reply := <-idx.commit:
			commitBatch()
			close(reply)
		}
	}
}

func (idx *Index) beginBatch() (*sql.Tx, *sql.Stmt, error) {
	tx, err := idx.db.Begin()
	if err != nil {
		return nil, nil, err
	}
	stmt, err := tx.Prepare(`INSERT INTO messages_fts(content, chat_id, topic_id, message_id, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	return tx, stmt, nil
}

// IndexMessage queues doc for indexing. It blocks only if the writer
// goroutine has fallen far behind (the buffer is 1024 deep), bounded by ctx.
func (idx *Index) IndexMessage(ctx context.Context, doc Document) error {
	select {
	case idx.docs <- doc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commit forces a pending batch to flush and waits for it, used before
// shutdown so a crash doesn't lose the last few seconds of indexing.
func (idx *Index) Commit(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case idx.commit <- reply:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer goroutine (flushing any pending batch first) and
// closes the underlying database.
func (idx *Index) Close() error {
	close(idx.docs)
	<-idx.done
	return idx.db.Close()
}

// ftsQuery turns a raw keyword into an FTS5 phrase-query literal, escaping
// embedded quotes so arbitrary user input can't break out of the phrase.
func ftsQuery(keyword string) string {
	escaped := strings.ReplaceAll(keyword, `"`, `""`)
	return `"` + escaped + `"`
}

// Search implements bridge.Searcher: it scopes to one Telegram chat (and,
// when topicID is non-nil, one forum topic within it), optionally filters to
// message ids strictly below afterID (the prior page's last result, for
// "Next >" pagination), and orders newest-first.
func (idx *Index) Search(tgChatID int64, topicID *int32, keyword string, afterID *int32, limit int) ([]bridge.SearchResult, error) {
	conds := []string{"chat_id = ?"}
	args := []any{tgChatID}

	if topicID != nil {
		conds = append(conds, "topic_id = ?")
		args = append(args, int64(*topicID))
	}
	if afterID != nil {
		conds = append(conds, "message_id < ?")
		args = append(args, int64(*afterID))
	}
	keyword = strings.TrimSpace(keyword)
	if keyword != "" {
		conds = append(conds, "messages_fts MATCH ?")
		args = append(args, ftsQuery(keyword))
	}

	query := fmt.Sprintf(`
		SELECT message_id, timestamp, snippet(messages_fts, 0, '<b>', '</b>', '...', ?)
		FROM messages_fts
		WHERE %s
		ORDER BY message_id DESC
		LIMIT ?
	`, strings.Join(conds, " AND "))
	args = append([]any{snippetChars}, args...)
	args = append(args, limit)

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var out []bridge.SearchResult
	for rows.Next() {
		var r bridge.SearchResult
		if err := rows.Scan(&r.MessageID, &r.Timestamp, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
