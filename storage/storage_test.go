package storage

import (
	"path/filepath"
	"testing"

	"github.com/gliderlab/teleporter/onebot/protocol"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "teleporter.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetRemoteChat(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "20002", "alice")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if rc.ID == 0 || rc.Name != "alice" {
		t.Fatalf("unexpected remote chat: %+v", rc)
	}

	got, err := s.GetRemoteChat("qq:10001", protocol.ChatTypePrivate, "20002")
	if err != nil {
		t.Fatalf("GetRemoteChat: %v", err)
	}
	if got == nil || got.ID != rc.ID {
		t.Fatalf("expected to find remote chat %d, got %+v", rc.ID, got)
	}

	// Upserting again with a new name should update in place, not duplicate.
	updated, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "20002", "alice2")
	if err != nil {
		t.Fatalf("UpsertRemoteChat (update): %v", err)
	}
	if updated.ID != rc.ID || updated.Name != "alice2" {
		t.Fatalf("expected same row with updated name, got %+v", updated)
	}
}

func TestGetRemoteChatMissingReturnsNil(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.GetRemoteChat("qq:10001", protocol.ChatTypeGroup, "99999")
	if err != nil {
		t.Fatalf("GetRemoteChat: %v", err)
	}
	if rc != nil {
		t.Fatalf("expected nil for unknown remote chat, got %+v", rc)
	}
}

func TestArchiveAndTopicLifecycle(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypeGroup, "555", "group555")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}

	archiveID, err := s.CreateArchive("qq:10001", 1000)
	if err != nil {
		t.Fatalf("CreateArchive: %v", err)
	}

	archive, err := s.FindArchiveByEndpoint("qq:10001")
	if err != nil {
		t.Fatalf("FindArchiveByEndpoint: %v", err)
	}
	if archive == nil || archive.ID != archiveID || archive.TgChatID != 1000 {
		t.Fatalf("unexpected archive: %+v", archive)
	}

	existing, err := s.GetOrCreateTopic(archiveID, rc.ID)
	if err != nil {
		t.Fatalf("GetOrCreateTopic: %v", err)
	}
	if existing != 0 {
		t.Fatalf("expected no existing topic, got %d", existing)
	}

	if err := s.CreateTopic(archiveID, 42, rc.ID); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	found, err := s.FindRemoteChatByArchiveTopic(1000, 42)
	if err != nil {
		t.Fatalf("FindRemoteChatByArchiveTopic: %v", err)
	}
	if found == nil || found.ID != rc.ID {
		t.Fatalf("expected to resolve remote chat %d via topic, got %+v", rc.ID, found)
	}

	if err := s.DeleteArchive(archiveID); err != nil {
		t.Fatalf("DeleteArchive: %v", err)
	}
	if archive, err := s.FindArchiveByEndpoint("qq:10001"); err != nil || archive != nil {
		t.Fatalf("expected archive gone after delete, got %+v err=%v", archive, err)
	}
}

func TestLinkLifecycle(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.UpsertRemoteChat("wechat:bot1", protocol.ChatTypePrivate, "bob", "Bob")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}

	if err := s.CreateLink(1, 777, rc.ID); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	byTg, err := s.FindLinkByTg(777)
	if err != nil {
		t.Fatalf("FindLinkByTg: %v", err)
	}
	if byTg == nil || byTg.RemoteChatID != rc.ID {
		t.Fatalf("unexpected link by tg: %+v", byTg)
	}

	byRemote, err := s.FindLinkByRemote(rc.ID)
	if err != nil {
		t.Fatalf("FindLinkByRemote: %v", err)
	}
	if byRemote == nil || byRemote.TgChatID != 777 {
		t.Fatalf("unexpected link by remote: %+v", byRemote)
	}

	if err := s.DeleteLink(byTg.ID); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	if l, err := s.FindLinkByTg(777); err != nil || l != nil {
		t.Fatalf("expected link gone after delete, got %+v err=%v", l, err)
	}
}

func TestMessageMappingRoundTrip(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypeGroup, "555", "group555")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}

	id, err := s.SaveMessage(1000, 55, rc.ID, "remote-msg-1", "hello")
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	byTg, err := s.FindMessageByTg(1000, 55)
	if err != nil {
		t.Fatalf("FindMessageByTg: %v", err)
	}
	if byTg == nil || byTg.ID != id || byTg.DeliveryStatus != protocol.DeliverySent {
		t.Fatalf("unexpected message by tg: %+v", byTg)
	}

	byRemote, err := s.FindMessageByRemote(rc.ID, "remote-msg-1")
	if err != nil {
		t.Fatalf("FindMessageByRemote: %v", err)
	}
	if byRemote == nil || byRemote.ID != id {
		t.Fatalf("unexpected message by remote: %+v", byRemote)
	}

	if err := s.UpdateDeliveryStatus(id, protocol.DeliveryRecalled); err != nil {
		t.Fatalf("UpdateDeliveryStatus: %v", err)
	}
	updated, err := s.FindMessageByTg(1000, 55)
	if err != nil {
		t.Fatalf("FindMessageByTg after update: %v", err)
	}
	if updated.DeliveryStatus != protocol.DeliveryRecalled {
		t.Fatalf("expected recalled status, got %v", updated.DeliveryStatus)
	}
}

func TestListArchivesAndDistinctEndpoints(t *testing.T) {
	s := openTestStorage(t)

	if _, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypeGroup, "1", "g1"); err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if _, err := s.UpsertRemoteChat("wechat:10002", protocol.ChatTypeGroup, "2", "g2"); err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if _, err := s.CreateArchive("qq:10001", 900); err != nil {
		t.Fatalf("CreateArchive: %v", err)
	}

	archives, err := s.ListArchives()
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(archives) != 1 || archives[0].Endpoint != "qq:10001" {
		t.Fatalf("unexpected archives: %+v", archives)
	}

	endpoints, err := s.ListDistinctEndpoints()
	if err != nil {
		t.Fatalf("ListDistinctEndpoints: %v", err)
	}
	if len(endpoints) != 2 || endpoints[0] != "qq:10001" || endpoints[1] != "wechat:10002" {
		t.Fatalf("unexpected endpoints: %v", endpoints)
	}
}

func TestGetRemoteChatByID(t *testing.T) {
	s := openTestStorage(t)

	rc, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "42", "bob")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}

	got, err := s.GetRemoteChatByID(rc.ID)
	if err != nil {
		t.Fatalf("GetRemoteChatByID: %v", err)
	}
	if got == nil || got.Name != "bob" {
		t.Fatalf("unexpected remote chat: %+v", got)
	}

	missing, err := s.GetRemoteChatByID(rc.ID + 1000)
	if err != nil {
		t.Fatalf("GetRemoteChatByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestListRemoteChatsPage(t *testing.T) {
	s := openTestStorage(t)

	alice, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "1", "alice")
	if err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if _, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "2", "bob"); err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if _, err := s.UpsertRemoteChat("qq:10001", protocol.ChatTypePrivate, "3", "alicia"); err != nil {
		t.Fatalf("UpsertRemoteChat: %v", err)
	}
	if err := s.CreateLink(1, 500, alice.ID); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	all, total, err := s.ListRemoteChatsPage("", 10, 0)
	if err != nil {
		t.Fatalf("ListRemoteChatsPage: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 remote chats, got total=%d len=%d", total, len(all))
	}
	for _, rc := range all {
		if rc.ID == alice.ID && rc.LinkID == 0 {
			t.Fatalf("expected alice to carry her link id, got %+v", rc)
		}
	}

	filtered, total, err := s.ListRemoteChatsPage("alic", 10, 0)
	if err != nil {
		t.Fatalf("ListRemoteChatsPage filtered: %v", err)
	}
	if total != 2 || len(filtered) != 2 {
		t.Fatalf("expected 2 matches for 'alic', got total=%d len=%d", total, len(filtered))
	}

	page, total, err := s.ListRemoteChatsPage("", 1, 1)
	if err != nil {
		t.Fatalf("ListRemoteChatsPage paged: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Fatalf("expected page of 1 out of 3, got total=%d len=%d", total, len(page))
	}
}
