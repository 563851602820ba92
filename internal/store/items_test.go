package store

import (
	"context"
	"testing"

	"github.com/roach88/engram/internal/item"
)

func TestSaveItem_CreatesChangeRow(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")

	change, err := s.SaveItem(context.Background(), item.Item{
		SessionID: "session-1",
		Key:       "user_profile",
		Value:     `{"name":"ada"}`,
		Category:  "task",
		Priority:  item.PriorityHigh,
		Channel:   "main",
	})
	if err != nil {
		t.Fatalf("SaveItem() failed: %v", err)
	}

	if change.Seq != 1 {
		t.Errorf("change seq = %d, want 1", change.Seq)
	}
	if change.Type != item.ChangeCreate {
		t.Errorf("change type = %q, want CREATE", change.Type)
	}

	// Verify the change row is denormalized from the item.
	var key, changeType, category, priority, channel string
	err = s.db.QueryRow(`
		SELECT key, change_type, category, priority, channel
		FROM context_changes WHERE seq = ?
	`, change.Seq).Scan(&key, &changeType, &category, &priority, &channel)
	if err != nil {
		t.Fatalf("query change row failed: %v", err)
	}
	if key != "user_profile" || changeType != "CREATE" || category != "task" ||
		priority != "high" || channel != "main" {
		t.Errorf("change row = (%s, %s, %s, %s, %s), want (user_profile, CREATE, task, high, main)",
			key, changeType, category, priority, channel)
	}
}

func TestSaveItem_SecondSaveIsUpdate(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")
	ctx := context.Background()

	first, err := s.SaveItem(ctx, item.Item{SessionID: "session-1", Key: "k", Value: "v1"})
	if err != nil {
		t.Fatalf("first SaveItem() failed: %v", err)
	}
	second, err := s.SaveItem(ctx, item.Item{SessionID: "session-1", Key: "k", Value: "v2"})
	if err != nil {
		t.Fatalf("second SaveItem() failed: %v", err)
	}

	if first.Type != item.ChangeCreate {
		t.Errorf("first change type = %q, want CREATE", first.Type)
	}
	if second.Type != item.ChangeUpdate {
		t.Errorf("second change type = %q, want UPDATE", second.Type)
	}
	if second.Seq <= first.Seq {
		t.Errorf("seq not increasing: first=%d second=%d", first.Seq, second.Seq)
	}

	// Exactly one item row, value updated.
	it, found, err := s.GetItem(ctx, "session-1", "k")
	if err != nil || !found {
		t.Fatalf("GetItem() = (found=%v, err=%v)", found, err)
	}
	if it.Value != "v2" {
		t.Errorf("item value = %q, want v2", it.Value)
	}
}

func TestSaveItem_Defaults(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")

	change, err := s.SaveItem(context.Background(), item.Item{
		SessionID: "session-1",
		Key:       "k",
		Value:     "v",
	})
	if err != nil {
		t.Fatalf("SaveItem() failed: %v", err)
	}

	if change.Priority != item.PriorityNormal {
		t.Errorf("default priority = %q, want normal", change.Priority)
	}
	if change.Channel != item.DefaultChannel {
		t.Errorf("default channel = %q, want %q", change.Channel, item.DefaultChannel)
	}
}

func TestSaveItem_InvalidRejectedAtomically(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")

	_, err := s.SaveItem(context.Background(), item.Item{
		SessionID: "session-1",
		Key:       "k",
		Priority:  "urgent",
	})
	if err == nil {
		t.Fatal("SaveItem() with invalid priority succeeded")
	}

	// Neither an item row nor a change row may exist.
	var items, changes int
	s.db.QueryRow("SELECT COUNT(*) FROM context_items").Scan(&items)
	s.db.QueryRow("SELECT COUNT(*) FROM context_changes").Scan(&changes)
	if items != 0 || changes != 0 {
		t.Errorf("partial write: items=%d changes=%d, want 0/0", items, changes)
	}
}

func TestSaveItem_NormalizesKey(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")
	ctx := context.Background()

	// Save with the decomposed form, read back with the precomposed form.
	decomposed := "café_config"
	precomposed := "café_config"

	if _, err := s.SaveItem(ctx, item.Item{SessionID: "session-1", Key: decomposed, Value: "v"}); err != nil {
		t.Fatalf("SaveItem() failed: %v", err)
	}

	_, found, err := s.GetItem(ctx, "session-1", precomposed)
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if !found {
		t.Error("GetItem() with precomposed key did not find NFC-normalized item")
	}
}

func TestDeleteItem_AppendsDeleteChange(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")
	ctx := context.Background()

	saveTestItem(t, s, "session-1", "doomed", "note", item.PriorityLow)

	change, found, err := s.DeleteItem(ctx, "session-1", "doomed")
	if err != nil {
		t.Fatalf("DeleteItem() failed: %v", err)
	}
	if !found {
		t.Fatal("DeleteItem() found = false, want true")
	}

	if change.Type != item.ChangeDelete {
		t.Errorf("change type = %q, want DELETE", change.Type)
	}
	// Classification fields come from the item's last known state.
	if change.Category != "note" || change.Priority != item.PriorityLow {
		t.Errorf("delete change = (%s, %s), want (note, low)", change.Category, change.Priority)
	}

	// Item row is gone; change rows remain.
	_, stillThere, err := s.GetItem(ctx, "session-1", "doomed")
	if err != nil {
		t.Fatalf("GetItem() failed: %v", err)
	}
	if stillThere {
		t.Error("item still present after delete")
	}
}

func TestDeleteItem_MissingIsNoOp(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")

	_, found, err := s.DeleteItem(context.Background(), "session-1", "never_existed")
	if err != nil {
		t.Fatalf("DeleteItem() failed: %v", err)
	}
	if found {
		t.Error("DeleteItem() found = true for missing key")
	}

	var changes int
	s.db.QueryRow("SELECT COUNT(*) FROM context_changes").Scan(&changes)
	if changes != 0 {
		t.Errorf("change rows = %d after no-op delete, want 0", changes)
	}
}

func TestListItems_OrderedAndEmpty(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "session-1")
	ctx := context.Background()

	items, err := s.ListItems(ctx, "session-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("ListItems() on empty session = %v, want empty non-nil slice", items)
	}

	saveTestItem(t, s, "session-1", "beta", "task", item.PriorityNormal)
	saveTestItem(t, s, "session-1", "alpha", "task", item.PriorityNormal)

	items, err = s.ListItems(ctx, "session-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if len(items) != 2 || items[0].Key != "alpha" || items[1].Key != "beta" {
		t.Errorf("ListItems() order wrong: %v", items)
	}
}
