package store

import (
	"testing"
)

func TestAnnouncementReadsAccumulate(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	as := NewAnnouncementStore(db)
	parent, kid := seedFamily(t, us)
	sib, err := us.CreateChild(parent.ID, "Sib", "sib", "hash")
	if err != nil {
		t.Fatalf("create sibling: %v", err)
	}

	a, err := as.Create(parent.ID, "Pizza tonight")
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	if len(a.Reads) != 0 {
		t.Errorf("reads = %d, want 0", len(a.Reads))
	}

	for _, id := range []int64{kid.ID, sib.ID, kid.ID} {
		if err := as.MarkRead(a.ID, id); err != nil {
			t.Fatalf("mark read: %v", err)
		}
	}

	list, err := as.ListForParent(parent.ID)
	if err != nil {
		t.Fatalf("list for parent: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if len(list[0].Reads) != 2 {
		t.Fatalf("reads = %+v, want one per child", list[0].Reads)
	}
	if list[0].Reads[0].ChildName != "Kid" {
		t.Errorf("first reader = %q, want %q", list[0].Reads[0].ChildName, "Kid")
	}
}

func TestAnnouncementDismiss(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	as := NewAnnouncementStore(db)
	parent, kid := seedFamily(t, us)

	a, _ := as.Create(parent.ID, "Chores due Friday")

	read, err := as.HasRead(a.ID, kid.ID)
	if err != nil {
		t.Fatalf("has read: %v", err)
	}
	if read {
		t.Error("expected unread")
	}

	as.MarkRead(a.ID, kid.ID)
	if err := as.Dismiss(a.ID, kid.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	feed, err := as.ListForChild(parent.ID, kid.ID)
	if err != nil {
		t.Fatalf("list for child: %v", err)
	}
	if len(feed) != 0 {
		t.Errorf("len(feed) = %d, want 0 after dismiss", len(feed))
	}

	// The parent still sees it.
	list, _ := as.ListForParent(parent.ID)
	if len(list) != 1 {
		t.Errorf("len(parent list) = %d, want 1", len(list))
	}

	if err := as.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := as.GetByID(a.ID); got != nil {
		t.Error("expected nil after delete")
	}
}
