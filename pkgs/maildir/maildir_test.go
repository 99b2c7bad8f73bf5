package maildir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testMaildir(t *testing.T) *Maildir {
	t.Helper()
	md := New(t.TempDir())
	if err := md.EnsureFolders(); err != nil {
		t.Fatalf("EnsureFolders: %v", err)
	}
	return md
}

func writeMail(t *testing.T, md *Maildir, folder, name, raw string) MailFile {
	t.Helper()
	path := filepath.Join(md.Path(folder), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return MailFile{Path: path}
}

func datedMail(date, subject string) string {
	return "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: " + date + "\r\n" +
		"\r\n" +
		"body\r\n"
}

func TestEnsureFolders(t *testing.T) {
	md := testMaildir(t)

	for _, folder := range []string{FolderNew, FolderCur, FolderDrafts, FolderOutbox, FolderSent} {
		info, err := os.Stat(md.Path(folder))
		if err != nil || !info.IsDir() {
			t.Errorf("folder %s missing after EnsureFolders: %v", folder, err)
		}
	}

	// Idempotent on an existing tree.
	if err := md.EnsureFolders(); err != nil {
		t.Errorf("second EnsureFolders: %v", err)
	}
}

func TestCheckNew(t *testing.T) {
	md := testMaildir(t)
	for _, name := range []string{"a.eml", "b.eml", "c.eml"} {
		writeMail(t, md, FolderNew, name, datedMail("Fri, 27 Mar 2020 10:00:00 -0500", name))
	}

	count, err := md.CheckNew()
	if err != nil {
		t.Fatalf("CheckNew: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	cur, err := md.ListSorted(FolderCur)
	if err != nil {
		t.Fatalf("ListSorted: %v", err)
	}
	if len(cur) != 3 {
		t.Errorf("cur has %d files, want 3", len(cur))
	}
	left, err := os.ReadDir(md.Path(FolderNew))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("new still has %d files, want 0", len(left))
	}

	// A second check finds nothing.
	count, err = md.CheckNew()
	if err != nil || count != 0 {
		t.Errorf("second CheckNew = %d, %v, want 0, nil", count, err)
	}
}

func TestListSortedByDateHeader(t *testing.T) {
	md := testMaildir(t)

	// Filenames deliberately disagree with the dates, and one message
	// has no Date header at all so it falls back to mtime (now, which
	// sorts last against the historic dates).
	writeMail(t, md, FolderCur, "zzz.eml", datedMail("Mon, 02 Jan 1984 08:00:00 +0000", "oldest"))
	writeMail(t, md, FolderCur, "aaa.eml", datedMail("Sat, 06 Nov 2010 12:00:00 +0000", "middle"))
	writeMail(t, md, FolderCur, "mmm.eml", datedMail("Tue, 05 Jul 2011 12:00:00 +0000", "newest"))
	writeMail(t, md, FolderCur, "und.eml", "Subject: undated\r\n\r\nbody\r\n")

	files, err := md.ListSorted(FolderCur)
	if err != nil {
		t.Fatalf("ListSorted: %v", err)
	}
	want := []string{"zzz.eml", "aaa.eml", "mmm.eml", "und.eml"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, name := range want {
		if files[i].Name() != name {
			t.Errorf("files[%d] = %s, want %s", i, files[i].Name(), name)
		}
	}
}

func TestByNumber(t *testing.T) {
	md := testMaildir(t)
	writeMail(t, md, FolderCur, "a.eml", datedMail("Mon, 02 Jan 1984 08:00:00 +0000", "first"))
	writeMail(t, md, FolderCur, "b.eml", datedMail("Tue, 05 Jul 2011 12:00:00 +0000", "second"))

	file, err := md.ByNumber(FolderCur, 2)
	if err != nil {
		t.Fatalf("ByNumber: %v", err)
	}
	if file.Name() != "b.eml" {
		t.Errorf("ByNumber(2) = %s, want b.eml", file.Name())
	}

	// Negative numbers address from the same ascending order.
	file, err = md.ByNumber(FolderCur, -1)
	if err != nil || file.Name() != "a.eml" {
		t.Errorf("ByNumber(-1) = %s, %v, want a.eml", file.Name(), err)
	}

	for _, n := range []int{0, 3, 99} {
		if _, err := md.ByNumber(FolderCur, n); !errors.Is(err, ErrNotFound) {
			t.Errorf("ByNumber(%d) err = %v, want ErrNotFound", n, err)
		}
	}
}

func TestSave(t *testing.T) {
	md := testMaildir(t)
	raw := datedMail("Fri, 27 Mar 2020 14:30:05 -0500", "keep me")
	file := writeMail(t, md, FolderCur, "msg.eml", raw)

	confirmation, err := md.Save(file, "blarp")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := "Moved message from alice@example.com - 'keep me' to blarp."
	if confirmation != want {
		t.Errorf("confirmation = %q, want %q", confirmation, want)
	}

	moved, err := os.ReadFile(filepath.Join(md.Path("blarp"), "msg.eml"))
	if err != nil {
		t.Fatalf("reading moved file: %v", err)
	}
	if string(moved) != raw {
		t.Error("moved file bytes differ from the original")
	}
	if _, err := os.Stat(file.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("original still present: %v", err)
	}
}

func TestMoveVanishedFile(t *testing.T) {
	md := testMaildir(t)
	gone := MailFile{Path: filepath.Join(md.Path(FolderCur), "gone.eml")}

	if _, err := md.Move(gone, "blarp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	md := testMaildir(t)
	file := writeMail(t, md, FolderCur, "junk.eml", datedMail("Fri, 27 Mar 2020 10:00:00 -0500", "junk"))

	moved, err := md.Remove(file)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !strings.Contains(moved.Path, FolderTrash) {
		t.Errorf("moved to %s, want the trash folder", moved.Path)
	}
	if _, err := os.Stat(moved.Path); err != nil {
		t.Errorf("trash file missing: %v", err)
	}
}

func TestDeliverNew(t *testing.T) {
	md := testMaildir(t)
	raw := datedMail("Fri, 27 Mar 2020 10:00:00 -0500", "fetched")

	path, err := md.DeliverNew(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("DeliverNew: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading delivered file: %v", err)
	}
	if string(got) != raw {
		t.Error("delivered bytes differ from the input")
	}
	if filepath.Dir(path) != md.Path(FolderNew) {
		t.Errorf("delivered into %s, want the new folder", filepath.Dir(path))
	}

	// Names are unique even within the same second.
	other, err := md.DeliverNew(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("second DeliverNew: %v", err)
	}
	if other == path {
		t.Error("two deliveries produced the same filename")
	}
}
