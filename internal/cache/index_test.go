package cache

import (
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

func newIndex(t *testing.T) (*Index, afero.Afero) {
	t.Helper()
	fs := afero.NewMemMapFs()
	idx, err := NewIndex(fs, "/home/u/.tui_player_cache", "mp3")
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx, afero.Afero{Fs: fs}
}

func TestNewIndex(t *testing.T) {
	Convey("Given an empty filesystem", t, func() {
		fs := afero.NewMemMapFs()

		Convey("NewIndex should create the directory with mode 0700", func() {
			_, err := NewIndex(fs, "/home/u/.tui_player_cache", ".mp3")
			So(err, ShouldBeNil)

			info, err := fs.Stat("/home/u/.tui_player_cache")
			So(err, ShouldBeNil)
			So(info.IsDir(), ShouldBeTrue)
			So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o700))
		})

		Convey("NewIndex should refuse an empty directory", func() {
			_, err := NewIndex(fs, "", "mp3")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLookup(t *testing.T) {
	Convey("Given a cache index", t, func() {
		idx, fs := newIndex(t)

		Convey("Paths follow <dir>/<id>.<container>", func() {
			So(idx.Path("abc123"), ShouldEqual, "/home/u/.tui_player_cache/abc123.mp3")
			So(idx.MarkerPath("abc123"), ShouldEqual, "/home/u/.tui_player_cache/abc123.mp3.complete")
		})

		Convey("An unknown id is Absent", func() {
			So(idx.Lookup("abc123").State, ShouldEqual, Absent)
		})

		Convey("While a producer writes, the entry is Partial", func() {
			path, err := idx.Begin("abc123")
			So(err, ShouldBeNil)
			So(fs.WriteFile(path, []byte("frames"), 0o600), ShouldBeNil)

			So(idx.Lookup("abc123").State, ShouldEqual, Partial)

			Convey("And a second producer cannot claim it", func() {
				_, err := idx.Begin("abc123")
				So(err, ShouldNotBeNil)
			})

			Convey("After a clean exit it is Complete", func() {
				So(idx.MarkComplete("abc123"), ShouldBeNil)
				e := idx.Lookup("abc123")
				So(e.State, ShouldEqual, Complete)
				So(e.Size, ShouldEqual, int64(6))
			})

			Convey("After an abandoned run it stays Partial", func() {
				idx.Abandon("abc123")
				So(idx.Lookup("abc123").State, ShouldEqual, Partial)
			})
		})

		Convey("A file without a marker is Partial", func() {
			So(fs.WriteFile(idx.Path("orphan"), []byte("x"), 0o600), ShouldBeNil)
			So(idx.Lookup("orphan").State, ShouldEqual, Partial)
		})

		Convey("A marker that disagrees with the file size is not trusted", func() {
			So(fs.WriteFile(idx.Path("grown"), []byte("longer than before"), 0o600), ShouldBeNil)
			So(fs.WriteFile(idx.MarkerPath("grown"), []byte("3"), 0o600), ShouldBeNil)
			So(idx.Lookup("grown").State, ShouldEqual, Partial)
		})

		Convey("Begin discards a stale partial artifact and marker", func() {
			So(fs.WriteFile(idx.Path("stale"), []byte("old"), 0o600), ShouldBeNil)
			So(fs.WriteFile(idx.MarkerPath("stale"), []byte("3"), 0o600), ShouldBeNil)

			_, err := idx.Begin("stale")
			So(err, ShouldBeNil)

			exists, _ := fs.Exists(idx.Path("stale"))
			So(exists, ShouldBeFalse)
			exists, _ = fs.Exists(idx.MarkerPath("stale"))
			So(exists, ShouldBeFalse)
		})
	})
}

func TestEntriesAndClean(t *testing.T) {
	Convey("Given complete and partial entries", t, func() {
		idx, fs := newIndex(t)

		for _, id := range []string{"done1", "done2"} {
			path, err := idx.Begin(id)
			So(err, ShouldBeNil)
			So(fs.WriteFile(path, []byte("0123456789"), 0o600), ShouldBeNil)
			So(idx.MarkComplete(id), ShouldBeNil)
		}
		So(fs.WriteFile(idx.Path("half"), []byte("01234"), 0o600), ShouldBeNil)
		So(fs.Chtimes(idx.Path("half"), time.Now().Add(time.Hour), time.Now().Add(time.Hour)), ShouldBeNil)
		So(fs.WriteFile(idx.MarkerPath("gone"), []byte("1"), 0o600), ShouldBeNil)

		Convey("Entries lists artifacts newest first and skips markers", func() {
			entries, err := idx.Entries()
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].ID, ShouldEqual, "half")
			So(entries[0].State, ShouldEqual, Partial)
			So(Size(entries), ShouldEqual, int64(25))
		})

		Convey("Clean removes only partial entries and orphaned markers", func() {
			n, err := idx.Clean(false)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			So(idx.Lookup("half").State, ShouldEqual, Absent)
			So(idx.Lookup("done1").State, ShouldEqual, Complete)

			exists, _ := fs.Exists(idx.MarkerPath("gone"))
			So(exists, ShouldBeFalse)
		})

		Convey("Clean with all removes everything", func() {
			n, err := idx.Clean(true)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)

			entries, err := idx.Entries()
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})

		Convey("Remove refuses an entry that is being written", func() {
			_, err := idx.Begin("busy")
			So(err, ShouldBeNil)
			So(idx.Remove("busy"), ShouldNotBeNil)
		})
	})
}
