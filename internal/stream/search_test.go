package stream

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/filesystem"
	playerrors "github.com/jscyril/moz/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const searchOutput = `{"id": "dQw4w9WgXcQ", "title": "Never Gonna Give You Up", "channel": "Rick Astley", "duration": 213.0}
{"id": "yPYZpwSpKmA", "title": "Together Forever", "uploader": "RickAstleyVEVO"}
WARNING: something noisy
{"id": "dQw4w9WgXcQ", "title": "duplicate"}
{"title": "no id here"}
{"id": "abc", "title": ""}
`

func TestParseResults(t *testing.T) {
	Convey("Given flat-playlist output", t, func() {
		results := ParseResults([]byte(searchOutput), 10)

		Convey("Entries without an id and duplicates are dropped", func() {
			So(len(results), ShouldEqual, 3)
			So(results[0].ID, ShouldEqual, "dQw4w9WgXcQ")
			So(results[0].Title, ShouldEqual, "Never Gonna Give You Up")
		})

		Convey("Channel falls back to uploader and titles to the id", func() {
			So(results[0].Channel, ShouldEqual, "Rick Astley")
			So(results[1].Channel, ShouldEqual, "RickAstleyVEVO")
			So(results[2].Title, ShouldEqual, "abc")
		})

		Convey("Duration is parsed from seconds", func() {
			So(results[0].Duration, ShouldEqual, 213*time.Second)
			So(results[1].Duration, ShouldEqual, time.Duration(0))
		})

		Convey("Source builds a remote descriptor", func() {
			So(results[0].Source(), ShouldResemble, api.Remote("dQw4w9WgXcQ", "Never Gonna Give You Up"))
		})
	})

	Convey("The limit truncates results", t, func() {
		So(len(ParseResults([]byte(searchOutput), 1)), ShouldEqual, 1)
	})
}

func TestSearcher(t *testing.T) {
	filesystem.SetMemMapFs()
	defer filesystem.SetOsFs()

	Convey("Given a searcher with a stubbed fetcher", t, func() {
		var calls int
		var gotArgs []string
		run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls++
			gotArgs = args
			return []byte(searchOutput), nil
		}
		cachePath := filepath.Join("/cache", time.Now().Format("150405.000000000"), "search.json")
		s := NewSearcher("yt-dlp", 5, cachePath, time.Hour).WithRunner(run)

		Convey("It asks for ytsearch with the limit", func() {
			results, err := s.Search(context.Background(), "  rick astley ")
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 3)
			So(gotArgs, ShouldResemble, []string{"ytsearch5:rick astley", "--flat-playlist", "-j", "--no-warnings"})
		})

		Convey("A repeated query is served from the cache", func() {
			_, err := s.Search(context.Background(), "Rick  Astley")
			So(err, ShouldBeNil)
			_, err = s.Search(context.Background(), "rick astley")
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("An empty query is rejected without running anything", func() {
			_, err := s.Search(context.Background(), "   ")
			So(errors.Is(err, playerrors.ErrEmptyQuery), ShouldBeTrue)
			So(calls, ShouldEqual, 0)
		})
	})

	Convey("Given a fetcher that finds nothing", t, func() {
		s := NewSearcher("yt-dlp", 5, "", 0).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			return nil, nil
		})
		_, err := s.Search(context.Background(), "zzzz")
		So(errors.Is(err, playerrors.ErrNoResults), ShouldBeTrue)
	})

	Convey("Given a fetcher that fails", t, func() {
		s := NewSearcher("yt-dlp", 5, "", 0).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("network down")
		})
		_, err := s.Search(context.Background(), "song")
		var perr *playerrors.PlayerError
		So(errors.As(err, &perr), ShouldBeTrue)
		So(perr.Op, ShouldEqual, "search")
	})
}
