package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const listing = `[
  {"id": "distilbert-base-uncased-finetuned-sst-2-english", "downloads": 900, "likes": 50, "tags": ["text-classification", "en"]},
  {"modelId": "roberta-large-mnli", "downloads": 400},
  {"downloads": 1},
  {"id": "xlm-roberta-base", "likes": 7}
]`

func TestClientListModels(t *testing.T) {
	Convey("Given a hub server", t, func() {
		var gotQuery, gotAuth, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(listing))
		}))
		defer srv.Close()

		c := NewClient(WithBaseURL(srv.URL+"/"), WithToken("secret"), WithRateLimit(1000, 10))

		Convey("When listing text-classification models", func() {
			infos, err := c.ListModels(context.Background(), "text-classification", 200)

			Convey("Then the listing should be decoded in order", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/api/models")
				So(gotQuery, ShouldEqual, "filter=text-classification&limit=200")
				So(gotAuth, ShouldEqual, "Bearer secret")
				So(infos, ShouldHaveLength, 3)
				So(infos[0].ID, ShouldEqual, "distilbert-base-uncased-finetuned-sst-2-english")
				So(infos[0].Downloads, ShouldEqual, 900)
				So(infos[0].Tags, ShouldResemble, []string{"text-classification", "en"})
				So(infos[1].ID, ShouldEqual, "roberta-large-mnli")
				So(infos[2].ID, ShouldEqual, "xlm-roberta-base")
				So(infos[2].Likes, ShouldEqual, 7)
			})
		})

		Convey("When the server returns more entries than asked for", func() {
			infos, err := c.ListModels(context.Background(), "", 2)

			Convey("Then the result should be truncated to the limit", func() {
				So(err, ShouldBeNil)
				So(gotQuery, ShouldEqual, "limit=2")
				So(infos, ShouldHaveLength, 2)
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := c.ListModels(context.Background(), "", 0)

			Convey("Then ErrInvalidLimit should be returned", func() {
				So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}

func TestClientErrors(t *testing.T) {
	Convey("Given a misbehaving hub", t, func() {
		Convey("When it answers with a server error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			_, err := NewClient(WithBaseURL(srv.URL)).ListModels(context.Background(), "x", 5)

			Convey("Then ErrUpstreamStatus should carry the status", func() {
				So(errors.Is(err, ErrUpstreamStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "503")
				So(err.Error(), ShouldContainSubstring, "maintenance")
			})
		})

		Convey("When it answers with malformed JSON", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"not":"a list"}`))
			}))
			defer srv.Close()

			_, err := NewClient(WithBaseURL(srv.URL)).ListModels(context.Background(), "x", 5)

			Convey("Then ErrDecode should be returned", func() {
				So(errors.Is(err, ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When it is slower than the timeout", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				_, _ = w.Write([]byte(`[]`))
			}))
			defer srv.Close()

			_, err := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond)).
				ListModels(context.Background(), "x", 5)

			Convey("Then the request should fail with a deadline error", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestClientRateLimit(t *testing.T) {
	Convey("Given a client limited to one request per minute", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1.0/60, 1))

		Convey("When a second request is made with a short deadline", func() {
			_, err := c.ListModels(context.Background(), "", 1)
			So(err, ShouldBeNil)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err = c.ListModels(ctx, "", 1)

			Convey("Then it should be rejected without reaching the hub", func() {
				So(errors.Is(err, ErrRateLimited), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestStaticSource(t *testing.T) {
	Convey("Given a static source", t, func() {
		ids := []string{"a", "b", "c"}
		s := NewStatic(ids)
		ids[0] = "mutated"

		Convey("Then it lists ids in order up to the limit", func() {
			infos, err := s.ListModels(context.Background(), "ignored", 2)
			So(err, ShouldBeNil)
			So(infos, ShouldHaveLength, 2)
			So(infos[0].ID, ShouldEqual, "a")
			So(infos[1].ID, ShouldEqual, "b")

			all, err := s.ListModels(context.Background(), "", 10)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)
		})

		Convey("Then invalid limits and cancelled contexts are rejected", func() {
			_, err := s.ListModels(context.Background(), "", 0)
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = s.ListModels(ctx, "", 1)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
