package social

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"rendezvous/internal/adapter/memory"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/sentiment"
	collabService "rendezvous/internal/service/collab"
	contentService "rendezvous/internal/service/content"
	geoService "rendezvous/internal/service/geo"
	meetingService "rendezvous/internal/service/meeting"
	sentimentService "rendezvous/internal/service/sentiment"
)

type fakeGeocoder struct {
	reverseGeocodeFn func(context.Context, geo.Location) (*geo.Place, error)
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, location geo.Location) (*geo.Place, error) {
	return f.reverseGeocodeFn(ctx, location)
}

// recordingPublisher keeps published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]event.Type, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type testEnv struct {
	service  *Service
	content  *memory.ContentStore
	recorder *recordingPublisher
}

func newTestEnv() testEnv {
	contentStore := memory.NewContentStore()
	recorder := &recordingPublisher{}

	// Everything west of -71 is in Cambridge
	geocoder := &fakeGeocoder{
		reverseGeocodeFn: func(_ context.Context, l geo.Location) (*geo.Place, error) {
			if l.Lng < -71 {
				return &geo.Place{Locality: "Cambridge"}, nil
			}
			return &geo.Place{Locality: "Elsewhere"}, nil
		},
	}

	index := geoService.NewIndex(memory.NewMarkerStore(), geoService.IndexConfig{})
	service := NewService(Deps{
		Markers:   index,
		Meetings:  meetingService.NewCoordinator(memory.NewMeetingStore(), index),
		Sessions:  collabService.NewSessions(memory.NewSessionStore()),
		Content:   contentService.NewService(contentStore),
		Reactions: sentimentService.NewReactions(memory.NewReactionStore()),
		Heatmap: sentimentService.NewHeatmap(
			memory.NewHeatStore(),
			geoService.NewRegionFilter(geocoder, []string{"Cambridge", "Somerville"}),
			sentimentService.HeatmapConfig{},
		),
		Events: recorder,
	})
	return testEnv{service: service, content: contentStore, recorder: recorder}
}

// Scores decay between write and read; a 24h half-life moves them by far less than this
func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

func (e testEnv) match(t *testing.T, host, guest string) *Match {
	t.Helper()
	ctx := context.Background()

	req, err := e.service.SendRequest(ctx, host, geo.Location{Lat: 42.36, Lng: -71.09})
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	m, err := e.service.AcceptRequest(ctx, guest, geo.Location{Lat: 0.01, Lng: 0.02}, req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	return m
}

func TestMeetingToPostToHeatmap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	match := env.match(t, "alice", "bob")
	if !match.Session.HasMemberSet([]string{"alice", "bob"}) {
		t.Fatalf("session members = %v", match.Session.Members())
	}
	if match.Session.Location != match.Meeting.Location {
		t.Fatalf("session should sit at the meeting location")
	}

	mine, err := s.SessionForUser(ctx, "bob")
	if err != nil || mine.ID != match.Session.ID {
		t.Fatalf("SessionForUser = %v, %v", mine, err)
	}

	first, err := s.Contribute(ctx, "bob", match.Session.ID, "hello")
	if err != nil {
		t.Fatalf("Contribute(bob): %v", err)
	}
	if first.Post != nil {
		t.Fatalf("a post must wait for every member")
	}

	second, err := s.Contribute(ctx, "alice", match.Session.ID, "world")
	if err != nil {
		t.Fatalf("Contribute(alice): %v", err)
	}
	post := second.Post
	if post == nil || len(post.Pieces) != 2 || post.Pieces[0].Content != "hello" || post.Pieces[1].Content != "world" {
		t.Fatalf("post = %+v", post)
	}
	if _, err := s.Session(ctx, match.Session.ID); !errs.HasCode(err, errs.CodeSessionNotFound) {
		t.Fatalf("finalized session should be gone, got %v", err)
	}

	nearby, err := s.ListPosts(ctx, PostQuery{Anchor: &geo.Location{Lat: 42.37, Lng: -71.07}})
	if err != nil || len(nearby) != 1 || nearby[0].ID != post.ID {
		t.Fatalf("nearby posts = %+v, %v", nearby, err)
	}

	reacted, err := s.React(ctx, "carol", post.ID, sentiment.Heart)
	if err != nil {
		t.Fatalf("React(heart): %v", err)
	}
	if !reacted.Region {
		t.Fatalf("post in Cambridge should feed the region bucket")
	}
	reacted, err = s.React(ctx, "carol", post.ID, sentiment.Sad)
	if err != nil {
		t.Fatalf("React(sad): %v", err)
	}
	if reacted.Previous == nil || reacted.Previous.Choice != sentiment.Heart {
		t.Fatalf("previous = %+v", reacted.Previous)
	}

	summary, err := s.Reactions(ctx, post.ID)
	if err != nil {
		t.Fatalf("Reactions: %v", err)
	}
	if len(summary.Reactions) != 1 || summary.Average == nil || *summary.Average != -2 {
		t.Fatalf("summary = %+v", summary)
	}
	if !near(summary.Score, -2) {
		t.Fatalf("item score = %v, want about -2", summary.Score)
	}

	heat, err := s.Heatmap(ctx)
	if err != nil || len(heat) != 1 || heat[0].Region != "Cambridge" || !near(heat[0].Score, -2) {
		t.Fatalf("heatmap = %+v, %v", heat, err)
	}

	// Deleting both pieces removes the post and everything hanging off it
	if _, err := s.DeletePiece(ctx, "alice", post.Pieces[0].ID); !errs.HasCode(err, errs.CodeNotAuthor) {
		t.Fatalf("alice must not delete bob's piece, got %v", err)
	}
	if res, err := s.DeletePiece(ctx, "bob", post.Pieces[0].ID); err != nil || res.PostDeleted {
		t.Fatalf("DeletePiece(bob) = %+v, %v", res, err)
	}
	res, err := s.DeletePiece(ctx, "alice", post.Pieces[1].ID)
	if err != nil || !res.PostDeleted {
		t.Fatalf("DeletePiece(alice) = %+v, %v", res, err)
	}

	if all, _ := s.ListPosts(ctx, PostQuery{Anchor: &geo.Location{Lat: 42.37, Lng: -71.07}}); len(all) != 0 {
		t.Fatalf("deleted post still listed: %+v", all)
	}
	summary, _ = s.Reactions(ctx, post.ID)
	if len(summary.Reactions) != 0 || summary.Score != 0 {
		t.Fatalf("reactions should be dropped, got %+v", summary)
	}
	if _, err := s.React(ctx, "carol", post.ID, sentiment.Like); !errs.HasCode(err, errs.CodePostNotFound) {
		t.Fatalf("expected PostNotFound, got %v", err)
	}
	heat, _ = s.Heatmap(ctx)
	if len(heat) != 1 || !near(heat[0].Score, -2) {
		t.Fatalf("region should keep past influence, got %+v", heat)
	}

	// The meeting outlives its finalized session
	ended, err := s.EndMeeting(ctx, "bob")
	if err != nil {
		t.Fatalf("EndMeeting: %v", err)
	}
	if ended.Session != nil || len(ended.DeletedPieces) != 0 {
		t.Fatalf("nothing should be cleaned up, got %+v", ended)
	}

	want := []event.Type{
		event.RequestSent,
		event.MeetingStarted,
		event.SessionCreated,
		event.Contributed,
		event.Contributed,
		event.SessionFinalized,
		event.PostCreated,
		event.ReactionChanged,
		event.ReactionChanged,
		event.PostDeleted,
		event.MeetingEnded,
	}
	got := env.recorder.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestEndMeetingCleansUpPartialSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	match := env.match(t, "alice", "bob")
	contributed, err := s.Contribute(ctx, "bob", match.Session.ID, "half a thought")
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	ended, err := s.EndMeeting(ctx, "alice")
	if err != nil {
		t.Fatalf("EndMeeting: %v", err)
	}
	if ended.Session == nil || ended.Session.ID != match.Session.ID {
		t.Fatalf("session should be cleaned up, got %+v", ended)
	}
	if len(ended.DeletedPieces) != 1 || ended.DeletedPieces[0] != contributed.Piece.ID {
		t.Fatalf("deleted pieces = %v", ended.DeletedPieces)
	}

	if piece, _ := env.content.GetPiece(ctx, contributed.Piece.ID); piece != nil {
		t.Fatalf("orphaned piece should be deleted")
	}
	if _, err := s.SessionForUser(ctx, "bob"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("bob should have no session, got %v", err)
	}
	for _, user := range []string{"alice", "bob"} {
		if _, err := s.Status(ctx, user); !errors.Is(err, errs.ErrNotFound) {
			t.Fatalf("%s should be idle, got %v", user, err)
		}
	}

	if _, err := s.EndMeeting(ctx, "alice"); !errs.HasCode(err, errs.CodeMeetingNotFound) {
		t.Fatalf("expected MeetingNotFound, got %v", err)
	}
}

func TestRejectedContributionLeavesNoPiece(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	match := env.match(t, "alice", "bob")

	if _, err := s.Contribute(ctx, "mallory", match.Session.ID, "sneaky"); !errs.HasCode(err, errs.CodeNotAMember) {
		t.Fatalf("expected NotAMember, got %v", err)
	}
	if _, err := s.Contribute(ctx, "bob", match.Session.ID, "one"); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if _, err := s.Contribute(ctx, "bob", match.Session.ID, "two"); !errs.HasCode(err, errs.CodeAlreadyContributed) {
		t.Fatalf("expected AlreadyContributed, got %v", err)
	}
	if _, err := s.Contribute(ctx, "bob", match.Session.ID, " "); !errors.Is(err, errs.ErrBadValues) {
		t.Fatalf("expected BadValues, got %v", err)
	}

	for user, want := range map[string]int{"mallory": 0, "bob": 1} {
		ids, err := env.content.FindPieceIDsByAuthor(ctx, user)
		if err != nil || len(ids) != want {
			t.Errorf("%s has %d pieces, want %d (%v)", user, len(ids), want, err)
		}
	}
}

func TestDeletePieceHeldByOpenSession(t *testing.T) {
	tests := []struct {
		name     string
		finalize bool
		wantCode errs.Code
	}{
		{name: "session still open", wantCode: errs.CodePieceInSession},
		{name: "session finalized", finalize: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv()
			s := env.service

			match := env.match(t, "alice", "bob")
			mine, err := s.Contribute(ctx, "alice", match.Session.ID, "first half")
			if err != nil {
				t.Fatalf("Contribute(alice): %v", err)
			}
			if tt.finalize {
				done, err := s.Contribute(ctx, "bob", match.Session.ID, "second half")
				if err != nil || done.Post == nil {
					t.Fatalf("Contribute(bob) = %+v, %v", done, err)
				}
			}

			_, err = s.DeletePiece(ctx, "alice", mine.Piece.ID)
			if tt.wantCode != "" {
				if !errs.HasCode(err, tt.wantCode) || !errors.Is(err, errs.ErrNotAllowed) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				if piece, _ := env.content.GetPiece(ctx, mine.Piece.ID); piece == nil {
					t.Fatalf("rejected delete must keep the piece")
				}

				// The session can still complete with every piece in place
				done, err := s.Contribute(ctx, "bob", match.Session.ID, "second half")
				if err != nil {
					t.Fatalf("Contribute(bob): %v", err)
				}
				if done.Post == nil || len(done.Post.Pieces) != 2 {
					t.Fatalf("post = %+v", done.Post)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeletePiece: %v", err)
			}
		})
	}
}

func TestFailedAssemblyDiscardsSessionPieces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	match := env.match(t, "alice", "bob")
	first, err := s.Contribute(ctx, "alice", match.Session.ID, "first half")
	if err != nil {
		t.Fatalf("Contribute(alice): %v", err)
	}
	// Lost underneath the session, as a concurrent delete would
	if _, err := env.content.DeletePiece(ctx, first.Piece.ID, first.Piece.CreatedAt); err != nil {
		t.Fatalf("DeletePiece: %v", err)
	}

	if _, err := s.Contribute(ctx, "bob", match.Session.ID, "second half"); !errs.HasCode(err, errs.CodePieceNotFound) {
		t.Fatalf("expected PieceNotFound, got %v", err)
	}

	ids, err := env.content.FindPieceIDsByAuthor(ctx, "bob")
	if err != nil || len(ids) != 0 {
		t.Fatalf("bob's piece should be discarded, got %v, %v", ids, err)
	}
	if _, err := s.SessionForUser(ctx, "bob"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("session should be gone, got %v", err)
	}
	posts, err := s.ListPosts(ctx, PostQuery{})
	if err != nil || len(posts) != 0 {
		t.Fatalf("posts = %+v, %v", posts, err)
	}
}

func TestAcceptRejectsOutOfRangeMeetingLocation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	req, _ := s.SendRequest(ctx, "alice", geo.Location{Lat: 89, Lng: 0})
	if _, err := s.AcceptRequest(ctx, "bob", geo.Location{Lat: 2, Lng: 0}, req.ID); !errs.HasCode(err, errs.CodeInvalidLocation) {
		t.Fatalf("expected InvalidLocation, got %v", err)
	}

	status, err := s.Status(ctx, "alice")
	if err != nil || status.Request == nil {
		t.Fatalf("alice should still be pending, got %+v, %v", status, err)
	}
	if _, err := s.SessionForUser(ctx, "bob"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("no session should be opened, got %v", err)
	}
}

func TestPostListing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	harvard := geo.Location{Lat: 42.3736, Lng: -71.1097}
	davis := geo.Location{Lat: 42.3967, Lng: -71.1224}

	far, err := s.CreatePost(ctx, "alice", "at davis", &davis)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	nearPost, _ := s.CreatePost(ctx, "bob", "at harvard", &harvard)
	unplaced, _ := s.CreatePost(ctx, "alice", "nowhere", nil)

	if _, err := s.CreatePost(ctx, "alice", "bad", &geo.Location{Lat: 0, Lng: 200}); !errors.Is(err, errs.ErrBadValues) {
		t.Fatalf("expected BadValues, got %v", err)
	}

	anchored, err := s.ListPosts(ctx, PostQuery{Anchor: &harvard})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(anchored) != 2 || anchored[0].ID != nearPost.ID || anchored[1].ID != far.ID {
		t.Fatalf("anchored = %+v", anchored)
	}

	recent, _ := s.ListPosts(ctx, PostQuery{Limit: 2})
	if len(recent) != 2 {
		t.Fatalf("limit not applied: %+v", recent)
	}

	byAlice, _ := s.ListPosts(ctx, PostQuery{Author: "alice"})
	if len(byAlice) != 2 {
		t.Fatalf("alice has %d posts", len(byAlice))
	}

	aliceNearby, _ := s.ListPosts(ctx, PostQuery{Author: "alice", Anchor: &harvard})
	if len(aliceNearby) != 1 || aliceNearby[0].ID != far.ID {
		t.Fatalf("alice nearby = %+v", aliceNearby)
	}

	if err := s.UpdatePiece(ctx, "bob", unplaced.Pieces[0].ID, "stolen"); !errs.HasCode(err, errs.CodeNotAuthor) {
		t.Fatalf("expected NotAuthor, got %v", err)
	}
	if err := s.UpdatePiece(ctx, "alice", unplaced.Pieces[0].ID, "somewhere"); err != nil {
		t.Fatalf("UpdatePiece: %v", err)
	}
}

func TestReactOutsideRegions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	s := env.service

	placed, _ := s.CreatePost(ctx, "alice", "east", &geo.Location{Lat: 42.36, Lng: -70.9})
	unplaced, _ := s.CreatePost(ctx, "alice", "nowhere", nil)

	for _, id := range []string{placed.ID, unplaced.ID} {
		reacted, err := s.React(ctx, "bob", id, sentiment.Like)
		if err != nil {
			t.Fatalf("React(%s): %v", id, err)
		}
		if reacted.Region {
			t.Fatalf("post %s should not reach a region bucket", id)
		}
	}

	if heat, _ := s.Heatmap(ctx); len(heat) != 0 {
		t.Fatalf("heatmap should be empty, got %+v", heat)
	}

	if _, err := s.Unreact(ctx, "bob", placed.ID); err != nil {
		t.Fatalf("Unreact: %v", err)
	}
	summary, _ := s.Reactions(ctx, placed.ID)
	if len(summary.Reactions) != 0 || summary.Average != nil || !near(summary.Score, 0) {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := s.Unreact(ctx, "bob", placed.ID); !errs.HasCode(err, errs.CodeReactionNotFound) {
		t.Fatalf("expected ReactionNotFound, got %v", err)
	}
}
