package content

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"rendezvous/internal/adapter/memory"
	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
)

func newTestService() *Service {
	s := NewService(memory.NewContentStore())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func mustPiece(t *testing.T, s *Service, author, body string) *content.Piece {
	t.Helper()
	p, err := s.CreatePiece(context.Background(), author, body)
	if err != nil {
		t.Fatalf("CreatePiece: %v", err)
	}
	return p
}

func TestCreatePieceRejectsEmpty(t *testing.T) {
	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := newTestService().CreatePiece(context.Background(), "alice", body)
		if !errs.HasCode(err, errs.CodeInvalidInput) {
			t.Errorf("body %q: expected InvalidInput, got %v", body, err)
		}
	}
}

func TestAssembleKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	hello := mustPiece(t, s, "bob", "hello")
	world := mustPiece(t, s, "alice", "world")

	post, err := s.Assemble(ctx, []string{hello.ID, world.ID})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	resolved, err := s.Resolve(ctx, []content.Post{*post})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var bodies []string
	for _, p := range resolved[0].Pieces {
		bodies = append(bodies, p.Content)
	}
	if !reflect.DeepEqual(bodies, []string{"hello", "world"}) {
		t.Fatalf("bodies = %v", bodies)
	}
}

func TestAssembleFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	piece := mustPiece(t, s, "alice", "one")

	if _, err := s.Assemble(ctx, nil); !errors.Is(err, errs.ErrBadValues) {
		t.Errorf("empty: expected BadValues, got %v", err)
	}
	if _, err := s.Assemble(ctx, []string{piece.ID, piece.ID}); !errors.Is(err, errs.ErrBadValues) {
		t.Errorf("duplicate: expected BadValues, got %v", err)
	}
	if _, err := s.Assemble(ctx, []string{"missing"}); !errs.HasCode(err, errs.CodePieceNotFound) {
		t.Errorf("missing: expected PieceNotFound, got %v", err)
	}

	if _, err := s.Assemble(ctx, []string{piece.ID}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, err := s.Assemble(ctx, []string{piece.ID}); !errs.HasCode(err, errs.CodePieceAttached) {
		t.Errorf("reuse: expected PieceAttached, got %v", err)
	}
}

func TestDeletePieceCascade(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	a := mustPiece(t, s, "alice", "a")
	b := mustPiece(t, s, "bob", "b")
	post, _ := s.Assemble(ctx, []string{a.ID, b.ID})

	result, err := s.DeletePiece(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeletePiece(a): %v", err)
	}
	if result.PostDeleted || result.PostID != post.ID {
		t.Fatalf("unexpected result %+v", result)
	}

	remaining, err := s.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !reflect.DeepEqual(remaining.Pieces, []string{b.ID}) {
		t.Fatalf("pieces = %v", remaining.Pieces)
	}
	if !remaining.UpdatedAt.After(post.UpdatedAt) {
		t.Errorf("post should be touched on piece removal")
	}

	result, err = s.DeletePiece(ctx, b.ID)
	if err != nil {
		t.Fatalf("DeletePiece(b): %v", err)
	}
	if !result.PostDeleted {
		t.Fatalf("removing the last piece should delete the post")
	}
	if _, err := s.GetPost(ctx, post.ID); !errs.HasCode(err, errs.CodePostNotFound) {
		t.Fatalf("expected PostNotFound, got %v", err)
	}

	if _, err := s.DeletePiece(ctx, b.ID); !errs.HasCode(err, errs.CodePieceNotFound) {
		t.Fatalf("expected PieceNotFound, got %v", err)
	}
}

func TestDeleteLoosePiece(t *testing.T) {
	s := newTestService()
	p := mustPiece(t, s, "alice", "draft")

	result, err := s.DeletePiece(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("DeletePiece: %v", err)
	}
	if result.PostID != "" || result.PostDeleted {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUpdatePieceAndCheckAuthor(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	post, err := s.CreateSingle(ctx, "alice", "first draft")
	if err != nil {
		t.Fatalf("CreateSingle: %v", err)
	}
	pieceID := post.Pieces[0]

	if err := s.CheckAuthor(ctx, "alice", pieceID); err != nil {
		t.Errorf("alice should be the author: %v", err)
	}
	if err := s.CheckAuthor(ctx, "bob", pieceID); !errs.HasCode(err, errs.CodeNotAuthor) {
		t.Errorf("expected NotAuthor, got %v", err)
	}
	if err := s.CheckAuthor(ctx, "alice", "missing"); !errs.HasCode(err, errs.CodePieceNotFound) {
		t.Errorf("expected PieceNotFound, got %v", err)
	}

	if err := s.UpdatePiece(ctx, pieceID, "final"); err != nil {
		t.Fatalf("UpdatePiece: %v", err)
	}
	if err := s.UpdatePiece(ctx, pieceID, " "); !errors.Is(err, errs.ErrBadValues) {
		t.Errorf("expected BadValues, got %v", err)
	}
	if err := s.UpdatePiece(ctx, "missing", "x"); !errs.HasCode(err, errs.CodePieceNotFound) {
		t.Errorf("expected PieceNotFound, got %v", err)
	}

	resolved, _ := s.Resolve(ctx, []content.Post{*post})
	if resolved[0].Pieces[0].Content != "final" {
		t.Fatalf("content = %q", resolved[0].Pieces[0].Content)
	}
}

func TestListingOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	older, _ := s.CreateSingle(ctx, "alice", "older")
	newer, _ := s.CreateSingle(ctx, "bob", "newer")
	shared := mustPiece(t, s, "alice", "shared")
	joint := mustPiece(t, s, "carol", "joint")
	both, _ := s.Assemble(ctx, []string{joint.ID, shared.ID})

	all, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if got := postIDs(all); !reflect.DeepEqual(got, []string{both.ID, newer.ID, older.ID}) {
		t.Fatalf("ListPosts order = %v", got)
	}

	byAlice, err := s.ByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("ByAuthor: %v", err)
	}
	if got := postIDs(byAlice); !reflect.DeepEqual(got, []string{both.ID, older.ID}) {
		t.Fatalf("ByAuthor order = %v", got)
	}

	none, err := s.ByAuthor(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("ByAuthor(nobody) = %v, %v", none, err)
	}

	picked, err := s.PostsByIDs(ctx, []string{older.ID, "missing", newer.ID})
	if err != nil {
		t.Fatalf("PostsByIDs: %v", err)
	}
	if got := postIDs(picked); !reflect.DeepEqual(got, []string{older.ID, newer.ID}) {
		t.Fatalf("PostsByIDs order = %v", got)
	}
}

func postIDs(posts []content.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
