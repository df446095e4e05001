package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *Store, name string) *User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), name, "digest-"+name)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func TestCreateUserDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "alice")

	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	count, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate signup must not create a row, count=%d", count)
	}

	user, err := s.FindUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindUserByUsername returned error: %v", err)
	}
	if user.PasswordHash != "digest-alice" {
		t.Fatalf("original digest was overwritten: %s", user.PasswordHash)
	}
}

func TestFindUserMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FindUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindUserByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePostSetsOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")

	post, err := s.CreatePost(ctx, alice.ID, "T", "B")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}
	if post.ID == 0 {
		t.Fatal("expected post id to be assigned")
	}

	stored, err := s.FindPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("FindPost returned error: %v", err)
	}
	if stored.UserID != alice.ID {
		t.Fatalf("owner = %d, want %d", stored.UserID, alice.ID)
	}
	if stored.User.Username != "alice" {
		t.Fatalf("owner not preloaded: %+v", stored.User)
	}
}

func TestCreatePostRequiresOwner(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CreatePost(context.Background(), 0, "T", "B"); err == nil {
		t.Fatal("expected error for missing owner")
	}
	posts, err := s.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts returned error: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("no post should be stored, got %d", len(posts))
	}
}

func TestCreatePostUnknownOwnerRejected(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CreatePost(context.Background(), 99, "T", "B"); err == nil {
		t.Fatal("expected foreign key violation for unknown owner")
	}
}

func TestUpdatePostOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	post, err := s.CreatePost(ctx, alice.ID, "T", "B")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}

	if err := s.UpdatePost(ctx, post.ID, bob.ID, "X", "Y"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := s.UpdatePost(ctx, post.ID+100, alice.ID, "X", "Y"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	unchanged, _ := s.FindPost(ctx, post.ID)
	if unchanged.Title != "T" || unchanged.Body != "B" {
		t.Fatalf("post changed by non-owner: %+v", unchanged)
	}

	if err := s.UpdatePost(ctx, post.ID, alice.ID, "X", "Y"); err != nil {
		t.Fatalf("UpdatePost returned error: %v", err)
	}
	updated, _ := s.FindPost(ctx, post.ID)
	if updated.Title != "X" || updated.Body != "Y" {
		t.Fatalf("unexpected post after update: %+v", updated)
	}
	if updated.UserID != alice.ID {
		t.Fatalf("owner must not change on update: %d", updated.UserID)
	}
}

func TestDeletePostOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	post, err := s.CreatePost(ctx, alice.ID, "T", "B")
	if err != nil {
		t.Fatalf("CreatePost returned error: %v", err)
	}

	if err := s.DeletePost(ctx, post.ID, bob.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := s.FindPost(ctx, post.ID); err != nil {
		t.Fatalf("post should survive non-owner delete: %v", err)
	}

	if err := s.DeletePost(ctx, post.ID, alice.ID); err != nil {
		t.Fatalf("DeletePost returned error: %v", err)
	}
	if _, err := s.FindPost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeletePost(ctx, post.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestListPostsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := mustCreateUser(t, s, "alice")

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.CreatePost(ctx, alice.ID, title, "body"); err != nil {
			t.Fatalf("CreatePost returned error: %v", err)
		}
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts returned error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("unexpected post count: %d", len(posts))
	}
	for i, want := range []string{"first", "second", "third"} {
		if posts[i].Title != want {
			t.Fatalf("posts[%d].Title = %s, want %s", i, posts[i].Title, want)
		}
	}
}

func TestPostOwnedBy(t *testing.T) {
	post := &Post{UserID: 7}
	if !post.OwnedBy(7) {
		t.Fatal("expected owner match")
	}
	if post.OwnedBy(8) || post.OwnedBy(0) {
		t.Fatal("unexpected owner match")
	}
	var nilPost *Post
	if nilPost.OwnedBy(7) {
		t.Fatal("nil post must not be owned")
	}
}
