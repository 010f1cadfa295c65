package comment_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/repo/post"
	"github.com/mkrupp/homecase-blog/internal/repo/user"
	"github.com/mkrupp/homecase-blog/internal/store"
	"github.com/mkrupp/homecase-blog/internal/store/storetest"

	. "github.com/mkrupp/homecase-blog/internal/repo/comment"
)

type fixture struct {
	db       *store.DB
	scope    *store.Scope
	users    user.Repository
	posts    post.Repository
	comments *SQLCommentRepository
	author   *domain.User
	post     *domain.Post
}

func setupCommentRepo(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db := storetest.Open(t)

	f := &fixture{
		db:       db,
		scope:    storetest.Begin(t, db),
		users:    user.NewSQLUserRepository(db),
		posts:    post.NewSQLPostRepository(db),
		comments: NewSQLCommentRepository(db),
	}

	var err error

	f.author, err = f.users.Save(ctx, f.scope, domain.NewUser{
		Name: "Sally Low", Username: "sally", Email: "sally@example.org", Password: "password",
	})
	if err != nil {
		t.Fatalf("save user: %v", err)
	}

	f.post, err = f.posts.Save(ctx, f.scope, domain.NewPost{
		Title: "My Test Post", Body: "This is just a test post with no real content.", Author: f.author.ID,
	})
	if err != nil {
		t.Fatalf("save post: %v", err)
	}

	return f
}

func TestSQLCommentRepository_Save(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupCommentRepo(t)

	before := time.Now().UTC().Truncate(time.Microsecond)

	comment, err := f.comments.Save(ctx, f.scope, domain.NewComment{
		Body:   "This is a test comment.",
		PostID: f.post.ID,
		UserID: f.author.ID,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	keys := make([]string, 0, 6)
	for k := range comment.Attributes() {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	want := []string{"body", "created_at", "id", "post_id", "updated_at", "user_id"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Attributes() keys = %v, want exactly %v", keys, want)
	}

	if comment.CreatedAt.After(comment.UpdatedAt) {
		t.Errorf("created_at %v after updated_at %v", comment.CreatedAt, comment.UpdatedAt)
	}

	if comment.CreatedAt.Before(before) {
		t.Errorf("created_at %v predates the save (%v)", comment.CreatedAt, before)
	}

	stored, err := f.comments.FindByID(ctx, f.scope, comment.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	if stored.ID != comment.ID || stored.Body != comment.Body ||
		stored.PostID != comment.PostID || stored.UserID != comment.UserID ||
		!stored.CreatedAt.Equal(comment.CreatedAt) || !stored.UpdatedAt.Equal(comment.UpdatedAt) {
		t.Errorf("FindByID() = %+v, want %+v", stored, comment)
	}
}

func TestSQLCommentRepository_SaveRejects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupCommentRepo(t)

	tests := []struct {
		name    string
		input   domain.NewComment
		wantErr error
	}{
		{name: "missing body", input: domain.NewComment{Body: "  ", PostID: f.post.ID, UserID: f.author.ID}, wantErr: domain.ErrValidation},
		{name: "missing post", input: domain.NewComment{Body: "b", UserID: f.author.ID}, wantErr: domain.ErrValidation},
		{name: "missing user", input: domain.NewComment{Body: "b", PostID: f.post.ID}, wantErr: domain.ErrValidation},
		{name: "negative post", input: domain.NewComment{Body: "b", PostID: -2, UserID: f.author.ID}, wantErr: domain.ErrValidation},
		{name: "unknown post", input: domain.NewComment{Body: "b", PostID: f.post.ID + 9, UserID: f.author.ID}, wantErr: domain.ErrForeignKey},
		{name: "unknown user", input: domain.NewComment{Body: "b", PostID: f.post.ID, UserID: f.author.ID + 9}, wantErr: domain.ErrForeignKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.comments.Save(ctx, f.scope, tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	n, err := f.comments.Count(ctx, f.scope)
	if err != nil || n != 0 {
		t.Errorf("Count() = %d, %v; want 0, nil", n, err)
	}
}

func TestSQLCommentRepository_UpdateBody(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupCommentRepo(t)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.comments.Now = func() time.Time { return clock }

	comment, err := f.comments.Save(ctx, f.scope, domain.NewComment{
		Body: "first draft", PostID: f.post.ID, UserID: f.author.ID,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !comment.CreatedAt.Equal(clock) || !comment.UpdatedAt.Equal(clock) {
		t.Errorf("timestamps = %v / %v, want both %v", comment.CreatedAt, comment.UpdatedAt, clock)
	}

	clock = clock.Add(90 * time.Second)

	updated, err := f.comments.UpdateBody(ctx, f.scope, comment.ID, "second draft")
	if err != nil {
		t.Fatalf("UpdateBody() error = %v", err)
	}

	if updated.Body != "second draft" || !updated.CreatedAt.Equal(comment.CreatedAt) || !updated.UpdatedAt.Equal(clock) {
		t.Errorf("unexpected update %+v", updated)
	}

	// A clock going backwards does not move updated_at before created_at.
	clock = clock.Add(-time.Hour)

	again, err := f.comments.UpdateBody(ctx, f.scope, comment.ID, "third draft")
	if err != nil {
		t.Fatalf("UpdateBody() error = %v", err)
	}

	if again.UpdatedAt.Before(again.CreatedAt) || !again.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", again.UpdatedAt, updated.UpdatedAt)
	}

	if _, err := f.comments.UpdateBody(ctx, f.scope, comment.ID+1, "x"); !errors.Is(err, domain.ErrCommentNotFound) {
		t.Errorf("UpdateBody(unknown) error = %v, want ErrCommentNotFound", err)
	}

	if _, err := f.comments.UpdateBody(ctx, f.scope, comment.ID, " "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateBody(blank) error = %v, want ErrValidation", err)
	}
}

func TestSQLCommentRepository_ListByPost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupCommentRepo(t)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.comments.Now = func() time.Time {
		clock = clock.Add(time.Second)

		return clock
	}

	for _, body := range []string{"one", "two", "three"} {
		if _, err := f.comments.Save(ctx, f.scope, domain.NewComment{Body: body, PostID: f.post.ID, UserID: f.author.ID}); err != nil {
			t.Fatalf("Save(%s) error = %v", body, err)
		}
	}

	comments, err := f.comments.ListByPost(ctx, f.scope, f.post.ID)
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}

	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		bodies = append(bodies, c.Body)
	}

	if want := []string{"one", "two", "three"}; !reflect.DeepEqual(bodies, want) {
		t.Errorf("ListByPost() bodies = %v, want %v", bodies, want)
	}

	none, err := f.comments.ListByPost(ctx, f.scope, f.post.ID+1)
	if err != nil || len(none) != 0 {
		t.Errorf("ListByPost(other) = %v, %v; want empty", none, err)
	}
}

// Rolling back a scope leaves no rows behind in any of the three tables.
func TestRollback_LeavesNoRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupCommentRepo(t)

	if _, err := f.comments.Save(ctx, f.scope, domain.NewComment{
		Body: "This is a test comment.", PostID: f.post.ID, UserID: f.author.ID,
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := f.scope.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	counts := map[string]func(context.Context, *store.Scope) (int, error){
		"users":    f.users.Count,
		"posts":    f.posts.Count,
		"comments": f.comments.Count,
	}

	for table, count := range counts {
		n, err := count(ctx, nil)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}

		if n != 0 {
			t.Errorf("%s has %d rows after rollback, want 0", table, n)
		}
	}

	if _, err := f.users.FindByUsername(ctx, nil, "sally"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("FindByUsername() error = %v, want ErrUserNotFound", err)
	}
}
