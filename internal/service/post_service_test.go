package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

func setupPostService(t *testing.T) (*gorm.DB, PostService, *stubUploader) {
	t.Helper()

	db := setupServiceDB(t)
	validate := testValidator()
	members := repository.NewCourseMemberRepository(db)
	courses := repository.NewCourseRepository(db)
	membership := NewMembershipService(members, courses, validate, testLogger())
	uploader := &stubUploader{}

	svc := NewPostService(repository.NewPostRepository(db), membership, uploader, validate, testLogger())

	return db, svc, uploader
}

func TestPostServiceCreateSanitizesBody(t *testing.T) {
	db, svc, _ := setupPostService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Typography")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	post, err := svc.Create(ctx, student.ID, dto.PostCreateRequest{
		CourseID: course.ID,
		Body:     `hello <script>alert("x")</script>world`,
	}, nil)
	require.NoError(t, err)
	require.NotContains(t, post.Body, "<script>")
	require.Contains(t, post.Body, "hello")

	// A body that is nothing but markup is rejected after sanitization.
	_, err = svc.Create(ctx, student.ID, dto.PostCreateRequest{
		CourseID: course.ID,
		Body:     `<img src="x">`,
	}, nil)
	require.ErrorIs(t, err, ErrEmptyBody)
}

func TestPostServiceCreateRequiresEnrollment(t *testing.T) {
	db, svc, _ := setupPostService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	outsider := createUser(t, db, "Outsider", 0)
	course := createCourse(t, db, owner.ID, "Printing")

	_, err := svc.Create(ctx, outsider.ID, dto.PostCreateRequest{CourseID: course.ID, Body: "hello"}, nil)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPostServiceDeleteAuthorOrManager(t *testing.T) {
	db, svc, uploader := setupPostService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	author := createUser(t, db, "Author", 0)
	other := createUser(t, db, "Other", 0)
	course := createCourse(t, db, owner.ID, "Binding")
	createMember(t, db, course.ID, author.ID, models.MemberRoleMember)
	createMember(t, db, course.ID, other.ID, models.MemberRoleMember)

	post := models.Post{CourseID: course.ID, UserID: author.ID, Body: "hello", ImageURL: "https://cdn.example.com/img.png"}
	require.NoError(t, db.Create(&post).Error)

	// Another plain member may not delete someone else's post.
	err := svc.Delete(ctx, post.ID, other.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// The course owner can; the uploaded image is cleaned up.
	require.NoError(t, svc.Delete(ctx, post.ID, owner.ID))
	require.Contains(t, uploader.destroyed, "https://cdn.example.com/img.png")

	_, err = svc.Get(ctx, post.ID)
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostServiceCommentsFollowPostRules(t *testing.T) {
	db, svc, _ := setupPostService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	student := createUser(t, db, "Student", 0)
	course := createCourse(t, db, owner.ID, "Engraving")
	createMember(t, db, course.ID, student.ID, models.MemberRoleMember)

	post := models.Post{CourseID: course.ID, UserID: owner.ID, Body: "hello"}
	require.NoError(t, db.Create(&post).Error)

	comment, err := svc.CreateComment(ctx, post.ID, student.ID, dto.CommentCreateRequest{Body: "nice <b>post</b>"})
	require.NoError(t, err)
	require.NotContains(t, comment.Body, "<b>")

	_, err = svc.CreateComment(ctx, 9999, student.ID, dto.CommentCreateRequest{Body: "hi"})
	require.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, svc.DeleteComment(ctx, comment.ID, student.ID))
	err = svc.DeleteComment(ctx, comment.ID, student.ID)
	require.ErrorIs(t, err, ErrCommentNotFound)
}

func TestPostServiceGetCountsReactions(t *testing.T) {
	db, svc, _ := setupPostService(t)
	ctx := context.Background()

	owner := createUser(t, db, "Owner", 0)
	alice := createUser(t, db, "Alice", 0)
	bob := createUser(t, db, "Bob", 0)
	course := createCourse(t, db, owner.ID, "Papermaking")

	post := models.Post{CourseID: course.ID, UserID: owner.ID, Body: "hello"}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Reaction{PostID: post.ID, UserID: alice.ID, Kind: models.ReactionLike}).Error)
	require.NoError(t, db.Create(&models.Reaction{PostID: post.ID, UserID: bob.ID, Kind: models.ReactionDislike}).Error)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Likes)
	require.Equal(t, int64(1), got.Dislikes)
}
