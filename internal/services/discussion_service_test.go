package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/course-service/internal/models"
)

func TestDiscussionLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := NewDiscussionService(repo, testLogger(), testValidator())
	ctx := context.Background()

	student := uuid.New()
	course, _, lessonID := seedCourse(repo, uuid.New(), student)

	d, err := svc.Create(ctx, course, lessonID, student, &CreateDiscussionRequest{Title: "Deadlock?", Content: "Why does my program hang?"})
	require.NoError(t, err)
	assert.Equal(t, student, d.Belong)

	lesson, err := repo.courses[course.ID].FindLesson(lessonID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{d.ID}, lesson.DiscussionIDs)

	listed, err := svc.ListByLesson(ctx, course, lessonID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, d.ID, listed[0].ID)

	_, err = svc.Create(ctx, course, uuid.New(), student, &CreateDiscussionRequest{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrLessonNotFound)

	replied, err := svc.Reply(ctx, d, student, &ReplyRequest{Content: "Forgot to close the channel"})
	require.NoError(t, err)
	require.Len(t, replied.Replies, 1)
	assert.Equal(t, student, replied.Replies[0].User)

	t.Run("like toggles", func(t *testing.T) {
		other := uuid.New()
		res, err := svc.ToggleLike(ctx, d, student)
		require.NoError(t, err)
		assert.True(t, res.Liked)
		res, err = svc.ToggleLike(ctx, d, other)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Likes)
		res, err = svc.ToggleLike(ctx, d, student)
		require.NoError(t, err)
		assert.False(t, res.Liked)
		assert.Equal(t, 1, res.Likes)
		assert.Equal(t, []uuid.UUID{other}, res.LikedBy)
	})

	t.Run("delete pulls the reference from every lesson", func(t *testing.T) {
		// A second course that also references the discussion
		copyCourse, _, copyLesson := seedCourse(repo, uuid.New())
		require.NoError(t, copyCourse.AttachDiscussion(copyLesson, d.ID))

		require.NoError(t, svc.Delete(ctx, d.ID))
		assert.NotContains(t, repo.discussions, d.ID)

		for _, c := range []*models.Course{course, copyCourse} {
			for _, m := range c.Modules {
				for _, l := range m.Lessons {
					assert.NotContains(t, l.DiscussionIDs, d.ID)
				}
			}
		}
		assert.Len(t, repo.courses, 2, "courses are not removed with the discussion")

		assert.ErrorIs(t, svc.Delete(ctx, d.ID), ErrDiscussionNotFound)
	})
}

func TestDiscussionWritesFromStaleCopies(t *testing.T) {
	repo := newMemRepo()
	repo.copies = true
	svc := NewDiscussionService(repo, testLogger(), testValidator())
	ctx := context.Background()

	course, _, lessonID := seedCourse(repo, uuid.New())
	stored, err := repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	d, err := svc.Create(ctx, stored, lessonID, uuid.New(), &CreateDiscussionRequest{Title: "Select", Content: "Which case wins?"})
	require.NoError(t, err)

	// Both requests load the discussion before either like is written
	first, err := repo.Discussion().GetByID(ctx, nil, d.ID)
	require.NoError(t, err)
	second, err := repo.Discussion().GetByID(ctx, nil, d.ID)
	require.NoError(t, err)

	alice, bob := uuid.New(), uuid.New()
	_, err = svc.ToggleLike(ctx, first, alice)
	require.NoError(t, err)
	res, err := svc.ToggleLike(ctx, second, bob)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 2, res.Likes)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, res.LikedBy)

	// A reply built on the copy returned by Create keeps both likes
	_, err = svc.Reply(ctx, d, alice, &ReplyRequest{Content: "The random one"})
	require.NoError(t, err)
	latest, err := repo.Discussion().GetByID(ctx, nil, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Likes)
	assert.Len(t, latest.Replies, 1)

	// Two discussions linked from copies of the course loaded at the same time
	a, err := repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	b, err := repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	fromA, err := svc.Create(ctx, a, lessonID, alice, &CreateDiscussionRequest{Title: "A", Content: "a"})
	require.NoError(t, err)
	fromB, err := svc.Create(ctx, b, lessonID, bob, &CreateDiscussionRequest{Title: "B", Content: "b"})
	require.NoError(t, err)

	final, err := repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	lesson, err := final.FindLesson(lessonID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{d.ID, fromA.ID, fromB.ID}, lesson.DiscussionIDs)

	require.NoError(t, svc.Delete(ctx, d.ID))
	_, err = svc.ToggleLike(ctx, first, bob)
	assert.ErrorIs(t, err, ErrDiscussionNotFound)
}
