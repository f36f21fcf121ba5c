package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/testutil"
	"github.com/trezcool/kazi/core/user"
	"github.com/trezcool/kazi/storage/database/inmem"
)

func TestService(t *testing.T) {
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	classes := inmemdb.NewClassRepository(db)
	svc := assignment.NewService(inmemdb.NewAssignmentRepository(db), classroom.NewService(nil, classes))
	ctx := context.Background()

	teacher := testutil.CreateUser(t, users, "teacher", user.RoleTeacher)
	intruder := testutil.CreateUser(t, users, "intruder", user.RoleTeacher)
	alice := testutil.CreateUser(t, users, "alice", user.RoleStudent)
	bob := testutil.CreateUser(t, users, "bob", user.RoleStudent)
	maths := testutil.CreateClass(t, classes, teacher.ID, "Maths", "MATH01")
	art := testutil.CreateClass(t, classes, teacher.ID, "Art", "ART001")
	testutil.Enroll(t, classes, maths.ID, alice.ID)

	deadline := time.Date(2030, 6, 1, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))

	_, err := svc.Create(ctx, intruder.ID, assignment.NewAssignment{Title: "Sneaky", ClassID: maths.ID, Deadline: deadline})
	assert.Equal(t, classroom.ErrNotFound, err)

	late, err := svc.Create(ctx, teacher.ID, assignment.NewAssignment{Title: "Essay", ClassID: maths.ID, Deadline: deadline})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, late.Deadline.Location())
	assert.True(t, deadline.Equal(late.Deadline))
	assert.Equal(t, teacher.ID, late.TeacherID)

	soon, err := svc.Create(ctx, teacher.ID, assignment.NewAssignment{Title: "Quiz", ClassID: maths.ID, Deadline: deadline.Add(-48 * time.Hour)})
	require.NoError(t, err)
	drawing, err := svc.Create(ctx, teacher.ID, assignment.NewAssignment{Title: "Drawing", ClassID: art.ID, Deadline: deadline})
	require.NoError(t, err)

	t.Run("teacher listing", func(t *testing.T) {
		asgs, err := svc.ListForTeacher(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Len(t, asgs, 3)

		none, err := svc.ListForTeacher(ctx, intruder.ID)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("student listing", func(t *testing.T) {
		asgs, err := svc.ListForStudent(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, asgs, 2)
		assert.Equal(t, soon.ID, asgs[0].ID, "closest deadline first")
		assert.Equal(t, late.ID, asgs[1].ID)
		assert.False(t, asgs[0].Submitted)

		none, err := svc.ListForStudent(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("student access", func(t *testing.T) {
		got, err := svc.GetForStudent(ctx, alice.ID, late.ID)
		require.NoError(t, err)
		assert.Equal(t, "Essay", got.Title)

		_, err = svc.GetForStudent(ctx, alice.ID, drawing.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		_, err = svc.GetForStudent(ctx, bob.ID, late.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, assignment.ErrNotFound, svc.Delete(ctx, intruder.ID, soon.ID))
		require.NoError(t, svc.Delete(ctx, teacher.ID, soon.ID))
		_, err := svc.GetOwned(ctx, teacher.ID, soon.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
	})
}
