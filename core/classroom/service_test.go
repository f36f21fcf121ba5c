package classroom_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/testutil"
	"github.com/trezcool/kazi/core/user"
	"github.com/trezcool/kazi/storage/database/inmem"
)

func setup(t *testing.T) (*classroom.Service, classroom.Repository, user.Repository) {
	t.Helper()
	db := inmemdb.Open()
	repo := inmemdb.NewClassRepository(db)
	return classroom.NewService(nil, repo), repo, inmemdb.NewUserRepository(db)
}

// codes returns a generator yielding the given codes in turn, then the last one forever.
func codes(cc ...string) func() (string, error) {
	var i int
	return func() (string, error) {
		code := cc[i]
		if i < len(cc)-1 {
			i++
		}
		return code, nil
	}
}

func TestService_Create(t *testing.T) {
	svc, repo, users := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, users, "teacher", user.RoleTeacher)
	testutil.CreateClass(t, repo, teacher.ID, "Existing", "TAKEN1")

	t.Run("fresh code", func(t *testing.T) {
		cls, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Maths", Description: "Algebra"})
		require.NoError(t, err)
		assert.Len(t, cls.Code, classroom.CodeLength)
		assert.Equal(t, teacher.ID, cls.TeacherID)
		assert.Equal(t, "Algebra", cls.Description)
		assert.WithinDuration(t, time.Now(), cls.CreatedAt, time.Minute)
	})

	t.Run("code collision is re-rolled", func(t *testing.T) {
		defer classroom.SetGenerateCode(codes("TAKEN1", "TAKEN1", "FRESH1"))()

		cls, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Physics"})
		require.NoError(t, err)
		assert.Equal(t, "FRESH1", cls.Code)
	})

	t.Run("no free code", func(t *testing.T) {
		defer classroom.SetGenerateCode(codes("TAKEN1"))()

		_, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Chemistry"})
		assert.Equal(t, classroom.ErrCodeGeneration, err)
	})

	t.Run("generator failure", func(t *testing.T) {
		boom := errors.New("entropy exhausted")
		defer classroom.SetGenerateCode(func() (string, error) { return "", boom })()

		_, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Biology"})
		assert.Equal(t, boom, errors.Cause(err))
	})

	classes, err := svc.ListForTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, classes, 3)
}

func TestService_Join(t *testing.T) {
	svc, repo, users := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, users, "teacher", user.RoleTeacher)
	student := testutil.CreateUser(t, users, "alice", user.RoleStudent)
	cls := testutil.CreateClass(t, repo, teacher.ID, "Maths", "MATH01")

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "blank code", code: "  ", wantErr: classroom.ErrNotFound},
		{name: "unknown code", code: "NOPE00", wantErr: classroom.ErrNotFound},
		{name: "join", code: " math01 "},
		{name: "join twice", code: "MATH01", wantErr: classroom.ErrAlreadyEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Join(ctx, student.ID, tt.code)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "Join() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cls.ID, got.ID)
		})
	}

	t.Run("already joined is a validation error", func(t *testing.T) {
		_, err := svc.Join(ctx, student.ID, "MATH01")
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	joined, err := svc.ListForStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "Maths", joined[0].Name)

	count, err := svc.CountStudents(ctx, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_ownership(t *testing.T) {
	svc, repo, users := setup(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, users, "owner", user.RoleTeacher)
	intruder := testutil.CreateUser(t, users, "intruder", user.RoleTeacher)
	alice := testutil.CreateUser(t, users, "alice", user.RoleStudent)
	bob := testutil.CreateUser(t, users, "bob", user.RoleStudent)
	cls := testutil.CreateClass(t, repo, owner.ID, "Maths", "MATH01")
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testutil.Enroll(t, repo, cls.ID, alice.ID, t0)
	testutil.Enroll(t, repo, cls.ID, bob.ID, t0.Add(time.Hour))

	_, err := svc.Students(ctx, intruder.ID, cls.ID)
	assert.Equal(t, classroom.ErrNotFound, err)
	assert.Equal(t, classroom.ErrNotFound, svc.RemoveStudent(ctx, intruder.ID, cls.ID, alice.ID))
	assert.Equal(t, classroom.ErrNotFound, svc.Delete(ctx, intruder.ID, cls.ID))

	students, err := svc.Students(ctx, owner.ID, cls.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "bob", students[0].Username, "latest join first")
	assert.Equal(t, alice.StudentNumber, students[1].StudentNumber)

	classes, err := svc.ListForTeacher(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 2, classes[0].StudentCount)

	require.NoError(t, svc.RemoveStudent(ctx, owner.ID, cls.ID, alice.ID))
	assert.Equal(t, classroom.ErrStudentNotEnrolled, svc.RemoveStudent(ctx, owner.ID, cls.ID, alice.ID))
	enrolled, err := svc.IsEnrolled(ctx, cls.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	require.NoError(t, svc.Delete(ctx, owner.ID, cls.ID))
	_, err = svc.GetOwned(ctx, owner.ID, cls.ID)
	assert.True(t, core.IsNotFound(err))
}
