package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/edutok-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeInput() domain.NotificationInput {
	return domain.NotificationInput{Type: domain.NotificationTypeGrade, Title: "Nova nota", Message: "Matemática: 9.5"}
}

func TestCreate_StampsUnreadAndNow(t *testing.T) {
	fs, w, _, _ := newFixture()
	ctx := context.Background()

	n, err := w.Create(ctx, "u1", gradeInput())
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	assert.Equal(t, testNow.UnixMilli(), n.Timestamp)

	snaps, err := fs.Children(ctx, "notifications/u1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, n.ID, snaps[0].Key)
	assert.NotContains(t, string(snaps[0].Value), `"id"`)
	assert.Contains(t, string(snaps[0].Value), `"read":false`)
}

func TestCreateForUsers_OneRecordPerUser(t *testing.T) {
	fs, w, _, _ := newFixture()
	ctx := context.Background()

	created, err := w.CreateForUsers(ctx, []string{"u1", "u2"}, gradeInput())
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.Equal(t, 1, fs.updates, "fan-out must be a single store call")

	for _, u := range []string{"u1", "u2"} {
		snaps, err := fs.Children(ctx, "notifications/"+u)
		require.NoError(t, err)
		require.Len(t, snaps, 1, u)
		var n domain.Notification
		require.NoError(t, snaps[0].Decode(&n))
		assert.Equal(t, u, n.UserID)
		assert.Equal(t, domain.NotificationTypeGrade, n.Type)
		assert.Equal(t, "Nova nota", n.Title)
		assert.False(t, n.Read)
	}
}

func TestCreateForUsers_StoreFailureLeavesNoPartialRecords(t *testing.T) {
	fs, w, _, _ := newFixture()
	fs.failUpdate = true
	ctx := context.Background()

	_, err := w.CreateForUsers(ctx, []string{"u1", "u2", "u3"}, gradeInput())
	require.ErrorIs(t, err, errStoreDown)

	keys, err := fs.Keys(ctx, "notifications")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCreateForUsers_DuplicateIDsCollapse(t *testing.T) {
	fs, w, _, _ := newFixture()
	ctx := context.Background()

	created, err := w.CreateForUsers(ctx, []string{"u1", "u1"}, gradeInput())
	require.NoError(t, err)
	assert.Len(t, created, 1)

	snaps, err := fs.Children(ctx, "notifications/u1")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestCreateForUsers_RepeatedCallsAreNotDeduplicated(t *testing.T) {
	fs, w, _, _ := newFixture()
	ctx := context.Background()

	_, err := w.CreateForUsers(ctx, []string{"u1"}, gradeInput())
	require.NoError(t, err)
	_, err = w.CreateForUsers(ctx, []string{"u1"}, gradeInput())
	require.NoError(t, err)

	snaps, err := fs.Children(ctx, "notifications/u1")
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestCreateForUsers_Validation(t *testing.T) {
	fs, w, _, _ := newFixture()
	ctx := context.Background()

	cases := map[string]struct {
		users []string
		in    domain.NotificationInput
	}{
		"no users":     {nil, gradeInput()},
		"bad user id":  {[]string{"a/b"}, gradeInput()},
		"unknown type": {[]string{"u1"}, domain.NotificationInput{Type: "spam", Title: "t", Message: "m"}},
		"no title":     {[]string{"u1"}, domain.NotificationInput{Type: domain.NotificationTypeGeneral, Message: "m"}},
	}
	for name, c := range cases {
		_, err := w.CreateForUsers(ctx, c.users, c.in)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), name)
	}
	assert.Zero(t, fs.updates)
}

func TestCreateForUsers_RunsDeliveryHookPerRecord(t *testing.T) {
	_, w, _, _ := newFixture()
	var delivered []string
	w.OnCreated(func(_ context.Context, n domain.Notification) { delivered = append(delivered, n.UserID+":"+n.ID) })

	created, err := w.CreateForUsers(context.Background(), []string{"u1", "u2"}, gradeInput())
	require.NoError(t, err)

	assert.Equal(t, []string{"u1:" + created[0].ID, "u2:" + created[1].ID}, delivered)
}

func TestCreateForUsers_HookSkippedOnFailure(t *testing.T) {
	fs, w, _, _ := newFixture()
	fs.failUpdate = true
	called := false
	w.OnCreated(func(context.Context, domain.Notification) { called = true })

	_, err := w.CreateForUsers(context.Background(), []string{"u1"}, gradeInput())
	require.Error(t, err)
	assert.False(t, called)
}
