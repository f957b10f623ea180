package message

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialmedia/internal/config"
	"socialmedia/internal/models"
	"socialmedia/internal/storage"
)

type recordingNotifier struct {
	events []models.MessageEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, evt models.MessageEvent) error {
	r.events = append(r.events, evt)
	return r.err
}

type fixture struct {
	svc      *Service
	accounts *storage.AccountRepository
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db, "sqlite3"))

	accounts := storage.NewAccountRepository(db)
	notifier := &recordingNotifier{}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	svc := NewService(storage.NewMessageRepository(db), accounts, WithNotifier(notifier), WithLogger(quiet))
	return &fixture{svc: svc, accounts: accounts, notifier: notifier}
}

func (f *fixture) account(t *testing.T, username string) int64 {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), models.Account{Username: username, Password: "pass1"})
	require.NoError(t, err)
	return acct.ID
}

func TestAddTextBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.account(t, "alice")

	_, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: ""})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: strings.Repeat("a", 255)})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	msg, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: strings.Repeat("a", 254), TimePosted: 1669947792})
	require.NoError(t, err)
	assert.Positive(t, msg.ID)
	assert.Equal(t, int64(1669947792), msg.TimePosted)

	// characters, not bytes
	_, err = f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: strings.Repeat("é", 254)})
	assert.NoError(t, err)
}

func TestAddRejectsUnknownAuthor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Add(context.Background(), models.Message{PostedBy: 1234, MessageText: "hello"})
	assert.ErrorIs(t, err, ErrUnknownAuthor)
	assert.Empty(t, f.notifier.events)
}

func TestAddChecksTextBeforeAuthor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Add(context.Background(), models.Message{PostedBy: 1234, MessageText: ""})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.NotErrorIs(t, err, ErrUnknownAuthor)
}

func TestGetByIDAndGetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.account(t, "alice")

	all, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	first, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: "one"})
	require.NoError(t, err)
	second, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: "two"})
	require.NoError(t, err)

	all, err = f.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Message{*first, *second}, all)

	got, err := f.svc.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = f.svc.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestDeleteByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.account(t, "alice")
	msg, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: "bye"})
	require.NoError(t, err)

	n, err := f.svc.DeleteByID(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	all, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err = f.svc.DeleteByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.svc.DeleteByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, models.EventMessageDeleted, f.notifier.events[1].Type)
	assert.Equal(t, msg.ID, f.notifier.events[1].MessageID)
	assert.Nil(t, f.notifier.events[1].Message)
}

func TestUpdateTextByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.account(t, "alice")
	msg, err := f.svc.Add(ctx, models.Message{PostedBy: author, MessageText: "hi", TimePosted: 42})
	require.NoError(t, err)

	n, err := f.svc.UpdateTextByID(ctx, 999, "hello")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.Equal(t, int64(0), n)

	for _, bad := range []string{"", strings.Repeat("b", 255)} {
		n, err := f.svc.UpdateTextByID(ctx, msg.ID, bad)
		assert.ErrorIs(t, err, ErrInvalidMessage)
		assert.Equal(t, int64(0), n)
	}
	unchanged, err := f.svc.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", unchanged.MessageText)

	n, err = f.svc.UpdateTextByID(ctx, msg.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	updated, err := f.svc.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Message{ID: msg.ID, PostedBy: author, MessageText: "hello", TimePosted: 42}, *updated)

	// same text again still counts as one updated message
	n, err = f.svc.UpdateTextByID(ctx, msg.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateChecksTextBeforeExistence(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateTextByID(context.Background(), 999, "")
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestGetAllByAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.account(t, "alice")
	bob := f.account(t, "bob")

	for _, m := range []models.Message{
		{PostedBy: alice, MessageText: "a1"},
		{PostedBy: bob, MessageText: "b1"},
		{PostedBy: alice, MessageText: "a2"},
	} {
		_, err := f.svc.Add(ctx, m)
		require.NoError(t, err)
	}

	got, err := f.svc.GetAllByAccount(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].MessageText)
	assert.Equal(t, "a2", got[1].MessageText)

	none, err := f.svc.GetAllByAccount(ctx, 12345)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestNotifierFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis unavailable")
	author := f.account(t, "alice")

	msg, err := f.svc.Add(context.Background(), models.Message{PostedBy: author, MessageText: "still saved"})
	require.NoError(t, err)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, models.EventMessageCreated, f.notifier.events[0].Type)
	assert.Equal(t, msg.ID, f.notifier.events[0].MessageID)
}

type brokenAccounts struct{}

func (brokenAccounts) FindByID(context.Context, int64) (*models.Account, error) {
	return nil, errors.New("timeout")
}

type missingAccounts struct{}

func (missingAccounts) FindByID(context.Context, int64) (*models.Account, error) {
	return nil, sql.ErrNoRows
}

func TestAuthorLookupErrors(t *testing.T) {
	svc := NewService(nil, brokenAccounts{})
	_, err := svc.Add(context.Background(), models.Message{PostedBy: 1, MessageText: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownAuthor)

	svc = NewService(nil, missingAccounts{})
	_, err = svc.Add(context.Background(), models.Message{PostedBy: 1, MessageText: "x"})
	assert.ErrorIs(t, err, ErrUnknownAuthor)
}
