package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/dbx"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/database"
)

type note struct {
	ID    int64   `db:"id"`
	Title string  `db:"title"`
	Body  *string `db:"body"`
	Slug  string  `db:"slug"`
}

func (n note) Key() int64 { return n.ID }

type noteCreate struct {
	Title string
	Body  *string
	Slug  string
}

func (c noteCreate) Fields() map[string]any {
	return map[string]any{"title": c.Title, "body": c.Body, "slug": c.Slug}
}

type noteUpdate struct {
	Title *string
	Body  *string
	Slug  *string
}

func (u noteUpdate) Fields() map[string]any {
	f := map[string]any{}
	if u.Title != nil {
		f["title"] = *u.Title
	}
	if u.Body != nil {
		f["body"] = *u.Body
	}
	if u.Slug != nil {
		f["slug"] = *u.Slug
	}
	return f
}

var notes = Table{
	Name:       "notes",
	Columns:    []string{"id", "title", "body", "slug"},
	Insertable: []string{"title", "body", "slug"},
	Updatable:  []string{"title", "body"},
}

func ptr[V any](v V) *V { return &v }

func newNoteStore(t *testing.T) *Store[note, noteCreate, noteUpdate] {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		body TEXT,
		slug TEXT NOT NULL UNIQUE
	)`)
	require.NoError(t, err)
	return New[note, noteCreate, noteUpdate](db, notes)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, noteCreate{Title: "first", Slug: "first"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "first", created.Title)
	assert.Nil(t, created.Body)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
}

func TestStore_GetAbsentIsNotAnError(t *testing.T) {
	s := newNoteStore(t)

	got, err := s.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CreateUniqueViolation(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, noteCreate{Title: "a", Slug: "dup"})
	require.NoError(t, err)
	_, err = s.Create(ctx, noteCreate{Title: "b", Slug: "dup"})
	require.ErrorIs(t, err, ErrConstraintViolation)

	all, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ListPaginatesInKeyOrder(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.Create(ctx, noteCreate{Title: slug, Slug: slug})
		require.NoError(t, err)
	}

	page, err := s.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Slug)
	assert.Equal(t, "c", page[1].Slug)

	rest, err := s.List(ctx, 4, 100)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "e", rest[0].Slug)

	empty, err := s.List(ctx, 10, 100)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	none, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ListRejectsNegativePage(t *testing.T) {
	s := newNoteStore(t)

	_, err := s.List(context.Background(), -1, 10)
	require.ErrorIs(t, err, ErrInvalidPage)
	_, err = s.List(context.Background(), 0, -1)
	require.ErrorIs(t, err, ErrInvalidPage)
}

func TestStore_FindByAndListBy(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, noteCreate{Title: "same", Slug: "x"})
	require.NoError(t, err)
	_, err = s.Create(ctx, noteCreate{Title: "same", Slug: "y"})
	require.NoError(t, err)
	_, err = s.Create(ctx, noteCreate{Title: "other", Slug: "z"})
	require.NoError(t, err)

	got, err := s.FindBy(ctx, "slug", "y")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "same", got.Title)

	missing, err := s.FindBy(ctx, "slug", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	same, err := s.ListBy(ctx, "title", "same", 0, 10)
	require.NoError(t, err)
	assert.Len(t, same, 2)

	_, err = s.FindBy(ctx, "title; DROP TABLE notes", "x")
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = s.ListBy(ctx, "nope", "x", 0, 10)
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestStore_UpdatePartial(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, noteCreate{Title: "t", Body: ptr("b"), Slug: "s"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, *created, noteUpdate{Title: ptr("t2")})
	require.NoError(t, err)
	assert.Equal(t, "t2", updated.Title)
	require.NotNil(t, updated.Body)
	assert.Equal(t, "b", *updated.Body)
	assert.Equal(t, "s", updated.Slug)
}

func TestStore_UpdateIgnoresNonUpdatableFields(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, noteCreate{Title: "t", Slug: "fixed"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, *created, noteUpdate{Slug: ptr("moved")})
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Slug)
}

func TestStore_UpdateMissingRecord(t *testing.T) {
	s := newNoteStore(t)

	_, err := s.Update(context.Background(), note{ID: 99}, noteUpdate{Title: ptr("x")})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(context.Background(), note{ID: 99}, noteUpdate{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, noteCreate{Title: "gone", Slug: "gone"})
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Delete(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CallsJoinOuterTransaction(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := dbx.WithTx(ctx, s.DB(), nil, func(ctx context.Context, _ dbx.DBTX) error {
		if _, err := s.Create(ctx, noteCreate{Title: "t", Slug: "rolled-back"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.FindBy(ctx, "slug", "rolled-back")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_DriverErrorIsWrapped(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := New[note, noteCreate, noteUpdate](sqlx.NewDb(raw, "sqlmock"), notes)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, title, body, slug FROM notes`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err = s.List(context.Background(), 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
	assert.NotErrorIs(t, err, ErrConstraintViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CommitFailureSurfaces(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := New[note, noteCreate, noteUpdate](sqlx.NewDb(raw, "sqlmock"), notes)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO notes`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "slug"}).AddRow(1, "t", nil, "s"))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	_, err = s.Create(context.Background(), noteCreate{Title: "t", Slug: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	require.NoError(t, classify(nil))
	err := classify(errors.New("x"))
	assert.EqualError(t, err, "db error: x")
}
