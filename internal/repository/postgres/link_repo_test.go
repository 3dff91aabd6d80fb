package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/NordCoder/Shortly/internal/domain/link"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkCols = []string{"short_url", "original_url", "owner_id", "alias", "created_at", "expires_at"}

func TestLinkRepo_CreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery(regexp.QuoteMeta(qLinkInsert)).
		WithArgs("abcdefg", "https://example.com", int64(1), (*string)(nil), exp).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})

	err := repo.Create(context.Background(), &link.Link{
		ShortURL: "abcdefg", OriginalURL: "https://example.com", OwnerID: 1, ExpiresAt: exp,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLinkRepo_ListByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)
	now := time.Now().UTC()
	alias := "docs"

	mock.ExpectQuery(regexp.QuoteMeta(qLinkListByOwner)).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(linkCols).
			AddRow("aaaaaaa", "https://a.example", int64(2), &alias, now, now.Add(time.Hour)).
			AddRow("bbbbbbb", "https://b.example", int64(2), (*string)(nil), now, now.Add(time.Hour)))

	links, err := repo.ListByOwner(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.NotNil(t, links[0].Alias)
	assert.Equal(t, "docs", *links[0].Alias)
	assert.Nil(t, links[1].Alias)
}

func TestLinkRepo_UpdateAndDeleteNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(qLinkUpdate)).
		WithArgs("abcdefg", int64(3), "https://new.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(qLinkDelete)).
		WithArgs("abcdefg", int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.UpdateOriginal(context.Background(), 3, "abcdefg", "https://new.example"), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), 3, "abcdefg"), ErrNotFound)
}

func TestLinkRepo_StatsByCountry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(qLinkOwned)).
		WithArgs("abcdefg", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(qLinkStats)).
		WithArgs("abcdefg").
		WillReturnRows(pgxmock.NewRows([]string{"country_code", "clicks"}).
			AddRow("DE", int64(5)).
			AddRow("UN", int64(1)))

	stats, err := repo.StatsByCountry(context.Background(), 1, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, []link.CountryStat{
		{CountryCode: "DE", Clicks: 5},
		{CountryCode: "UN", Clicks: 1},
	}, stats)
}

func TestLinkRepo_StatsNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(qLinkOwned)).
		WithArgs("abcdefg", int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.StatsByCountry(context.Background(), 9, "abcdefg")
	assert.ErrorIs(t, err, ErrNotFound)
}
