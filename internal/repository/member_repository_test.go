package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parishhub/chms-api/internal/models"
)

func newMemberMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func memberRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "ministry_id", "user_id", "role", "active", "available_days", "max_consecutive_shifts", "created_at", "updated_at", "full_name", "email", "phone"}).
		AddRow("m1", "min-1", "u1", models.MemberRoleVolunteer, true, "{sunday,wednesday}", 2, now, now, "Ana Souza", "ana@parish.org", "")
}

func TestMemberRepositoryList(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery("SELECT mm.id, mm.ministry_id").
		WithArgs("min-1", "%ana%").
		WillReturnRows(memberRows())
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("min-1", "%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	members, total, err := repo.List(context.Background(), models.MemberFilter{MinistryID: "min-1", Search: "Ana"})
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"sunday", "wednesday"}, []string(members[0].AvailableDays))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryListActiveByMinistry(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery("WHERE mm.ministry_id = \\$1 AND mm.active = true").
		WithArgs("min-1").
		WillReturnRows(memberRows())

	members, err := repo.ListActiveByMinistry(context.Background(), "min-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, "Ana Souza", members[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryExistsByUser(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("min-1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByUser(context.Background(), "min-1", "u1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryExistsByUserMissing(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("min-1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByUser(context.Background(), "min-1", "u2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryHasActiveLead(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND role = $2 AND active = true LIMIT 1")).
		WithArgs("min-1", models.MemberRoleLead).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	has, err := repo.HasActiveLead(context.Background(), "min-1", "")
	require.NoError(t, err)
	assert.True(t, has)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryHasActiveLeadExcludesMember(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ministry_members WHERE ministry_id = $1 AND role = $2 AND active = true AND id <> $3 LIMIT 1")).
		WithArgs("min-1", models.MemberRoleLead, "m1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	has, err := repo.HasActiveLead(context.Background(), "min-1", "m1")
	require.NoError(t, err)
	assert.False(t, has)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectExec("INSERT INTO ministry_members").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	member := &models.MinistryMember{MinistryID: "min-1", UserID: "u1", Role: models.MemberRoleVolunteer, Active: true}
	err := repo.Create(context.Background(), member)
	require.NoError(t, err)
	assert.NotEmpty(t, member.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newMemberMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(40, 35))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, counts.Total)
	assert.Equal(t, 35, counts.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}
