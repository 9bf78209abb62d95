package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"business-matching-workers/internal/models"
)

var matchRowColumns = []string{
	"id", "pmi_id", "partner_id", "match_score", "match_reason", "status",
	"pmi_notes", "partner_notes", "pmi_rating", "partner_rating", "created_at", "updated_at",
}

func matchRows(status string, pmiRating interface{}) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(matchRowColumns).
		AddRow("m-1", "pmi-1", "p-1", 83.0, "good fit", status, "", "", pmiRating, nil, now, now)
}

func TestMatchStore_Create_New(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("SELECT (.+) FROM business_matches WHERE pmi_id = \\$1 AND partner_id = \\$2").
		WithArgs("pmi-1", "p-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO business_matches").
		WithArgs(sqlmock.AnyArg(), "pmi-1", "p-1", 83.0, "good fit", "suggested").
		WillReturnRows(matchRows("suggested", nil))

	m, created, err := store.Create(context.Background(), "pmi-1", "p-1", 83.0, "good fit")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.MatchSuggested, m.Status)
	assert.Nil(t, m.PMIRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchStore_Create_Existing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("SELECT (.+) FROM business_matches WHERE pmi_id").
		WithArgs("pmi-1", "p-1").
		WillReturnRows(matchRows("accepted", int64(4)))

	m, created, err := store.Create(context.Background(), "pmi-1", "p-1", 50, "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.MatchAccepted, m.Status)
	require.NotNil(t, m.PMIRating)
	assert.Equal(t, 4, *m.PMIRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchStore_Accept(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("UPDATE business_matches SET updated_at = NOW\\(\\), status = \\$1, partner_notes = \\$2 WHERE id = \\$3").
		WithArgs("accepted", "happy to talk", "m-1").
		WillReturnRows(matchRows("accepted", nil))

	m, err := store.Accept(context.Background(), "m-1", models.RolePartner, "happy to talk")
	require.NoError(t, err)
	assert.Equal(t, models.MatchAccepted, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchStore_Reject_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("UPDATE business_matches SET updated_at = NOW\\(\\), status = \\$1 WHERE id = \\$2").
		WithArgs("rejected", "m-404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Reject(context.Background(), "m-404", models.RolePMI, "")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchStore_Update(t *testing.T) {
	rating := 5
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("UPDATE business_matches SET updated_at = NOW\\(\\), status = \\$1, pmi_notes = \\$2, pmi_rating = \\$3 WHERE id = \\$4").
		WithArgs("meeting_scheduled", "call on monday", 5, "m-1").
		WillReturnRows(matchRows("meeting_scheduled", int64(5)))

	m, err := store.Update(context.Background(), "m-1", models.RolePMI, MatchUpdate{
		Status: models.MatchMeetingScheduled,
		Notes:  "call on monday",
		Rating: &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchMeetingScheduled, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchStore_Update_Validation(t *testing.T) {
	zero, six := 0, 6
	db, _ := newMockDB(t)
	store := NewMatchStore(db)
	ctx := context.Background()

	_, err := store.Update(ctx, "m-1", models.RolePMI, MatchUpdate{Rating: &zero})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = store.Update(ctx, "m-1", models.RolePMI, MatchUpdate{Rating: &six})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = store.Update(ctx, "m-1", models.RolePMI, MatchUpdate{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = store.Update(ctx, "m-1", models.Role("admin"), MatchUpdate{Notes: "x"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestMatchStore_ListForPMI(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM business_matches WHERE pmi_id = \\$1 AND status = \\$2 ORDER BY match_score DESC").
		WithArgs("pmi-1", "accepted").
		WillReturnRows(sqlmock.NewRows(matchRowColumns).
			AddRow("m-1", "pmi-1", "p-1", 90.0, "", "accepted", "", "", nil, nil, now, now).
			AddRow("m-2", "pmi-1", "p-2", 70.0, "", "accepted", "", "", nil, nil, now, now))

	matches, err := store.ListForPMI(context.Background(), "pmi-1", models.MatchAccepted)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m-1", matches[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchStore_ListForPartner_AllStatuses(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewMatchStore(db)

	mock.ExpectQuery("SELECT (.+) FROM business_matches WHERE partner_id = \\$1 ORDER BY match_score DESC").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(matchRowColumns))

	matches, err := store.ListForPartner(context.Background(), "p-1", "")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	_, err = store.ListForPartner(context.Background(), "p-1", "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
