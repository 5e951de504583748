package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"folio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

const findByUsernameSQL = `SELECT * FROM "users" WHERE username = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		username      string
		mockBehavior  func()
		expectedUser  *models.User
		expectedError bool
	}{
		{
			name:     "Found",
			username: "alice",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
					AddRow(1, "alice", "a@x.com", "$2a$10$hash")
				mock.ExpectQuery(regexp.QuoteMeta(findByUsernameSQL)).
					WithArgs("alice", 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "alice", Email: "a@x.com"},
		},
		{
			name:     "Miss is not an error",
			username: "ghost",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(findByUsernameSQL)).
					WithArgs("ghost", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
		},
		{
			name:     "Database error",
			username: "alice",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(findByUsernameSQL)).
					WithArgs("alice", 1).
					WillReturnError(errors.New("connection timeout"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.FindByUsername(ctx, tt.username)

			switch {
			case tt.expectedError:
				assert.Error(t, err)
				assert.Equal(t, models.CodePersistence, models.ErrorCode(err))
				assert.Nil(t, user)
			case tt.expectedUser == nil:
				assert.NoError(t, err)
				assert.Nil(t, user)
			default:
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.Equal(t, tt.expectedUser.Username, user.Username)
				assert.Equal(t, tt.expectedUser.Email, user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ExistsByUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users" WHERE username = $1 AND "users"."deleted_at" IS NULL`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		user := &models.User{Username: "alice", Email: "a@x.com", Password: "$2a$10$hash"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, user))
		assert.Equal(t, uint(7), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique violation", func(t *testing.T) {
		user := &models.User{Username: "alice", Password: "$2a$10$hash"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
		mock.ExpectRollback()

		err := repo.Save(ctx, user)
		assert.ErrorIs(t, err, ErrDuplicateUsername)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other failure", func(t *testing.T) {
		user := &models.User{Username: "bob", Password: "$2a$10$hash"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.Save(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateUsername)
		assert.Equal(t, models.CodePersistence, models.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23502"}))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.username")))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueConstraintError(errors.New("connection reset")))
}
