package users

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"readersync/internal/clock"
	"readersync/internal/entities"
)

func setupTestRepo(t *testing.T) (*Repository, *clock.Fixed, func()) {
	dbPath := "./test_users_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.ResetToken{}))

	clk := clock.NewFixed(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	repo := NewRepository(db, clk)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return repo, clk, cleanup
}

func TestCreateAccount_And_VerifyCredentials(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateAccount("a@b.com", "secret-pass")
	require.NoError(t, err)
	assert.True(t, created)

	ok, err := repo.VerifyCredentials("a@b.com", "secret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	// Email lookup is case-insensitive; the password is not.
	ok, err = repo.VerifyCredentials("  A@B.COM ", "secret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyCredentials("a@b.com", "wrong-pass")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.VerifyCredentials("unknown@b.com", "secret-pass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateAccount_RejectsInvalidInput(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateAccount("not-an-email", "secret-pass")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateAccount("", "secret-pass")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateAccount("a@b.com", "short")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateAccount("a@b.com", "secret-pass")
	require.NoError(t, err)
	require.True(t, created)

	// Same account under a different spelling of the address.
	created, err = repo.CreateAccount("A@B.com", "another-pass")
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.AccountExists("a@B.COM")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSetPassword(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	created, err := repo.CreateAccount("a@b.com", "original-pass")
	require.NoError(t, err)
	require.True(t, created)

	ok, err := repo.SetPassword("a@b.com", "replacement-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyCredentials("a@b.com", "replacement-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.VerifyCredentials("a@b.com", "original-pass")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SetPassword("a@b.com", "short")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SetPassword("unknown@b.com", "replacement-pass")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetTokens_ConsumeOnce(t *testing.T) {
	repo, clk, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.CreateAccount("a@b.com", "secret-pass")
	require.NoError(t, err)

	expiry := clk.Now().Add(time.Hour)
	stored, err := repo.CreateResetToken("a@b.com", HashToken("plain-token"), expiry)
	require.NoError(t, err)
	assert.True(t, stored)

	// Re-storing the same hash for the same account is refused.
	stored, err = repo.CreateResetToken("a@b.com", HashToken("plain-token"), expiry)
	require.NoError(t, err)
	assert.False(t, stored)

	ok, err := repo.ConsumeResetToken("a@b.com", "plain-token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeResetToken("a@b.com", "plain-token")
	require.NoError(t, err)
	assert.False(t, ok, "a token is spent on first use")
}

func TestResetTokens_Expiry(t *testing.T) {
	repo, clk, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.CreateAccount("a@b.com", "secret-pass")
	require.NoError(t, err)

	stored, err := repo.CreateResetToken("a@b.com", HashToken("plain-token"), clk.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, stored)

	clk.Advance(2 * time.Hour)
	ok, err := repo.ConsumeResetToken("a@b.com", "plain-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetTokens_WrongTokenOrEmail(t *testing.T) {
	repo, clk, cleanup := setupTestRepo(t)
	defer cleanup()

	_, err := repo.CreateAccount("a@b.com", "secret-pass")
	require.NoError(t, err)

	stored, err := repo.CreateResetToken("a@b.com", HashToken("plain-token"), clk.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, stored)

	ok, err := repo.ConsumeResetToken("a@b.com", "other-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ConsumeResetToken("b@b.com", "plain-token")
	require.NoError(t, err)
	assert.False(t, ok)

	// The right token is still live afterwards.
	ok, err = repo.ConsumeResetToken("a@b.com", "plain-token")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.com"))
	assert.True(t, ValidEmail(" A@B.COM "))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("missing-at-sign"))
}

func TestPasswordHashing(t *testing.T) {
	salt, err := newSalt()
	require.NoError(t, err)
	assert.Len(t, salt, saltBytes*2)

	hash := hashPassword("secret-pass", salt)
	assert.Len(t, hash, keyBytes*2)
	assert.True(t, verifyPassword("secret-pass", salt, hash))
	assert.False(t, verifyPassword("other-pass", salt, hash))

	// Same password, fresh salt, different hash.
	salt2, err := newSalt()
	require.NoError(t, err)
	assert.NotEqual(t, hash, hashPassword("secret-pass", salt2))
}
