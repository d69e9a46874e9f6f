package auth

import (
	"testing"

	"agrinerds-backend/internal/domain"
	"agrinerds-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func validSignup() SignupInput {
	return SignupInput{
		Fullname: "Ravi Kumar",
		Email:    "Ravi@Example.com",
		Password: "Str0ng!Pass",
		Role:     constants.RoleFarmer,
	}
}

func TestSignupUser(t *testing.T) {
	db := setupAuthDB(t)

	u, err := SignupUser(db, validSignup())
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "ravi@example.com", u.Email)
	assert.Equal(t, constants.RoleFarmer, u.Role)
	assert.NotEmpty(t, u.UserID)
	assert.NotEqual(t, "Str0ng!Pass", u.PasswordHash)
}

func TestSignupUser_DuplicateEmail(t *testing.T) {
	db := setupAuthDB(t)
	_, err := SignupUser(db, validSignup())
	require.NoError(t, err)

	_, err = SignupUser(db, validSignup())
	assert.Equal(t, ErrEmailRegistered, err)
}

func TestSignupUser_Validation(t *testing.T) {
	db := setupAuthDB(t)

	in := validSignup()
	in.Fullname = " "
	_, err := SignupUser(db, in)
	assert.Equal(t, ErrInvalidFullname, err)

	in = validSignup()
	in.Email = "not-an-email"
	_, err = SignupUser(db, in)
	assert.Equal(t, ErrInvalidEmailFormat, err)

	in = validSignup()
	in.Password = "short"
	_, err = SignupUser(db, in)
	assert.Equal(t, ErrInvalidPasswordFormat, err)

	in = validSignup()
	in.Role = "admin"
	_, err = SignupUser(db, in)
	assert.Equal(t, ErrInvalidRole, err)
}

func TestLoginUser(t *testing.T) {
	db := setupAuthDB(t)
	created, err := SignupUser(db, validSignup())
	require.NoError(t, err)

	u, err := LoginUser(db, LoginInput{Email: "ravi@example.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.Equal(t, created.UserID, u.UserID)

	// email lookup is case-insensitive
	u, err = LoginUser(db, LoginInput{Email: "RAVI@example.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.Equal(t, created.UserID, u.UserID)
}

func TestLoginUser_Failures(t *testing.T) {
	db := setupAuthDB(t)
	_, err := SignupUser(db, validSignup())
	require.NoError(t, err)

	_, err = LoginUser(db, LoginInput{Email: "", Password: ""})
	assert.Equal(t, ErrEmailPasswordRequired, err)

	_, err = LoginUser(db, LoginInput{Email: "nobody@example.com", Password: "Str0ng!Pass"})
	assert.Equal(t, ErrInvalidEmail, err)

	_, err = LoginUser(db, LoginInput{Email: "ravi@example.com", Password: "wrong-password"})
	assert.Equal(t, ErrIncorrectPassword, err)
}

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":  "550e8400-e29b-41d4-a716-446655440000",
		"fullname": "Test User",
		"email":    "test@example.com",
		"role":     constants.RoleCompany,
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.UserID)
	assert.Equal(t, "Test User", u.Fullname)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, constants.RoleCompany, u.Role)
}
