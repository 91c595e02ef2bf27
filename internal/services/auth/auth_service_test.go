package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/testutil"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/utils"
)

func newService(t *testing.T) *Service {
	return NewService(testutil.NewDB(t), "test-secret", 60, logger.Discard())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	sess, err := s.Register(ctx, RegisterInput{Name: " Bea ", Email: "Bea@Example.com", Password: "secret1", Role: "buyer"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "bea@example.com", sess.User.Email)
	assert.Equal(t, "Bea", sess.User.Name)
	assert.Equal(t, models.RoleBuyer, sess.User.Role)
	assert.NotEqual(t, "secret1", sess.User.Password)

	claims, err := utils.ParseJWT("test-secret", sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID.String(), claims.UserID)
	assert.Equal(t, "BUYER", claims.Role)

	login, err := s.Login(ctx, "BEA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)
}

func TestRegisterTwiceConflicts(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	in := RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: "SELLER"}

	_, err := s.Register(ctx, in)
	require.NoError(t, err)

	in.Email = "SAM@example.com"
	_, err = s.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(t)
	cases := map[string]RegisterInput{
		"missing name":  {Email: "a@b.co", Password: "secret1", Role: "BUYER"},
		"bad email":     {Name: "A", Email: "nope", Password: "secret1", Role: "BUYER"},
		"short pass":    {Name: "A", Email: "a@b.co", Password: "123", Role: "BUYER"},
		"unknown role":  {Name: "A", Email: "a@b.co", Password: "secret1", Role: "ADMIN"},
		"missing role":  {Name: "A", Email: "a@b.co", Password: "secret1"},
		"missing email": {Name: "A", Password: "secret1", Role: "SELLER"},
	}
	for name, in := range cases {
		_, err := s.Register(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, RegisterInput{Name: "Bea", Email: "bea@example.com", Password: "secret1", Role: "BUYER"})
	require.NoError(t, err)

	_, errUnknown := s.Login(ctx, "ghost@example.com", "secret1")
	_, errWrong := s.Login(ctx, "bea@example.com", "wrong-pass")

	require.ErrorIs(t, errUnknown, apperr.ErrUnauthorized)
	require.ErrorIs(t, errWrong, apperr.ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	_, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestVerify(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	sess, err := s.Register(ctx, RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: "SELLER"})
	require.NoError(t, err)

	u, err := s.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	_, err = s.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	expired, err := utils.SignJWT("test-secret", sess.User.ID.String(), "SELLER", -1)
	require.NoError(t, err)
	_, err = s.Verify(ctx, expired)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, s.DB.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	_, err = s.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, s.DB.Delete(&models.User{}, "id = ?", u.ID).Error)
	_, err = s.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestSignInExternal(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.SignInExternal(ctx, "new@example.com", "New", "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := s.SignInExternal(ctx, "New@example.com", "New", "https://img/x.png", "seller")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, sess.User.Role)
	require.NotNil(t, sess.User.AvatarURL)

	// existing users keep their role
	again, err := s.SignInExternal(ctx, "new@example.com", "New", "", "BUYER")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)
	assert.Equal(t, models.RoleSeller, again.User.Role)
}
