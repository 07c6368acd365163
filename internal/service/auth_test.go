package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/risk-assistant/internal/mocks"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/oauth"
	"github.com/pribylovaa/risk-assistant/internal/storage"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.st.EXPECT().UserByName(gomock.Any(), "alice").
		Return(&models.User{ID: 5, Name: "alice", IsActive: true, PasswordHash: env.mustHash(t, "secret-pw")}, nil)

	pair, err := env.svc.Login(context.Background(), "alice", "secret-pw")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, env.tokens.AccessTTL(), pair.AccessTTL)
	require.Equal(t, env.tokens.RefreshTTL(), pair.RefreshTTL)

	claims, err := env.tokens.Verify(context.Background(), pair.AccessToken, models.TokenAccess)
	require.NoError(t, err)
	require.Equal(t, "5", claims.Subject)
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		user    *models.User
		lookErr error
		want    error
	}{
		{name: "unknown_user", lookErr: storage.ErrNotFound, want: ErrInvalidCredentials},
		{name: "bad_password", user: &models.User{ID: 1, IsActive: true, PasswordHash: "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinvali"}, want: ErrInvalidCredentials},
		{name: "no_password_hash", user: &models.User{ID: 1, IsActive: true}, want: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newEnv(t)
			env.st.EXPECT().UserByName(gomock.Any(), "alice").Return(tt.user, tt.lookErr)

			_, err := env.svc.Login(context.Background(), "alice", "secret-pw")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_Inactive(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.st.EXPECT().UserByName(gomock.Any(), "bob").
		Return(&models.User{ID: 2, IsActive: false, PasswordHash: env.mustHash(t, "secret-pw")}, nil)

	_, err := env.svc.Login(context.Background(), "bob", "secret-pw")
	require.ErrorIs(t, err, ErrInactiveUser)
}

func TestLogin_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	boom := errors.New("db down")
	env.st.EXPECT().UserByName(gomock.Any(), "alice").Return(nil, boom)

	_, err := env.svc.Login(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	ctx := context.Background()
	env.st.EXPECT().UserByID(gomock.Any(), int64(9)).
		Return(&models.User{ID: 9, IsActive: true}, nil).Times(2)

	old, err := env.tokens.CreateRefresh(ctx, "9")
	require.NoError(t, err)

	pair, err := env.svc.Refresh(ctx, old)
	require.NoError(t, err)
	require.NotEqual(t, old, pair.RefreshToken)

	_, err = env.tokens.Verify(ctx, pair.RefreshToken, models.TokenRefresh)
	require.NoError(t, err)

	// Старый токен отозван.
	_, err = env.svc.Refresh(ctx, old)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Новый токен работает.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		env := newEnv(t)
		_, err := env.svc.Refresh(ctx, "")
		require.ErrorIs(t, err, ErrRefreshTokenMissing)
	})

	t.Run("garbage", func(t *testing.T) {
		env := newEnv(t)
		_, err := env.svc.Refresh(ctx, "not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
		require.NotErrorIs(t, err, ErrInvalidRefreshPayload)
	})

	t.Run("access_token_rejected", func(t *testing.T) {
		env := newEnv(t)
		access, err := env.tokens.CreateAccess(ctx, "1")
		require.NoError(t, err)

		_, err = env.svc.Refresh(ctx, access)
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("bad_subject", func(t *testing.T) {
		env := newEnv(t)
		raw, err := env.tokens.CreateRefresh(ctx, "abc")
		require.NoError(t, err)

		_, err = env.svc.Refresh(ctx, raw)
		require.ErrorIs(t, err, ErrInvalidRefreshPayload)
	})

	t.Run("user_missing", func(t *testing.T) {
		env := newEnv(t)
		env.st.EXPECT().UserByID(gomock.Any(), int64(3)).Return(nil, storage.ErrNotFound)
		raw, err := env.tokens.CreateRefresh(ctx, "3")
		require.NoError(t, err)

		_, err = env.svc.Refresh(ctx, raw)
		require.ErrorIs(t, err, ErrUserUnavailable)
	})

	t.Run("user_inactive", func(t *testing.T) {
		env := newEnv(t)
		env.st.EXPECT().UserByID(gomock.Any(), int64(3)).Return(&models.User{ID: 3}, nil)
		raw, err := env.tokens.CreateRefresh(ctx, "3")
		require.NoError(t, err)

		_, err = env.svc.Refresh(ctx, raw)
		require.ErrorIs(t, err, ErrUserUnavailable)
	})
}

func TestRefresh_Concurrent_ExactlyOnce(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	ctx := context.Background()
	env.st.EXPECT().UserByID(gomock.Any(), int64(4)).
		Return(&models.User{ID: 4, IsActive: true}, nil).AnyTimes()

	raw, err := env.tokens.CreateRefresh(ctx, "4")
	require.NoError(t, err)

	const n = 16
	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Refresh(ctx, raw)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInvalidRefreshToken):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), ok.Load())
	require.Equal(t, int32(n-1), rejected.Load())
}

func TestRefresh_StoreFailure_NotInvalidToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tokens := token.NewManager(testAuthCfg(), failingStore{})
	svc := New(mocks.NewMockStorage(ctrl), tokens, token.NewBcryptHasher(4))

	raw, err := tokens.CreateRefresh(context.Background(), "1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), raw)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	ctx := context.Background()

	access, err := env.tokens.CreateAccess(ctx, "1")
	require.NoError(t, err)
	refresh, err := env.tokens.CreateRefresh(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, access, refresh))

	_, err = env.tokens.Verify(ctx, access, models.TokenAccess)
	require.ErrorIs(t, err, token.ErrInvalidToken)
	_, err = env.tokens.Verify(ctx, refresh, models.TokenRefresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	// Повторный выход с теми же токенами не ошибка.
	require.NoError(t, env.svc.Logout(ctx, access, refresh))
}

func TestLogout_AbsentOrInvalidTokens_OK(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	require.NoError(t, env.svc.Logout(context.Background(), "", ""))
	require.NoError(t, env.svc.Logout(context.Background(), "garbage", "also-garbage"))
}

func TestLogout_StoreFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tokens := token.NewManager(testAuthCfg(), failingStore{})
	svc := New(mocks.NewMockStorage(ctrl), tokens, token.NewBcryptHasher(4))

	access, err := tokens.CreateAccess(context.Background(), "1")
	require.NoError(t, err)

	require.Error(t, svc.Logout(context.Background(), access, ""))
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.st.EXPECT().UserByID(gomock.Any(), int64(1)).
		Return(&models.User{ID: 1, Name: "alice", Email: "a@e.com", Role: "user", IsActive: true, PasswordHash: "h"}, nil)
	env.st.EXPECT().UserByID(gomock.Any(), int64(2)).Return(nil, storage.ErrNotFound)

	info, err := env.svc.UserInfo(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.UserInfo{ID: 1, Name: "alice", Email: "a@e.com", Role: "user", IsActive: true}, *info)

	_, err = env.svc.UserInfo(context.Background(), 2)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGoogle_Disabled(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	_, _, err := env.svc.GoogleAuthURL()
	require.ErrorIs(t, err, ErrOAuthDisabled)

	_, err = env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.ErrorIs(t, err, ErrOAuthDisabled)
}

func newGoogleEnv(t *testing.T) (*testEnv, *mocks.MockOAuthProvider) {
	t.Helper()

	env := newEnv(t)
	p := mocks.NewMockOAuthProvider(gomock.NewController(t))
	env.svc.SetOAuth(p)

	return env, p
}

func TestGoogleAuthURL_ReturnsFreshState(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().AuthURL(gomock.Any()).DoAndReturn(func(state string) string {
		return "https://accounts.example/auth?state=" + state
	}).Times(2)

	url1, state1, err := env.svc.GoogleAuthURL()
	require.NoError(t, err)
	require.NotEmpty(t, state1)
	require.True(t, strings.HasSuffix(url1, state1))

	_, state2, err := env.svc.GoogleAuthURL()
	require.NoError(t, err)
	require.NotEqual(t, state1, state2)
}

func TestGoogleLogin_StateChecks(t *testing.T) {
	t.Parallel()

	env, _ := newGoogleEnv(t)
	ctx := context.Background()

	_, err := env.svc.GoogleLogin(ctx, "code", "", "")
	require.ErrorIs(t, err, ErrOAuthState)

	_, err = env.svc.GoogleLogin(ctx, "code", "a", "b")
	require.ErrorIs(t, err, ErrOAuthState)

	_, err = env.svc.GoogleLogin(ctx, "", "a", "a")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGoogleLogin_UpstreamError_Propagated(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").
		Return(nil, &oauth.UpstreamError{Status: 401, Err: errors.New("invalid_grant")})

	_, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	var ue *oauth.UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, 401, ue.Status)
}

var googleIdent = &oauth.Identity{Subject: "g-123", Email: "carol@example.com", EmailVerified: true, Name: "Carol"}

func TestGoogleLogin_ExistingGoogleUser(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").Return(googleIdent, nil)
	env.st.EXPECT().UserByGoogleID(gomock.Any(), "g-123").
		Return(&models.User{ID: 11, IsActive: true, GoogleID: "g-123"}, nil)

	pair, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.NoError(t, err)

	claims, err := env.tokens.Verify(context.Background(), pair.AccessToken, models.TokenAccess)
	require.NoError(t, err)
	require.Equal(t, "11", claims.Subject)
}

func TestGoogleLogin_LinksByEmail(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").Return(googleIdent, nil)
	env.st.EXPECT().UserByGoogleID(gomock.Any(), "g-123").Return(nil, storage.ErrNotFound)
	env.st.EXPECT().UserByEmail(gomock.Any(), "carol@example.com").
		Return(&models.User{ID: 12, IsActive: true}, nil)
	env.st.EXPECT().UpdateUser(gomock.Any(), int64(12), gomock.Any()).
		DoAndReturn(func(_ context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
			require.NotNil(t, upd.GoogleID)
			require.Equal(t, "g-123", *upd.GoogleID)
			require.Nil(t, upd.Name)
			return &models.User{ID: id, IsActive: true, GoogleID: *upd.GoogleID}, nil
		})

	_, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.NoError(t, err)
}

func TestGoogleLogin_EmailLinkedToOtherAccount(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").Return(googleIdent, nil)
	env.st.EXPECT().UserByGoogleID(gomock.Any(), "g-123").Return(nil, storage.ErrNotFound)
	env.st.EXPECT().UserByEmail(gomock.Any(), "carol@example.com").
		Return(&models.User{ID: 12, IsActive: true, GoogleID: "g-other"}, nil)

	_, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.ErrorIs(t, err, ErrEmailConflict)
}

func TestGoogleLogin_UnverifiedEmailNotLinked(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").
		Return(&oauth.Identity{Subject: "attacker-sub", Email: "victim@example.com", EmailVerified: false}, nil)
	env.st.EXPECT().UserByGoogleID(gomock.Any(), "attacker-sub").Return(nil, storage.ErrNotFound)
	env.st.EXPECT().UserByEmail(gomock.Any(), "victim@example.com").
		Return(&models.User{ID: 42, Email: "victim@example.com", IsActive: true, PasswordHash: "h"}, nil)

	pair, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.ErrorIs(t, err, ErrEmailConflict)
	require.Nil(t, pair)
}

func TestGoogleLogin_CreatesUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		nameTaken bool
	}{
		{name: "free_name"},
		{name: "name_collision", nameTaken: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, p := newGoogleEnv(t)
			p.EXPECT().Exchange(gomock.Any(), "code").Return(googleIdent, nil)
			env.st.EXPECT().UserByGoogleID(gomock.Any(), "g-123").Return(nil, storage.ErrNotFound)
			env.st.EXPECT().UserByEmail(gomock.Any(), "carol@example.com").Return(nil, storage.ErrNotFound)
			if tt.nameTaken {
				env.st.EXPECT().UserByName(gomock.Any(), "carol").Return(&models.User{ID: 1}, nil)
			} else {
				env.st.EXPECT().UserByName(gomock.Any(), "carol").Return(nil, storage.ErrNotFound)
			}

			var saved *models.User
			env.st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, u *models.User) error {
					u.ID = 77
					saved = u
					return nil
				})

			_, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
			require.NoError(t, err)

			require.Equal(t, "g-123", saved.GoogleID)
			require.Equal(t, models.RoleUser, saved.Role)
			require.Empty(t, saved.PasswordHash)
			require.True(t, saved.IsActive)
			if tt.nameTaken {
				require.Regexp(t, `^carol_[0-9a-f]{8}$`, saved.Name)
			} else {
				require.Equal(t, "carol", saved.Name)
			}
		})
	}
}

func TestGoogleLogin_InactiveUser(t *testing.T) {
	t.Parallel()

	env, p := newGoogleEnv(t)
	p.EXPECT().Exchange(gomock.Any(), "code").Return(googleIdent, nil)
	env.st.EXPECT().UserByGoogleID(gomock.Any(), "g-123").
		Return(&models.User{ID: 11, GoogleID: "g-123"}, nil)

	_, err := env.svc.GoogleLogin(context.Background(), "code", "s", "s")
	require.ErrorIs(t, err, ErrInactiveUser)
}
