package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigredeye/catalystx/api"
	"github.com/bigredeye/catalystx/internal/config"
)

func TestSignupAndVerify(t *testing.T) {
	env := newTestEnv(t, 100)
	email := "ada@uni.edu"

	before := time.Now().UnixMilli()
	rec := env.do(t, http.MethodPost, "/api/auth/professor/signup",
		api.SignupRequest{Name: "Ada Lovelace", Email: " Ada@Uni.edu", Department: "CS"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[api.LoginResponse](t, rec)
	require.True(t, login.Ok)
	require.GreaterOrEqual(t, login.OTPStartTime, before)
	require.EqualValues(t, 600, login.ExpiresIn)

	code := env.mailer.code(email)
	require.Len(t, code, 6)

	rec = env.do(t, http.MethodPost, "/api/auth/professor/signup",
		api.SignupRequest{Name: "Ada", Email: email}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// A live code blocks resend.
	rec = env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: email}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = env.do(t, http.MethodGet, "/api/auth/professor/otp-status?email="+email, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[api.OTPStatusResponse](t, rec)
	require.Greater(t, status.Remaining, int64(590))
	require.Contains(t, status.Countdown, "Code expires in ")

	rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: "12ab56"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: wrong}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, decode[api.Status](t, rec).Ok)

	rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: code}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	verified := decode[api.VerifyOTPResponse](t, rec)
	require.True(t, verified.Ok)
	require.Equal(t, "/", verified.Redirect)
	cookies := rec.Result().Cookies()

	rec = env.do(t, http.MethodGet, "/api/projects", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The code was consumed.
	rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: code}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/professor/otp-status?email="+email, nil, nil)
	require.Equal(t, "Code expired", decode[api.OTPStatusResponse](t, rec).Countdown)

	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/projects", nil, rec.Result().Cookies())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "not an email"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/professor/signup", api.SignupRequest{Email: "ada@uni.edu"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/professor/otp-status", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTooManyAttempts(t *testing.T) {
	env := newTestEnv(t, 100)
	email := "ada@uni.edu"
	rec := env.do(t, http.MethodPost, "/api/auth/professor/signup", api.SignupRequest{Name: "Ada", Email: email}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	wrong := "000000"
	if env.mailer.code(email) == wrong {
		wrong = "111111"
	}
	for i := 0; i < 4; i++ {
		rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: wrong}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/auth/professor/verify-otp", api.VerifyOTPRequest{Email: email, OTP: wrong}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The exhausted code is gone, so a new one can be requested right away.
	rec = env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: email}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFailedEmailRevokesCode(t *testing.T) {
	env := newTestEnv(t, 100)
	env.mailer.err = errors.New("smtp down")

	rec := env.do(t, http.MethodPost, "/api/auth/professor/signup", api.SignupRequest{Name: "Ada", Email: "ada@uni.edu"}, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	env.mailer.err = nil
	rec = env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "ada@uni.edu"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "unsent code must not block a retry")
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Only auth endpoints are limited.
	rec = env.do(t, http.MethodGet, "/ping", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t, 2)

	limited := 0
	for i := 0; i < 10; i++ {
		rec := env.doHeaders(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil,
			map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)})
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	require.Equal(t, 8, limited, "untrusted peers cannot pick their own address")
}

func TestAuthRateLimitTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	env := newTestEnv(t, 2, func(conf *config.Config) {
		conf.Server.TrustedProxies = []string{"192.0.2.0/24"}
	})

	for i := 0; i < 5; i++ {
		rec := env.doHeaders(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil,
			map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)})
		require.Equal(t, http.StatusNotFound, rec.Code, "each forwarded client has its own window")
	}

	headers := map[string]string{"X-Forwarded-For": "10.0.0.200"}
	for i := 0; i < 2; i++ {
		rec := env.doHeaders(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil, headers)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := env.doHeaders(t, http.MethodPost, "/api/auth/professor/login", api.LoginRequest{Email: "nobody@uni.edu"}, nil, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
