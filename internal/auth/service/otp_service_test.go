package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/service"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var otpCfg = service.OtpConfig{
	Expiry:         60 * time.Second,
	ResendInterval: 60 * time.Second,
	Location:       time.UTC,
}

func issueInput(email string) service.IssueInput {
	return service.IssueInput{
		FirstName: "John",
		Email:     email,
		Subject:   "Verification",
		Message:   "Your one-time passcode for registration is",
	}
}

type otpFixture struct {
	svc      *service.OtpService
	store    *memOtpStore
	clock    *fakeClock
	notifier *recordingNotifier
}

func newOtpFixture(t *testing.T, cfg service.OtpConfig, phones domain.PhoneVerifier, codes ...int) *otpFixture {
	t.Helper()
	f := &otpFixture{
		store:    newMemOtpStore(),
		clock:    newFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)),
		notifier: &recordingNotifier{},
	}
	f.svc = service.NewOtpService(f.store, f.notifier, phones, cfg, zap.NewNop(),
		service.WithClock(f.clock.Now), service.WithCodeGenerator(sequence(codes...)))
	return f
}

func TestOtpService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("first issuance creates record and notifies", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 42)

		out, err := f.svc.Issue(ctx, issueInput("john@example.com"))
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", out.Email)
		assert.Equal(t, f.clock.Now().Add(time.Minute).UnixMilli(), out.ExpiryTime)

		rec, _ := f.store.GetByEmail(ctx, "john@example.com")
		require.NotNil(t, rec)
		assert.Equal(t, 42, rec.Code)
		assert.Equal(t, 1, rec.ResendAttempts)

		sent := f.notifier.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Verification", sent[0].Subject)
		assert.Equal(t, "Your one-time passcode for registration is 000042", sent[0].Body)
	})

	t.Run("resend inside interval is refused and keeps the first code", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 111111, 222222)

		_, err := f.svc.Issue(ctx, issueInput("john@example.com"))
		require.NoError(t, err)

		f.clock.Advance(30 * time.Second)
		_, err = f.svc.Issue(ctx, issueInput("john@example.com"))
		require.Error(t, err)
		assert.Equal(t, "please wait 30 seconds before resending otp", err.Error())
		assert.Equal(t, http.StatusTooManyRequests, autherror.StatusOf(err))
		assert.Len(t, f.notifier.Sent(), 1)

		require.NoError(t, f.svc.Verify(ctx, 111111, "john@example.com", nil))
	})

	t.Run("attempts count up within a day and reset the next day", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 1, 2, 3, 4)
		email := "john@example.com"

		for want := 1; want <= 3; want++ {
			_, err := f.svc.Issue(ctx, issueInput(email))
			require.NoError(t, err)
			rec, _ := f.store.GetByEmail(ctx, email)
			assert.Equal(t, want, rec.ResendAttempts)
			f.clock.Advance(61 * time.Second)
		}

		f.clock.Advance(24 * time.Hour)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)
		rec, _ := f.store.GetByEmail(ctx, email)
		assert.Equal(t, 1, rec.ResendAttempts)
	})

	t.Run("interval does not apply across midnight", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 7, 8)
		f.clock = newFakeClock(time.Date(2024, 3, 10, 23, 59, 40, 0, time.UTC))
		f.svc = service.NewOtpService(f.store, f.notifier, nil, otpCfg, zap.NewNop(),
			service.WithClock(f.clock.Now), service.WithCodeGenerator(sequence(7, 8)))

		_, err := f.svc.Issue(ctx, issueInput("john@example.com"))
		require.NoError(t, err)

		f.clock.Advance(30 * time.Second)
		_, err = f.svc.Issue(ctx, issueInput("john@example.com"))
		require.NoError(t, err)

		rec, _ := f.store.GetByEmail(ctx, "john@example.com")
		assert.Equal(t, 8, rec.Code)
		assert.Equal(t, 1, rec.ResendAttempts)
	})

	t.Run("code collision draws a new code", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 555555, 555555, 666666)

		_, err := f.svc.Issue(ctx, issueInput("a@example.com"))
		require.NoError(t, err)
		_, err = f.svc.Issue(ctx, issueInput("b@example.com"))
		require.NoError(t, err)

		rec, _ := f.store.GetByEmail(ctx, "b@example.com")
		assert.Equal(t, 666666, rec.Code)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockOtpRepository(ctrl)
		notifier := mocks.NewMockNotifier(ctrl)
		svc := service.NewOtpService(repo, notifier, nil, otpCfg, zap.NewNop())

		repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		_, err := svc.Issue(ctx, issueInput("john@example.com"))
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, autherror.StatusOf(err))
		assert.Equal(t, "connection reset", err.Error())
	})
}

func TestOtpService_Verify(t *testing.T) {
	ctx := context.Background()
	email := "john@example.com"

	t.Run("correct code consumes the record", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		require.NoError(t, f.svc.Verify(ctx, 123456, email, nil))
		rec, _ := f.store.GetByEmail(ctx, email)
		assert.Nil(t, rec)

		// nothing left to check, so a second attempt passes through
		assert.NoError(t, f.svc.Verify(ctx, 123456, email, nil))
	})

	t.Run("expired code is rejected and kept", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		f.clock.Advance(61 * time.Second)
		assert.Equal(t, autherror.ErrOtpExpired, f.svc.Verify(ctx, 123456, email, nil))

		rec, _ := f.store.GetByEmail(ctx, email)
		assert.NotNil(t, rec)
	})

	t.Run("wrong code without phone", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		assert.Equal(t, autherror.ErrInvalidPasscode, f.svc.Verify(ctx, 654321, email, nil))
		rec, _ := f.store.GetByEmail(ctx, email)
		assert.NotNil(t, rec)
	})

	t.Run("wrong code with verified phone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		phones := mocks.NewMockPhoneVerifier(ctrl)
		phone := "+14155552671"
		phones.EXPECT().IsPhoneVerified(gomock.Any(), phone).Return(true, nil)

		f := newOtpFixture(t, otpCfg, phones, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		assert.NoError(t, f.svc.Verify(ctx, 1, email, &phone))
		rec, _ := f.store.GetByEmail(ctx, email)
		assert.Nil(t, rec)
	})

	t.Run("wrong code with unverified phone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		phones := mocks.NewMockPhoneVerifier(ctrl)
		phone := "+14155552671"
		phones.EXPECT().IsPhoneVerified(gomock.Any(), phone).Return(false, nil)

		f := newOtpFixture(t, otpCfg, phones, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		assert.Equal(t, autherror.ErrInvalidPasscode, f.svc.Verify(ctx, 1, email, &phone))
	})

	t.Run("oracle failure counts as not verified", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		phones := mocks.NewMockPhoneVerifier(ctrl)
		phone := "+14155552671"
		phones.EXPECT().IsPhoneVerified(gomock.Any(), phone).Return(false, errors.New("quota exceeded"))

		f := newOtpFixture(t, otpCfg, phones, 123456)
		_, err := f.svc.Issue(ctx, issueInput(email))
		require.NoError(t, err)

		assert.Equal(t, autherror.ErrInvalidPasscode, f.svc.Verify(ctx, 1, email, &phone))
	})

	t.Run("missing record passes by default", func(t *testing.T) {
		f := newOtpFixture(t, otpCfg, nil, 1)
		assert.NoError(t, f.svc.Verify(ctx, 999999, "nobody@example.com", nil))
	})

	t.Run("missing record fails when required", func(t *testing.T) {
		cfg := otpCfg
		cfg.RequireRecord = true
		f := newOtpFixture(t, cfg, nil, 1)
		assert.Equal(t, autherror.ErrOtpNotFound, f.svc.Verify(ctx, 999999, "nobody@example.com", nil))
	})
}

func TestOtpService_Status(t *testing.T) {
	ctx := context.Background()
	email := "john@example.com"
	f := newOtpFixture(t, otpCfg, nil, 1, 2)

	status, err := f.svc.Status(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "no otp data found", status.Message)
	assert.Zero(t, status.ExpiryTime)
	assert.Zero(t, status.Attempts)

	_, err = f.svc.Issue(ctx, issueInput(email))
	require.NoError(t, err)

	f.clock.Advance(15*time.Second + 200*time.Millisecond)
	status, err = f.svc.Status(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "please wait 45 seconds before resending otp", status.Message)
	assert.Equal(t, 1, status.Attempts)

	f.clock.Advance(45 * time.Second)
	status, err = f.svc.Status(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "otp can be sent", status.Message)

	// status never mutates
	rec, _ := f.store.GetByEmail(ctx, email)
	assert.Equal(t, 1, rec.Code)
}

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "000000", service.FormatCode(0))
	assert.Equal(t, "004200", service.FormatCode(4200))
	assert.Equal(t, "999999", service.FormatCode(999999))
}

func TestOtpService_EmailCaseFolding(t *testing.T) {
	ctx := context.Background()
	f := newOtpFixture(t, otpCfg, nil, 111111, 222222)

	out, err := f.svc.Issue(ctx, issueInput(" John@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", out.Email)

	_, err = f.svc.Issue(ctx, issueInput("john@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, autherror.StatusOf(err))

	status, err := f.svc.Status(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Attempts)

	require.NoError(t, f.svc.Verify(ctx, 111111, "JOHN@EXAMPLE.COM", nil))
	rec, _ := f.store.GetByEmail(ctx, "john@example.com")
	assert.Nil(t, rec)
}

func TestOtpService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := newOtpFixture(t, otpCfg, nil, 1, 2)

	_, err := f.svc.Issue(ctx, issueInput("stale@example.com"))
	require.NoError(t, err)

	t.Run("keeps records inside retention", func(t *testing.T) {
		n, err := f.svc.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Issue(ctx, issueInput("fresh@example.com"))
	require.NoError(t, err)

	t.Run("drops stale records only", func(t *testing.T) {
		n, err := f.svc.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		stale, _ := f.store.GetByEmail(ctx, "stale@example.com")
		assert.Nil(t, stale)
		fresh, _ := f.store.GetByEmail(ctx, "fresh@example.com")
		assert.NotNil(t, fresh)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := mocks.NewMockOtpRepository(gomock.NewController(t))
		repo.EXPECT().DeleteExpired(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))
		svc := service.NewOtpService(repo, &recordingNotifier{}, nil, otpCfg, zap.NewNop())

		_, err := svc.PurgeExpired(ctx)
		assert.Equal(t, http.StatusInternalServerError, autherror.StatusOf(err))
	})
}

func TestOtpService_RunJanitor(t *testing.T) {
	repo := mocks.NewMockOtpRepository(gomock.NewController(t))
	clock := newFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := service.NewOtpService(repo, &recordingNotifier{}, nil, otpCfg, zap.NewNop(), service.WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	repo.EXPECT().DeleteExpired(gomock.Any(), clock.Now().Add(-24*time.Hour), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)).
		DoAndReturn(func(context.Context, time.Time, time.Time) (int64, error) {
			select {
			case called <- struct{}{}:
			default:
			}
			return 2, nil
		}).MinTimes(1)

	done := make(chan struct{})
	go func() {
		svc.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("janitor never purged")
	}
	cancel()
	<-done
}
