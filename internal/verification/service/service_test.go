package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"placeclaim/internal/verification/models"
	"placeclaim/internal/verification/store/memory"
	id "placeclaim/pkg/domain"
	dErrors "placeclaim/pkg/domain-errors"
	"placeclaim/pkg/requestcontext"
)

var issuedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

type capturingDispatcher struct {
	mu       sync.Mutex
	messages []string
	accept   bool
}

func (d *capturingDispatcher) Dispatch(_ context.Context, _, message string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	return d.accept
}

func (d *capturingDispatcher) lastCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) == 0 {
		return ""
	}
	m := codePattern.FindStringSubmatch(d.messages[len(d.messages)-1])
	if m == nil {
		return ""
	}
	return m[1]
}

type VerificationSuite struct {
	suite.Suite
	store      *memory.InMemoryStore
	dispatcher *capturingDispatcher
	service    *Service
	req        Request
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) SetupTest() {
	s.store = memory.New()
	s.dispatcher = &capturingDispatcher{accept: true}
	svc, err := New(s.store, s.dispatcher, WithHashCost(bcrypt.MinCost))
	s.Require().NoError(err)
	s.service = svc
	s.req = Request{
		ClaimID:     id.NewClaimID(),
		UserID:      id.UserID(uuid.New()),
		PhoneNumber: "+14155550167",
	}
}

func (s *VerificationSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *VerificationSuite) issue() string {
	_, err := s.service.Issue(s.at(issuedAt), s.req)
	s.Require().NoError(err)
	code := s.dispatcher.lastCode()
	s.Require().Len(code, 6)
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func (s *VerificationSuite) TestNew() {
	_, err := New(nil, s.dispatcher)
	s.Error(err)
	_, err = New(s.store, nil)
	s.Error(err)
}

func (s *VerificationSuite) TestIssue() {
	out, err := s.service.Issue(s.at(issuedAt), s.req)
	s.Require().NoError(err)
	s.Equal(issuedAt.Add(DefaultCodeTTL), out.ExpiresAt)
	s.Equal("**********67", out.MaskedPhone)
	s.Equal(0, out.ResendCount)

	stored, err := s.store.Latest(context.Background(), s.req.ClaimID)
	s.Require().NoError(err)
	s.Equal(models.StateIssued, stored.State)
	s.NotContains(string(stored.CodeHash), s.dispatcher.lastCode(), "only the hash is stored")
}

func (s *VerificationSuite) TestIssueFailsWhenDeliveryQueueIsFull() {
	s.dispatcher.accept = false
	_, err := s.service.Issue(s.at(issuedAt), s.req)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	s.dispatcher.accept = true
	_, err = s.service.Issue(s.at(issuedAt.Add(time.Minute)), s.req)
	s.NoError(err, "a later send succeeds once the queue drains")
}

func (s *VerificationSuite) TestVerify() {
	s.Run("correct code before expiry verifies", func() {
		code := s.issue()
		attempt, err := s.service.Verify(s.at(issuedAt.Add(9*time.Minute)), s.req.ClaimID, code)
		s.Require().NoError(err)
		s.Equal(models.StateVerified, attempt.State)
		s.NotNil(attempt.ResolvedAt)
	})

	s.Run("verified attempt cannot be checked again", func() {
		_, err := s.service.Verify(s.at(issuedAt.Add(9*time.Minute)), s.req.ClaimID, "123456")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *VerificationSuite) TestVerifyAfterExpiry() {
	code := s.issue()
	_, err := s.service.Verify(s.at(issuedAt.Add(DefaultCodeTTL)), s.req.ClaimID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	stored, err := s.store.Latest(context.Background(), s.req.ClaimID)
	s.Require().NoError(err)
	s.Equal(models.StateExpired, stored.State)

	_, err = s.service.Verify(s.at(issuedAt.Add(time.Minute)), s.req.ClaimID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired), "expired stays expired")
}

func (s *VerificationSuite) TestWrongCodeCountsFailure() {
	code := s.issue()
	_, err := s.service.Verify(s.at(issuedAt.Add(time.Minute)), s.req.ClaimID, wrongCode(code))
	s.True(dErrors.HasCode(err, dErrors.CodeMismatch))

	failed, err := s.service.CountFailedChecks(context.Background(), s.req.UserID)
	s.Require().NoError(err)
	s.Equal(1, failed)
}

func (s *VerificationSuite) TestSixthCheckIsExhaustedRegardlessOfCode() {
	code := s.issue()
	ctx := s.at(issuedAt.Add(time.Minute))
	for range DefaultMaxFailedChecks {
		_, err := s.service.Verify(ctx, s.req.ClaimID, wrongCode(code))
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMismatch))
	}

	_, err := s.service.Verify(ctx, s.req.ClaimID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted))

	stored, err := s.store.Latest(context.Background(), s.req.ClaimID)
	s.Require().NoError(err)
	s.Equal(models.StateExhausted, stored.State)
	s.Equal(DefaultMaxFailedChecks, stored.FailedChecks)
}

func (s *VerificationSuite) TestVerifyWithoutIssue() {
	_, err := s.service.Verify(s.at(issuedAt), s.req.ClaimID, "123456")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *VerificationSuite) TestResend() {
	s.Run("requires a prior code", func() {
		_, err := s.service.Resend(s.at(issuedAt), s.req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("supersedes the prior code", func() {
		first := s.issue()
		out, err := s.service.Resend(s.at(issuedAt.Add(2*time.Minute)), s.req)
		s.Require().NoError(err)
		s.Equal(1, out.ResendCount)
		second := s.dispatcher.lastCode()

		if first != second {
			_, err = s.service.Verify(s.at(issuedAt.Add(3*time.Minute)), s.req.ClaimID, first)
			s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
		}
		attempt, err := s.service.Verify(s.at(issuedAt.Add(3*time.Minute)), s.req.ClaimID, second)
		s.Require().NoError(err)
		s.Equal(1, attempt.ResendCount)
	})

	s.Run("refused once verified", func() {
		_, err := s.service.Resend(s.at(issuedAt.Add(5*time.Minute)), s.req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *VerificationSuite) TestExhaustedAttemptCannotBeRenewed() {
	code := s.issue()
	ctx := s.at(issuedAt.Add(time.Minute))
	for range DefaultMaxFailedChecks {
		_, _ = s.service.Verify(ctx, s.req.ClaimID, wrongCode(code))
	}
	sent := len(s.dispatcher.messages)

	_, err := s.service.Resend(ctx, s.req)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "resend: %v", err)

	_, err = s.service.Issue(ctx, s.req)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted), "issue: %v", err)

	_, err = s.service.Verify(ctx, s.req.ClaimID, code)
	s.True(dErrors.HasCode(err, dErrors.CodeExhausted))
	s.Len(s.dispatcher.messages, sent, "no new code goes out")

	stored, err := s.store.Latest(context.Background(), s.req.ClaimID)
	s.Require().NoError(err)
	s.Equal(models.StateExhausted, stored.State)
}

func (s *VerificationSuite) TestConcurrentChecksHaveOneWinner() {
	code := s.issue()
	ctx := s.at(issuedAt.Add(time.Minute))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Verify(ctx, s.req.ClaimID, code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeInvalidTransition), err.Error())
	}
	s.Equal(1, wins)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
			t.Fatalf("code %q is not six digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes are not random")
	}
}
