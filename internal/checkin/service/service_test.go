package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"turnstile/internal/checkin/models"
	"turnstile/internal/checkin/service/mocks"
	"turnstile/internal/checkin/store/feed"
	"turnstile/internal/checkin/store/scanlog"
	"turnstile/internal/pass"
	regModels "turnstile/internal/registration/models"
	regstore "turnstile/internal/registration/store/registration"
	rosterService "turnstile/internal/roster/service"
	eventstore "turnstile/internal/roster/store/event"
	studentstore "turnstile/internal/roster/store/student"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/platform/tx"
	"turnstile/pkg/requestcontext"
)

type CheckInServiceSuite struct {
	suite.Suite
	ledger   *regstore.InMemoryRegistrationStore
	scanLog  *scanlog.InMemoryScanLogStore
	feed     *feed.InMemoryFeedStore
	service  *Service
	deviceID id.DeviceID

	studentID id.StudentID
	eventID   id.EventID
	reg       *regModels.Registration
	artifact  string
}

func (s *CheckInServiceSuite) SetupTest() {
	students := studentstore.New()
	events := eventstore.New()
	roster := rosterService.New(students, events)

	s.ledger = regstore.New()
	s.scanLog = scanlog.New()
	s.feed = feed.NewInMemory(10)
	s.deviceID = id.DeviceID(uuid.New())

	s.service = New(s.ledger, s.scanLog, roster, tx.NewShardedRunner(),
		WithFeed(s.feed),
		WithGracePeriod(time.Hour),
	)

	ctx := context.Background()
	student, err := roster.CreateStudent(ctx, "Ada Lovelace", "S-1001", "ada@example.edu")
	require.NoError(s.T(), err)
	s.studentID = student.ID

	now := time.Now().UTC()
	event, err := roster.CreateEvent(ctx, "Orientation", "Main Hall", now.Add(-time.Hour), now.Add(time.Hour), 0)
	require.NoError(s.T(), err)
	s.eventID = event.ID

	reg, err := regModels.NewRegistration(id.RegistrationID(uuid.New()), s.studentID, s.eventID, "reg-secret", now)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.ledger.Create(ctx, reg))
	s.reg = reg
	s.artifact = pass.Encode(reg.ID, reg.Secret)
}

func (s *CheckInServiceSuite) scanCtx() context.Context {
	return requestcontext.WithDeviceID(context.Background(), s.deviceID)
}

func (s *CheckInServiceSuite) records() []models.CheckInRecord {
	records, err := s.scanLog.ListByRegistration(context.Background(), s.reg.ID)
	require.NoError(s.T(), err)
	return records
}

func (s *CheckInServiceSuite) TestAccepted() {
	at := time.Now().UTC()
	ctx := requestcontext.WithTime(s.scanCtx(), at)

	result, err := s.service.AttemptCheckIn(ctx, s.artifact)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeAccepted, result.Outcome)
	assert.Equal(s.T(), "Ada Lovelace", result.StudentName)
	assert.Equal(s.T(), "Orientation", result.EventTitle)
	require.NotNil(s.T(), result.CheckedInAt)
	assert.Equal(s.T(), at, *result.CheckedInAt)

	reg, err := s.ledger.FindByID(ctx, s.reg.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), regModels.StatusCheckedIn, reg.Status)
	assert.Equal(s.T(), s.deviceID, reg.CheckedInBy)

	records := s.records()
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), id.OutcomeAccepted, records[0].Outcome)
	assert.Equal(s.T(), s.deviceID, records[0].DeviceID)

	entries, err := s.feed.Recent(ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "Ada Lovelace", entries[0].StudentName)
}

func (s *CheckInServiceSuite) TestDuplicateReportsOriginalTime() {
	first := time.Now().UTC()
	_, err := s.service.AttemptCheckIn(requestcontext.WithTime(s.scanCtx(), first), s.artifact)
	require.NoError(s.T(), err)

	result, err := s.service.AttemptCheckIn(requestcontext.WithTime(s.scanCtx(), first.Add(time.Minute)), s.artifact)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeDuplicate, result.Outcome)
	assert.Equal(s.T(), models.ReasonAlreadyCheckedIn, result.Reason)
	require.NotNil(s.T(), result.CheckedInAt)
	assert.Equal(s.T(), first, *result.CheckedInAt)

	records := s.records()
	require.Len(s.T(), records, 2)
	assert.Equal(s.T(), id.OutcomeAccepted, records[0].Outcome)
	assert.Equal(s.T(), id.OutcomeDuplicate, records[1].Outcome)

	// The duplicate never reaches the feed.
	entries, err := s.feed.Recent(context.Background(), 10)
	require.NoError(s.T(), err)
	assert.Len(s.T(), entries, 1)
}

func (s *CheckInServiceSuite) TestMalformedArtifact() {
	result, err := s.service.AttemptCheckIn(s.scanCtx(), "not-a-pass")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeInvalid, result.Outcome)
	assert.Equal(s.T(), models.ReasonMalformedArtifact, result.Reason)
	assert.True(s.T(), result.RegistrationID.IsZero())

	// Recorded without a registration; the artifact never resolved to one.
	records, err := s.scanLog.ListByRegistration(context.Background(), id.RegistrationID{})
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), models.ReasonMalformedArtifact, records[0].Reason)
}

func (s *CheckInServiceSuite) TestUnknownRegistration() {
	unknown := pass.Encode(id.RegistrationID(uuid.New()), "whatever")
	result, err := s.service.AttemptCheckIn(s.scanCtx(), unknown)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeInvalid, result.Outcome)
	assert.Equal(s.T(), models.ReasonUnknownRegistration, result.Reason)
}

func (s *CheckInServiceSuite) TestForgedArtifact() {
	forged := pass.Encode(s.reg.ID, "wrong-secret")
	result, err := s.service.AttemptCheckIn(s.scanCtx(), forged)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeInvalid, result.Outcome)
	assert.Equal(s.T(), models.ReasonVerificationFailed, result.Reason)

	// The registration stays issued; a forgery must not burn the pass.
	reg, err := s.ledger.FindByID(context.Background(), s.reg.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), regModels.StatusIssued, reg.Status)
}

func (s *CheckInServiceSuite) TestVoidedRegistration() {
	require.NoError(s.T(), s.ledger.SetVoid(context.Background(), s.reg.ID, time.Now().UTC()))

	result, err := s.service.AttemptCheckIn(s.scanCtx(), s.artifact)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeInvalid, result.Outcome)
	assert.Equal(s.T(), models.ReasonRegistrationVoided, result.Reason)
}

func (s *CheckInServiceSuite) TestWindowClosed() {
	late := time.Now().UTC().Add(6 * time.Hour)
	ctx := requestcontext.WithTime(s.scanCtx(), late)

	result, err := s.service.AttemptCheckIn(ctx, s.artifact)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), id.OutcomeExpired, result.Outcome)
	assert.Equal(s.T(), models.ReasonWindowClosed, result.Reason)
	assert.Equal(s.T(), "Orientation", result.EventTitle)

	records := s.records()
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), id.OutcomeExpired, records[0].Outcome)
}

func TestCheckInServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckInServiceSuite))
}

// TestConcurrentScansExactlyOneAccepted races many devices at one pass:
// exactly one scan wins, the rest observe duplicate, and the log holds one
// record per attempt.
func TestConcurrentScansExactlyOneAccepted(t *testing.T) {
	students := studentstore.New()
	events := eventstore.New()
	roster := rosterService.New(students, events)
	ledger := regstore.New()
	scanLog := scanlog.New()
	svc := New(ledger, scanLog, roster, tx.NewShardedRunner(), WithGracePeriod(time.Hour))

	ctx := context.Background()
	student, err := roster.CreateStudent(ctx, "Grace Hopper", "S-2002", "grace@example.edu")
	require.NoError(t, err)
	now := time.Now().UTC()
	event, err := roster.CreateEvent(ctx, "Career Fair", "Gym", now.Add(-time.Hour), now.Add(time.Hour), 0)
	require.NoError(t, err)

	reg, err := regModels.NewRegistration(id.RegistrationID(uuid.New()), student.ID, event.ID, "reg-secret", now)
	require.NoError(t, err)
	require.NoError(t, ledger.Create(ctx, reg))
	artifact := pass.Encode(reg.ID, reg.Secret)

	const goroutines = 40
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		duplicate int
	)
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			scanCtx := requestcontext.WithDeviceID(context.Background(), id.DeviceID(uuid.New()))
			result, err := svc.AttemptCheckIn(scanCtx, artifact)
			if !assert.NoError(t, err, fmt.Sprintf("scan %d", i)) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch result.Outcome {
			case id.OutcomeAccepted:
				accepted++
			case id.OutcomeDuplicate:
				duplicate++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, goroutines-1, duplicate)

	records, err := scanLog.ListByRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, records, goroutines)
	acceptedRecords := 0
	for _, r := range records {
		if r.Outcome == id.OutcomeAccepted {
			acceptedRecords++
		}
	}
	assert.Equal(t, 1, acceptedRecords)
}

// TestLedgerUnavailableFailsClosed injects a lookup failure: the scan errors
// instead of guessing, and nothing is appended.
func TestLedgerUnavailableFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedger(ctrl)
	scanLog := mocks.NewMockScanLog(ctrl)
	roster := rosterService.New(studentstore.New(), eventstore.New())
	svc := New(ledger, scanLog, roster, tx.NewShardedRunner())

	regID := id.RegistrationID(uuid.New())
	artifact := pass.Encode(regID, "secret")
	ledger.EXPECT().FindByID(gomock.Any(), regID).Return(nil, fmt.Errorf("%w: down", sentinel.ErrUnavailable))

	_, err := svc.AttemptCheckIn(context.Background(), artifact)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// TestRecordAppendFailureFailsClosed injects an append failure on a rejected
// scan: an attempt that cannot be recorded must not be decided.
func TestRecordAppendFailureFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedger(ctrl)
	scanLog := mocks.NewMockScanLog(ctrl)
	roster := rosterService.New(studentstore.New(), eventstore.New())
	svc := New(ledger, scanLog, roster, tx.NewShardedRunner())

	scanLog.EXPECT().Append(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: down", sentinel.ErrUnavailable))

	_, err := svc.AttemptCheckIn(context.Background(), "not-a-pass")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
