// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nsa-scheduler/internal/common/logger"
	"nsa-scheduler/internal/ledger"
	"nsa-scheduler/internal/models"
	"nsa-scheduler/internal/notify"
	"nsa-scheduler/internal/platform"
)

// fakeAPI scripts slot-search and create responses per call, in order.
type fakeAPI struct {
	slots      []string // one per FirstAvailableSlot call; "" means no slot
	slotErr    error
	createErr  error
	createUUID string

	slotRequests   []*platform.SlotSearchRequest
	createRequests []*platform.AppointmentRequest
}

func (f *fakeAPI) FirstAvailableSlot(_ context.Context, _ string, req *platform.SlotSearchRequest) (*platform.SlotSearchResponse, error) {
	f.slotRequests = append(f.slotRequests, req)
	if f.slotErr != nil {
		return nil, f.slotErr
	}
	idx := len(f.slotRequests) - 1
	if idx >= len(f.slots) {
		return &platform.SlotSearchResponse{}, nil
	}
	return &platform.SlotSearchResponse{DateTime: f.slots[idx]}, nil
}

func (f *fakeAPI) CreateAppointment(_ context.Context, _ string, req *platform.AppointmentRequest) (*platform.AppointmentResponse, error) {
	f.createRequests = append(f.createRequests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &platform.AppointmentResponse{AppointmentUUID: f.createUUID}, nil
}

type fakeNotifier struct {
	result   notify.Result
	requests []*notify.Request
}

func (f *fakeNotifier) Send(_ context.Context, req *notify.Request) notify.Result {
	f.requests = append(f.requests, req)
	return f.result
}

type fakeDealers struct {
	contexts map[string]*models.DealerContext
}

func (f *fakeDealers) Get(dealerID string) (*models.DealerContext, bool) {
	dc, ok := f.contexts[dealerID]
	return dc, ok
}

func testDealerContext() *models.DealerContext {
	return &models.DealerContext{
		DealerID:       "501",
		Name:           "Riverside Motors",
		DealerUUID:     "dealer-uuid",
		DepartmentUUID: "dept-uuid",
		SlotSizeMins:   15,
		ValidOpcodes: map[string]string{
			"OIL01": "Oil and filter change",
			"NSA01": "Next service appointment",
		},
		DefaultNSAOpcode:      "NSA01",
		ServiceIntervalMonths: 6,
	}
}

func testRow() *models.OrderRow {
	return &models.OrderRow{
		DealerID:          "501",
		RONumber:          "RO-1",
		CustomerFirstName: "Ada",
		CustomerLastName:  "Lovelace",
		CustomerUUID:      "cust-1",
		VehicleUUID:       "veh-1",
		VIN:               "VIN-1",
		Opcodes:           "OIL01,UNKNOWN",
		ROCloseDate:       "2024-02-01",
	}
}

func successResult() notify.Result {
	return notify.Result{
		Text:    notify.Outcome{Status: models.NotifyStatusSuccess},
		Email:   notify.Outcome{Status: models.NotifyStatusSuccess},
		Overall: models.OverallSuccess,
	}
}

type fixture struct {
	api      *fakeAPI
	notifier *fakeNotifier
	ledger   *ledger.Ledger
	sched    *Scheduler
	confirms int
	answer   bool
}

func newFixture(t *testing.T, api *fakeAPI) *fixture {
	f := &fixture{
		api:      api,
		notifier: &fakeNotifier{result: successResult()},
		answer:   true,
	}
	log := logger.NewTestLogger(t)
	f.ledger = ledger.New(ledger.NewFileStore(filepath.Join(t.TempDir(), "ledger.json")), log)

	dealers := &fakeDealers{contexts: map[string]*models.DealerContext{"501": testDealerContext()}}
	cfg := Config{Retry: FixedDelayPolicy(2, 0), RowDelay: 0}

	f.sched = New(api, f.notifier, dealers, f.ledger, cfg, func([]ledger.Entry) bool {
		f.confirms++
		return f.answer
	}, log)
	f.sched.sleep = func(time.Duration) {}
	f.sched.now = func() time.Time {
		return time.Date(2024, 7, 15, 8, 0, 0, 0, time.UTC)
	}
	return f
}

func TestRun_SuccessPath(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	row := testRow()
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 1, Succeeded: 1}, summary)
	assert.Equal(t, models.ApptStatusSuccess, row.NSAStatus)
	assert.Equal(t, "2024-08-01 09:50:00", row.NSADate)
	assert.Equal(t, "appt-1", row.NSAUUID)
	assert.Equal(t, models.NotifyStatusSuccess, row.TextStatus)
	assert.Equal(t, models.NotifyStatusSuccess, row.EmailStatus)

	_, dup := f.ledger.IsDuplicate("RO-1")
	assert.True(t, dup)

	require.Len(t, f.notifier.requests, 1)
	assert.Equal(t, "2024-08-01", f.notifier.requests[0].ApptDate)
	assert.Equal(t, "09:50:00", f.notifier.requests[0].ApptTime)
	assert.Equal(t, "Riverside Motors", f.notifier.requests[0].DealerName)
}

func TestRun_EndTimeIsStartPlusSlotMinusOneSecond(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	_, err := f.sched.Run(context.Background(), []*models.OrderRow{testRow()})
	require.NoError(t, err)

	require.Len(t, api.createRequests, 1)
	info := api.createRequests[0].AppointmentInformation
	assert.Equal(t, "2024-08-01T09:50:00", info.AppointmentStartDateTime)
	assert.Equal(t, "2024-08-01T10:04:59", info.AppointmentEndDateTime)
	assert.True(t, info.PushToDMS)
}

func TestRun_OpcodesFilteredAndDefaultAppended(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	_, err := f.sched.Run(context.Background(), []*models.OrderRow{testRow()})
	require.NoError(t, err)

	require.Len(t, api.slotRequests, 1)
	assert.Equal(t, []string{"OIL01", "NSA01"}, api.slotRequests[0].LaborOpcodeList)

	require.Len(t, api.createRequests, 1)
	services := api.createRequests[0].AppointmentInformation.ServiceList
	require.Len(t, services, 2)
	assert.Equal(t, "OIL01", services[0].Title)
	assert.Equal(t, "OPCODE", services[0].OperationType)
	assert.Equal(t, "Oil and filter change", services[0].Description)
}

func TestRun_TargetDateIsCloseDatePlusInterval(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	_, err := f.sched.Run(context.Background(), []*models.OrderRow{testRow()})
	require.NoError(t, err)

	// 2024-02-01 plus 6 months.
	require.Len(t, api.slotRequests, 1)
	assert.Equal(t, []string{"2024-08-01"}, api.slotRequests[0].Dates)
}

func TestRun_PastTargetClampedToToday(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-07-15 10:00:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	row := testRow()
	row.ROCloseDate = "2023-01-10"
	_, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	require.Len(t, api.slotRequests, 1)
	assert.Equal(t, []string{"2024-07-15"}, api.slotRequests[0].Dates)
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	api := &fakeAPI{slots: []string{"", "2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	row := testRow()
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Len(t, api.slotRequests, 2)
	assert.Equal(t, models.ApptStatusSuccess, row.NSAStatus)
}

func TestRun_ExhaustedAttemptsFailRow(t *testing.T) {
	api := &fakeAPI{slots: []string{"", ""}}
	f := newFixture(t, api)

	row := testRow()
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, models.ApptStatusFailed, row.NSAStatus)
	assert.Empty(t, row.NSADate)
	assert.Empty(t, row.NSAUUID)
	assert.Equal(t, models.NotifyStatusNotAttempted, row.TextStatus)
	assert.Equal(t, models.NotifyStatusNotAttempted, row.EmailStatus)
	assert.Len(t, api.slotRequests, 2)
	assert.Empty(t, f.notifier.requests)

	_, dup := f.ledger.IsDuplicate("RO-1")
	assert.False(t, dup)
}

func TestRun_CreateFailureConsumesAttempt(t *testing.T) {
	api := &fakeAPI{
		slots:     []string{"2024-08-01 09:50:00", "2024-08-01 09:50:00"},
		createErr: fmt.Errorf("boom"),
	}
	f := newFixture(t, api)

	row := testRow()
	_, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, models.ApptStatusFailed, row.NSAStatus)
	assert.Len(t, api.createRequests, 2)
}

func TestRun_UnknownDealerSkipsNotifications(t *testing.T) {
	api := &fakeAPI{}
	f := newFixture(t, api)

	row := testRow()
	row.DealerID = "999"
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, models.ApptStatusFailed, row.NSAStatus)
	assert.Equal(t, models.NotifyStatusSkipped, row.TextStatus)
	assert.Equal(t, models.NotifyStatusSkipped, row.EmailStatus)
	assert.Empty(t, api.slotRequests)
}

func TestRun_EmptyCreateResponseDefaultsUUID(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: ""}
	f := newFixture(t, api)

	row := testRow()
	_, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, "Success", row.NSAUUID)
}

func TestRun_MalformedSlotDateTimeRetries(t *testing.T) {
	api := &fakeAPI{slots: []string{"garbage", "2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	row := testRow()
	_, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, models.ApptStatusSuccess, row.NSAStatus)
	assert.Len(t, api.slotRequests, 2)
}

func TestRun_DuplicateDeclineAbortsWholeBatch(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)
	f.answer = false
	f.ledger.Record("RO-1", "Ada", "Lovelace", "501", "appt-old")

	fresh := testRow()
	fresh.RONumber = "RO-2"
	_, err := f.sched.Run(context.Background(), []*models.OrderRow{testRow(), fresh})

	assert.ErrorIs(t, err, ErrBatchAborted)
	assert.Equal(t, 1, f.confirms)
	// The abort covers the whole batch, including non-duplicates.
	assert.Empty(t, api.slotRequests)
	assert.Empty(t, api.createRequests)
}

func TestRun_DuplicateAcceptedProceeds(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-new"}
	f := newFixture(t, api)
	f.ledger.Record("RO-1", "Ada", "Lovelace", "501", "appt-old")

	row := testRow()
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, 1, f.confirms)
	assert.Equal(t, 1, summary.Succeeded)

	entry, dup := f.ledger.IsDuplicate("RO-1")
	require.True(t, dup)
	assert.Equal(t, "appt-new", entry.AppointmentID)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestRun_NoDuplicatesSkipsConfirmation(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)

	_, err := f.sched.Run(context.Background(), []*models.OrderRow{testRow()})
	require.NoError(t, err)

	assert.Zero(t, f.confirms)
}

func TestRun_NotificationFailureDoesNotFailRow(t *testing.T) {
	api := &fakeAPI{slots: []string{"2024-08-01 09:50:00"}, createUUID: "appt-1"}
	f := newFixture(t, api)
	f.notifier.result = notify.Result{
		Text:    notify.Outcome{Status: models.NotifyStatusFailed},
		Email:   notify.Outcome{Status: models.NotifyStatusSuccess},
		Overall: models.OverallPartialFailed,
	}

	row := testRow()
	summary, err := f.sched.Run(context.Background(), []*models.OrderRow{row})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, models.ApptStatusSuccess, row.NSAStatus)
	assert.Equal(t, models.NotifyStatusFailed, row.TextStatus)
	assert.Equal(t, models.NotifyStatusSuccess, row.EmailStatus)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain", "2024-02-01", 6, "2024-08-01"},
		{"year rollover", "2024-09-15", 6, "2025-03-15"},
		{"clamps to leap february", "2024-01-31", 1, "2024-02-29"},
		{"clamps to short month", "2024-08-31", 6, "2025-02-28"},
		{"end of month preserved when it fits", "2024-04-30", 1, "2024-05-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := time.Parse("2006-01-02", tt.start)
			require.NoError(t, err)
			got := addMonths(start, tt.months)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}
