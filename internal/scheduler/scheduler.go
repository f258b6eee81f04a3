// Package scheduler drives the per-row slot-search/create/notify state
// machine over one pre-extracted batch of closed repair orders.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/common/logger"
	"nsa-scheduler/internal/common/metrics"
	"nsa-scheduler/internal/ledger"
	"nsa-scheduler/internal/models"
	"nsa-scheduler/internal/notify"
	"nsa-scheduler/internal/platform"
)

const internalNotes = "Next Service Appointment scheduled automatically."

// ErrBatchAborted is returned when the operator declines to proceed after the
// duplicate pre-check. No row is processed, not merely the duplicates.
var ErrBatchAborted = fmt.Errorf("batch aborted by operator after duplicate check")

// SlotAPI is the slice of the platform client the scheduler needs.
type SlotAPI interface {
	FirstAvailableSlot(ctx context.Context, departmentUUID string, req *platform.SlotSearchRequest) (*platform.SlotSearchResponse, error)
	CreateAppointment(ctx context.Context, dealerUUID string, req *platform.AppointmentRequest) (*platform.AppointmentResponse, error)
}

// Notifier dispatches the confirmation for a successfully created appointment.
type Notifier interface {
	Send(ctx context.Context, req *notify.Request) notify.Result
}

// ContextSource supplies resolved dealer contexts.
type ContextSource interface {
	Get(dealerID string) (*models.DealerContext, bool)
}

// ConfirmFunc asks the operator whether to proceed when previously scheduled
// RO numbers are found in the batch. Returning false halts the whole batch.
type ConfirmFunc func(duplicates []ledger.Entry) bool

// Config holds the scheduler's run settings.
type Config struct {
	Retry    RetryPolicy
	RowDelay time.Duration
}

// Summary is the terminal accounting for one run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Scheduler is the batch orchestrator. Single-threaded: each row runs to
// completion (search, create, notify, ledger update) before the next starts.
type Scheduler struct {
	api      SlotAPI
	notifier Notifier
	dealers  ContextSource
	ledger   *ledger.Ledger
	cfg      Config
	logger   logger.Logger

	confirm ConfirmFunc
	sleep   func(time.Duration)
	now     func() time.Time
}

func New(api SlotAPI, notifier Notifier, dealers ContextSource, led *ledger.Ledger, cfg Config, confirm ConfirmFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		api:      api,
		notifier: notifier,
		dealers:  dealers,
		ledger:   led,
		cfg:      cfg,
		logger:   log,
		confirm:  confirm,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Run processes the batch. Before any row is touched, the ledger is consulted
// for every RO number; if duplicates exist the operator is asked once whether
// to proceed, and declining aborts the entire batch.
func (s *Scheduler) Run(ctx context.Context, rows []*models.OrderRow) (Summary, error) {
	summary := Summary{Total: len(rows)}

	duplicates := s.findDuplicates(rows)
	if len(duplicates) > 0 {
		s.logger.Warn("previously scheduled repair orders found in batch", map[string]interface{}{
			"count": len(duplicates),
		})
		if !s.confirm(duplicates) {
			s.logger.Info("operator declined, aborting batch", nil)
			return summary, ErrBatchAborted
		}
	}

	for i, row := range rows {
		s.processRow(ctx, row)

		if row.NSAStatus == models.ApptStatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		metrics.RowsProcessed.WithLabelValues(row.NSAStatus).Inc()

		s.logger.Info("row processed", map[string]interface{}{
			"index":    i + 1,
			"total":    len(rows),
			"roNumber": row.RONumber,
			"status":   row.NSAStatus,
		})

		// Coarse constant-interval throttle against the platform,
		// applied between rows regardless of outcome.
		s.sleep(s.cfg.RowDelay)
	}

	return summary, nil
}

func (s *Scheduler) findDuplicates(rows []*models.OrderRow) []ledger.Entry {
	var out []ledger.Entry
	for _, row := range rows {
		if entry, ok := s.ledger.IsDuplicate(row.RONumber); ok {
			out = append(out, *entry)
		}
	}
	return out
}

// processRow runs one row through the state machine and leaves its terminal
// outcome in the row's mutable fields. Every failure becomes a status value;
// nothing propagates out of here.
func (s *Scheduler) processRow(ctx context.Context, row *models.OrderRow) {
	row.TextStatus = models.NotifyStatusNotAttempted
	row.EmailStatus = models.NotifyStatusNotAttempted

	dc, ok := s.dealers.Get(row.DealerID)
	if !ok {
		s.logger.Warn("skipping row, dealer not configured", map[string]interface{}{
			"roNumber": row.RONumber,
			"error":    errors.NewDealerNotConfiguredError(row.DealerID).Error(),
		})
		s.failRow(row)
		row.TextStatus = models.NotifyStatusSkipped
		row.EmailStatus = models.NotifyStatusSkipped
		return
	}

	closeDate, err := time.Parse("2006-01-02", row.ROCloseDate)
	if err != nil {
		s.logger.Error("unparseable RO close date", map[string]interface{}{
			"roNumber":  row.RONumber,
			"closeDate": row.ROCloseDate,
		})
		s.failRow(row)
		return
	}

	filteredOpcodes := dc.FilterOpcodes(row.OpcodeList())
	target := addMonths(closeDate, dc.ServiceIntervalMonths)

	for attempt := 1; attempt <= s.cfg.Retry.MaxAttempts; attempt++ {
		apptDate, apptTime, found := s.searchSlot(ctx, row, dc, filteredOpcodes, target)
		if !found {
			s.logger.Info("no available slot", map[string]interface{}{
				"roNumber": row.RONumber,
				"attempt":  attempt,
				"error":    errors.NewSlotNotFoundError(target.Format("2006-01-02")).Error(),
			})
			metrics.AppointmentAttempts.WithLabelValues("slot_not_found").Inc()
			s.sleep(s.cfg.Retry.Delay(attempt))
			continue
		}

		apptUUID, err := s.createAppointment(ctx, row, dc, filteredOpcodes, apptDate, apptTime)
		if err != nil {
			s.logger.Error("appointment create attempt failed", map[string]interface{}{
				"roNumber": row.RONumber,
				"attempt":  attempt,
				"error":    err.Error(),
			})
			metrics.AppointmentAttempts.WithLabelValues("create_failed").Inc()
			s.sleep(s.cfg.Retry.Delay(attempt))
			continue
		}

		metrics.AppointmentAttempts.WithLabelValues("created").Inc()
		row.NSAStatus = models.ApptStatusSuccess
		row.NSADate = apptDate + " " + apptTime
		row.NSAUUID = apptUUID

		s.ledger.Record(row.RONumber, row.CustomerFirstName, row.CustomerLastName, row.DealerID, apptUUID)
		s.notifyRow(ctx, row, dc, apptDate, apptTime)
		return
	}

	s.failRow(row)
}

func (s *Scheduler) failRow(row *models.OrderRow) {
	row.NSAStatus = models.ApptStatusFailed
	row.NSADate = ""
	row.NSAUUID = ""
}

// searchSlot asks the platform for the first available slot on the target
// date, clamped forward to today when the target is already in the past.
func (s *Scheduler) searchSlot(ctx context.Context, row *models.OrderRow, dc *models.DealerContext, opcodes []string, target time.Time) (string, string, bool) {
	fromDate := target
	if now := s.now(); target.Before(now) {
		fromDate = now
	}

	req := &platform.SlotSearchRequest{
		Dates: []string{fromDate.Format("2006-01-02")},
		CustomerInformation: platform.CustomerInformation{
			FirstName: row.CustomerFirstName,
			LastName:  row.CustomerLastName,
			UUID:      row.CustomerUUID,
			Key:       row.CustomerKey,
		},
		VehicleInformation: platform.VehicleInformation{
			UUID: row.VehicleUUID,
			VIN:  row.VIN,
		},
		LaborOpcodeList:                opcodes,
		SelectedAvailabilityAttributes: map[string]string{},
		AllAvailabilityAttributes:      map[string]string{},
	}

	resp, err := s.api.FirstAvailableSlot(ctx, dc.DepartmentUUID, req)
	if err != nil {
		transportErr := errors.NewTransportError("first_available_slot", err)
		s.logger.Error("slot search failed", map[string]interface{}{
			"roNumber": row.RONumber,
			"error":    transportErr.Error(),
		})
		return "", "", false
	}
	if resp.DateTime == "" {
		return "", "", false
	}

	parts := strings.SplitN(resp.DateTime, " ", 2)
	if len(parts) != 2 {
		s.logger.Warn("malformed slot date-time", map[string]interface{}{
			"roNumber": row.RONumber,
			"dateTime": resp.DateTime,
		})
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (s *Scheduler) createAppointment(ctx context.Context, row *models.OrderRow, dc *models.DealerContext, opcodes []string, apptDate, apptTime string) (string, error) {
	start, err := time.Parse("2006-01-02T15:04:05", apptDate+"T"+apptTime)
	if err != nil {
		return "", errors.NewDataError("appointmentStartDateTime", err.Error())
	}
	end := start.Add(time.Duration(dc.SlotSizeMins)*time.Minute - time.Second)

	descriptions := dc.Descriptions(opcodes)
	serviceList := make([]platform.ServiceItem, 0, len(opcodes))
	for _, op := range opcodes {
		serviceList = append(serviceList, platform.ServiceItem{
			Title:         op,
			OperationType: "OPCODE",
			Description:   descriptions[op],
		})
	}

	req := &platform.AppointmentRequest{
		CustomerUUID: row.CustomerUUID,
		VehicleInformation: platform.AppointmentVehicle{
			VehicleUUID: row.VehicleUUID,
			VIN:         row.VIN,
		},
		AppointmentInformation: platform.AppointmentInformation{
			AppointmentStartDateTime: apptDate + "T" + apptTime,
			AppointmentEndDateTime:   apptDate + "T" + end.Format("15:04:05"),
			ServiceList:              serviceList,
			Comments:                 "",
			InternalNotes:            internalNotes,
			CustomerPreference: platform.AppointmentPreference{
				NotifyCustomer:    false,
				EmailConfirmation: false,
				TextConfirmation:  false,
				EmailReminder:     false,
				TextReminder:      false,
			},
			Status:    nil,
			Recall:    false,
			PushToDMS: true,
		},
	}

	resp, err := s.api.CreateAppointment(ctx, dc.DealerUUID, req)
	if err != nil {
		return "", errors.NewAppointmentCreateFailedError(row.RONumber, err)
	}

	if resp.AppointmentUUID == "" {
		return "Success", nil
	}
	return resp.AppointmentUUID, nil
}

func (s *Scheduler) notifyRow(ctx context.Context, row *models.OrderRow, dc *models.DealerContext, apptDate, apptTime string) {
	result := s.notifier.Send(ctx, &notify.Request{
		DepartmentID:      dc.DepartmentUUID,
		CustomerID:        row.CustomerUUID,
		CustomerFirstName: row.CustomerFirstName,
		CustomerLastName:  row.CustomerLastName,
		DealerName:        dc.Name,
		ApptDate:          apptDate,
		ApptTime:          apptTime,
		Channels:          []notify.Channel{notify.ChannelText, notify.ChannelEmail},
	})

	row.TextStatus = result.Text.Status
	row.EmailStatus = result.Email.Status

	if result.Overall != models.OverallSuccess {
		s.logger.Warn("notification not fully delivered", map[string]interface{}{
			"roNumber": row.RONumber,
			"overall":  result.Overall,
			"text":     result.Text.Status,
			"email":    result.Email.Status,
		})
	}
}

// addMonths advances a date by whole months, clamping to the last day of the
// destination month (Jan 31 + 1 month = Feb 28/29, not Mar 2).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
