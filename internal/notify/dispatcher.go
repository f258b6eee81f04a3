// internal/notify/dispatcher.go
package notify

import (
	"context"
	"sync"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/common/logger"
	"nsa-scheduler/internal/common/metrics"
	"nsa-scheduler/internal/models"
	"nsa-scheduler/internal/platform"
	"nsa-scheduler/internal/template"
)

// PlatformAPI is the slice of the dealer-platform client the dispatcher needs.
type PlatformAPI interface {
	SendMessage(ctx context.Context, departmentUUID, userUUID, customerUUID string, req *platform.MessageRequest) (*platform.MessageResponse, error)
	DefaultDealerAssociate(ctx context.Context, departmentUUID string) (*platform.DealerAssociateResponse, error)
}

// Dispatcher renders and sends appointment confirmations over the requested
// channels, aggregating per-channel outcomes. Per-channel failures are
// converted to statuses and never propagate past this boundary.
type Dispatcher struct {
	api      PlatformAPI
	renderer *template.Renderer
	cfg      Config
	logger   logger.Logger

	// Default sender identities, cached per department for the process
	// lifetime. First lookup wins; never invalidated within a run.
	mu          sync.Mutex
	senderCache map[string]string
}

func NewDispatcher(api PlatformAPI, renderer *template.Renderer, cfg Config, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		api:         api,
		renderer:    renderer,
		cfg:         cfg,
		logger:      log,
		senderCache: make(map[string]string),
	}
}

// Send dispatches the notification over each requested channel.
func (d *Dispatcher) Send(ctx context.Context, req *Request) Result {
	result := Result{
		Text:    Outcome{Status: models.NotifyStatusNotAttempted},
		Email:   Outcome{Status: models.NotifyStatusNotAttempted},
		Overall: models.OverallSuccess,
	}

	if req.CustomerID == "" {
		return d.failAll(req, &result, errors.NewDataError("customerUuid", "notification requires a customer identifier"))
	}
	if req.DepartmentID == "" {
		return d.failAll(req, &result, errors.NewDataError("departmentUuid", "notification requires a department identifier"))
	}

	senderID := req.SenderID
	if senderID == "" {
		resolved, err := d.resolveDefaultSender(ctx, req.DepartmentID)
		if err != nil {
			return d.failAll(req, &result, err)
		}
		senderID = resolved
	}

	vars := []template.Var{
		{Name: template.VarCustomerFirstName, Value: req.CustomerFirstName},
		{Name: template.VarCustomerLastName, Value: req.CustomerLastName},
		{Name: template.VarDealerName, Value: req.DealerName},
		{Name: template.VarApptDate, Value: req.ApptDate},
		{Name: template.VarApptStartTime, Value: req.ApptTime},
	}

	textAttempted, textFailed := false, false
	emailAttempted, emailFailed := false, false

	if requested(req.Channels, ChannelText) {
		if !d.cfg.TextEnabled {
			result.Text = Outcome{Status: models.NotifyStatusDisabled}
			metrics.NotificationsSent.WithLabelValues(string(ChannelText), models.NotifyStatusDisabled).Inc()
		} else {
			textAttempted = true
			result.Text = d.sendText(ctx, senderID, req, vars)
			textFailed = result.Text.Status == models.NotifyStatusFailed
		}
	}

	if requested(req.Channels, ChannelEmail) {
		if !d.cfg.EmailEnabled {
			result.Email = Outcome{Status: models.NotifyStatusDisabled}
			metrics.NotificationsSent.WithLabelValues(string(ChannelEmail), models.NotifyStatusDisabled).Inc()
		} else {
			emailAttempted = true
			result.Email = d.sendEmail(ctx, senderID, req, vars)
			emailFailed = result.Email.Status == models.NotifyStatusFailed
		}
	}

	// One failure among attempted channels yields PARTIAL_FAILED even when
	// it was the only channel attempted; two failures yield FAILED.
	if textAttempted && textFailed {
		result.Overall = models.OverallPartialFailed
	}
	if emailAttempted && emailFailed {
		if result.Overall == models.OverallPartialFailed {
			result.Overall = models.OverallFailed
		} else {
			result.Overall = models.OverallPartialFailed
		}
	}

	return result
}

// failAll marks every requested channel FAILED without a send attempt.
func (d *Dispatcher) failAll(req *Request, result *Result, err error) Result {
	d.logger.Error("notification failed before send", map[string]interface{}{
		"departmentId": req.DepartmentID,
		"error":        err.Error(),
	})
	if requested(req.Channels, ChannelText) {
		result.Text = Outcome{Status: models.NotifyStatusFailed, Response: err.Error()}
		metrics.NotificationsSent.WithLabelValues(string(ChannelText), models.NotifyStatusFailed).Inc()
	}
	if requested(req.Channels, ChannelEmail) {
		result.Email = Outcome{Status: models.NotifyStatusFailed, Response: err.Error()}
		metrics.NotificationsSent.WithLabelValues(string(ChannelEmail), models.NotifyStatusFailed).Inc()
	}
	result.Overall = models.OverallFailed
	return *result
}

// resolveDefaultSender looks up the department's default dealer associate,
// consulting the process-lifetime cache first.
func (d *Dispatcher) resolveDefaultSender(ctx context.Context, departmentID string) (string, error) {
	d.mu.Lock()
	cached, ok := d.senderCache[departmentID]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := d.api.DefaultDealerAssociate(ctx, departmentID)
	if err != nil {
		return "", errors.NewTransportError("default_dealer_associate", err)
	}
	if len(resp.Errors) > 0 || resp.DealerAssociate.UserUUID == "" {
		return "", errors.NewSenderLookupMissError(departmentID)
	}

	d.mu.Lock()
	d.senderCache[departmentID] = resp.DealerAssociate.UserUUID
	d.mu.Unlock()

	return resp.DealerAssociate.UserUUID, nil
}

func (d *Dispatcher) sendText(ctx context.Context, senderID string, req *Request, vars []template.Var) Outcome {
	_, body := d.renderer.Render(template.KindText, vars)

	msg := &platform.MessageRequest{
		MessageAttributes: platform.MessageAttributes{
			Body:           body,
			IsManual:       false,
			Protocol:       string(ChannelText),
			Type:           "OUTGOING",
			MessageType:    "S",
			IsRead:         false,
			MessagePurpose: MessagePurposeConfirmation,
		},
		MessageSendingAttributes: platform.MessageSendingAttributes{
			SendSynchronously: true,
			AddTCPAFooter:     d.cfg.AddTCPAFooter,
			AddSignature:      d.cfg.AddSignature,
			AddFooter:         d.cfg.AddFooter,
			SendVCard:         false,
		},
	}

	return d.deliver(ctx, ChannelText, senderID, req, msg)
}

func (d *Dispatcher) sendEmail(ctx context.Context, senderID string, req *Request, vars []template.Var) Outcome {
	subject, body := d.renderer.Render(template.KindEmail, vars)

	msg := &platform.MessageRequest{
		MessageAttributes: platform.MessageAttributes{
			Body:           body,
			Subject:        subject,
			IsManual:       false,
			Protocol:       string(ChannelEmail),
			Type:           "OUTGOING",
			MessageType:    "S",
			IsRead:         false,
			MessagePurpose: MessagePurposeConfirmation,
		},
		MessageSendingAttributes: platform.MessageSendingAttributes{
			SendSynchronously: true,
			AddSignature:      d.cfg.AddSignature,
			AddFooter:         d.cfg.AddFooter,
		},
	}

	return d.deliver(ctx, ChannelEmail, senderID, req, msg)
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, senderID string, req *Request, msg *platform.MessageRequest) Outcome {
	resp, err := d.api.SendMessage(ctx, req.DepartmentID, senderID, req.CustomerID, msg)
	if err != nil {
		sendErr := errors.NewNotificationFailedError(string(channel), err)
		d.logger.Error("message send failed", map[string]interface{}{
			"channel":    string(channel),
			"customerId": req.CustomerID,
			"error":      err.Error(),
		})
		metrics.NotificationsSent.WithLabelValues(string(channel), models.NotifyStatusFailed).Inc()
		return Outcome{Status: models.NotifyStatusFailed, Response: sendErr.Error()}
	}

	metrics.NotificationsSent.WithLabelValues(string(channel), models.NotifyStatusSuccess).Inc()
	return Outcome{Status: models.NotifyStatusSuccess, Response: resp.Status}
}

func requested(channels []Channel, c Channel) bool {
	for _, ch := range channels {
		if ch == c {
			return true
		}
	}
	return false
}
