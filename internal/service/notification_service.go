package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/config"
	"github.com/spec-kit/election-service/internal/events"
	"github.com/spec-kit/election-service/internal/notify"
)

// NotificationService reacts to lifecycle events with best-effort
// stakeholder messages. Individual delivery failures are logged and
// never reverse the transition that produced the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notify.Sender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notify.Sender, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventElectionActivated, n.handleElectionActivated)
	n.dispatcher.Subscribe(events.EventElectionClosed, n.handleElectionClosed)
}

func (n *NotificationService) handleElectionActivated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ElectionActivatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ElectionActivated",
		zap.String("election_id", event.ElectionID),
		zap.Int("eligible_voters", payload.EligibleVoters),
		zap.Bool("registry_degraded", payload.RegistryDegraded))

	subject := fmt.Sprintf("Election live: %s", payload.Title)
	body := fmt.Sprintf("Election %q is now live with %d eligible voters.", payload.Title, payload.EligibleVoters)
	n.broadcast(ctx, n.cfg.SuperAdminEmails, subject, body)
	return nil
}

func (n *NotificationService) handleElectionClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ElectionClosedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ElectionClosed",
		zap.String("election_id", event.ElectionID),
		zap.Int("votes_cast", payload.VotesCast),
		zap.Int("voters_used", payload.VotersUsed),
		zap.Int("voters_total", payload.VotersTotal))

	recipients := append([]string{}, n.cfg.SuperAdminEmails...)
	if payload.CreatedBy != "" {
		recipients = append(recipients, payload.CreatedBy)
	}
	if payload.ApprovedBy != nil && *payload.ApprovedBy != "" {
		recipients = append(recipients, *payload.ApprovedBy)
	}

	subject := fmt.Sprintf("Election closed: %s", payload.Title)
	body := fmt.Sprintf("Election %q closed with %d votes; %d of %d voters participated.",
		payload.Title, payload.VotesCast, payload.VotersUsed, payload.VotersTotal)
	n.broadcast(ctx, recipients, subject, body)
	return nil
}

func (n *NotificationService) broadcast(ctx context.Context, recipients []string, subject, body string) {
	seen := make(map[string]bool, len(recipients))
	for _, to := range recipients {
		to = strings.TrimSpace(to)
		if to == "" || seen[to] {
			continue
		}
		seen[to] = true
		if _, err := n.sender.Send(ctx, to, subject, body); err != nil {
			n.logger.Warn("stakeholder notification failed",
				zap.String("to", to),
				zap.Error(err))
		}
	}
}
