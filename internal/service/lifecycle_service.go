package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/auth"
	"github.com/spec-kit/election-service/internal/config"
	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/events"
	"github.com/spec-kit/election-service/internal/notify"
	"github.com/spec-kit/election-service/internal/registry"
	"github.com/spec-kit/election-service/internal/repository"
)

const schedulerActor = "lifecycle-scheduler"

// LifecycleService performs the periodic election sweeps: activation
// (APPROVED to LIVE plus credential generation and invitation dispatch)
// and closure (LIVE to CLOSED plus stakeholder notification). Sweeps
// are safe to run concurrently; guard columns and duplicate-safe
// inserts carry the idempotency.
type LifecycleService struct {
	elections   repository.ElectionRepository
	credentials repository.CredentialRepository
	ballots     repository.BallotRepository
	voters      registry.VoterRegistry
	fallback    registry.VoterRegistry
	sender      notify.Sender
	dispatcher  events.Dispatcher
	audit       *AuditService
	logger      *zap.Logger
	cfg         config.SchedulerConfig
	clock       func() time.Time
}

// LifecycleDependencies bundles collaborator requirements.
type LifecycleDependencies struct {
	ElectionRepo     repository.ElectionRepository
	CredentialRepo   repository.CredentialRepository
	BallotRepo       repository.BallotRepository
	Registry         registry.VoterRegistry
	FallbackRegistry registry.VoterRegistry
	Sender           notify.Sender
	Dispatcher       events.Dispatcher
	Audit            *AuditService
	Logger           *zap.Logger
}

// NewLifecycleService builds the service.
func NewLifecycleService(cfg config.Config, deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		elections:   deps.ElectionRepo,
		credentials: deps.CredentialRepo,
		ballots:     deps.BallotRepo,
		voters:      deps.Registry,
		fallback:    deps.FallbackRegistry,
		sender:      deps.Sender,
		dispatcher:  deps.Dispatcher,
		audit:       deps.Audit,
		logger:      deps.Logger,
		cfg:         cfg.Scheduler,
		clock:       time.Now,
	}
}

// ActivationReport summarizes one election's activation.
type ActivationReport struct {
	ElectionID         string
	EligibleVoters     int
	CredentialsCreated int
	RegistryDegraded   bool
	Dispatch           *notify.DispatchReport
}

// ClosureReport summarizes one election's closure.
type ClosureReport struct {
	ElectionID  string
	VotesCast   int
	VotersUsed  int
	VotersTotal int
}

// RunActivationSweep activates every election due to go live. Failures
// on one election are logged and do not stop the sweep.
func (s *LifecycleService) RunActivationSweep(ctx context.Context) ([]ActivationReport, error) {
	now := s.clock()
	elections, err := s.elections.ListActivatable(ctx, now)
	if err != nil {
		return nil, err
	}

	var reports []ActivationReport
	for i := range elections {
		election := elections[i]
		report, err := s.activate(ctx, &election)
		if err != nil {
			s.logger.Error("activation failed",
				zap.String("election_id", election.ID),
				zap.Error(err))
			continue
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

func (s *LifecycleService) activate(ctx context.Context, election *domain.Election) (*ActivationReport, error) {
	claimed, err := s.elections.ClaimLive(ctx, election.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Another sweep flipped the status. Continue only when credential
		// generation is still pending, so an interrupted activation resumes.
		current, err := s.elections.GetByID(ctx, election.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != domain.ElectionStatusLive || current.VoterListGenerated {
			return nil, nil
		}
		election = current
	}

	roster, degraded := s.resolveRoster(ctx, election)
	if len(roster) == 0 {
		return nil, fmt.Errorf("no eligible voters resolvable for election %s", election.ID)
	}

	creds := make([]domain.Credential, 0, len(roster))
	for _, voter := range roster {
		creds = append(creds, domain.Credential{
			ElectionID:      election.ID,
			VoterID:         voter.ID,
			VoterName:       voter.Name,
			Email:           voter.Email,
			InvitationToken: auth.NewInvitationToken(),
		})
	}
	created, err := s.credentials.CreateBatch(ctx, creds)
	if err != nil {
		return nil, err
	}

	// The guard closes only after generation succeeded, so a crashed
	// sweep reruns generation (duplicate-safe) instead of skipping it.
	if err := s.elections.MarkVoterListGenerated(ctx, election.ID); err != nil {
		return nil, err
	}

	report := &ActivationReport{
		ElectionID:         election.ID,
		EligibleVoters:     len(roster),
		CredentialsCreated: created,
		RegistryDegraded:   degraded,
	}

	s.audit.Record(ctx, schedulerActor, &election.ID, domain.AuditElectionActivated, map[string]any{
		"eligible_voters":     len(roster),
		"credentials_created": created,
		"registry_degraded":   degraded,
	})

	report.Dispatch = s.dispatchInvitations(ctx, election, degraded)

	s.publish(ctx, events.Event{
		Type:       events.EventElectionActivated,
		ElectionID: election.ID,
		Actor:      schedulerActor,
		Payload: events.ElectionActivatedPayload{
			Title:              election.Title,
			EligibleVoters:     len(roster),
			CredentialsCreated: created,
			RegistryDegraded:   degraded,
		},
	})
	return report, nil
}

// resolveRoster queries the registry collaborator, falling back to the
// static roster in degraded mode.
func (s *LifecycleService) resolveRoster(ctx context.Context, election *domain.Election) ([]registry.EligibleVoter, bool) {
	scope := registry.Scope{ElectionID: election.ID, DepartmentID: election.DepartmentID}
	roster, err := s.voters.ResolveEligibleVoters(ctx, scope)
	if err == nil {
		return roster, false
	}

	s.logger.Warn("voter registry unreachable; using fallback roster",
		zap.String("election_id", election.ID),
		zap.Error(err))
	if s.fallback == nil {
		return nil, true
	}
	fallbackRoster, fbErr := s.fallback.ResolveEligibleVoters(ctx, scope)
	if fbErr != nil {
		s.logger.Error("fallback roster unavailable",
			zap.String("election_id", election.ID),
			zap.Error(fbErr))
		return nil, true
	}
	return fallbackRoster, true
}

// dispatchInvitations sends invitation links in rate-limited batches.
// Per-recipient failures are collected, never fatal.
func (s *LifecycleService) dispatchInvitations(ctx context.Context, election *domain.Election, degraded bool) *notify.DispatchReport {
	claimed, err := s.elections.ClaimEmailDispatch(ctx, election.ID)
	if err != nil {
		s.logger.Error("email dispatch claim failed",
			zap.String("election_id", election.ID),
			zap.Error(err))
		return nil
	}
	if !claimed {
		return nil
	}

	creds, err := s.credentials.ListByElection(ctx, election.ID)
	if err != nil {
		s.logger.Error("credential listing for dispatch failed",
			zap.String("election_id", election.ID),
			zap.Error(err))
		s.audit.Record(ctx, schedulerActor, &election.ID, domain.AuditInviteDispatchFailed, map[string]any{
			"reason": err.Error(),
		})
		return nil
	}

	report := &notify.DispatchReport{}
	batchSize := s.cfg.InviteBatchSize
	if batchSize <= 0 {
		batchSize = len(creds)
	}
	subject := fmt.Sprintf("Voting invitation: %s", election.Title)

	for start := 0; start < len(creds); start += batchSize {
		if start > 0 && s.cfg.InviteBatchDelay() > 0 {
			select {
			case <-ctx.Done():
				s.logger.Warn("invite dispatch interrupted",
					zap.String("election_id", election.ID),
					zap.Int("sent", len(report.Sent)))
				return report
			case <-time.After(s.cfg.InviteBatchDelay()):
			}
		}
		end := start + batchSize
		if end > len(creds) {
			end = len(creds)
		}
		for _, cred := range creds[start:end] {
			body := fmt.Sprintf("Use your invitation token %s to verify and vote.", cred.InvitationToken)
			if _, err := s.sender.Send(ctx, cred.Email, subject, body); err != nil {
				report.RecordFailure(cred.Email, err)
			} else {
				report.RecordSent(cred.Email)
			}
		}
	}

	s.audit.Record(ctx, schedulerActor, &election.ID, domain.AuditInvitesSent, map[string]any{
		"sent":              len(report.Sent),
		"failed":            len(report.Failed),
		"registry_degraded": degraded,
	})
	if report.AllFailed() {
		s.audit.Record(ctx, schedulerActor, &election.ID, domain.AuditInviteDispatchFailed, map[string]any{
			"recipients": len(report.Failed),
		})
	}
	return report
}

// RunClosureSweep closes every election whose window has passed. The
// CLOSED transition is the source of truth; notification failures are
// logged only.
func (s *LifecycleService) RunClosureSweep(ctx context.Context) ([]ClosureReport, error) {
	now := s.clock()
	elections, err := s.elections.ListClosable(ctx, now)
	if err != nil {
		return nil, err
	}

	var reports []ClosureReport
	for i := range elections {
		election := elections[i]
		claimed, err := s.elections.ClaimClosed(ctx, election.ID)
		if err != nil {
			s.logger.Error("closure failed",
				zap.String("election_id", election.ID),
				zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		report := ClosureReport{ElectionID: election.ID}
		if votes, err := s.ballots.CountVotes(ctx, election.ID); err == nil {
			report.VotesCast = votes
		} else {
			s.logger.Warn("vote count unavailable", zap.String("election_id", election.ID), zap.Error(err))
		}
		if used, total, err := s.credentials.TurnoutByElection(ctx, election.ID); err == nil {
			report.VotersUsed = used
			report.VotersTotal = total
		} else {
			s.logger.Warn("turnout unavailable", zap.String("election_id", election.ID), zap.Error(err))
		}

		s.audit.Record(ctx, schedulerActor, &election.ID, domain.AuditElectionClosed, map[string]any{
			"votes_cast":   report.VotesCast,
			"voters_used":  report.VotersUsed,
			"voters_total": report.VotersTotal,
		})

		s.publish(ctx, events.Event{
			Type:       events.EventElectionClosed,
			ElectionID: election.ID,
			Actor:      schedulerActor,
			Payload: events.ElectionClosedPayload{
				Title:       election.Title,
				VotesCast:   report.VotesCast,
				VotersUsed:  report.VotersUsed,
				VotersTotal: report.VotersTotal,
				CreatedBy:   election.CreatedBy,
				ApprovedBy:  election.ApprovedBy,
			},
		})
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.clock()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
