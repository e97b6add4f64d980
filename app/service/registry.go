package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
)

type IntegrationRepository interface {
	Create(ctx context.Context, in *entity.Integration) error
	FindByID(ctx context.Context, id uint64) (*entity.Integration, error)
	Update(ctx context.Context, in *entity.Integration) error
	UpdateStatus(ctx context.Context, id uint64, from, to entity.IntegrationStatus, now time.Time) (bool, error)
	RecordSyncOutcome(ctx context.Context, id uint64, status string, success bool, now time.Time) error
	Delete(ctx context.Context, id uint64) (bool, error)
	List(ctx context.Context, filter repository.IntegrationFilter) ([]*entity.Integration, error)
}

// IntegrationService owns integration records and their lifecycle state.
type IntegrationService struct {
	repo IntegrationRepository
}

func NewIntegrationService(repo IntegrationRepository) *IntegrationService {
	return &IntegrationService{repo: repo}
}

func (s *IntegrationService) Create(ctx context.Context, in *entity.Integration) (*entity.Integration, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !entity.ValidIntegrationType(in.IntegrationType) {
		return nil, fmt.Errorf("%w: invalid integration type %q", ErrValidation, in.IntegrationType)
	}
	if !entity.ValidAuthenticationType(in.AuthenticationType) {
		return nil, fmt.Errorf("%w: invalid authentication type %q", ErrValidation, in.AuthenticationType)
	}
	if in.SyncFrequency == "" {
		in.SyncFrequency = entity.SyncFrequencyManual
	}
	if !entity.ValidSyncFrequency(in.SyncFrequency) {
		return nil, fmt.Errorf("%w: invalid sync frequency %q", ErrValidation, in.SyncFrequency)
	}

	now := time.Now()
	in.Status = entity.IntegrationStatusInactive
	in.CreatedAt = now
	in.UpdatedAt = now

	if err := s.repo.Create(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *IntegrationService) Get(ctx context.Context, id uint64) (*entity.Integration, error) {
	in, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, ErrNotFound
	}
	return in, nil
}

func (s *IntegrationService) Update(ctx context.Context, id uint64, patch dto.IntegrationPatch) (*entity.Integration, error) {
	in, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		in.Name = name
	}
	if patch.IntegrationType != nil {
		if !entity.ValidIntegrationType(*patch.IntegrationType) {
			return nil, fmt.Errorf("%w: invalid integration type %q", ErrValidation, *patch.IntegrationType)
		}
		in.IntegrationType = *patch.IntegrationType
	}
	if patch.Provider != nil {
		in.Provider = nullableString(*patch.Provider)
	}
	if patch.APIEndpoint != nil {
		in.APIEndpoint = nullableString(*patch.APIEndpoint)
	}
	if patch.WebhookURL != nil {
		in.WebhookURL = nullableString(*patch.WebhookURL)
	}
	if patch.AuthenticationType != nil {
		if !entity.ValidAuthenticationType(*patch.AuthenticationType) {
			return nil, fmt.Errorf("%w: invalid authentication type %q", ErrValidation, *patch.AuthenticationType)
		}
		in.AuthenticationType = *patch.AuthenticationType
	}
	if patch.Configuration != nil {
		in.Configuration = patch.Configuration
	}
	if patch.SyncEnabled != nil {
		in.SyncEnabled = *patch.SyncEnabled
	}
	if patch.SyncFrequency != nil {
		if !entity.ValidSyncFrequency(*patch.SyncFrequency) {
			return nil, fmt.Errorf("%w: invalid sync frequency %q", ErrValidation, *patch.SyncFrequency)
		}
		in.SyncFrequency = *patch.SyncFrequency
	}

	in.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// Delete hard-removes an integration. System integrations are refused with
// ErrForbidden, never silently ignored. The confirm flag stands in for the
// destructive-action confirmation the dashboard used to collect client-side.
func (s *IntegrationService) Delete(ctx context.Context, id uint64, confirm bool) error {
	if !confirm {
		return fmt.Errorf("%w: deletion requires explicit confirmation", ErrValidation)
	}

	in, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if in.IsSystem {
		return fmt.Errorf("%w: system integrations cannot be deleted", ErrForbidden)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *IntegrationService) List(ctx context.Context, filter repository.IntegrationFilter) ([]*entity.Integration, error) {
	if filter.Status != "" && !entity.ValidIntegrationStatus(filter.Status) {
		return nil, fmt.Errorf("%w: invalid status filter %q", ErrValidation, filter.Status)
	}
	if filter.Type != "" && !entity.ValidIntegrationType(filter.Type) {
		return nil, fmt.Errorf("%w: invalid type filter %q", ErrValidation, filter.Type)
	}
	return s.repo.List(ctx, filter)
}

// Deactivate moves an integration to inactive from any state.
func (s *IntegrationService) Deactivate(ctx context.Context, id uint64) (*entity.Integration, error) {
	return s.Transition(ctx, id, entity.IntegrationStatusInactive)
}

// Transition applies a lifecycle transition with optimistic concurrency: it
// reads the current state, validates the transition, and writes only if the
// state is unchanged since the read. A losing writer retries the cycle once
// and then reports ErrConflict.
func (s *IntegrationService) Transition(ctx context.Context, id uint64, to entity.IntegrationStatus) (*entity.Integration, error) {
	for attempt := 0; attempt < 2; attempt++ {
		in, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if in.Status == to {
			return in, nil
		}
		if !in.Status.CanTransitionTo(to) {
			return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrPrecondition, in.Status, to)
		}

		swapped, err := s.repo.UpdateStatus(ctx, id, in.Status, to, time.Now())
		if err != nil {
			return nil, err
		}
		if swapped {
			in.Status = to
			return in, nil
		}
	}
	return nil, ErrConflict
}

// RecordSyncOutcome updates last_sync_at/last_sync_status and bumps the
// matching counter.
func (s *IntegrationService) RecordSyncOutcome(ctx context.Context, id uint64, success bool, now time.Time) error {
	status := entity.LogStatusError
	if success {
		status = entity.LogStatusSuccess
	}
	return s.repo.RecordSyncOutcome(ctx, id, status, success, now)
}

func nullableString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
