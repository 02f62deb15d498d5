package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) pipelinedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pipeline.service"),
		genID: p.GenID,
	}
}

// Record persists a pipeline failure. It deliberately never returns an
// error: the triggering mutation must not fail because bookkeeping did.
func (s *Service) Record(ctx context.Context, orgID snowflake.ID, stage pipelinedomain.Stage, entityType string, entityID snowflake.ID, cause error) {
	if cause == nil {
		return
	}
	failure := pipelinedomain.Failure{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		Stage:      stage,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    cause.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&failure).Error; err != nil {
		s.log.Error("failed to record pipeline failure",
			zap.String("stage", string(stage)),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("pipeline stage failed",
		zap.String("stage", string(stage)),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID.String()),
		zap.Error(cause),
	)
}

func (s *Service) Resolve(ctx context.Context, orgID, failureID snowflake.ID) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&pipelinedomain.Failure{}).
		Where("org_id = ? AND id = ? AND resolved_at IS NULL", orgID, failureID).
		Update("resolved_at", now).Error
}

func (s *Service) List(ctx context.Context, req pipelinedomain.ListFailuresRequest) (pipelinedomain.ListFailuresResponse, error) {
	stmt := s.db.WithContext(ctx).Where("org_id = ?", req.OrgID)
	if req.Unresolved {
		stmt = stmt.Where("resolved_at IS NULL")
	}

	var failures []pipelinedomain.Failure
	if err := stmt.Order("occurred_at DESC").Find(&failures).Error; err != nil {
		return pipelinedomain.ListFailuresResponse{}, err
	}
	return pipelinedomain.ListFailuresResponse{Failures: failures}, nil
}
