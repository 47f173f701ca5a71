package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	caseflowdomain "github.com/openwaterops/revassure/internal/caseflow/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() caseflowdomain.Repository {
	return &repo{}
}

func (r *repo) InsertAction(ctx context.Context, db *gorm.DB, a *caseflowdomain.RaAction) error {
	return db.WithContext(ctx).Create(a).Error
}

func (r *repo) ListActions(ctx context.Context, db *gorm.DB, caseID snowflake.ID) ([]caseflowdomain.RaAction, error) {
	var actions []caseflowdomain.RaAction
	err := db.WithContext(ctx).Raw(
		`SELECT id, ra_case_id, action, payload, actor_id, occurred_at, created_at
		 FROM ra_actions WHERE ra_case_id = ?
		 ORDER BY occurred_at ASC, id ASC`,
		caseID,
	).Scan(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
