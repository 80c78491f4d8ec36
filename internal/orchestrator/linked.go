package orchestrator

import (
	"context"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
)

// loadLinked fills profile.Linked with read-only snapshots of linked users
// for the interpreter prompt. Failures are logged and skipped.
func (o *Orchestrator) loadLinked(ctx context.Context, profile *domain.UserProfile) {
	profile.Linked = nil
	log := logger.FromContext(ctx)

	for _, entry := range profile.LinkedUsers {
		id := domain.ParseLinkedUserID(entry)
		if id == "" || id == profile.UserID {
			continue
		}

		linked, err := o.profiles.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("linked_user_id", id).Msg("failed to load linked user profile")
			continue
		}
		// Unknown ids come back as empty profiles.
		if linked.DisplayName == "" && len(linked.Accounts) == 0 && len(linked.Funds) == 0 {
			continue
		}

		profile.Linked = append(profile.Linked, domain.LinkedProfile{
			UserID:          id,
			DisplayName:     linked.DisplayName,
			DefaultAccount:  linked.DefaultAccount,
			DefaultCurrency: linked.DefaultCurrency,
			DefaultFund:     linked.DefaultFund,
			Accounts:        linked.Accounts,
			Funds:           linked.Funds,
		})
		log.Debug().Str("linked_user_id", id).Msg("loaded linked user profile")
	}
}
