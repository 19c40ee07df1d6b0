package resources

import (
	"context"
	"time"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
)

type notifications struct {
	crud
}

func registerNotifications(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	n := notifications{crud{store: deps.Store, collection: Notifications, kind: "notification", entityType: "notification"}}
	exec.RegisterBackend(Notifications, n.backend())

	caps.Register("notification", domain.ActionQuery, n.query)
	caps.Register("notification", domain.ActionDelete, n.delete)
	caps.Register("notification", "mark_as_seen", n.markAsSeen)
}

func (n notifications) markAsSeen(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	_, err := n.store.Update(Notifications, call.Entity.ID, func(e *domain.Entity) error {
		e.Attributes["seen"] = true
		e.Attributes["seen_on"] = time.Now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, "Marked "+call.Entity.Label("notification")+" as seen"), nil
}
