package resources

import (
	"context"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

type tasks struct {
	useCase taskUsecase.TaskUseCase
}

func registerTasks(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	t := tasks{useCase: deps.Tasks}
	exec.RegisterBackend(Tasks, TaskBackend{Tasks: deps.Tasks})

	caps.Register("task", domain.ActionQuery, t.query)
	caps.Register("task", "cancel", t.cancel)
	caps.Register("task", domain.ActionDelete, t.delete)
}

func (t tasks) query(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return resourceResult(call, *call.Entity), nil
}

func (t tasks) cancel(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	task, err := t.useCase.Cancel(ctx, call.Entity.ID)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, "Cancelled task "+task.Name), nil
}

func (t tasks) delete(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if err := t.useCase.Delete(ctx, call.Entity.ID); err != nil {
		return domain.ActionResult{}, err
	}
	return deleted(call, "task"), nil
}
