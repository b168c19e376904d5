package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/authz"
)

type stubOrphans struct {
	grants []authz.Grant
	err    error
}

func (s stubOrphans) ListOrphanedGrants(_ context.Context) ([]authz.Grant, error) {
	return s.grants, s.err
}

type stubRemover struct {
	deleted []int64
}

func (s *stubRemover) DeleteGrant(_ context.Context, grantID int64) (bool, error) {
	s.deleted = append(s.deleted, grantID)
	return true, nil
}

func integrityTask(t *testing.T, payload GrantIntegrityPayload) *asynq.Task {
	t.Helper()
	task, err := NewGrantIntegrityTask(payload)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestGrantIntegrityDeletesOrphans(t *testing.T) {
	remover := &stubRemover{}
	job := NewGrantIntegrityJob(stubOrphans{grants: []authz.Grant{
		{ID: 7, UserID: "u1", PermissionCode: "reports.run"},
		{ID: 9, UserID: "u2", PermissionCode: "users.edit"},
	}}, remover, nil, nil)

	if err := job.Handle(context.Background(), integrityTask(t, GrantIntegrityPayload{})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remover.deleted) != 2 || remover.deleted[0] != 7 || remover.deleted[1] != 9 {
		t.Fatalf("deleted = %v", remover.deleted)
	}
}

func TestGrantIntegrityReportOnlyKeepsRows(t *testing.T) {
	remover := &stubRemover{}
	job := NewGrantIntegrityJob(stubOrphans{grants: []authz.Grant{{ID: 7}}}, remover, nil, nil)

	if err := job.Handle(context.Background(), integrityTask(t, GrantIntegrityPayload{ReportOnly: true})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(remover.deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", remover.deleted)
	}
}

func TestGrantIntegrityPropagatesListError(t *testing.T) {
	job := NewGrantIntegrityJob(stubOrphans{err: errors.New("boom")}, nil, nil, nil)

	if err := job.Handle(context.Background(), integrityTask(t, GrantIntegrityPayload{})); err == nil {
		t.Fatal("expected error")
	}
}

func TestGrantIntegritySkipsRetryOnBadPayload(t *testing.T) {
	job := NewGrantIntegrityJob(stubOrphans{}, nil, nil, nil)
	task := asynq.NewTask(TaskGrantIntegrity, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

type stubCatalog struct {
	perms []authz.Permission
}

func (s stubCatalog) ListActivePermissions(_ context.Context) ([]authz.Permission, error) {
	return s.perms, nil
}

type stubWarmer struct {
	warmed []authz.Permission
}

func (s *stubWarmer) Warm(_ context.Context, perms []authz.Permission) {
	s.warmed = append(s.warmed, perms...)
}

func TestCatalogWarmupStoresCatalog(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewCatalogWarmupJob(stubCatalog{perms: []authz.Permission{
		{ID: 1, Code: "users.view", IsActive: true},
		{ID: 2, Code: "users.edit", IsActive: true},
	}}, warmer, nil, nil)

	task, err := NewCatalogWarmupTask("all")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(warmer.warmed) != 2 {
		t.Fatalf("warmed = %d", len(warmer.warmed))
	}

	var payload CatalogWarmupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Scope != "all" {
		t.Fatalf("scope = %q", payload.Scope)
	}
}
