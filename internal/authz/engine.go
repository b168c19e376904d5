package authz

import (
	"context"
	"errors"
	"log/slog"
)

// Check names used in diagnostics and metrics.
const (
	CheckGlobal     = "global"
	CheckDepartment = "department"
	CheckSelf       = "self"
)

// DecisionObserver records decision outcomes. Implementations must be safe for
// concurrent use.
type DecisionObserver interface {
	Decision(check string, allowed bool)
	Failure(check string)
}

// Engine answers "may this actor perform this action, at this scope, on this
// target?". It is a stateless ordered-predicate evaluator over the injected
// read ports: direct grants, the Administrator override, the department-bound
// Manager elevation, and the reflexive self shortcut.
//
// Every entry point is total: store failures degrade to a deny with a
// diagnostic log, never to an error or a permit.
type Engine struct {
	catalog  Catalog
	grants   GrantStore
	roles    RoleDirectory
	actors   ActorDirectory
	logger   *slog.Logger
	observer DecisionObserver
}

// NewEngine constructs an Engine over the given read ports.
func NewEngine(catalog Catalog, grants GrantStore, roles RoleDirectory, actors ActorDirectory, logger *slog.Logger, observer DecisionObserver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, grants: grants, roles: roles, actors: actors, logger: logger, observer: observer}
}

// HasPermission reports whether the actor holds the permission at minType or
// above in any scope, or is an Administrator. Unknown codes, inactive
// permissions, and missing or inactive actors all deny.
func (e *Engine) HasPermission(ctx context.Context, actorID, code string, minType PermissionType) bool {
	perm, _, ok := e.resolve(ctx, CheckGlobal, actorID, code)
	if !ok {
		return e.decide(CheckGlobal, false)
	}

	has, err := e.grants.HasGrantAtLeast(ctx, GrantQuery{
		UserID:       actorID,
		PermissionID: perm.ID,
		MinType:      minType,
		Scope:        AnyScope(),
	})
	if err != nil {
		return e.fail(CheckGlobal, actorID, code, err)
	}
	if has {
		return e.decide(CheckGlobal, true)
	}

	admin, err := e.roles.IsAdministrator(ctx, actorID)
	if err != nil {
		return e.fail(CheckGlobal, actorID, code, err)
	}
	return e.decide(CheckGlobal, admin)
}

// HasDepartmentPermission reports whether the actor may act on the given
// department. Global grants satisfy every department; a grant scoped to
// another department never does. Managers are elevated only within their own
// department.
func (e *Engine) HasDepartmentPermission(ctx context.Context, actorID, code string, minType PermissionType, departmentID int64) bool {
	perm, actor, ok := e.resolve(ctx, CheckDepartment, actorID, code)
	if !ok {
		return e.decide(CheckDepartment, false)
	}

	has, err := e.grants.HasGrantAtLeast(ctx, GrantQuery{
		UserID:       actorID,
		PermissionID: perm.ID,
		MinType:      minType,
		Scope:        DepartmentScope(departmentID),
	})
	if err != nil {
		return e.fail(CheckDepartment, actorID, code, err)
	}
	if has {
		return e.decide(CheckDepartment, true)
	}

	admin, err := e.roles.IsAdministrator(ctx, actorID)
	if err != nil {
		return e.fail(CheckDepartment, actorID, code, err)
	}
	if admin {
		return e.decide(CheckDepartment, true)
	}

	manager, err := e.roles.IsManager(ctx, actorID)
	if err != nil {
		return e.fail(CheckDepartment, actorID, code, err)
	}
	if manager && actor.DepartmentID != nil && *actor.DepartmentID == departmentID {
		return e.decide(CheckDepartment, true)
	}
	return e.decide(CheckDepartment, false)
}

// HasSelfPermission reports whether the actor may act on the target user's
// record. An actor always has standing over their own record: the reflexive
// shortcut runs before any data access, so self access never depends on
// catalog or grant state. Self-only grants satisfy nothing beyond that
// shortcut.
func (e *Engine) HasSelfPermission(ctx context.Context, actorID, code string, minType PermissionType, targetUserID string) bool {
	if actorID == targetUserID {
		return e.decide(CheckSelf, true)
	}

	perm, actor, ok := e.resolve(ctx, CheckSelf, actorID, code)
	if !ok {
		return e.decide(CheckSelf, false)
	}
	target, err := e.actors.FindActive(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			return e.decide(CheckSelf, false)
		}
		return e.fail(CheckSelf, actorID, code, err)
	}

	admin, err := e.roles.IsAdministrator(ctx, actorID)
	if err != nil {
		return e.fail(CheckSelf, actorID, code, err)
	}
	if admin {
		return e.decide(CheckSelf, true)
	}

	manager, err := e.roles.IsManager(ctx, actorID)
	if err != nil {
		return e.fail(CheckSelf, actorID, code, err)
	}
	if manager && actor.DepartmentID != nil && target.DepartmentID != nil && *actor.DepartmentID == *target.DepartmentID {
		return e.decide(CheckSelf, true)
	}

	has, err := e.grants.HasGrantAtLeast(ctx, GrantQuery{
		UserID:           actorID,
		PermissionID:     perm.ID,
		MinType:          minType,
		Scope:            AnyScope(),
		UnrestrictedOnly: true,
	})
	if err != nil {
		return e.fail(CheckSelf, actorID, code, err)
	}
	return e.decide(CheckSelf, has)
}

// resolve performs the shared permission and actor resolution. A false return
// means deny; hard failures are already logged.
func (e *Engine) resolve(ctx context.Context, check, actorID, code string) (Permission, Actor, bool) {
	perm, err := e.catalog.FindActiveByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrPermissionNotFound) {
			e.fail(check, actorID, code, err)
		}
		return Permission{}, Actor{}, false
	}
	actor, err := e.actors.FindActive(ctx, actorID)
	if err != nil {
		if !errors.Is(err, ErrActorNotFound) {
			e.fail(check, actorID, code, err)
		}
		return Permission{}, Actor{}, false
	}
	return perm, actor, true
}

func (e *Engine) decide(check string, allowed bool) bool {
	if e.observer != nil {
		e.observer.Decision(check, allowed)
	}
	return allowed
}

// fail records a data-access failure and denies. Failed decisions are never
// cached, so the next call re-evaluates against live stores.
func (e *Engine) fail(check, actorID, code string, err error) bool {
	e.logger.Error("authz decision degraded to deny",
		slog.String("check", check),
		slog.String("actor", actorID),
		slog.String("permission", code),
		slog.Any("error", err))
	if e.observer != nil {
		e.observer.Failure(check)
		e.observer.Decision(check, false)
	}
	return false
}
