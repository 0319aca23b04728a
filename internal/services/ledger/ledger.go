// Package ledger implements the fate point and aspect economy.
//
// Every mutation goes through the store's atomic primitives; the ledger never
// reads a balance, adds in memory, and writes it back. History records are
// best-effort: a failed log append never rolls back the currency movement it
// describes, because the balances are authoritative and the log is narrative.
package ledger

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashfall-games/fatetable/internal/domain/aspect"
	"github.com/ashfall-games/fatetable/internal/platform/id"
	"github.com/ashfall-games/fatetable/internal/storage"

	apperrors "github.com/ashfall-games/fatetable/internal/platform/errors"
)

// Log entry types emitted by the ledger.
const (
	LogTypeFateUpdate   = "fate_update"
	LogTypeInvoke       = "invoke"
	LogTypeCompel       = "compel"
	LogTypeCompelReject = "compel_rejected"
	LogTypeBoost        = "boost"
	LogTypeFreeInvoke   = "free_invoke_granted"
)

var (
	// ErrNoPool indicates a grant against a source without a pool.
	ErrNoPool = apperrors.New(apperrors.CodeInvokeNoPool, "aspect source has no free invoke pool")
	// ErrBoostTarget indicates a boost whose target is neither a character nor
	// an active scene.
	ErrBoostTarget = apperrors.New(apperrors.CodeBoostTargetUnknown, "boost target is neither a character nor the active scene")
)

// Service moves fate points and free invokes.
type Service struct {
	store     storage.Store
	sessionID string
	clock     func() time.Time
	newID     func() (string, error)
	tracer    trace.Tracer
}

// New creates a ledger service bound to one game session.
func New(store storage.Store, sessionID string) *Service {
	return &Service{
		store:     store,
		sessionID: sessionID,
		clock:     time.Now,
		newID:     id.NewID,
		tracer:    otel.Tracer("fatetable/ledger"),
	}
}

// UpdateFate applies a fate point delta to a character or, when isCharacter is
// false, to the GM pool. Balances may go negative; the table polices debt
// socially, not mechanically.
func (s *Service) UpdateFate(ctx context.Context, targetID string, delta int, isCharacter bool) error {
	ctx, span := s.tracer.Start(ctx, "ledger.UpdateFate",
		trace.WithAttributes(attribute.String("target", targetID), attribute.Int("delta", delta)))
	defer span.End()

	var err error
	if isCharacter {
		err = s.store.IncrementFatePoints(ctx, targetID, delta)
	} else {
		err = s.store.IncrementGMFatePool(ctx, targetID, delta)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	characterID := ""
	if isCharacter {
		characterID = targetID
	}
	s.appendLog(ctx, LogTypeFateUpdate, characterID, "fate points adjusted", map[string]any{
		"target": targetID,
		"delta":  delta,
	})
	return nil
}

// Invoke spends an invocation of an aspect. The free path consumes one free
// invoke from the backing pool, flooring at zero; sources without a pool have
// nothing to consume and the free path leaves them untouched. The paid path
// debits one fate point from the acting character. All four combinations land
// in the session log.
func (s *Service) Invoke(ctx context.Context, actorID string, a aspect.UnifiedAspect, useFree bool) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Invoke",
		trace.WithAttributes(attribute.String("aspect", a.ID), attribute.Bool("free", useFree)))
	defer span.End()

	method := "paid"
	if useFree {
		method = "free"
		// The store floors pools at zero, so invoking an exhausted pool
		// spends nothing and changes nothing.
		if aspect.BehaviorFor(a.Source).HasFreePool {
			if err := s.store.AddFreeInvokes(ctx, a.ID, -1); err != nil {
				span.RecordError(err)
				return err
			}
		}
	} else {
		if err := s.store.IncrementFatePoints(ctx, actorID, -1); err != nil {
			span.RecordError(err)
			return err
		}
	}

	s.appendLog(ctx, LogTypeInvoke, actorID, "aspect invoked: "+a.Name, map[string]any{
		"aspect_id": a.ID,
		"aspect":    a.Name,
		"source":    string(a.Source),
		"method":    method,
	})
	return nil
}

// Compel offers a complication on an aspect and pays the target one fate point
// for accepting it.
func (s *Service) Compel(ctx context.Context, a aspect.UnifiedAspect, targetCharacterID string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Compel",
		trace.WithAttributes(attribute.String("aspect", a.ID)))
	defer span.End()

	if err := s.store.IncrementFatePoints(ctx, targetCharacterID, 1); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeCompel, targetCharacterID, "compel accepted: "+a.Name, map[string]any{
		"aspect_id": a.ID,
		"aspect":    a.Name,
	})
	return nil
}

// RejectCompel buys off a compel: the target spends one fate point to refuse
// the complication.
func (s *Service) RejectCompel(ctx context.Context, a aspect.UnifiedAspect, targetCharacterID string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.RejectCompel",
		trace.WithAttributes(attribute.String("aspect", a.ID)))
	defer span.End()

	if err := s.store.IncrementFatePoints(ctx, targetCharacterID, -1); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeCompelReject, targetCharacterID, "compel rejected: "+a.Name, map[string]any{
		"aspect_id": a.ID,
		"aspect":    a.Name,
	})
	return nil
}

// CreateBoost attaches a temporary one-invoke aspect to targetID. A character
// id gets a situational aspect; anything else falls through to the active
// scene; with neither, the boost has nowhere to live and is rejected.
func (s *Service) CreateBoost(ctx context.Context, name, targetID, createdBy string) (storage.PoolAspect, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CreateBoost",
		trace.WithAttributes(attribute.String("target", targetID)))
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return storage.PoolAspect{}, apperrors.New(apperrors.CodeAspectEmptyName, "boost name is required")
	}

	ownerType := storage.PoolOwnerCharacter
	ownerID := targetID
	if _, err := s.store.GetCharacter(ctx, targetID); err != nil {
		active, sceneErr := s.store.GetActiveScene(ctx)
		if sceneErr != nil {
			span.RecordError(err)
			return storage.PoolAspect{}, ErrBoostTarget
		}
		ownerType = storage.PoolOwnerScene
		ownerID = active.ID
	}

	aspectID, err := s.newID()
	if err != nil {
		return storage.PoolAspect{}, err
	}
	boost := storage.PoolAspect{
		ID:          aspectID,
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Name:        name,
		FreeInvokes: 1,
		CreatedBy:   createdBy,
		IsTemporary: true,
	}
	if err := s.store.PutPoolAspect(ctx, boost); err != nil {
		span.RecordError(err)
		return storage.PoolAspect{}, err
	}

	characterID := ""
	if ownerType == storage.PoolOwnerCharacter {
		characterID = ownerID
	}
	s.appendLog(ctx, LogTypeBoost, characterID, "boost created: "+name, map[string]any{
		"aspect_id":  aspectID,
		"owner_type": string(ownerType),
		"owner_id":   ownerID,
	})
	return boost, nil
}

// GrantFreeInvoke adds one free invoke to a pooled aspect, a GM reward for a
// create-advantage success.
func (s *Service) GrantFreeInvoke(ctx context.Context, a aspect.UnifiedAspect) error {
	ctx, span := s.tracer.Start(ctx, "ledger.GrantFreeInvoke",
		trace.WithAttributes(attribute.String("aspect", a.ID)))
	defer span.End()

	if !aspect.BehaviorFor(a.Source).HasFreePool {
		return ErrNoPool
	}
	if err := s.store.AddFreeInvokes(ctx, a.ID, 1); err != nil {
		span.RecordError(err)
		return err
	}
	s.appendLog(ctx, LogTypeFreeInvoke, "", "free invoke granted: "+a.Name, map[string]any{
		"aspect_id": a.ID,
		"aspect":    a.Name,
	})
	return nil
}

// appendLog records a history entry. Failures are logged and swallowed; the
// balance movement already committed and takes precedence over narration.
func (s *Service) appendLog(ctx context.Context, logType, characterID, message string, details map[string]any) {
	entryID, err := s.newID()
	if err != nil {
		log.Printf("ledger: log id: %v", err)
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("ledger: encode log details: %v", err)
		detailsJSON = nil
	}

	err = s.store.AppendLog(ctx, storage.LogEntry{
		ID:          entryID,
		SessionID:   s.sessionID,
		Message:     message,
		Type:        logType,
		CharacterID: characterID,
		DetailsJSON: string(detailsJSON),
		Timestamp:   s.clock().UTC(),
	})
	if err != nil {
		log.Printf("ledger: append %s log: %v", logType, err)
	}
}
