// Package cache keeps an in-memory mirror of the store for low-latency reads.
//
// The store remains the single source of truth: the cache never mutates
// anything. It reloads affected collections when the watch broker reports a
// change, and re-derives the unified aspect list after every reload so that
// readers always see a view consistent with the mirrored documents.
package cache

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ashfall-games/fatetable/internal/domain/aspect"
	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/domain/scene"
	"github.com/ashfall-games/fatetable/internal/domain/table"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// Cache mirrors the session's collections and serves copies to readers.
type Cache struct {
	store     storage.Store
	broker    *watch.Broker
	sessionID string

	mu          sync.RWMutex
	characters  []character.Character
	scenes      []scene.Scene
	activeScene *scene.Scene
	npcs        []npc.ActiveNPC
	session     table.GameSession
	themes      []string
	logEntries  []storage.LogEntry
	aspects     []aspect.UnifiedAspect

	degraded bool
}

// New builds a cache bound to one game session. Call Run to start mirroring.
func New(store storage.Store, broker *watch.Broker, sessionID string) *Cache {
	return &Cache{store: store, broker: broker, sessionID: sessionID}
}

// Run loads the initial snapshot and then applies broker changes until ctx is
// cancelled or the broker closes. On exit the mirror is cleared so stale data
// cannot be served after the subscription ends.
func (c *Cache) Run(ctx context.Context) error {
	sub := c.broker.Subscribe()
	defer sub.Unsubscribe()

	c.reloadAll(ctx)

	for {
		select {
		case <-ctx.Done():
			c.clear()
			return ctx.Err()
		case change, ok := <-sub.C:
			if !ok {
				c.clear()
				return nil
			}
			c.apply(ctx, change.Collection)
		}
	}
}

// apply reloads the collection a change touched. Aspect pools live inside
// character and scene documents, so pool changes refresh both.
func (c *Cache) apply(ctx context.Context, collection watch.Collection) {
	switch collection {
	case watch.CollectionCharacters:
		c.reloadCharacters(ctx)
	case watch.CollectionAspects:
		c.reloadCharacters(ctx)
		c.reloadScenes(ctx)
	case watch.CollectionScenes:
		c.reloadScenes(ctx)
	case watch.CollectionNPCs:
		c.reloadNPCs(ctx)
	case watch.CollectionSessions:
		c.reloadSession(ctx)
	case watch.CollectionLog:
		c.reloadLog(ctx)
	}
}

func (c *Cache) reloadAll(ctx context.Context) {
	c.reloadCharacters(ctx)
	c.reloadScenes(ctx)
	c.reloadNPCs(ctx)
	c.reloadSession(ctx)
	c.reloadLog(ctx)
}

func (c *Cache) reloadCharacters(ctx context.Context) {
	characters, err := c.store.ListCharacters(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.degradeLocked("characters", err)
		characters = nil
	} else {
		c.degraded = false
	}
	c.characters = characters
	c.reaggregateLocked()
}

func (c *Cache) reloadScenes(ctx context.Context) {
	scenes, err := c.store.ListScenes(ctx)
	var active *scene.Scene
	for i := range scenes {
		if scenes[i].Status == scene.StatusActive {
			active = &scenes[i]
			break
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.degradeLocked("scenes", err)
		scenes = nil
		active = nil
	} else {
		c.degraded = false
	}
	c.scenes = scenes
	c.activeScene = active
	c.reaggregateLocked()
}

func (c *Cache) reloadNPCs(ctx context.Context) {
	npcs, err := c.store.ListNPCs(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.degradeLocked("npcs", err)
		npcs = nil
	} else {
		c.degraded = false
	}
	c.npcs = npcs
	c.reaggregateLocked()
}

func (c *Cache) reloadSession(ctx context.Context) {
	sess, sessErr := c.store.GetSession(ctx, c.sessionID)
	if errors.Is(sessErr, storage.ErrNotFound) {
		sessErr = nil
	}
	themes, themesErr := c.store.GetThemes(ctx, c.sessionID)
	if errors.Is(themesErr, storage.ErrNotFound) {
		themesErr = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case sessErr != nil:
		c.degradeLocked("session", sessErr)
	case themesErr != nil:
		c.degradeLocked("themes", themesErr)
	default:
		c.degraded = false
	}
	c.session = sess
	c.themes = themes
	c.reaggregateLocked()
}

func (c *Cache) reloadLog(ctx context.Context) {
	entries, err := c.store.ListLog(ctx, c.sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.degradeLocked("log", err)
		entries = nil
	} else {
		c.degraded = false
	}
	c.logEntries = entries
}

// reaggregateLocked rebuilds the unified aspect list from the current mirror.
// Caller holds c.mu.
func (c *Cache) reaggregateLocked() {
	themes := aspect.Themes{CampaignID: c.sessionID, Names: c.themes}

	// Only NPCs placed in the active scene contribute aspects.
	var placed []npc.ActiveNPC
	if c.activeScene != nil {
		for _, n := range c.npcs {
			if n.SceneID == c.activeScene.ID {
				placed = append(placed, n)
			}
		}
	}

	c.aspects = aspect.Aggregate(themes, c.characters, placed, c.activeScene)
}

// degradeLocked reports the first failure of a degradation episode; any
// successful reload resets the latch so the next episode is reported again.
// The affected collection is served empty until a later change reloads it.
// Caller holds c.mu.
func (c *Cache) degradeLocked(collection string, err error) {
	if c.degraded {
		return
	}
	c.degraded = true
	log.Printf("cache: reload %s failed, serving empty until recovery: %v", collection, err)
}

func (c *Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.characters = nil
	c.scenes = nil
	c.activeScene = nil
	c.npcs = nil
	c.session = table.GameSession{}
	c.themes = nil
	c.logEntries = nil
	c.aspects = nil
}

// Characters returns a copy of the mirrored character list.
func (c *Cache) Characters() []character.Character {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]character.Character(nil), c.characters...)
}

// Character looks a mirrored character up by id.
func (c *Cache) Character(id string) (character.Character, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.characters {
		if ch.ID == id {
			return ch, true
		}
	}
	return character.Character{}, false
}

// Scenes returns a copy of the mirrored scene list.
func (c *Cache) Scenes() []scene.Scene {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]scene.Scene(nil), c.scenes...)
}

// ActiveScene returns the active scene, if any.
func (c *Cache) ActiveScene() (scene.Scene, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.activeScene == nil {
		return scene.Scene{}, false
	}
	return *c.activeScene, true
}

// NPCs returns a copy of the mirrored live-NPC list.
func (c *Cache) NPCs() []npc.ActiveNPC {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]npc.ActiveNPC(nil), c.npcs...)
}

// Session returns the mirrored game session.
func (c *Cache) Session() table.GameSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess := c.session
	if sess.Seats != nil {
		seats := make(map[string]string, len(sess.Seats))
		for k, v := range sess.Seats {
			seats[k] = v
		}
		sess.Seats = seats
	}
	return sess
}

// Themes returns a copy of the campaign theme list.
func (c *Cache) Themes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.themes...)
}

// Log returns a copy of the session history, oldest first.
func (c *Cache) Log() []storage.LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]storage.LogEntry(nil), c.logEntries...)
}

// Aspects returns the unified aspect view derived from the current mirror.
func (c *Cache) Aspects() []aspect.UnifiedAspect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]aspect.UnifiedAspect(nil), c.aspects...)
}

// Aspect resolves one unified aspect by its synthetic id.
func (c *Cache) Aspect(id string) (aspect.UnifiedAspect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.aspects {
		if a.ID == id {
			return a, true
		}
	}
	return aspect.UnifiedAspect{}, false
}
