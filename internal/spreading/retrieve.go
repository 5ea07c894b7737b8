package spreading

import (
	"context"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/models"
	"github.com/nvandessel/pamem/internal/store"
)

// sentenceActivation is the activation given to a role concept recalled from
// a retrieved scene.
const sentenceActivation = 0.8

// retrieve runs backward retrieval for a semantic step: while language
// generation is a goal, it recalls the stored scenes in which an instance of
// the target concept plays a role and which the chain's origin points into.
func (e *Engine) retrieve(ctx context.Context, st *step) {
	if e.store == nil {
		return
	}
	if len(e.router.NodesTagged(buffer.Goal, models.TagLanguageGeneration)) == 0 {
		return
	}
	origin := st.target.OriginID()
	if origin == "" {
		return
	}

	rows, err := e.store.Query(ctx, store.Pattern{
		Kind:    store.PatternAnalogousScenes,
		Subject: st.target.ID,
		Object:  origin,
	})
	if err != nil {
		e.logger.Warn("analogous scene query failed", "concept", st.target.ID, "error", err)
		return
	}

	var main *models.Node
	visited := make(map[string]bool)
	for _, row := range rows {
		scene := e.materialize(row.Node)
		if scene == nil {
			continue
		}
		if main == nil {
			main = scene
		}
		e.logger.Debug("retrieved scene", "scene", scene.Label, "concept", st.target.Label)
		n := e.recallScene(ctx, scene, visited)
		if n > 0 && scene == main {
			if err := e.schedule(1, &grammarTask{engine: e, scene: scene}); err != nil {
				e.logger.Warn("failed to schedule grammar task", "scene", scene.Label, "error", err)
			}
		}
	}
}

// recallScene routes the scene's member links into the scene buffers,
// descending into sub-scenes, and returns how many members it routed.
func (e *Engine) recallScene(ctx context.Context, scene *models.Node, visited map[string]bool) int {
	if visited[scene.ID] {
		return 0
	}
	visited[scene.ID] = true

	rows, err := e.store.Query(ctx, store.Pattern{Kind: store.PatternSceneMembers, Subject: scene.ID})
	if err != nil {
		e.logger.Warn("scene member query failed", "scene", scene.ID, "error", err)
		return 0
	}

	count := 0
	for _, row := range rows {
		if row.Link == nil {
			continue
		}
		src := e.materialize(row.Source)
		sink := e.materialize(row.Sink)
		if src == nil || sink == nil {
			continue
		}
		link, _ := e.graph.AddLink(row.Link.ToLink())
		src.SetOrigin(models.Provenance{NodeID: sink.ID, SceneID: scene.ID, Category: link.Category()})

		for _, name := range []buffer.Name{buffer.Scene, buffer.CurrentScene, buffer.NonConscious} {
			e.route(name, buffer.NodePercept(src))
			e.route(name, buffer.NodePercept(sink))
			e.route(name, buffer.LinkPercept(link))
		}
		count++

		if src.HasTag(models.TagScene) {
			count += e.recallScene(ctx, src, visited)
		}
		e.recallRole(ctx, link.Category())
	}
	return count
}

// recallRole starts propagation from the concept naming a role.
func (e *Engine) recallRole(ctx context.Context, category string) {
	role, err := e.resolve(ctx, category)
	if err != nil {
		e.logger.Warn("failed to resolve role concept", "category", category, "error", err)
		return
	}
	if role == nil {
		return
	}
	role.SetActivation(sentenceActivation)
	if err := e.schedule(e.config.PropagationTicks, &excitationTask{
		engine: e,
		node:   role,
		source: "sentence",
		depth:  1,
	}); err != nil {
		e.logger.Warn("failed to schedule role propagation", "category", category, "error", err)
	}
}
