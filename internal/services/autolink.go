package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// AutoLinkService connects semantically similar nodes with auto-generated
// edges. A nil embedder disables it.
type AutoLinkService struct {
	db        *gorm.DB
	access    *AccessService
	activity  *ActivityService
	embedder  Embedder
	queue     TaskQueue
	threshold float64
	maxLinks  int
}

func NewAutoLinkService(db *gorm.DB, access *AccessService, activity *ActivityService, embedder Embedder, queue TaskQueue, cfg *config.AIConfig) *AutoLinkService {
	return &AutoLinkService{
		db:        db,
		access:    access,
		activity:  activity,
		embedder:  embedder,
		queue:     queue,
		threshold: cfg.SimilarityThreshold,
		maxLinks:  cfg.MaxLinksPerNode,
	}
}

func (s *AutoLinkService) Enabled() bool {
	return s.embedder != nil
}

// Request checks that the caller may edit the workspace and queues a run.
func (s *AutoLinkService) Request(ctx context.Context, userID, workspaceID string) error {
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return err
	}
	if !s.Enabled() {
		return ErrAutoLinkDisabled
	}
	return s.queue.Enqueue(&AutoLinkTask{WorkspaceID: workspaceID, UserID: userID})
}

// ProcessTask is the TaskProcessor wired into the queue and worker. Errors
// that a retry cannot fix are marked with asynq.SkipRetry.
func (s *AutoLinkService) ProcessTask(ctx context.Context, task *AutoLinkTask) error {
	created, err := s.Run(ctx, task.WorkspaceID, task.UserID)
	if err != nil {
		if isPermanent(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Infof("[AutoLink] workspace=%s created %d edges", task.WorkspaceID, created)
	return nil
}

func isPermanent(err error) bool {
	for _, target := range []error{ErrAccessDenied, ErrInsufficientRole, ErrWorkspaceNotFound, ErrAutoLinkDisabled} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type candidate struct {
	target string
	score  float64
}

// Run embeds nodes that lack a vector and links each node to its most
// similar peers. It returns the number of edges created.
func (s *AutoLinkService) Run(ctx context.Context, workspaceID, userID string) (int, error) {
	if !s.Enabled() {
		return 0, ErrAutoLinkDisabled
	}

	// The requester may have lost write access while the task was queued.
	if _, err := s.access.RequireAction(ctx, userID, workspaceID, rbac.ActionWrite); err != nil {
		return 0, err
	}

	var nodes []models.Node
	if err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&nodes).Error; err != nil {
		return 0, err
	}
	if len(nodes) < 2 {
		return 0, nil
	}

	if err := s.embedMissing(ctx, nodes); err != nil {
		return 0, err
	}

	var existing []models.Edge
	if err := s.db.WithContext(ctx).
		Select("source_id", "target_id").
		Where("workspace_id = ?", workspaceID).
		Find(&existing).Error; err != nil {
		return 0, err
	}
	linked := make(map[string]bool, len(existing)*2)
	for _, e := range existing {
		linked[pairKey(e.SourceID, e.TargetID)] = true
	}

	var edges []models.Edge
	for i := range nodes {
		a := &nodes[i]
		if len(a.Embedding) == 0 {
			continue
		}

		var cands []candidate
		for j := range nodes {
			b := &nodes[j]
			if i == j || len(b.Embedding) == 0 {
				continue
			}
			score := CosineSimilarity(a.Embedding, b.Embedding)
			if score >= s.threshold {
				cands = append(cands, candidate{target: b.ID, score: score})
			}
		}
		sort.SliceStable(cands, func(x, y int) bool { return cands[x].score > cands[y].score })

		picked := 0
		for _, c := range cands {
			if picked >= s.maxLinks {
				break
			}
			key := pairKey(a.ID, c.target)
			if linked[key] {
				continue
			}
			linked[key] = true
			picked++

			score := c.score
			edges = append(edges, models.Edge{
				WorkspaceID:   workspaceID,
				SourceID:      a.ID,
				TargetID:      c.target,
				Similarity:    &score,
				AutoGenerated: true,
			})
		}
	}

	if len(edges) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Create(&edges).Error; err != nil {
		return 0, err
	}

	s.activity.Record(ctx, ActivityEntry{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Action:      models.ActionEdgeAutolinked,
		Metadata:    map[string]interface{}{"count": len(edges), "threshold": s.threshold},
	})
	return len(edges), nil
}

func (s *AutoLinkService) embedMissing(ctx context.Context, nodes []models.Node) error {
	var idx []int
	var texts []string
	for i := range nodes {
		if len(nodes[i].Embedding) > 0 {
			continue
		}
		text := NodeText(&nodes[i])
		if text == "" {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, i := range idx {
			nodes[i].Embedding = vectors[k]
			if err := tx.Model(&nodes[i]).Select("embedding").Updates(&nodes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// pairKey is direction independent so A->B blocks a new B->A.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// NodeText is the text embedded for a node: its title followed by every
// string value found anywhere in its content document.
func NodeText(n *models.Node) string {
	parts := []string{}
	if t := strings.TrimSpace(n.Title); t != "" {
		parts = append(parts, t)
	}
	if len(n.Content) > 0 {
		collectStrings(gjson.ParseBytes(n.Content), &parts)
	}
	return strings.Join(parts, "\n")
}

func collectStrings(v gjson.Result, out *[]string) {
	switch {
	case v.Type == gjson.String:
		if s := strings.TrimSpace(v.String()); s != "" {
			*out = append(*out, s)
		}
	case v.IsArray() || v.IsObject():
		v.ForEach(func(_, value gjson.Result) bool {
			collectStrings(value, out)
			return true
		})
	}
}

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
