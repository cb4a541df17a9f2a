package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
)

// Engine bundles the pipeline stages behind the two operations the edges
// (HTTP server, CLI, TUI) actually call.
type Engine struct {
	classifier   *Classifier
	generator    *Generator
	materializer *Materializer
	logger       *log.Logger
}

func NewEngine(completer services.Completer, catalog services.Catalog, resolver TrackResolver, logger *log.Logger) *Engine {
	return &Engine{
		classifier:   NewClassifier(completer, catalog, logger),
		generator:    NewGenerator(completer, logger),
		materializer: NewMaterializer(catalog, resolver, logger),
		logger:       logger,
	}
}

// Chat classifies one user message against the conversation so far.
//
// Taste context is fetched fresh for each message; failures there degrade to
// an empty context and never fail the chat.
func (e *Engine) Chat(ctx context.Context, message string, history []models.ConversationTurn) (*ChatResult, error) {
	taste := e.classifier.TasteContext(ctx)
	return e.classifier.Classify(ctx, message, history, taste)
}

// Plan derives the seeding strategy for a confirmed request and generates the
// song suggestions, without touching the user's account.
func (e *Engine) Plan(ctx context.Context, pending *models.PendingCreation) ([]models.SuggestedTrack, error) {
	if err := pending.Validate(); err != nil {
		return nil, err
	}

	intent := DeriveIntent(pending.Request)
	e.logger.Info("planning playlist", "name", pending.Name, "songs", pending.SongCount, "strategy", intent.Strategy)

	var taste models.TasteContext
	if intent.Strategy.UsesTaste() {
		taste = e.classifier.TasteContext(ctx)
	}

	return e.generator.Generate(ctx, pending, intent, taste, pending.SongCount)
}

// Materialize turns planned suggestions into an actual playlist. progress may be nil.
func (e *Engine) Materialize(ctx context.Context, pending *models.PendingCreation, tracks []models.SuggestedTrack, progress chan<- ProgressUpdate) (*models.CreatedPlaylist, error) {
	return e.materializer.Create(ctx, pending, tracks, progress)
}

// Create runs the full creation pipeline: Plan then Materialize.
func (e *Engine) Create(ctx context.Context, pending *models.PendingCreation, progress chan<- ProgressUpdate) (*models.CreatedPlaylist, error) {
	tracks, err := e.Plan(ctx, pending)
	if err != nil {
		return nil, err
	}
	return e.Materialize(ctx, pending, tracks, progress)
}
