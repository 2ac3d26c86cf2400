// Package chat answers conversational product queries: it resolves the
// session, retrieves and ranks products, composes a reply and records the
// exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/domain/query"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/usecase/classifier"
	"github.com/kailas-cloud/shopsearch/internal/usecase/compose"
)

// imageTurnText stands in for the user's text on image-only queries.
const imageTurnText = "[image]"

// Request is one user message.
type Request struct {
	SessionID    string
	Text         string
	Image        []byte
	CategoryHint string
	Limit        int
	MinScore     float64
	Sort         string
}

// Response is the assistant's answer. NoResults is a normal outcome, not
// an error.
type Response struct {
	Text      string
	Products  []candidate.ScoredProduct
	NoResults bool
	Category  string
	Tiers     []string
	Degraded  bool
}

// Options tune the chat service.
type Options struct {
	HistoryTurns int
	DefaultLimit int // used when a request leaves limit zero
	MaxLimit     int
}

// Service handles chat queries.
type Service struct {
	sessions  SessionStore
	retriever Retriever
	composer  Composer
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a chat service.
func New(sessions SessionStore, retriever Retriever, composer Composer, opts Options, logger *zap.Logger) *Service {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = conversation.MaxTurns
	}
	return &Service{
		sessions:  sessions,
		retriever: retriever,
		composer:  composer,
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// StartSession opens a session scoped to owner.
func (s *Service) StartSession(ctx context.Context, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", domain.NewStageError(domain.StageValidate, domain.InvalidInputf("owner_id is required"))
	}
	id, err := s.sessions.Create(ctx, owner)
	if err != nil {
		return "", domain.NewStageError(domain.StageSession, fmt.Errorf("create session: %w", err))
	}
	return id, nil
}

// History returns up to n most recent turns, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, n int) ([]conversation.Turn, error) {
	if sessionID == "" {
		return nil, domain.NewStageError(domain.StageValidate, domain.InvalidInputf("session ID is required"))
	}
	if n <= 0 || n > s.opts.HistoryTurns {
		n = s.opts.HistoryTurns
	}
	if _, err := s.owner(ctx, sessionID); err != nil {
		return nil, err
	}
	turns, err := s.sessions.RecentTurns(ctx, sessionID, n)
	if err != nil {
		return nil, domain.NewStageError(domain.StageSession, fmt.Errorf("read history: %w", err))
	}
	return turns, nil
}

// HandleQuery runs one conversational turn.
func (s *Service) HandleQuery(ctx context.Context, req Request) (Response, error) {
	params, err := s.validate(req)
	if err != nil {
		return Response{}, domain.NewStageError(domain.StageValidate, err)
	}

	ctx = logger.ContextWithLogger(ctx, logger.FromContextOr(ctx, s.logger))
	ctx, log := logger.WithSession(ctx, req.SessionID)
	if params.Owner, err = s.owner(ctx, req.SessionID); err != nil {
		return Response{}, err
	}

	history, err := s.sessions.RecentTurns(ctx, req.SessionID, s.opts.HistoryTurns)
	if err != nil {
		log.Warn("Failed to read session history", zap.Error(err))
		history = nil
	}

	userText := strings.TrimSpace(req.Text)
	if len(req.Image) == 0 && compose.IsGreeting(userText) {
		reply := compose.Greeting(conversation.IsFirstExchange(history))
		s.record(ctx, req.SessionID, userText, Response{Text: reply})
		return Response{Text: reply}, nil
	}

	q, err := query.New(params)
	if err != nil {
		return Response{}, domain.NewStageError(domain.StageValidate, err)
	}
	if resolved, ok := resolveFollowUp(userText, history); ok {
		log.Debug("Resolved follow-up against previous reply", zap.String("search_text", resolved))
		q = q.WithText(resolved)
	}

	res, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		log.Error("Retrieval failed",
			zap.String("stage", domain.StageOf(err)),
			zap.Error(err),
		)
		return Response{}, err
	}

	resp := Response{
		Products:  res.Products,
		NoResults: len(res.Products) == 0,
		Category:  res.Category,
		Tiers:     res.Tiers,
		Degraded:  res.Degraded,
	}
	resp.Text = s.composer.Compose(ctx, compose.Input{
		Query:    userText,
		Products: res.Products,
		History:  history,
		Jewelry:  res.Category == category.Jewelry || classifier.IsJewelryQuery(q.Text()),
	})

	s.record(ctx, req.SessionID, userText, resp)

	log.Info("Query answered",
		zap.Int("products", len(resp.Products)),
		zap.String("category", resp.Category),
		zap.Strings("tiers", resp.Tiers),
		zap.Bool("degraded", resp.Degraded),
	)
	return resp, nil
}

func (s *Service) validate(req Request) (query.Params, error) {
	if req.SessionID == "" {
		return query.Params{}, domain.InvalidInputf("session ID is required")
	}
	sort, err := query.ParseSort(req.Sort)
	if err != nil {
		return query.Params{}, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	p := query.Params{
		Text:         req.Text,
		Image:        req.Image,
		CategoryHint: req.CategoryHint,
		Limit:        limit,
		MaxLimit:     s.opts.MaxLimit,
		MinScore:     req.MinScore,
		Sort:         sort,
	}
	if err := p.Validate(); err != nil {
		return query.Params{}, err
	}
	return p, nil
}

func (s *Service) owner(ctx context.Context, sessionID string) (string, error) {
	owner, err := s.sessions.Owner(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.NewStageError(domain.StageSession, fmt.Errorf("session %s: %w", sessionID, err))
		}
		return "", domain.NewStageError(domain.StageSession, fmt.Errorf("resolve session: %w", err))
	}
	return owner, nil
}

// record appends the user and assistant turns. History is best effort:
// failures are logged and the reply still goes out.
func (s *Service) record(ctx context.Context, sessionID, userText string, resp Response) {
	if userText == "" {
		userText = imageTurnText
	}
	now := s.now().UTC()

	assistant := conversation.Turn{
		SessionID: sessionID,
		Role:      conversation.RoleAssistant,
		Text:      resp.Text,
		Timestamp: now,
	}
	for i := range resp.Products {
		p := &resp.Products[i].Product
		assistant.ProductIDs = append(assistant.ProductIDs, p.ID())
		assistant.ProductNames = append(assistant.ProductNames, p.Name())
	}

	for _, t := range []conversation.Turn{
		{SessionID: sessionID, Role: conversation.RoleUser, Text: userText, Timestamp: now},
		assistant,
	} {
		if err := s.sessions.AppendTurn(ctx, t, s.opts.HistoryTurns); err != nil {
			logger.FromContext(ctx).Warn("Failed to save turn",
				zap.String("role", string(t.Role)),
				zap.Error(err),
			)
			return
		}
	}
}
