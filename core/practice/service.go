package practice

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/services/llm"
)

var (
	ErrRateLimited     = errors.New("Rate limit exceeded. Please try again in a moment.")
	ErrQuotaExhausted  = errors.New("AI credits exhausted. Please add credits to continue.")
	ErrMalformedOutput = errors.New("AI returned an unreadable practice set. Please try again.")
	ErrUnavailable     = errors.New("AI service unavailable")
)

type Service struct {
	conf     *core.Config
	provider llm.Provider
	validate *validator.Validate
	logger   core.Logger
}

func NewService(conf *core.Config, provider llm.Provider, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{conf: conf, provider: provider, validate: validate, logger: logger}
}

// Generate asks the model for a practice set on req.OutcomeName. Upstream failures map to
// ErrRateLimited, ErrQuotaExhausted, ErrMalformedOutput or ErrUnavailable.
func (svc *Service) Generate(ctx context.Context, req Request) (Set, error) {
	if err := req.Validate(svc.validate); err != nil {
		return Set{}, err
	}
	lvl := levelFor(*req.MasteryPercentage)

	if svc.conf.LLM.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.conf.LLM.Timeout)
		defer cancel()
	}

	svc.logger.Info("generating practice set", map[string]interface{}{
		"count":      req.QuestionCount,
		"difficulty": lvl.difficulty,
		"outcome":    req.OutcomeName,
		"model":      svc.provider.ModelID(),
	})
	resp, err := svc.provider.Generate(ctx, llm.Request{
		System: systemPrompt,
		Prompt: userPrompt(req, lvl),
		Schema: setSchema,
	})
	if err != nil {
		return Set{}, svc.upstreamError(err)
	}

	var set Set
	if err := json.Unmarshal(resp.Content, &set); err != nil {
		svc.logger.Error("decoding practice set", err, map[string]interface{}{"content": string(resp.Content)})
		return Set{}, ErrMalformedOutput
	}
	if set.ContentType == "" {
		set.ContentType = lvl.contentType
	}
	return set, nil
}

func (svc *Service) upstreamError(err error) error {
	var (
		rl      *llm.RateLimitError
		quota   *llm.QuotaError
		invalid *llm.InvalidResponseError
	)
	switch {
	case errors.As(err, &rl):
		return ErrRateLimited
	case errors.As(err, &quota):
		return ErrQuotaExhausted
	case errors.As(err, &invalid):
		svc.logger.Warn("malformed practice set", err, map[string]interface{}{"content": string(invalid.Content)})
		return ErrMalformedOutput
	default:
		svc.logger.Error("generating practice set", err)
		return errors.Wrap(ErrUnavailable, err.Error())
	}
}
