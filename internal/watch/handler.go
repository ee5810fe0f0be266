package watch

import (
	"context"

	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/dispatch"
	"github.com/olivoil/otpwatch/internal/logging"
	"github.com/olivoil/otpwatch/internal/metrics"
	"github.com/olivoil/otpwatch/internal/otp"
	"github.com/olivoil/otpwatch/internal/source"
)

// ConfigLoader returns a fresh config snapshot. A non-nil error comes with
// a usable (defaulted) config.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// Dispatcher is the action sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg config.Config, res dispatch.Result) dispatch.Outcome
}

// Handler is the Match step shared by both watchers.
type Handler struct {
	config     ConfigLoader
	dispatcher Dispatcher
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewHandler(cfg ConfigLoader, d Dispatcher, log *zap.Logger) *Handler {
	return &Handler{
		config:     cfg,
		dispatcher: d,
		log:        log,
		metrics:    metrics.New(),
	}
}

// Deliver returns the callback for one source.
func (h *Handler) Deliver(label string) Deliver {
	return func(ctx context.Context, msg source.RawMessage) {
		h.Handle(ctx, label, msg)
	}
}

// Handle snapshots the config once, then runs keyword matching, extraction
// and dispatch against that snapshot. It reports whether a code was
// dispatched.
func (h *Handler) Handle(ctx context.Context, label string, msg source.RawMessage) bool {
	cfg, err := h.config.Load()
	if err != nil {
		h.log.Warn("config has problems, using defaults where needed", zap.Error(err))
	}
	log := h.log.With(zap.String("source", label), zap.String("origin", msg.Origin))

	if label == LabelMail && !cfg.ListenToMail {
		log.Debug("mail listening disabled, ignored")
		return false
	}

	res := otp.Detect(msg.Text, cfg.TriggerKeywords, cfg.Policy())
	if !res.Triggered {
		log.Debug("no trigger keyword")
		return false
	}
	h.metrics.Triggered.WithLabelValues(label).Inc()
	if !res.Found() {
		log.Debug("triggered but no code candidate", zap.String("keyword", res.Keyword))
		return false
	}

	log.Info("code found",
		zap.String("keyword", res.Keyword),
		zap.Int("candidates", len(res.Candidates)),
		logging.Code(res.Code, cfg.Log.RevealCodes),
	)
	h.dispatcher.Dispatch(ctx, cfg, dispatch.Result{
		Code:    res.Code,
		Source:  label,
		Keyword: res.Keyword,
	})
	return true
}
