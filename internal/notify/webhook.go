// Package notify posts backup outcomes to an operator webhook. It consumes
// scheduler events from the event bus; delivery is best-effort and
// rate-limited so a flapping backup cannot flood the endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"backupd/internal/eventbus"
	"backupd/internal/scheduler"
)

type Config struct {
	WebhookURL string
	OnSuccess  bool
	OnFailure  bool
	RatePerSec int
	Timeout    time.Duration
}

type Notifier struct {
	cfg     Config
	log     *slog.Logger
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config, log *slog.Logger) *Notifier {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:     cfg,
		log:     log,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// payload is the JSON body posted to the webhook.
type payload struct {
	Event      string `json:"event"`
	Schedule   string `json:"schedule"`
	Type       string `json:"type,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
	Size       int64  `json:"size,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
	Time       string `json:"time"`
}

// Run consumes events until ctx is done or the channel closes. Intended to
// be spawned as a goroutine with a bus subscription channel.
func (n *Notifier) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.handle(ctx, ev)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, ev eventbus.Event) {
	switch ev.Type {
	case "backup.finished":
		if !n.cfg.OnSuccess {
			return
		}
	case "backup.failed", "backup.overdue":
		if !n.cfg.OnFailure {
			return
		}
	default:
		return
	}

	data, ok := ev.Data.(scheduler.BackupEvent)
	if !ok {
		return
	}
	if !n.limiter.Allow() {
		n.log.Debug("webhook notification dropped (rate limit)", slog.String("event", ev.Type))
		return
	}

	body, err := json.Marshal(payload{
		Event:      ev.Type,
		Schedule:   data.Schedule,
		Type:       data.Type,
		Artifact:   data.Artifact,
		Size:       data.Size,
		DurationMS: data.Duration.Milliseconds(),
		Error:      data.Error,
		Time:       ev.Time.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("webhook request build failed", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed", slog.String("event", ev.Type), slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.log.Warn("webhook rejected", slog.String("event", ev.Type), slog.Int("status", resp.StatusCode))
	}
}
