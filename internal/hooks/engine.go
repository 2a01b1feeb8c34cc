package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/hookline/internal/dispatch"
	"github.com/nextlevelbuilder/hookline/internal/processing"
	"github.com/nextlevelbuilder/hookline/internal/prompt"
	"github.com/nextlevelbuilder/hookline/internal/ratelimit"
)

// ErrOverloaded marks a work item dropped because the queue was full.
var ErrOverloaded = errors.New("hook queue overloaded")

// notifyTimeout bounds the best-effort diagnostic send under on_error=notify.
const notifyTimeout = 5 * time.Second

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Limiter    *ratelimit.Limiter
	Prompts    *prompt.Registry
	Executor   *processing.Executor
	Dispatcher *dispatch.Dispatcher
	Sender     dispatch.Sender // diagnostic channel for on_error=notify
	Workers    int             // default 4
	QueueSize  int             // default 4×Workers
}

// Engine coordinates hook evaluation over the gateway feed. The feed loop
// calls HandleMessage synchronously; matching, filtering, and rate limiting
// run inline, and everything that can block (render, process, dispatch) is
// offloaded to a bounded worker pool so a stuck hook never stalls ingestion.
type Engine struct {
	limiter    *ratelimit.Limiter
	prompts    *prompt.Registry
	executor   *processing.Executor
	dispatcher *dispatch.Dispatcher
	sender     dispatch.Sender
	workers    int

	set   atomic.Pointer[Set]
	botID atomic.Value // string

	queue  chan work
	group  *errgroup.Group
	cancel context.CancelFunc
}

// work is one hook execution: render, process, dispatch. Independent of all
// other work items; completions may happen in any order.
type work struct {
	id     string
	hook   Hook
	event  MessageEvent
	match  MatchResult
	policy ErrorPolicy
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4 * cfg.Workers
	}
	return &Engine{
		limiter:    cfg.Limiter,
		prompts:    cfg.Prompts,
		executor:   cfg.Executor,
		dispatcher: cfg.Dispatcher,
		sender:     cfg.Sender,
		workers:    cfg.Workers,
		queue:      make(chan work, cfg.QueueSize),
	}
}

// Swap installs a new hook-set snapshot atomically and drops cached prompt
// templates. In-flight evaluations keep the snapshot they started with.
func (e *Engine) Swap(set *Set) {
	e.set.Store(set)
	e.prompts.Invalidate()
	slog.Info("hook set loaded", "hooks", len(set.Hooks), "on_error", set.OnError)
}

// Snapshot returns the current hook set, or nil before the first Swap.
func (e *Engine) Snapshot() *Set {
	return e.set.Load()
}

// SetIdentity records the bot's own user ID once the gateway reports it.
// Mention triggers do not fire until it is known.
func (e *Engine) SetIdentity(botID string) {
	e.botID.Store(botID)
}

func (e *Engine) identity() string {
	id, _ := e.botID.Load().(string)
	return id
}

// Start launches the worker pool. Workers exit when ctx is cancelled or Stop
// is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.group = new(errgroup.Group)
	for i := 0; i < e.workers; i++ {
		e.group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case w := <-e.queue:
					e.run(ctx, w)
				}
			}
		})
	}
	slog.Info("hook engine started", "workers", e.workers, "queue", cap(e.queue))
}

// Stop cancels in-flight work and waits for the pool to drain, giving up
// after the grace period.
func (e *Engine) Stop(grace time.Duration) {
	if e.cancel == nil {
		return
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("hook engine stopped")
	case <-time.After(grace):
		slog.Warn("hook engine workers did not drain within grace period", "grace", grace)
	}
}

// HandleMessage gates one inbound event against every loaded hook and
// enqueues a work item per passing hook. Called from the feed's read loop;
// never blocks on hook execution. All matching hooks fire independently, in
// declaration order of admission.
func (e *Engine) HandleMessage(event MessageEvent) {
	set := e.set.Load()
	if set == nil {
		return
	}
	botID := e.identity()
	now := time.Now()

	for _, hook := range set.Hooks {
		if _, ok := hook.Channels[event.ChannelID]; !ok {
			continue
		}
		if !hook.Filter.Passes(event) {
			continue
		}
		match, ok := hook.Trigger.Match(event, botID)
		if !ok {
			continue
		}
		// Admission is the rate-limit accounting point: the timestamp is
		// recorded here, before the work is scheduled, so limiter state
		// reflects wall-clock arrival order regardless of execution latency.
		if !e.limiter.Allow(hook.Limit, hook.ID, event.AuthorID, event.ChannelID, now) {
			slog.Debug("hook rate limited",
				"hook", hook.ID, "user", event.AuthorID, "channel", event.ChannelID)
			continue
		}

		e.enqueue(work{
			id:     uuid.NewString(),
			hook:   hook,
			event:  event,
			match:  match,
			policy: set.OnError,
		})
	}
}

// enqueue adds w to the bounded queue. When the queue is full the oldest
// queued item is dropped so the feed reader keeps its liveness; the dropped
// item is reported as overloaded.
func (e *Engine) enqueue(w work) {
	select {
	case e.queue <- w:
		return
	default:
	}

	select {
	case old := <-e.queue:
		e.report(old, fmt.Errorf("dropped before execution: %w", ErrOverloaded))
	default:
	}

	select {
	case e.queue <- w:
	default:
		e.report(w, fmt.Errorf("queue still full: %w", ErrOverloaded))
	}
}

// run executes one work item: render the prompt, run the processor, dispatch
// the result. Each failure is handled by the snapshot's error policy and
// never escapes to the worker loop.
func (e *Engine) run(ctx context.Context, w work) {
	rendered, err := e.prompts.Render(w.hook.PromptPath, templateVars(w.event, w.match))
	if err != nil {
		e.report(w, fmt.Errorf("render prompt: %w", err))
		return
	}

	output, err := e.executor.Execute(ctx, w.hook.Processing, rendered, metadataFor(w.event))
	if err != nil {
		e.report(w, err)
		return
	}

	// Dispatch gets its own deadline so a hung delivery cannot pin a worker
	// past the hook's budget.
	dispatchCtx, cancel := context.WithTimeout(ctx, w.hook.Processing.Timeout)
	defer cancel()
	if err := e.dispatcher.Dispatch(dispatchCtx, w.hook.Action, originFor(w.event), output); err != nil {
		e.report(w, err)
		return
	}

	slog.Debug("hook executed",
		"work_id", w.id, "hook", w.hook.ID, "message", w.event.MessageID)
}

// report applies the configured error policy to a failed work item.
func (e *Engine) report(w work, err error) {
	switch w.policy {
	case OnErrorIgnore:
		return
	case OnErrorNotify:
		slog.Error("hook execution failed",
			"work_id", w.id, "hook", w.hook.ID, "message", w.event.MessageID, "error", err)
		if e.sender == nil {
			return
		}
		name := w.hook.Name
		if name == "" {
			name = w.hook.ID
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		diag := fmt.Sprintf("hook %s failed: %v", name, err)
		if sendErr := e.sender.SendToChannel(ctx, w.event.ChannelID, diag); sendErr != nil {
			slog.Warn("failed to deliver hook diagnostic",
				"hook", w.hook.ID, "channel", w.event.ChannelID, "error", sendErr)
		}
	default: // log
		slog.Error("hook execution failed",
			"work_id", w.id, "hook", w.hook.ID, "message", w.event.MessageID, "error", err)
	}
}

// templateVars builds the substitution map for prompt rendering. Regex
// capture groups appear as match_0, match_1, ...
func templateVars(event MessageEvent, match MatchResult) map[string]string {
	vars := map[string]string{
		"content":     match.Content,
		"author_id":   event.AuthorID,
		"author_name": event.AuthorName,
		"channel_id":  event.ChannelID,
		"message_id":  event.MessageID,
		"timestamp":   event.Timestamp.UTC().Format(time.RFC3339),
		"attachments": strings.Join(event.Attachments, "\n"),
	}
	for i, group := range match.Groups {
		vars["match_"+strconv.Itoa(i)] = group
	}
	return vars
}

func metadataFor(event MessageEvent) processing.Metadata {
	return processing.Metadata{
		AuthorName: event.AuthorName,
		AuthorID:   event.AuthorID,
		ChannelID:  event.ChannelID,
		MessageID:  event.MessageID,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
	}
}

func originFor(event MessageEvent) dispatch.Origin {
	return dispatch.Origin{
		ChannelID:  event.ChannelID,
		AuthorID:   event.AuthorID,
		AuthorName: event.AuthorName,
		MessageID:  event.MessageID,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
	}
}
