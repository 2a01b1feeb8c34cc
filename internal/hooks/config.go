package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/hookline/internal/dispatch"
	"github.com/nextlevelbuilder/hookline/internal/processing"
	"github.com/nextlevelbuilder/hookline/internal/ratelimit"
)

// ErrorPolicy selects how per-event failures are handled.
type ErrorPolicy string

const (
	OnErrorLog    ErrorPolicy = "log"
	OnErrorIgnore ErrorPolicy = "ignore"
	OnErrorNotify ErrorPolicy = "notify"
)

// Defaults matching the documented hooks.yaml schema.
const (
	defaultPerUser       = 5
	defaultPerChannel    = 10
	defaultWindowSeconds = 60
	defaultTimeoutSecs   = 30
	defaultPromptsDir    = "./prompts"
)

// ConfigError is any validation failure in the hooks file. All config errors
// are fatal at load time; the listener never starts with one.
type ConfigError struct {
	Hook string // offending hook ID, empty for file-level problems
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Hook == "" {
		return fmt.Sprintf("hooks config: %v", e.Err)
	}
	return fmt.Sprintf("hooks config: hook %q: %v", e.Hook, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(hook, format string, args ...any) error {
	return &ConfigError{Hook: hook, Err: fmt.Errorf(format, args...)}
}

// File is the raw hooks.yaml schema.
type File struct {
	Version    string       `yaml:"version"`
	Settings   Settings     `yaml:"settings"`
	PromptsDir string       `yaml:"prompts_dir"`
	Hooks      []HookConfig `yaml:"hooks"`
}

type Settings struct {
	OnError   ErrorPolicy     `yaml:"on_error"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	PerUser       int `yaml:"per_user"`
	PerChannel    int `yaml:"per_channel"`
	WindowSeconds int `yaml:"window_seconds"`
}

type HookConfig struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Enabled    *bool            `yaml:"enabled"` // nil = true
	Channels   []string         `yaml:"channels"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	PromptFile string           `yaml:"prompt_file"`
	Filter     *FilterConfig    `yaml:"filter"`
	Action     ActionConfig     `yaml:"action"`
	Processing ProcessingConfig `yaml:"processing"`
	RateLimit  *RateLimitConfig `yaml:"rate_limit"` // per-hook override
}

type TriggerConfig struct {
	Type      string `yaml:"type"`
	Prefix    string `yaml:"prefix"`
	Substring string `yaml:"substring"`
	Pattern   string `yaml:"pattern"`
}

type FilterConfig struct {
	Users []string `yaml:"users"`
	Roles []string `yaml:"roles"`
}

type ActionConfig struct {
	Type      string `yaml:"type"`
	ChannelID string `yaml:"channel_id"` // forward target
	URL       string `yaml:"url"`        // webhook target
}

type ProcessingConfig struct {
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	ProcessorType  string   `yaml:"processor_type"`
	Cmd            []string `yaml:"cmd"`
	Command        string   `yaml:"command"` // shell-style alternative to cmd
	URL            string   `yaml:"url"`
}

// Hook is one compiled, validated hook. Immutable after load.
type Hook struct {
	ID         string
	Name       string
	Channels   map[string]struct{}
	Trigger    Trigger
	Filter     Filter
	PromptPath string // absolute path, verified to exist at load
	Action     dispatch.Action
	Processing processing.Spec
	Limit      ratelimit.Config
}

// Set is an immutable snapshot of the loaded configuration. Reloads build a
// fresh Set and swap it into the engine atomically; a Set is never mutated
// after Load returns it.
type Set struct {
	Hooks   []Hook // declaration order, enabled hooks only
	OnError ErrorPolicy
}

// Load reads, validates, and compiles a hooks file. promptsDir, when
// non-empty, overrides the file's prompts_dir. Any invalid field is a
// *ConfigError; partial results are never returned.
func Load(path, promptsDir string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	if len(file.Hooks) == 0 {
		return nil, configErr("", "no hooks defined")
	}

	if promptsDir == "" {
		promptsDir = file.PromptsDir
	}
	if promptsDir == "" {
		promptsDir = defaultPromptsDir
	}

	policy, err := compilePolicy(file.Settings.OnError)
	if err != nil {
		return nil, err
	}
	globalLimit, err := compileRateLimit("", file.Settings.RateLimit)
	if err != nil {
		return nil, err
	}

	set := &Set{OnError: policy}
	seen := make(map[string]bool)
	for _, hc := range file.Hooks {
		if hc.ID == "" {
			return nil, configErr("", "hook with empty id")
		}
		if seen[hc.ID] {
			return nil, configErr(hc.ID, "duplicate hook id")
		}
		seen[hc.ID] = true

		if hc.Enabled != nil && !*hc.Enabled {
			continue
		}

		hook, err := compileHook(hc, promptsDir, globalLimit)
		if err != nil {
			return nil, err
		}
		set.Hooks = append(set.Hooks, hook)
	}
	return set, nil
}

func compilePolicy(p ErrorPolicy) (ErrorPolicy, error) {
	switch p {
	case "":
		return OnErrorLog, nil
	case OnErrorLog, OnErrorIgnore, OnErrorNotify:
		return p, nil
	}
	return "", configErr("", "unknown on_error policy %q", p)
}

func compileRateLimit(hookID string, rc RateLimitConfig) (ratelimit.Config, error) {
	cfg := ratelimit.Config{
		PerUser:    rc.PerUser,
		PerChannel: rc.PerChannel,
		Window:     time.Duration(rc.WindowSeconds) * time.Second,
	}
	if cfg.PerUser == 0 {
		cfg.PerUser = defaultPerUser
	}
	if cfg.PerChannel == 0 {
		cfg.PerChannel = defaultPerChannel
	}
	if cfg.Window == 0 {
		cfg.Window = defaultWindowSeconds * time.Second
	}
	if cfg.PerUser < 0 || cfg.PerChannel < 0 || cfg.Window < 0 {
		return ratelimit.Config{}, configErr(hookID, "rate_limit values must be positive")
	}
	return cfg, nil
}

func compileHook(hc HookConfig, promptsDir string, globalLimit ratelimit.Config) (Hook, error) {
	if len(hc.Channels) == 0 {
		return Hook{}, configErr(hc.ID, "no channels defined")
	}
	channels := make(map[string]struct{}, len(hc.Channels))
	for _, ch := range hc.Channels {
		channels[ch] = struct{}{}
	}

	trigger, err := compileTrigger(hc.ID, hc.Trigger)
	if err != nil {
		return Hook{}, err
	}

	var filter Filter
	if hc.Filter != nil {
		filter = Filter{Users: hc.Filter.Users, Roles: hc.Filter.Roles}
	}

	promptPath, err := resolvePrompt(hc.ID, promptsDir, hc.PromptFile)
	if err != nil {
		return Hook{}, err
	}

	action, err := compileAction(hc.ID, hc.Action)
	if err != nil {
		return Hook{}, err
	}

	spec, err := compileProcessing(hc.ID, hc.Processing)
	if err != nil {
		return Hook{}, err
	}

	limit := globalLimit
	if hc.RateLimit != nil {
		limit, err = compileRateLimit(hc.ID, *hc.RateLimit)
		if err != nil {
			return Hook{}, err
		}
	}

	return Hook{
		ID:         hc.ID,
		Name:       hc.Name,
		Channels:   channels,
		Trigger:    trigger,
		Filter:     filter,
		PromptPath: promptPath,
		Action:     action,
		Processing: spec,
		Limit:      limit,
	}, nil
}

func compileTrigger(hookID string, tc TriggerConfig) (Trigger, error) {
	switch TriggerType(tc.Type) {
	case TriggerAny:
		return Trigger{Type: TriggerAny}, nil
	case TriggerPrefix:
		if tc.Prefix == "" {
			return Trigger{}, configErr(hookID, "prefix trigger requires a prefix")
		}
		return Trigger{Type: TriggerPrefix, Prefix: tc.Prefix}, nil
	case TriggerContains:
		if tc.Substring == "" {
			return Trigger{}, configErr(hookID, "contains trigger requires a substring")
		}
		return Trigger{Type: TriggerContains, Substring: tc.Substring}, nil
	case TriggerRegex:
		if tc.Pattern == "" {
			return Trigger{}, configErr(hookID, "regex trigger requires a pattern")
		}
		re, err := regexp.Compile(tc.Pattern)
		if err != nil {
			return Trigger{}, configErr(hookID, "invalid regex: %v", err)
		}
		return Trigger{Type: TriggerRegex, Pattern: re}, nil
	case TriggerMention:
		return Trigger{Type: TriggerMention}, nil
	}
	return Trigger{}, configErr(hookID, "unknown trigger type %q", tc.Type)
}

func resolvePrompt(hookID, promptsDir, promptFile string) (string, error) {
	if promptFile == "" {
		return "", configErr(hookID, "prompt_file is required")
	}
	path := promptFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(promptsDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := os.Stat(path); err != nil {
		return "", configErr(hookID, "prompt file %s: %v", path, err)
	}
	return path, nil
}

func compileAction(hookID string, ac ActionConfig) (dispatch.Action, error) {
	switch dispatch.ActionType(ac.Type) {
	case dispatch.ActionReply:
		return dispatch.Action{Type: dispatch.ActionReply}, nil
	case dispatch.ActionSendDM:
		return dispatch.Action{Type: dispatch.ActionSendDM}, nil
	case dispatch.ActionForward:
		if ac.ChannelID == "" {
			return dispatch.Action{}, configErr(hookID, "forward action requires channel_id")
		}
		return dispatch.Action{Type: dispatch.ActionForward, TargetChannel: ac.ChannelID}, nil
	case dispatch.ActionWebhook:
		if ac.URL == "" {
			return dispatch.Action{}, configErr(hookID, "webhook action requires url")
		}
		return dispatch.Action{Type: dispatch.ActionWebhook, URL: ac.URL}, nil
	}
	return dispatch.Action{}, configErr(hookID, "unknown action type %q", ac.Type)
}

func compileProcessing(hookID string, pc ProcessingConfig) (processing.Spec, error) {
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second
	if pc.TimeoutSeconds == 0 {
		timeout = defaultTimeoutSecs * time.Second
	}
	if timeout <= 0 {
		return processing.Spec{}, configErr(hookID, "timeout_seconds must be positive")
	}

	kind := pc.ProcessorType
	if kind == "" {
		kind = string(processing.KindCommand)
	}

	switch processing.Kind(kind) {
	case processing.KindCommand:
		argv := pc.Cmd
		if len(argv) == 0 && pc.Command != "" {
			parsed, err := shellwords.Parse(pc.Command)
			if err != nil {
				return processing.Spec{}, configErr(hookID, "parse command %q: %v", pc.Command, err)
			}
			argv = parsed
		}
		if len(argv) == 0 {
			return processing.Spec{}, configErr(hookID, "command processor requires cmd or command")
		}
		return processing.Spec{Kind: processing.KindCommand, Argv: argv, Timeout: timeout}, nil

	case processing.KindHTTP:
		if pc.URL == "" {
			return processing.Spec{}, configErr(hookID, "http processor requires url")
		}
		return processing.Spec{Kind: processing.KindHTTP, URL: pc.URL, Timeout: timeout}, nil
	}
	return processing.Spec{}, configErr(hookID, "unknown processor_type %q", kind)
}
