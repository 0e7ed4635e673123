package config

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the request/response shape used against the remote API.
type Mode string

const (
	// ModeResponses sends the prompt as a single input string.
	ModeResponses Mode = "responses"
	// ModeChat sends the prompt as a single-turn message list.
	ModeChat Mode = "chat"
)

// DefaultBaseURL is used when neither the file nor a flag names an
// endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// EnvAPIKey is the environment fallback consulted only when the config
// file carries no key.
const EnvAPIKey = "OPENAI_API_KEY"

// ErrNoAPIKey means no source supplied a key; the message tells the user
// how to fix it.
var ErrNoAPIKey = fmt.Errorf("no API key configured: run `cgpt login` or set %s", EnvAPIKey)

// InvalidModeError rejects a mode value outside the two recognized ones.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (expected %q or %q)", e.Value, ModeResponses, ModeChat)
}

// ParseMode validates a user-supplied mode string, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeResponses):
		return ModeResponses, nil
	case string(ModeChat):
		return ModeChat, nil
	default:
		return "", &InvalidModeError{Value: s}
	}
}

// Overrides carries values supplied explicitly on the command line.
// An empty field means the flag was absent and must not erase anything.
type Overrides struct {
	APIKey  string
	BaseURL string
	Model   string
	Mode    string
}

// Effective is the fully merged configuration for one invocation. It is
// never persisted.
type Effective struct {
	APIKey  string
	BaseURL string
	Model   string
	Mode    Mode
}

// Resolve merges the three configuration sources field by field:
// explicit flag > file value > environment (key only) > built-in
// default. The API key is the single required field.
func Resolve(file Config, envKey string, ov Overrides) (Effective, error) {
	eff := Effective{
		APIKey:  file.APIKey,
		BaseURL: file.BaseURL,
		Model:   file.DefaultModel,
	}

	// Environment is a fallback for the key alone, and only when the
	// file did not provide one.
	if eff.APIKey == "" {
		eff.APIKey = strings.TrimSpace(envKey)
	}

	mode := file.DefaultMode
	if ov.Mode != "" {
		mode = ov.Mode
	}
	if ov.APIKey != "" {
		eff.APIKey = strings.TrimSpace(ov.APIKey)
	}
	if ov.BaseURL != "" {
		eff.BaseURL = strings.TrimSpace(ov.BaseURL)
	}
	if ov.Model != "" {
		eff.Model = strings.TrimSpace(ov.Model)
	}

	if eff.APIKey == "" {
		return Effective{}, ErrNoAPIKey
	}

	if mode == "" {
		eff.Mode = ModeResponses
	} else {
		parsed, err := ParseMode(mode)
		if err != nil {
			return Effective{}, err
		}
		eff.Mode = parsed
	}

	if eff.BaseURL == "" {
		eff.BaseURL = DefaultBaseURL
	}

	return eff, nil
}

// ApplyDefaults merges a partial update into an existing config for the
// `set` command. Empty arguments leave the stored values alone; the mode
// is validated before anything is written back.
func ApplyDefaults(cfg Config, model, mode string) (Config, error) {
	if model = strings.TrimSpace(model); model != "" {
		cfg.DefaultModel = model
	}
	if mode = strings.TrimSpace(mode); mode != "" {
		parsed, err := ParseMode(mode)
		if err != nil {
			return Config{}, err
		}
		cfg.DefaultMode = string(parsed)
	}
	return cfg, nil
}

// IsNotFound reports whether err is the missing-file case of Load.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
