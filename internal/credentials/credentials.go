package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"

	"cgpt/internal/config"
)

const defaultMaxAttempts = 3

var (
	// ErrAborted means the user interrupted input (EOF/closed stdin).
	// Nothing is written to disk in that case.
	ErrAborted = errors.New("credential capture aborted")
	// ErrTooManyAttempts means the confirmation loop ran out of retries.
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// Flow drives the interactive credential capture. Reader, writer and the
// secret reader are injectable so tests run without a terminal.
type Flow struct {
	In          io.Reader
	Out         io.Writer
	ReadSecret  func() (string, error)
	MaxAttempts int

	reader *bufio.Reader
}

// NewFlow returns a Flow wired to the process terminal. The secret
// reader masks input when stdin is a TTY and degrades to a plain line
// read when it is not (pipes, scripts).
func NewFlow() *Flow {
	f := &Flow{In: os.Stdin, Out: os.Stdout}
	f.ReadSecret = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			data, err := term.ReadPassword(fd)
			fmt.Fprintln(f.Out)
			if err != nil {
				return "", err
			}
			return string(data), nil
		}
		return f.readLine()
	}
	return f
}

// Login captures the API key (and optionally a base URL) and persists
// them through the store. Existing default_model/default_mode values are
// preserved. baseURLFlag, when non-empty, skips the base URL prompt.
// Returns the path the config was written to.
func Login(store *config.Store, flow *Flow, baseURLFlag string) (string, error) {
	apiKey, err := flow.CaptureKey()
	if err != nil {
		return "", err
	}

	baseURL := strings.TrimSpace(baseURLFlag)
	if baseURL == "" {
		baseURL, err = flow.CaptureBaseURL()
		if err != nil {
			return "", err
		}
	}

	// Keep previously stored defaults; a fresh login only replaces the
	// credential fields.
	cfg, err := store.Load()
	if err != nil && !config.IsNotFound(err) {
		var corrupt *config.CorruptError
		if !errors.As(err, &corrupt) {
			return "", err
		}
		cfg = config.Config{}
	}
	cfg.APIKey = apiKey
	cfg.BaseURL = baseURL

	if err := store.Save(cfg); err != nil {
		return "", err
	}
	return store.Path(), nil
}

// CaptureKey prompts for the API key with confirmation. Mismatched
// entries re-prompt up to MaxAttempts before giving up.
func (f *Flow) CaptureKey() (string, error) {
	for attempt := 0; attempt < f.maxAttempts(); attempt++ {
		fmt.Fprint(f.Out, "Enter API key: ")
		first, err := f.ReadSecret()
		if err != nil {
			return "", f.abortErr(err)
		}
		first = strings.TrimSpace(first)
		if first == "" {
			fmt.Fprintln(f.Out, "API key cannot be empty. Please try again.")
			continue
		}

		fmt.Fprint(f.Out, "Repeat for confirmation: ")
		second, err := f.ReadSecret()
		if err != nil {
			return "", f.abortErr(err)
		}
		if first != strings.TrimSpace(second) {
			fmt.Fprintln(f.Out, "Entries do not match. Please try again.")
			continue
		}
		return first, nil
	}
	return "", ErrTooManyAttempts
}

// CaptureBaseURL asks whether to set a custom base URL and, if so,
// prompts for one until it looks like an http(s) URL. An empty return
// means the user declined.
func (f *Flow) CaptureBaseURL() (string, error) {
	fmt.Fprint(f.Out, "Do you want to set a custom base URL? [y/N]: ")
	answer, err := f.readLine()
	if err != nil {
		return "", f.abortErr(err)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
		return "", nil
	}

	for attempt := 0; attempt < f.maxAttempts(); attempt++ {
		fmt.Fprint(f.Out, "Base URL: ")
		raw, err := f.readLine()
		if err != nil {
			return "", f.abortErr(err)
		}
		raw = strings.TrimSpace(raw)
		if validBaseURL(raw) {
			return raw, nil
		}
		fmt.Fprintln(f.Out, "That does not look like a URL (expected http:// or https://). Please try again.")
	}
	return "", ErrTooManyAttempts
}

func validBaseURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (f *Flow) readLine() (string, error) {
	if f.reader == nil {
		f.reader = bufio.NewReader(f.In)
	}
	line, err := f.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (f *Flow) maxAttempts() int {
	if f.MaxAttempts > 0 {
		return f.MaxAttempts
	}
	return defaultMaxAttempts
}

// abortErr maps closed/interrupted input to ErrAborted so the command
// boundary exits cleanly instead of crashing.
func (f *Flow) abortErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrAborted
	}
	return fmt.Errorf("read input: %w", err)
}
