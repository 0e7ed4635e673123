package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"cgpt/internal/config"
	"cgpt/internal/credentials"
	"cgpt/internal/dispatch"
	"cgpt/internal/history"
	"cgpt/internal/llm"
	mockclient "cgpt/internal/llm/mockclient"
	"cgpt/internal/logging"
	"cgpt/internal/openai"
)

// Version is set via -ldflags during build
var Version = "dev"

// Exit codes let scripts branch on the failure class.
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitNoKey        = 3
	exitTransport    = 4
)

// usageError marks problems with how the command was invoked.
type usageError string

func (e usageError) Error() string { return string(e) }

type askOptions struct {
	mode      string
	model     string
	apiKey    string
	baseURL   string
	noHistory bool
	prompt    string
}

func main() {
	app := kingpin.New("cgpt", "Tiny terminal client for chat-completion APIs.")
	app.Version(Version)
	app.HelpFlag.Short('h')

	login := app.Command("login", "Interactively store API credentials.")
	loginBaseURL := login.Flag("base-url", "Optional API base URL (leave unset for the default endpoint).").PlaceHolder("URL").String()

	where := app.Command("where", "Print the resolved config file path.")

	set := app.Command("set", "Update the stored default model and/or mode.")
	setModel := set.Flag("model", "Default model to request.").String()
	setMode := set.Flag("mode", "Default request mode (responses|chat).").String()

	ask := app.Command("ask", "Send a prompt and print the response.").Default()
	askMode := ask.Flag("mode", "Request mode for this call (responses|chat).").String()
	askModel := ask.Flag("model", "Model for this call.").String()
	askKey := ask.Flag("api-key", "API key for this call (overrides the stored key).").String()
	askBaseURL := ask.Flag("base-url", "API base URL for this call.").PlaceHolder("URL").String()
	askNoHistory := ask.Flag("no-history", "Do not record this exchange in local history.").Bool()
	askPrompt := ask.Arg("prompt", "Prompt text.").Required().Strings()

	hist := app.Command("history", "List recent exchanges.")
	histLimit := hist.Flag("limit", "Maximum exchanges to show.").Default("20").Int()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	store := config.NewStore()

	var err error
	switch cmd {
	case login.FullCommand():
		err = runLogin(store, *loginBaseURL)
	case where.FullCommand():
		fmt.Println(store.Path())
	case set.FullCommand():
		err = runSet(store, *setModel, *setMode)
	case hist.FullCommand():
		err = runHistory(store, *histLimit)
	case ask.FullCommand():
		err = runAsk(store, askOptions{
			mode:      *askMode,
			model:     *askModel,
			apiKey:    *askKey,
			baseURL:   *askBaseURL,
			noHistory: *askNoHistory,
			prompt:    strings.Join(*askPrompt, " "),
		})
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "cgpt:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps error classes to documented exit codes. Secrets never
// appear in error text, so everything here is safe to print.
func exitCodeFor(err error) int {
	var (
		invalidMode *config.InvalidModeError
		parseErr    *dispatch.ParseError
		usage       usageError
	)
	switch {
	case errors.Is(err, config.ErrNoAPIKey), errors.Is(err, config.ErrMissingAPIKey):
		return exitNoKey
	case errors.As(err, &invalidMode), errors.As(err, &usage),
		errors.Is(err, credentials.ErrTooManyAttempts):
		return exitInvalidInput
	case errors.As(err, &parseErr):
		return exitTransport
	default:
		if _, ok := llm.IsTransportError(err); ok {
			return exitTransport
		}
		return exitFailure
	}
}

func runLogin(store *config.Store, baseURLFlag string) error {
	path, err := credentials.Login(store, credentials.NewFlow(), baseURLFlag)
	if err != nil {
		return err
	}
	fmt.Println("✓ Saved credentials to:", path)
	return nil
}

func runSet(store *config.Store, model, mode string) error {
	if strings.TrimSpace(model) == "" && strings.TrimSpace(mode) == "" {
		return usageError("set requires --model and/or --mode")
	}

	cfg, err := loadOrFallback(store)
	if err != nil {
		return err
	}
	cfg, err = config.ApplyDefaults(cfg, model, mode)
	if err != nil {
		return err
	}
	if err := store.Save(cfg); err != nil {
		return err
	}
	fmt.Println("✓ Defaults updated.")
	return nil
}

func runAsk(store *config.Store, opts askOptions) error {
	fileCfg, err := loadOrFallback(store)
	if err != nil {
		return err
	}

	eff, err := config.Resolve(fileCfg, os.Getenv(config.EnvAPIKey), config.Overrides{
		APIKey:  opts.apiKey,
		BaseURL: opts.baseURL,
		Model:   opts.model,
		Mode:    opts.mode,
	})
	if err != nil {
		return err
	}

	logger := logging.Setup(filepath.Join(store.Dir(), "cgpt.log"))

	var client llm.Client
	if os.Getenv("CGPT_MOCK_LLM") == "1" {
		logger.Println("CGPT_MOCK_LLM=1 detected; using mock client")
		client = mockclient.New()
	} else {
		client = openai.NewClient(eff.BaseURL, eff.APIKey, openai.DefaultTimeout, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := dispatch.Dispatch(ctx, eff, opts.prompt, client)
	if err != nil {
		return err
	}

	if !opts.noHistory {
		recordExchange(store, eff, opts.prompt, text, logger)
	}

	printResponse(text)
	return nil
}

func runHistory(store *config.Store, limit int) error {
	hs, err := history.Open(filepath.Join(store.Dir(), "history.db"))
	if err != nil {
		return err
	}
	defer hs.Close()

	items, err := hs.Recent(limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No exchanges recorded yet.")
		return nil
	}
	for _, ex := range items {
		label := ex.Mode
		if ex.Model != "" {
			label += " · " + ex.Model
		}
		fmt.Printf("[%s] (%s)\n", ex.CreatedAt.Local().Format("2006-01-02 15:04"), label)
		fmt.Println("  >", ex.Prompt)
		fmt.Println(" ", summarize(ex.Response))
	}
	return nil
}

// loadOrFallback tolerates the recoverable load failures: a missing file
// is an empty config, a corrupt one gets a warning and an empty config.
func loadOrFallback(store *config.Store) (config.Config, error) {
	cfg, err := store.Load()
	if err != nil {
		var corrupt *config.CorruptError
		switch {
		case config.IsNotFound(err):
			return config.Config{}, nil
		case errors.As(err, &corrupt):
			fmt.Fprintln(os.Stderr, "warning:", corrupt.Error(), "- continuing with defaults")
			return config.Config{}, nil
		default:
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// recordExchange appends to the local history store. History is best
// effort: a broken database never fails the ask itself.
func recordExchange(store *config.Store, eff config.Effective, prompt, response string, logger *log.Logger) {
	hs, err := history.Open(filepath.Join(store.Dir(), "history.db"))
	if err != nil {
		logger.Printf("history unavailable: %v", err)
		return
	}
	defer hs.Close()
	if err := hs.Append(history.Exchange{
		Mode:     string(eff.Mode),
		Model:    eff.Model,
		Prompt:   prompt,
		Response: response,
	}); err != nil {
		logger.Printf("history append failed: %v", err)
	}
}

// printResponse renders markdown when talking to a terminal and prints
// plain text when piped.
func printResponse(text string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(0),
		); err == nil {
			if out, rerr := r.Render(text); rerr == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Println(text)
}

func summarize(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " …"
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:117]) + "…"
	}
	return s
}
