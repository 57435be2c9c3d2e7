package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yourusername/pairchat/internal/apply"
	"github.com/yourusername/pairchat/internal/chat"
	"github.com/yourusername/pairchat/internal/client"
	"github.com/yourusername/pairchat/internal/config"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/output"
	"github.com/yourusername/pairchat/internal/reconcile"
	"github.com/yourusername/pairchat/internal/rpc"
	"github.com/yourusername/pairchat/internal/state"
	"github.com/yourusername/pairchat/internal/transport"
	"github.com/yourusername/pairchat/internal/workspace"
)

var (
	configPath    string
	transportKind string
	socketPath    string
	wsURL         string
	timeout       time.Duration
	jsonOutput    bool
	noColor       bool
	debugMode     bool

	// Color functions
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	keyColor     = color.New(color.FgYellow)

	// stdout receives human output; it moves to stderr when stdout carries frames
	stdout io.Writer = os.Stdout
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "pairchat",
	Short: "pairchat - talk to an AI pair-programming editor host",
	Long: `pairchat speaks the chat panel protocol of an AI pair-programming editor
extension. It can hand files to the assistant, stream its answers, and drive
the apply/accept/reject lifecycle of generated edits.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// session bundles everything a command needs to talk to the host
type session struct {
	cfg       *config.Config
	conn      *client.Connection
	client    *client.Client
	store     *state.Store
	binding   *state.Binding
	statePath string
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if transportKind != "" {
		cfg.Transport.Kind = transportKind
	}
	if socketPath != "" {
		cfg.Transport.SocketPath = socketPath
	}
	if wsURL != "" {
		cfg.Transport.URL = wsURL
	}
	if timeout > 0 {
		cfg.Requests.TimeoutMs = int(timeout / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	routeOutput(cfg.Transport.Kind)
	return cfg, nil
}

// routeOutput keeps stdout free for protocol frames on the stdio transport
func routeOutput(kind string) {
	if kind == transport.KindStdio {
		stdout = os.Stderr
	} else {
		stdout = os.Stdout
	}
	color.Output = stdout
}

// loadStore restores the persisted selection without connecting
func loadStore(cfg *config.Config) (*state.Store, string, error) {
	path := cfg.StatePath(state.GetStatePath())
	store := state.NewStore()
	if err := store.Load(path); err != nil {
		return nil, "", fmt.Errorf("failed to load state: %w", err)
	}
	return store, path, nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, statePath, err := loadStore(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := client.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	logging.Debug().Str("transport", cfg.Transport.Kind).Msg("connected")

	return &session{
		cfg:       cfg,
		conn:      conn,
		client:    client.NewClient(conn),
		store:     store,
		binding:   state.Bind(conn.Bus, store),
		statePath: statePath,
	}, nil
}

func (s *session) save() error {
	if err := s.store.Save(s.statePath); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *session) Close() {
	s.binding.Close()
	s.conn.Close()
}

// withSession runs fn against a fresh connection, cancelled on interrupt
func withSession(fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		printError(err.Error())
		return err
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		printError(describeError(err))
		return err
	}
	return nil
}

// handshakeCmd performs the ready/initialized exchange
var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Announce the UI to the host and report the chosen view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout())
			defer cancel()

			start := time.Now()
			view, err := s.client.Handshake(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"view": view, "elapsed": time.Since(start).String()})
			}
			successColor.Println("✓ Host ready")
			printKV("View", string(view))
			printKV("Response time", time.Since(start).String())
			return nil
		})
	},
}

// filesCmd groups project file commands
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List project files and manage the selection",
}

var filesListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List project files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withSession(func(ctx context.Context, s *session) error {
			snap, err := fetchAndReconcile(ctx, s, query)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(snap.Files)
			}
			output.PrintFilesTable(stdout, snap.Files, s.store.IsSelected)
			return nil
		})
	},
}

var filesShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print the content of a project file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			snap, err := workspace.Fetch(ctx, s.client, args[0])
			if err != nil {
				return err
			}
			ref, ok := snap.Lookup(args[0])
			if !ok {
				return fmt.Errorf("file not found: %s", args[0])
			}
			full, err := s.client.FetchFileContent(ctx, ref)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(full)
			}
			if full.Content != nil {
				fmt.Fprint(stdout, *full.Content)
			}
			return nil
		})
	},
}

var filesSelectCmd = &cobra.Command{
	Use:   "select <path>...",
	Short: "Add files to the context of the next message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, _ := cmd.Flags().GetString("lines")
		rng, err := parseRange(lines)
		if err != nil {
			return err
		}
		return withSession(func(ctx context.Context, s *session) error {
			snap, err := fetchAndReconcile(ctx, s, "")
			if err != nil {
				return err
			}
			for _, path := range args {
				ref, ok := snap.Lookup(path)
				if !ok {
					return fmt.Errorf("file not found: %s", path)
				}
				ref.Range = rng
				if s.store.Select(ref) {
					successColor.Print("✓ ")
					fmt.Fprintf(stdout, "Selected %s\n", ref.Label())
				}
			}
			return s.save()
		})
	},
}

var filesDeselectCmd = &cobra.Command{
	Use:   "deselect <path>...",
	Short: "Remove files from the context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, path, err := loadStore(cfg)
		if err != nil {
			return err
		}
		removed := 0
		for _, p := range args {
			removed += store.Deselect(p)
		}
		if err := store.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %d reference(s)\n", removed)
		return nil
	},
}

var filesSelectedCmd = &cobra.Command{
	Use:   "selected",
	Short: "Show the current selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, _, err := loadStore(cfg)
		if err != nil {
			return err
		}
		files, designs := store.Context()
		if jsonOutput {
			return printJSON(map[string]interface{}{"files": files, "designs": designs})
		}
		if len(files) == 0 && len(designs) == 0 {
			infoColor.Println("Nothing selected")
			return nil
		}
		output.PrintFilesTable(stdout, files, nil)
		for _, d := range designs {
			printKV("Design", fmt.Sprintf("%s (%s)", d.Name, d.NodeID))
		}
		return nil
	},
}

var filesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, path, err := loadStore(cfg)
		if err != nil {
			return err
		}
		store.ClearSelection()
		if err := store.Save(path); err != nil {
			return err
		}
		successColor.Println("✓ Selection cleared")
		return nil
	},
}

// fetchAndReconcile lists files ONCE and drops vanished files from the
// selection
func fetchAndReconcile(ctx context.Context, s *session, query string) (*workspace.Snapshot, error) {
	snap, err := workspace.Fetch(ctx, s.client, query)
	if err != nil {
		return nil, err
	}
	// a filtered listing can't prove a file is gone
	if query == "" {
		if err := reconcile.SyncAndSave(snap, s.store, s.statePath); err != nil {
			logging.Warn().Err(err).Msg("failed to save reconciled state")
		}
	}
	return snap, nil
}

// syncCmd indexes the project
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ask the host to index the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			result, err := s.client.SyncProject(ctx, func(p models.SyncProgress) {
				if jsonOutput {
					return
				}
				fmt.Fprintf(os.Stderr, "\r%s", output.ProgressBar(p, output.BarWidth(os.Stderr)))
			})
			if !jsonOutput {
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}
			successColor.Print("✓ ")
			fmt.Fprintf(stdout, "Indexed %d files (%s)\n", result.FilesIndexed, result.Status)
			return nil
		})
	},
}

// chatCmd sends one message and streams the answer
var chatCmd = &cobra.Command{
	Use:   "chat <message>...",
	Short: "Send a message with the selected files and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noContext, _ := cmd.Flags().GetBool("no-context")
		return withSession(func(ctx context.Context, s *session) error {
			streamed := false
			conv := chat.New(s.conn.Registry, s.conn.Bus, chat.Options{
				Timeout: s.cfg.ChatTimeout(),
				OnDelta: func(d models.MessageDelta) {
					if jsonOutput {
						return
					}
					streamed = true
					fmt.Fprint(stdout, d.Delta)
				},
			})
			defer conv.Close()

			var files []models.FileReference
			var designs []models.FigmaDesign
			if !noContext {
				files, designs = s.store.Context()
			}

			reply, err := conv.Ask(ctx, strings.Join(args, " "), files, designs)
			if err != nil {
				if streamed {
					fmt.Fprintln(stdout)
				}
				return err
			}
			if jsonOutput {
				return printJSON(conv.Transcript())
			}
			if !streamed {
				fmt.Fprint(stdout, reply.Text)
			}
			fmt.Fprintln(stdout)
			return nil
		})
	},
}

// applyCmd applies generated code and optionally decides on it
var applyCmd = &cobra.Command{
	Use:   "apply <path>",
	Short: "Apply code from a file (or stdin) to a project file",
	Long: `Sends fast_apply for <path> with the code read from --code (or stdin),
waits for the host to apply it, then accepts or rejects the edit if asked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codeFile, _ := cmd.Flags().GetString("code")
		accept, _ := cmd.Flags().GetBool("accept")
		reject, _ := cmd.Flags().GetBool("reject")
		if accept && reject {
			return fmt.Errorf("--accept and --reject are mutually exclusive")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Transport.Kind == transport.KindStdio && (codeFile == "" || codeFile == "-") {
			return fmt.Errorf("stdin carries the stdio transport; pass the code with --code <file>")
		}
		code, err := readCode(codeFile)
		if err != nil {
			return err
		}

		return withSession(func(ctx context.Context, s *session) error {
			tracker := apply.NewTracker(s.conn.Adapter, s.conn.Bus, apply.Options{Timeout: s.cfg.ApplyTimeout()})
			defer tracker.Close()

			path := args[0]
			done := make(chan apply.Status, 1)
			stopObserving := tracker.Observe(func(st apply.Status) {
				if st.Path != path || st.State == apply.Applying {
					return
				}
				select {
				case done <- st:
				default:
				}
			})
			defer stopObserving()

			if _, err := tracker.Apply(path, code); err != nil {
				return err
			}
			infoColor.Printf("Applying %s...\n", path)

			var st apply.Status
			select {
			case st = <-done:
			case <-ctx.Done():
				tracker.Abandon(path)
				return ctx.Err()
			}
			if st.Err != nil {
				return st.Err
			}

			switch {
			case accept:
				err = tracker.Accept(path)
			case reject:
				err = tracker.Reject(path)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(tracker.List())
			}
			output.PrintApplyTable(stdout, []apply.Status{st})
			if accept {
				successColor.Println("✓ Accepted")
			} else if reject {
				successColor.Println("✓ Rejected")
			}
			return nil
		})
	},
}

func readCode(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read code: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no code to apply")
	}
	return string(data), nil
}

// userCmd groups account commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Show account information",
}

var userInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the signed-in user and plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			user, err := s.client.GetUserInfo(ctx)
			if err != nil {
				return err
			}
			sub, err := s.client.GetUserSubscription(ctx)
			var subPtr *models.Subscription
			if err == nil {
				subPtr = &sub
			} else {
				logging.Warn().Err(err).Msg("subscription unavailable")
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"user": user, "subscription": subPtr})
			}
			output.PrintUserDetail(stdout, user, subPtr)
			return nil
		})
	},
}

var userSubscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Show the user's plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			sub, err := s.client.GetUserSubscription(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(sub)
			}
			printKV("Plan", sub.Plan)
			printKV("Status", sub.Status)
			printKV("Requests", fmt.Sprintf("%d/%d", sub.RequestsUsed, sub.RequestsLimit))
			if !sub.Active() {
				errorColor.Println("Subscription inactive")
			}
			return nil
		})
	},
}

// authCmd groups sign-in commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out",
}

var authLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Create a sign-in link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		open, _ := cmd.Flags().GetBool("open")
		return withSession(func(ctx context.Context, s *session) error {
			link, err := s.client.CreateAuthLink(ctx)
			if err != nil {
				return err
			}
			if open {
				if err := s.client.OpenExternalURL(link.URL); err != nil {
					return err
				}
			}
			if jsonOutput {
				return printJSON(link)
			}
			fmt.Fprintln(stdout, link.URL)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			if err := s.client.Logout(); err != nil {
				return err
			}
			s.store.SignOut()
			successColor.Println("✓ Signed out")
			return nil
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Ask the host to open a URL in the browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			return s.client.OpenExternalURL(args[0])
		})
	},
}

// figmaCmd groups design attachment commands
var figmaCmd = &cobra.Command{
	Use:   "figma",
	Short: "Attach Figma designs to the context",
}

var figmaAttachCmd = &cobra.Command{
	Use:   "attach <url>",
	Short: "Resolve a Figma URL and attach the design",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *session) error {
			design, err := s.client.AttachFigma(ctx, args[0])
			if err != nil {
				return err
			}
			s.store.Attach(design)
			if err := s.save(); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(design)
			}
			successColor.Print("✓ ")
			fmt.Fprintf(stdout, "Attached %s (%s)\n", design.Name, design.NodeID)
			return nil
		})
	},
}

var figmaDetachCmd = &cobra.Command{
	Use:   "detach <node-id>",
	Short: "Remove an attached design",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, path, err := loadStore(cfg)
		if err != nil {
			return err
		}
		if !store.Detach(args[0]) {
			return fmt.Errorf("design not attached: %s", args[0])
		}
		return store.Save(path)
	},
}

// watchCmd prints every host push until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print messages pushed by the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		handshake, _ := cmd.Flags().GetBool("handshake")
		return withSession(func(ctx context.Context, s *session) error {
			unsubscribe := s.client.Subscribe(models.Commands(models.ToUI), func(env models.Envelope) {
				if jsonOutput {
					printJSON(env)
					return
				}
				keyColor.Printf("%s ", time.Now().Format("15:04:05"))
				infoColor.Printf("%-22s", env.Command)
				if env.Failed() {
					errorColor.Printf(" %s\n", env.Error.Error())
					return
				}
				fmt.Fprintf(stdout, " %s\n", string(env.Payload))
			})
			defer unsubscribe()

			if handshake {
				if err := s.client.Ready(); err != nil {
					return err
				}
			}

			select {
			case <-ctx.Done():
			case <-s.conn.Done():
				if err := s.conn.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

// callCmd sends an arbitrary request
var callCmd = &cobra.Command{
	Use:   "call <command> [payload-json]",
	Short: "Send a raw request and print the response payload",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload json.RawMessage
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("payload is not valid JSON")
			}
			payload = json.RawMessage(args[1])
		}
		return withSession(func(ctx context.Context, s *session) error {
			result, err := s.client.CallMethod(ctx, args[0], payload)
			if err != nil {
				return err
			}
			if len(result) == 0 {
				result = json.RawMessage("null")
			}
			return printJSON(result)
		})
	},
}

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		cfg, err := loadConfig()
		if err != nil {
			printError(err.Error())
			return err
		}
		if jsonOutput {
			format = "json"
		}
		data, err := cfg.Encode(format)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := config.LoadConfig(path); err != nil {
			printError(err.Error())
			return err
		}
		successColor.Println("✓ Configuration is valid")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path := config.GetConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.Default().WriteFile(path, force); err != nil {
			printError(err.Error())
			return err
		}
		successColor.Print("✓ ")
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return nil
	},
}

// stateCmd groups local state commands
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the saved selection",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, path, err := loadStore(cfg)
		if err != nil {
			return err
		}
		summary := store.Summary()
		summary["path"] = path
		if jsonOutput {
			return printJSON(summary)
		}
		output.PrintSummaryTable(stdout, summary)
		return nil
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the saved selection and attachments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := state.NewStore()
		path := cfg.StatePath(state.GetStatePath())
		if err := store.Reset(path); err != nil {
			printError(err.Error())
			return err
		}
		successColor.Println("✓ State reset")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/pairchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&transportKind, "transport", "", "Transport kind: stdio, unix, websocket")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "Unix socket path")
	rootCmd.PersistentFlags().StringVar(&wsURL, "url", "", "WebSocket URL")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Request timeout (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(handshakeCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(figmaCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(stateCmd)

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesShowCmd)
	filesCmd.AddCommand(filesSelectCmd)
	filesCmd.AddCommand(filesDeselectCmd)
	filesCmd.AddCommand(filesSelectedCmd)
	filesCmd.AddCommand(filesClearCmd)
	filesSelectCmd.Flags().String("lines", "", "Line range, e.g. 10-40")

	chatCmd.Flags().Bool("no-context", false, "Don't attach the selected files and designs")

	applyCmd.Flags().String("code", "", "File with the code to apply (default stdin)")
	applyCmd.Flags().Bool("accept", false, "Accept the edit once applied")
	applyCmd.Flags().Bool("reject", false, "Reject the edit once applied")

	userCmd.AddCommand(userInfoCmd)
	userCmd.AddCommand(userSubscriptionCmd)

	authCmd.AddCommand(authLinkCmd)
	authLinkCmd.Flags().Bool("open", false, "Open the link in the browser")

	figmaCmd.AddCommand(figmaAttachCmd)
	figmaCmd.AddCommand(figmaDetachCmd)

	watchCmd.Flags().Bool("handshake", false, "Send ready before watching")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	configShowCmd.Flags().String("format", "yaml", "Output format: yaml, json, toml")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)

	// Disable color if requested, route logs to stderr in debug mode
	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
		opts := logging.Options{Level: "info"}
		if debugMode {
			opts = logging.Options{Level: "debug", File: "-"}
		}
		if err := logging.Init(opts); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: logging disabled:", err)
		}
	})
}

func main() {
	defer logging.Close()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Helper functions

func printJSON(data interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	if noColor {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	} else {
		errorColor.Fprint(os.Stderr, "✗ Error: ")
		fmt.Fprintln(os.Stderr, msg)
	}
}

func printKV(key, value string) {
	keyColor.Printf("%s: ", key)
	fmt.Fprintln(stdout, value)
}

// describeError turns protocol errors into a one-line explanation
func describeError(err error) string {
	if rpc.IsTimeout(err) {
		return fmt.Sprintf("%v (is the editor host running?)", err)
	}
	if he, ok := rpc.AsHostError(err); ok && he.Info.Code != "" {
		return fmt.Sprintf("%s failed: %s [%s]", he.Command, he.Info.Message, he.Info.Code)
	}
	return err.Error()
}

// parseRange parses "start-end" into a line range
func parseRange(s string) (*models.LineRange, error) {
	if s == "" {
		return nil, nil
	}
	var r models.LineRange
	if _, err := fmt.Sscanf(s, "%d-%d", &r.Start, &r.End); err != nil {
		return nil, fmt.Errorf("invalid line range %q: want start-end", s)
	}
	if r.Start < 1 || r.End < r.Start {
		return nil, fmt.Errorf("invalid line range %q", s)
	}
	return &r, nil
}
