package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mistletoe/internal/app"
	"mistletoe/internal/assign"
	"mistletoe/internal/config"
	"mistletoe/internal/db"
	"mistletoe/internal/domain"
	"mistletoe/internal/engine"
	"mistletoe/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:   "santa",
	Short: "Mistletoe secret santa CLI",
	Long: `Mistletoe draws secret santa assignments and hands out reveal passwords.
- Workspace: a directory holding mistletoe.yml and the .mistletoe database.
- Exchange: one gift circle (family, office) with its own names, matrix and draw.
- Matrix: who may give to whom; row = giver, column = receiver. Defaults to everyone but yourself.
- Draw: picks a random assignment that respects the matrix and issues one password per person.
- Reveal: a participant enters their name and password to learn their recipient.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MISTLETOE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	loadDotEnv(filepath.Join(viper.GetString("workspace"), ".env"))
}

// loadDotEnv feeds MISTLETOE_* keys of a dotenv file in as defaults, so real
// environment variables and flags still win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return
	}
	for _, key := range dotenv.AllKeys() {
		name, ok := strings.CutPrefix(key, "mistletoe_")
		if !ok {
			continue
		}
		viper.SetDefault(strings.ReplaceAll(name, "_", "-"), dotenv.GetString(key))
		viper.SetDefault(name, dotenv.GetString(key))
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "admin", "actor identifier recorded in events")
	rootCmd.PersistentFlags().String("exchange", "", "exchange id (defaults to the only exchange)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("exchange", rootCmd.PersistentFlags().Lookup("exchange"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(exchangeCmd())
	rootCmd.AddCommand(namesCmd())
	rootCmd.AddCommand(matrixCmd())
	rootCmd.AddCommand(drawCmd())
	rootCmd.AddCommand(resultsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(revealCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func exchangeCmd() *cobra.Command {
	x := &cobra.Command{Use: "exchange", Short: "Manage exchanges"}
	x.AddCommand(exchangeCreateCmd())
	x.AddCommand(exchangeListCmd())
	x.AddCommand(exchangeShowCmd())
	x.AddCommand(exchangeUseCmd())
	return x
}

func exchangeCreateCmd() *cobra.Command {
	var id, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				x, err := ws.Engine.CreateExchange(ctx, id, desc, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(x)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "exchange id (lowercase letters, digits, . _ -)")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func exchangeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				items, err := ws.Engine.Repo.ListExchanges(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Status", "Description", "Created"})
				for _, x := range items {
					tw.AppendRow(table.Row{x.ID, x.Status, x.Description, x.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func exchangeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				x, err := ws.Engine.Repo.GetExchange(ctx, exchangeID)
				if err != nil {
					return err
				}
				return printJSONOrTable(x)
			})
		},
	}
}

func exchangeUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Set current exchange for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exchangeID := strings.TrimSpace(args[0])
			if exchangeID == "" {
				return fmt.Errorf("exchange id is required")
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, ".env"), "MISTLETOE_EXCHANGE", exchangeID); err != nil {
				return err
			}
			fmt.Printf("Set MISTLETOE_EXCHANGE=%s in %s/.env\n", exchangeID, workspace)
			return nil
		},
	}
}

func namesCmd() *cobra.Command {
	n := &cobra.Command{Use: "names", Short: "Manage the participant roster"}
	n.AddCommand(namesSetCmd())
	n.AddCommand(namesShowCmd())
	return n
}

func namesSetCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set [names...]",
		Short: "Replace the roster (resets the matrix and any draw)",
		Long:  "Names are split on commas and newlines, trimmed and deduplicated. Read from --file, from arguments, or from stdin when neither is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := readNamesInput(file, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				saved, err := ws.Engine.SetNames(ctx, exchangeID, names, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(saved)
				}
				fmt.Printf("Saved %d names for %s; matrix reset to default\n", len(saved), exchangeID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read names from file")
	return cmd
}

func namesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				names, err := ws.Engine.Names(ctx, exchangeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(names)
				}
				for i, name := range names {
					fmt.Printf("%d. %s\n", i+1, name)
				}
				return nil
			})
		},
	}
}

func matrixCmd() *cobra.Command {
	m := &cobra.Command{
		Use:   "matrix",
		Short: "Manage who may give to whom",
		Long:  "Row = giver, column = receiver. A participant whose row allows nobody blocks the draw and is rejected on save.",
	}
	m.AddCommand(matrixShowCmd())
	m.AddCommand(matrixSetCmd())
	m.AddCommand(matrixPairCmd("deny", false))
	m.AddCommand(matrixPairCmd("allow", true))
	m.AddCommand(matrixResetCmd())
	return m
}

func matrixShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the compatibility matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				view, err := ws.Engine.Matrix(ctx, exchangeID)
				if err != nil {
					return err
				}
				return printMatrix(os.Stdout, view)
			})
		},
	}
}

func matrixSetCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the matrix from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			m, err := decodeMatrix(data)
			if err != nil {
				return err
			}
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				view, err := ws.Engine.SetMatrix(ctx, exchangeID, m, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printMatrix(os.Stdout, view)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file: [[false,true],[true,false]] or {\"matrix\": ...}")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func matrixPairCmd(use string, allowed bool) *cobra.Command {
	short := "Forbid giver from giving to receiver"
	if allowed {
		short = "Allow giver to give to receiver"
	}
	return &cobra.Command{
		Use:   use + " <giver> <receiver>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				view, err := ws.Engine.SetPair(ctx, exchangeID, args[0], args[1], allowed, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printMatrix(os.Stdout, view)
			})
		},
	}
}

func matrixResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default matrix (everyone but yourself)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				view, err := ws.Engine.ResetMatrix(ctx, exchangeID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printMatrix(os.Stdout, view)
			})
		},
	}
}

func drawCmd() *cobra.Command {
	var maxTries int
	var seed int64
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw assignments and issue passwords",
		Long:  "Replaces any previous draw. Fails when no assignment is found within --max-tries attempts; loosen the matrix and retry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				e := ws.Engine
				if seed != 0 {
					e.Rand = engine.NewRand(seed)
				}
				res, err := e.Draw(ctx, exchangeID, engine.DrawOptions{MaxTries: maxTries, ActorID: viper.GetString("actor-id")})
				if err != nil {
					var rowErr *assign.InfeasibleRowError
					if errors.As(err, &rowErr) {
						return fmt.Errorf("%w; allow %s to give to someone with santa matrix allow", err, rowErr.Name)
					}
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				return printParticipants(os.Stdout, res.Participants)
			})
		},
	}
	cmd.Flags().IntVar(&maxTries, "max-tries", 0, "attempt budget (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed the random source for this draw (0 = config or clock)")
	return cmd
}

func resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Show the current draw",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				items, err := ws.Engine.Participants(ctx, exchangeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				return printParticipants(os.Stdout, items)
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write {name: {password, target}} as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				doc, err := ws.Engine.Export(ctx, exchangeID)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println(string(data))
					return nil
				}
				if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
					return err
				}
				fmt.Printf("Wrote %d participants to %s\n", len(doc), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func revealCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reveal <name>",
		Short: "Show a participant's recipient given their password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				target, err := ws.Engine.Reveal(ctx, exchangeID, args[0], password)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"name": strings.TrimSpace(args[0]), "target": target})
				}
				fmt.Printf("%s gives a gift to %s\n", strings.TrimSpace(args[0]), target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "participant password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExchange(cmd.Context(), func(ctx context.Context, ws *app.Workspace, exchangeID string) error {
				events, err := ws.Engine.Repo.LatestEvents(ctx, n, 0, exchangeID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor", "Payload"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID, evt.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in mistletoe.yml: draw budget and seed, token word lists, admin password hash and webhooks.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate mistletoe.yml and the vocabulary it points to",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err == nil {
				_, err = cfg.ResolveVocabulary(workspace)
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default mistletoe.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func adminCmd() *cobra.Command {
	a := &cobra.Command{Use: "admin", Short: "Admin credentials"}
	a.AddCommand(adminHashPasswordCmd())
	return a
}

func adminHashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for admin.password_hash",
		Long:  "Reads the password from --password or, when omitted, from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := engine.HashAdminPassword(password, 0)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash")
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage admin API keys"}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyDeleteCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw, key, err := r.CreateAPIKey(ctx, viper.GetString("actor-id"), name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": key.ActorID, "name": key.Name, "key": raw})
				}
				fmt.Printf("API key %s for %s: %s\n", key.ID, key.ActorID, raw)
				fmt.Println("Store it now; only its hash is kept.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted API key %s\n", args[0])
				return nil
			})
		},
	}
}

// --- helpers ---

// newLogger writes console logs to stderr at level, or debug with --verbose.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if viper.GetBool("verbose") {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	return openWorkspace(ctx, zap.WarnLevel, fn)
}

func openWorkspace(ctx context.Context, level zapcore.Level, fn func(context.Context, *app.Workspace) error) error {
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()
	ws, err := app.Open(ctx, viper.GetString("workspace"), logger)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func withExchange(ctx context.Context, fn func(context.Context, *app.Workspace, string) error) error {
	return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace) error {
		exchangeID, err := app.ResolveExchange(ctx, ws.Engine.Repo, viper.GetString("exchange"))
		if err != nil {
			return err
		}
		return fn(ctx, ws, exchangeID)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace) error {
		return fn(ctx, ws.Engine.Repo)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printParticipants(w io.Writer, items []domain.Participant) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Name", "Password", "Gives to"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.Name, p.Password, p.Target})
	}
	tw.Render()
	return nil
}

func printMatrix(w io.Writer, view engine.MatrixView) error {
	if viper.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	header := table.Row{"giver \\ receiver"}
	for _, name := range view.Names {
		header = append(header, name)
	}
	tw.AppendHeader(header)
	for i, name := range view.Names {
		row := table.Row{name}
		for j := range view.Names {
			mark := "·"
			if view.Matrix.Allows(i, j) {
				mark = "✓"
			}
			row = append(row, mark)
		}
		tw.AppendRow(row)
	}
	if !view.Saved {
		tw.SetCaption("default matrix")
	}
	tw.Render()
	return nil
}

// readNamesInput prefers file, then args, then stdin.
func readNamesInput(file string, args []string, stdin io.Reader) ([]string, error) {
	var raw string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	case len(args) > 0:
		raw = strings.Join(args, "\n")
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	names := engine.ParseNames(raw)
	if len(names) < 2 {
		return nil, engine.ErrTooFewNames
	}
	return names, nil
}

// decodeMatrix accepts a bare [][]bool or an object with a "matrix" key.
func decodeMatrix(data []byte) (assign.Matrix, error) {
	var m assign.Matrix
	if err := json.Unmarshal(data, &m); err == nil {
		return m, nil
	}
	var wrapped struct {
		Matrix assign.Matrix `json:"matrix"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid matrix json: %w", err)
	}
	if wrapped.Matrix == nil {
		return nil, fmt.Errorf("invalid matrix json: missing matrix")
	}
	return wrapped.Matrix, nil
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
