package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v3"
	"github.com/wardenlabs/warden/internal/admin"
	"github.com/wardenlabs/warden/internal/engine"
	"github.com/wardenlabs/warden/internal/setup"
	"github.com/wardenlabs/warden/internal/worker/maintenance"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "warden",
		Usage: "Content safety and reputation engine",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Run without PostgreSQL; reputation state is memory-only",
			},
			&cli.BoolFlag{
				Name:  "no-redis",
				Usage: "Run without Redis; statistics counters are disabled",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Evaluate one piece of content and print the verdict",
				ArgsUsage: "<content>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "identity",
						Aliases: []string{"i"},
						Usage:   "Identity to attribute the content to",
					},
					&cli.StringFlag{
						Name:  "type",
						Value: "text",
						Usage: "Content type (text, image, video, sticker, audio, document)",
					},
				},
				Action: checkAction,
			},
			{
				Name:      "report",
				Usage:     "Print the reputation report for an identity",
				ArgsUsage: "<identity>",
				Action:    reportAction,
			},
			{
				Name:   "stats",
				Usage:  "Print system-wide statistics",
				Action: statsAction,
			},
			{
				Name:   "selftest",
				Usage:  "Run the built-in evaluation corpus and print each verdict",
				Action: selftestAction,
			},
			{
				Name:      "ban",
				Usage:     "Ban an identity",
				ArgsUsage: "<identity>",
				Flags: []cli.Flag{
					actorFlag(),
					&cli.StringFlag{
						Name:  "reason",
						Value: "manual ban",
						Usage: "Reason recorded in the ban history",
					},
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "Ban duration; zero means permanent",
					},
				},
				Action: banAction,
			},
			{
				Name:      "unban",
				Usage:     "Lift all bans for an identity",
				ArgsUsage: "<identity>",
				Flags:     []cli.Flag{actorFlag()},
				Action:    unbanAction,
			},
			{
				Name:  "word",
				Usage: "Manage the banned word lexicon",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add a banned word",
						ArgsUsage: "<word>",
						Flags:     []cli.Flag{actorFlag()},
						Action:    wordAddAction,
					},
					{
						Name:      "remove",
						Usage:     "Remove a banned word",
						ArgsUsage: "<word>",
						Flags:     []cli.Flag{actorFlag()},
						Action:    wordRemoveAction,
					},
				},
			},
			{
				Name:  "snapshot",
				Usage: "Export or import the full rule and reputation state",
				Commands: []*cli.Command{
					{
						Name:   "export",
						Usage:  "Print the rule and reputation snapshot as JSON",
						Flags:  []cli.Flag{actorFlag()},
						Action: snapshotExportAction,
					},
					{
						Name:      "import",
						Usage:     "Replace the rule and reputation state from a snapshot file",
						ArgsUsage: "<file>",
						Flags:     []cli.Flag{actorFlag()},
						Action:    snapshotImportAction,
					},
				},
			},
			{
				Name:      "reset-warnings",
				Usage:     "Zero the warning count for an identity",
				ArgsUsage: "<identity>",
				Flags:     []cli.Flag{actorFlag()},
				Action:    resetWarningsAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the engine with the maintenance loop until interrupted",
				Action: serveAction,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func actorFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "actor",
		Aliases:  []string{"a"},
		Required: true,
		Usage:    "Identity performing the privileged operation",
	}
}

// initApp bootstraps the application honoring the global connection flags.
func initApp(ctx context.Context, c *cli.Command) (*setup.App, error) {
	return setup.InitializeApp(ctx, setup.Options{
		NoDatabase: c.Bool("no-db"),
		NoRedis:    c.Bool("no-redis"),
	})
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	fmt.Println(string(out))

	return nil
}

func checkAction(ctx context.Context, c *cli.Command) error {
	content := c.Args().First()
	if content == "" && c.String("type") == "text" {
		return cli.Exit("content argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	identity := c.String("identity")
	verdict := app.Engine.Evaluate(ctx, identity, content, engine.ContentType(c.String("type")))

	// The engine only signals auto-ban eligibility; acting on it is the
	// caller's job.
	if identity != "" && verdict.HasDirective(engine.DirectiveAutoBan) {
		duration := time.Duration(app.Config.Safety.AutoMuteDuration) * time.Second
		app.Ledger.IssueBan(ctx, identity, "repeated safety violations", "auto", "", duration, time.Now().UTC())
	}

	return printJSON(verdict)
}

func reportAction(ctx context.Context, c *cli.Command) error {
	identity := c.Args().First()
	if identity == "" {
		return cli.Exit("identity argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	return printJSON(app.Engine.GetIdentityReport(ctx, identity))
}

func statsAction(ctx context.Context, c *cli.Command) error {
	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	return printJSON(app.Engine.GetSystemStats(ctx))
}

// selftestCase is one entry in the built-in evaluation corpus. Cases are
// evaluated without an identity so no reputation state accumulates between
// them.
type selftestCase struct {
	Content  string             `json:"content"`
	Type     engine.ContentType `json:"type"`
	WantSafe bool               `json:"wantSafe"`
	Verdict  engine.Verdict     `json:"verdict"`
	Pass     bool               `json:"pass"`
}

func selftestAction(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, setup.Options{NoDatabase: true, NoRedis: true})
	if err != nil {
		return err
	}
	defer app.Cleanup()

	cases := []selftestCase{
		{Content: "Hello world", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "This is a normal chat message about the weather.", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "a", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "12345", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "😀😀😀😀😀😀😀😀😀😀😀😀", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "WIN FREE MONEY NOW!!! CLICK HERE!!!", Type: engine.ContentTypeText, WantSafe: false},
		{Content: "you are a stupid idiot", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "grab it at https://bit.ly/2xyz and https://cutt.ly/abc", Type: engine.ContentTypeText, WantSafe: false},
		{Content: "call me at +8801712345678", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "spam spam spam spam spam spam", Type: engine.ContentTypeText, WantSafe: true},
		{Content: "", Type: engine.ContentTypeImage, WantSafe: false},
	}

	p := pool.New().WithMaxGoroutines(4)
	for i := range cases {
		p.Go(func() {
			cases[i].Verdict = app.Engine.Evaluate(ctx, "", cases[i].Content, cases[i].Type)
			cases[i].Pass = cases[i].Verdict.IsSafe == cases[i].WantSafe
		})
	}
	p.Wait()

	failed := 0

	for i := range cases {
		if !cases[i].Pass {
			failed++
		}
	}

	if err := printJSON(cases); err != nil {
		return err
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d cases failed", failed, len(cases)), 1)
	}

	fmt.Printf("All %d cases passed\n", len(cases))

	return nil
}

func banAction(ctx context.Context, c *cli.Command) error {
	identity := c.Args().First()
	if identity == "" {
		return cli.Exit("identity argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.BanIdentity(ctx, c.String("actor"), identity, c.String("reason"), c.Duration("duration")) {
		return cli.Exit("ban refused: actor is not an admin", 1)
	}

	fmt.Printf("Banned %s\n", identity)

	return nil
}

func unbanAction(ctx context.Context, c *cli.Command) error {
	identity := c.Args().First()
	if identity == "" {
		return cli.Exit("identity argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.UnbanIdentity(ctx, c.String("actor"), identity) {
		return cli.Exit("unban refused: not authorized or identity not banned", 1)
	}

	fmt.Printf("Unbanned %s\n", identity)

	return nil
}

func wordAddAction(ctx context.Context, c *cli.Command) error {
	word := c.Args().First()
	if word == "" {
		return cli.Exit("word argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.AddBannedWord(c.String("actor"), word) {
		return cli.Exit("add refused: not authorized or word already present", 1)
	}

	fmt.Printf("Added %q to the lexicon\n", word)

	return nil
}

func wordRemoveAction(ctx context.Context, c *cli.Command) error {
	word := c.Args().First()
	if word == "" {
		return cli.Exit("word argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.RemoveBannedWord(c.String("actor"), word) {
		return cli.Exit("remove refused: not authorized or word not present", 1)
	}

	fmt.Printf("Removed %q from the lexicon\n", word)

	return nil
}

func snapshotExportAction(ctx context.Context, c *cli.Command) error {
	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	snap, ok := app.Admin.ExportSnapshot(c.String("actor"))
	if !ok {
		return cli.Exit("export refused: actor is not an admin", 1)
	}

	return printJSON(snap)
}

func snapshotImportAction(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("snapshot file argument is required", 1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap admin.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.ImportSnapshot(c.String("actor"), snap) {
		return cli.Exit("import refused: actor is not the owner", 1)
	}

	fmt.Println("Snapshot imported")

	return nil
}

func resetWarningsAction(ctx context.Context, c *cli.Command) error {
	identity := c.Args().First()
	if identity == "" {
		return cli.Exit("identity argument is required", 1)
	}

	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	if !app.Admin.ResetWarnings(ctx, c.String("actor"), identity) {
		return cli.Exit("reset refused: actor is not an admin", 1)
	}

	fmt.Printf("Reset warnings for %s\n", identity)

	return nil
}

func serveAction(ctx context.Context, c *cli.Command) error {
	app, err := initApp(ctx, c)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := maintenance.New(
		app.Limiter, app.Ledger,
		maintenance.DefaultInterval, maintenance.DefaultIdleEviction,
		app.Logger,
	)

	done := make(chan struct{})
	go func() {
		worker.Start(runCtx)
		close(done)
	}()

	app.Logger.Info("Warden running, press Ctrl+C to stop")

	<-runCtx.Done()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}

	return nil
}
