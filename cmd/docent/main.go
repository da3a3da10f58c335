// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/objstore"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docent",
		Usage: "Question answering over an enterprise document knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: ./docent.yaml, then ~/.config/docent/config.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a config file with default settings",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the config file",
						Value: config.DefaultFileName,
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing config file",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Chunk, embed, and index documents waiting under the source prefix",
				Action: ingestCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a single question against the knowledge base",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "conversation",
						Usage: "Continue an existing conversation",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Ask questions interactively in one conversation",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "conversation",
						Usage: "Resume an existing conversation",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the chat API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the configured one)",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show recent ingestion outcomes from the ledger",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries to show",
						Value:   20,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Write sample documents into the source prefix",
				Action: seedCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initCommand(c *cli.Context) error {
	path := c.String("path")

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kb, err := docent.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	pipeline, err := kb.NewPipeline(ingestion.WithProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Listed %d documents: %d processed, %d skipped, %d failed\n",
		stats.DocumentsListed, stats.DocumentsProcessed, stats.DocumentsSkipped, stats.DocumentsFailed)
	fmt.Printf("Stored %d of %d vectors in %s\n",
		stats.StoredVectors, stats.TotalChunks, stats.Elapsed.Round(time.Millisecond))
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("usage: docent ask <question>")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kb, err := docent.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	answerer, err := kb.NewAnswerer()
	if err != nil {
		return fmt.Errorf("failed to create answerer: %w", err)
	}

	ans, err := answerer.Ask(ctx, question, c.String("conversation"))
	if err != nil {
		return err
	}

	printAnswer(ans)
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kb, err := docent.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	answerer, err := kb.NewAnswerer()
	if err != nil {
		return fmt.Errorf("failed to create answerer: %w", err)
	}

	// Answers carry the conversation forward so follow-up questions see
	// the transcript.
	conversationID := c.String("conversation")

	fmt.Println("Ask questions about the knowledge base. Type \"exit\" to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		ans, err := answerer.Ask(ctx, question, conversationID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		conversationID = ans.ConversationID

		printAnswer(ans)
	}

	fmt.Println()
	return scanner.Err()
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kb, err := docent.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	srv, err := kb.NewServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	return srv.Run(ctx, addr)
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kb, err := docent.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	records, err := kb.Ledger().Recent(ctx, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to read ingest ledger: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No ingestions recorded yet.")
		return nil
	}

	for _, rec := range records {
		marker := "ok    "
		if rec.Status == core.IngestFailed {
			marker = "FAILED"
		}
		fmt.Printf("%s  %s  %s  %d/%d vectors stored (%.0f%%)\n",
			rec.CompletedAt.Format("2006-01-02 15:04:05"), marker, rec.SourceKey,
			rec.Stored, rec.Chunks, rec.SuccessRate)
		if rec.Error != "" {
			fmt.Printf("    %s\n", rec.Error)
		}
	}
	return nil
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	objectsDir, err := cfg.EffectiveObjectsDir()
	if err != nil {
		return err
	}

	// Seeding only touches the object store, so it works before any of
	// the backing services are configured.
	store, err := objstore.NewFSStore(objectsDir)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}

	for _, doc := range sampleDocs {
		key := cfg.Objects.SourcePrefix + doc.name
		if err := store.Put(ctx, key, []byte(doc.text)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		fmt.Printf("Wrote %s\n", key)
	}

	fmt.Println("Run \"docent ingest\" to index the sample documents.")
	return nil
}

// loadConfig resolves configuration for a command: the --config flag when
// given, otherwise the default file locations.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func printAnswer(ans *core.Answer) {
	fmt.Println(ans.Text)

	if len(ans.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range ans.Sources {
			if src.Page > 0 {
				fmt.Printf("  %s (page %d) [%0.3f]\n", src.Source, src.Page, src.Score)
			} else {
				fmt.Printf("  %s [%0.3f]\n", src.Source, src.Score)
			}
		}
	}

	if ans.Cached {
		fmt.Printf("\n(cached, conversation %s)\n", ans.ConversationID)
	} else {
		fmt.Printf("\n(answered by %s in %s, conversation %s)\n",
			ans.Model, ans.ProcessingTime.Round(time.Millisecond), ans.ConversationID)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// sampleDocs is a small corpus of workplace policy documents for trying the
// system end to end without real data.
var sampleDocs = []struct {
	name string
	text string
}{
	{
		name: "leave-policy.txt",
		text: `Annual Leave Policy

All full-time employees accrue 25 days of paid annual leave per calendar
year, in addition to public holidays observed in their country of
employment. Leave accrues monthly from the first day of employment and is
available for use as soon as it is accrued. Part-time employees accrue
leave on a pro-rata basis according to their contracted hours.

Up to 5 unused days may be carried over into the following year. Carried
days must be used before the end of March, after which they expire without
compensation. Requests to carry over more than 5 days require written
approval from both the employee's manager and the People team, and are
granted only in exceptional circumstances such as a business-critical
project that prevented the employee from taking leave.

Leave requests should be submitted through the HR portal at least two
weeks in advance for absences of three days or more. Shorter absences can
be requested with less notice, but approval remains at the manager's
discretion. Managers are expected to respond to leave requests within
three working days.

Sick leave is separate from annual leave. Employees who are unwell should
notify their manager as early as possible on the first day of absence.
Absences longer than five consecutive working days require a doctor's
note. Extended illness is handled case by case with the People team.`,
	},
	{
		name: "remote-work.md",
		text: `# Remote Work Guidelines

The company operates a remote-first model. Employees may work from any
location in a country where the company has a legal employment entity,
subject to the tax and visa requirements of that country. Working from a
different country for more than 30 days in a rolling year requires prior
approval from the People team.

## Core hours

Teams define their own core collaboration hours, typically a four-hour
window in which all team members are expected to be reachable. Outside
core hours, employees are free to arrange their working day as they see
fit, provided their contracted hours are met and meetings they own are
scheduled inside the team's window.

## Equipment

Every employee receives a company laptop and a one-time home office
budget of 500 EUR (or local equivalent) for a desk, chair, or peripherals.
Equipment purchased with the budget belongs to the company and must be
returned or bought out at depreciated value when employment ends. Repairs
and replacements for company equipment are covered; submit requests
through the IT helpdesk.

## Expenses

Home internet and electricity are not reimbursed. Coworking space
memberships up to 200 EUR per month are reimbursable with manager
approval, provided the employee does not also claim the home office
budget in the same year.`,
	},
	{
		name: "security-basics.txt",
		text: `Information Security Basics

Access to production systems requires hardware security keys. Passwords
alone are never sufficient for systems that hold customer data. All
credentials must be stored in the company password manager; sharing
credentials over chat or email is prohibited and treated as a security
incident.

Laptops must run the company device-management profile, which enforces
full-disk encryption, automatic screen locking after five minutes, and
operating system updates within seven days of release. Personal devices
may access email and calendar only through the managed mobile profile.

Report suspected phishing to the security team by forwarding the message
to the phishing mailbox. Do not click links or open attachments in
suspicious messages. If you believe credentials may have been exposed,
rotate them immediately and notify security; early reports are never
penalized, late ones put the company at risk.

Customer data may only be accessed for a documented support or
engineering task, and only the minimum necessary. Exporting customer data
to personal machines, personal cloud storage, or unmanaged tools is
prohibited. Questions about whether a tool is approved go to the security
team before the tool is used, not after.`,
	},
	{
		name: "onboarding-faq.md",
		text: `# Onboarding FAQ

**When do I get payroll and benefits details?** Payroll is set up during
your first week; the People team sends a checklist on day one. Benefits
enrollment opens after your first payroll run and stays open for 30 days.

**Who approves my expenses?** Your direct manager approves expenses up to
1000 EUR per item. Larger amounts also need sign-off from the budget
owner of your department. Submit receipts within 60 days of purchase
through the expenses tool; late receipts may be rejected.

**How do I get access to internal systems?** Access is role-based and
provisioned automatically for the standard toolset. Anything beyond the
standard set is requested through the IT helpdesk with a short
justification, and access to systems holding customer data additionally
requires your manager's approval.

**When is my first performance review?** New joiners have a check-in at
the end of their third month covering goals, feedback, and any support
needed. The regular company-wide review cycle runs twice a year, in
April and October, and you take part in the first cycle that starts
after your third month.

**Where do policies live?** The HR portal is the canonical source for
all policies. If a document you find elsewhere contradicts the portal,
the portal wins; flag the stale copy to the People team so it can be
removed.`,
	},
}
