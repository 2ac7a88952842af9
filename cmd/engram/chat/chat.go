// Package chatcmder provides the chat command for interactive LLM chat
// with memory-augmented recall.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/embeddings"
	ollamaembed "github.com/papercomputeco/engram/pkg/embeddings/ollama"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/manager"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/semantic"
	pgstore "github.com/papercomputeco/engram/pkg/memory/semantic/postgres"
	sqlitestore "github.com/papercomputeco/engram/pkg/memory/semantic/sqlite"
	"github.com/papercomputeco/engram/pkg/summarizer"
	ollamasum "github.com/papercomputeco/engram/pkg/summarizer/ollama"
	"github.com/papercomputeco/engram/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

const (
	// recentContextTurns and relevantContextEntries bound the context
	// block assembled for each reply.
	recentContextTurns     = 10
	relevantContextEntries = 5
)

type chatCommander struct {
	sessionID string
	model     string
	debug     bool

	cfg    *config.Config
	logger *zap.Logger
}

// ollamaRequest is the Ollama-native chat request format.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// ollamaMessage is an Ollama-native message.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaStreamChunk represents a single streaming response chunk from Ollama.
type ollamaStreamChunk struct {
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
}

const chatLongDesc string = `Start an interactive chat session with memory-augmented recall.

Every message is remembered: recent turns verbatim in the session's
buffer, and older turns as distilled facts in the long-term store once
the buffer grows past its threshold. Each reply is grounded in a context
block of relevant long-term memories plus the recent conversation.

Sessions are identified by id. Reusing an id with --session resumes that
session's memory; omitting it starts a fresh session.

Slash commands inside the chat:
  /recall <query>   Show the long-term memories matching a query
  /recent           Show the recent-turn buffer
  /exit             Quit

Examples:
  engram chat --model llama3.2
  engram chat --session standup-notes`

const chatShortDesc string = "Interactive LLM chat with memory-augmented recall"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.cfg, err = cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("model") {
				cmder.model = cmder.cfg.Summarizer.Model
			}

			if cmder.cfg.Storage.DataDir == "" {
				ddm := dotdir.NewManager()
				cmder.cfg.Storage.DataDir, err = ddm.Target(configDir)
				if err != nil {
					return fmt.Errorf("resolving data dir: %w", err)
				}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to resume (defaults to a fresh session)")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Chat model name (defaults to summarizer.model)")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	resumed := c.sessionID != ""
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}

	mgr, cleanup, err := c.buildManager()
	if err != nil {
		return err
	}
	defer cleanup()

	mgr.Start()
	defer func() { _ = mgr.Close() }()

	fmt.Println()
	if resumed {
		fmt.Printf("  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(c.sessionID, 24)),
		)
	} else {
		fmt.Printf("  %s New session %s\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render(utils.Truncate(c.sessionID, 24)),
		)
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}
		if handled, err := c.runSlashCommand(ctx, mgr, input); handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		}

		if err := mgr.AddMessage(ctx, c.sessionID, memory.NewTurn("user", input, time.Now()), false); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		contextBlock, err := mgr.GetContextMemories(ctx, c.sessionID, input, recentContextTurns, relevantContextEntries)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		reply, err := c.sendAndStream(contextBlock, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		if err := mgr.AddMessage(ctx, c.sessionID, memory.NewTurn("assistant", reply, time.Now()), true); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// buildManager wires the configured embedding, summarization, and storage
// providers into a memory manager. The returned cleanup releases resources
// the manager does not own.
func (c *chatCommander) buildManager() (*manager.Manager, func(), error) {
	cleanup := func() {}

	embedder, err := c.buildEmbedder()
	if err != nil {
		return nil, cleanup, err
	}

	sum, err := c.buildSummarizer()
	if err != nil {
		return nil, cleanup, err
	}

	var opener semantic.Opener
	switch c.cfg.Storage.Provider {
	case "", "sqlite":
		opener = sqlitestore.NewOpener(c.cfg.Storage.DataDir, embedder, c.logger)

	case "postgres":
		if c.cfg.Storage.PostgresDSN == "" {
			return nil, cleanup, fmt.Errorf("storage.postgres_dsn is required for the postgres provider")
		}
		db, err := pgstore.Open(context.Background(), c.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to postgres: %w", err)
		}
		cleanup = func() { _ = db.Close() }
		opener = pgstore.NewOpener(db, embedder, c.logger)

	default:
		return nil, cleanup, fmt.Errorf("unknown storage provider: %q", c.cfg.Storage.Provider)
	}

	mgr, err := manager.New(manager.Config{
		RecentCapacity:     c.cfg.Memory.RecentCapacity,
		RecentThreshold:    c.cfg.Memory.RecentThreshold,
		SummarizeLength:    c.cfg.Memory.SummarizeLength,
		CleanInterval:      time.Duration(c.cfg.Memory.CleanIntervalDays) * 24 * time.Hour,
		EvictMaxAgeDays:    c.cfg.Memory.EvictMaxAgeDays,
		EvictMinImportance: c.cfg.Memory.EvictMinImportance,
	}, manager.Deps{
		BufferDir:  c.cfg.Storage.DataDir,
		OpenStore:  opener,
		Summarizer: sum,
		Logger:     c.logger,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("creating memory manager: %w", err)
	}

	return mgr, cleanup, nil
}

func (c *chatCommander) buildEmbedder() (embeddings.Embedder, error) {
	switch c.cfg.Embedding.Provider {
	case "", "ollama":
		return ollamaembed.NewEmbedder(ollamaembed.Config{
			BaseURL: c.cfg.Embedding.Target,
			Model:   c.cfg.Embedding.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", c.cfg.Embedding.Provider)
	}
}

func (c *chatCommander) buildSummarizer() (summarizer.Client, error) {
	switch c.cfg.Summarizer.Provider {
	case "", "ollama":
		return ollamasum.NewClient(ollamasum.Config{
			BaseURL: c.cfg.Summarizer.Target,
			Model:   c.cfg.Summarizer.Model,
		})
	default:
		return nil, fmt.Errorf("unknown summarizer provider: %q", c.cfg.Summarizer.Provider)
	}
}

// runSlashCommand handles the in-chat inspection commands. Returns true
// when the input was a slash command.
func (c *chatCommander) runSlashCommand(ctx context.Context, mgr *manager.Manager, input string) (bool, error) {
	switch {
	case strings.HasPrefix(input, "/recall"):
		query := strings.TrimSpace(strings.TrimPrefix(input, "/recall"))
		if query == "" {
			return true, fmt.Errorf("usage: /recall <query>")
		}

		entries, err := mgr.QueryRelevantMemories(ctx, c.sessionID, query, relevantContextEntries)
		if err != nil {
			return true, err
		}
		if len(entries) == 0 {
			fmt.Printf("  %s\n", cliui.DimStyle.Render("No long-term memories yet."))
			return true, nil
		}

		var md strings.Builder
		md.WriteString("## Long-term memories\n\n")
		for _, entry := range entries {
			md.WriteString("- " + entry + "\n")
		}

		rendered, err := cliui.RenderMarkdown(md.String())
		if err != nil {
			// Fall back to the raw listing.
			fmt.Print(md.String())
			return true, nil
		}
		fmt.Print(rendered)
		return true, nil

	case input == "/recent":
		turns, err := mgr.GetRecentMemories(ctx, c.sessionID, 0)
		if err != nil {
			return true, err
		}
		if len(turns) == 0 {
			fmt.Printf("  %s\n", cliui.DimStyle.Render("No recent turns yet."))
			return true, nil
		}
		for _, turn := range turns {
			fmt.Printf("  %s\n", cliui.DimStyle.Render(turn))
		}
		return true, nil
	}

	return false, nil
}

// sendAndStream sends a chat request grounded in the context block and
// streams the response to stdout. Returns the full assistant response text.
func (c *chatCommander) sendAndStream(contextBlock, input string) (string, error) {
	reqBody := ollamaRequest{
		Model: c.model,
		Messages: []ollamaMessage{
			{
				Role: "system",
				Content: "You are a helpful assistant with long-term memory of this conversation. " +
					"Use the following memory context when answering:\n\n" + contextBlock,
			},
			{
				Role:    "user",
				Content: input,
			},
		},
		Stream: true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("target", c.cfg.Summarizer.Target),
		zap.String("model", c.model),
		zap.String("input", utils.Truncate(input, 80)),
	)

	url := strings.TrimSuffix(c.cfg.Summarizer.Target, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	// Stream the response
	fmt.Print(assistantPrompt)

	var fullContent strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaStreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Debug("failed to parse stream chunk",
				zap.Error(err),
				zap.String("line", string(line)),
			)
			continue
		}

		if chunk.Message.Content != "" {
			fmt.Print(chunk.Message.Content)
			fullContent.WriteString(chunk.Message.Content)
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fullContent.String(), fmt.Errorf("reading stream: %w", err)
	}

	return fullContent.String(), nil
}
