// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/RedTheFoxx/OraLLMStudio/internal/config"
	"github.com/RedTheFoxx/OraLLMStudio/internal/controller"
	"github.com/RedTheFoxx/OraLLMStudio/internal/export"
	"github.com/RedTheFoxx/OraLLMStudio/internal/model"
	"github.com/RedTheFoxx/OraLLMStudio/internal/ui/chat"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	userStyle    = color.New(color.FgCyan, color.Bold)
	agentStyle   = color.New(color.FgMagenta, color.Bold)
	dimStyle     = color.New(color.Faint)
	successStyle = color.New(color.FgGreen)
	warningStyle = color.New(color.FgYellow)
	errorStyle   = color.New(color.FgRed, color.Bold)
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the REPL input. linerInput backs it on a terminal.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
}

// linerInput provides line editing and persistent history.
type linerInput struct {
	line        *liner.State
	historyFile string
}

func newLinerInput(historyFile string) *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	in := &linerInput{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (l *linerInput) Prompt(prompt string) (string, error) {
	return l.line.Prompt(prompt)
}

func (l *linerInput) AppendHistory(s string) {
	l.line.AppendHistory(s)
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (l *linerInput) Close() {
	if err := os.MkdirAll(filepath.Dir(l.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			l.line.WriteHistory(f)
			f.Close()
		}
	}
	l.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain line-based chat front-end.
type REPL struct {
	app *App
	in  lineReader

	mu  sync.Mutex // guards out; events arrive from turn goroutines
	out io.Writer

	pending *model.Attachment
	// midLine is true while a reply is being printed.
	midLine bool

	clipboardWrite func(string) error
}

// NewREPL creates a REPL writing to out. Attach the app before Run.
func NewREPL(in lineReader, out io.Writer) *REPL {
	return &REPL{in: in, out: out, clipboardWrite: clipboard.WriteAll}
}

// OnEvent is the controller event sink.
func (r *REPL) OnEvent(ev controller.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := ev.(type) {
	case controller.TurnStarted:
		fmt.Fprintf(r.out, "%s ", agentStyle.Sprint(r.agentName()+">"))
		r.midLine = true
	case controller.DeltaApplied:
		fmt.Fprint(r.out, ev.Delta)
	case controller.TurnSettled:
		if r.midLine {
			fmt.Fprintln(r.out)
			r.midLine = false
		}
		if ev.Err == nil && ev.Stats.Duration > 0 {
			fmt.Fprintln(r.out, dimStyle.Sprintf("(%s, %d chars, %s)", ev.Stats.Mode, ev.Stats.Chars, ev.Stats.Duration.Round(time.Millisecond)))
		}
	case controller.NoticeRaised:
		if r.midLine {
			fmt.Fprintln(r.out)
			r.midLine = false
		}
		r.printNotice(ev.Notice.Level, ev.Notice.Text)
	}
}

func (r *REPL) agentName() string {
	snap := r.app.Store.Snapshot()
	if conv, ok := snap.Active(); ok {
		if a, ok := snap.Agent(conv.AgentID); ok {
			return a.Name
		}
	}
	return "assistant"
}

func (r *REPL) printNotice(level controller.NoticeLevel, text string) {
	style := dimStyle
	switch level {
	case controller.NoticeSuccess:
		style = successStyle
	case controller.NoticeWarning:
		style = warningStyle
	case controller.NoticeError:
		style = errorStyle
	}
	fmt.Fprintln(r.out, style.Sprint(text))
}

// println writes a line under the output lock.
func (r *REPL) println(a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, a...)
}

func (r *REPL) printf(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, a...)
}

func (r *REPL) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, errorStyle.Sprint(err.Error()))
}

// Run reads lines until /quit, EOF or Ctrl+C at the prompt.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome(ctx)
	for {
		line, err := r.in.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			r.println()
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			if quit := r.runCommand(ctx, line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

func (r *REPL) printWelcome(ctx context.Context) {
	status := r.app.Controller.RefreshHealth(ctx)
	mode := "backend " + r.app.Config.Backend.URL
	if r.app.Controller.Simulated() {
		mode = "simulated replies (no backend configured)"
	}
	r.printf("%s %s\n", agentStyle.Sprint("OraLLM Studio"), dimStyle.Sprint(Version))
	r.printf("%s, status: %s\n", mode, status)
	if agent, ok := r.app.Store.Snapshot().SelectedAgent(); ok {
		r.printf("Chatting with %s. Type /help for commands.\n", agentStyle.Sprint(agent.Name))
	} else {
		r.println("No active agent. Add one with `orallm agents add`.")
	}
}

// send runs one turn. Ctrl+C during the reply cancels it.
func (r *REPL) send(ctx context.Context, text string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := r.app.Controller.Send(turnCtx, controller.SendRequest{Text: text, Attachment: r.pending})
	if !controller.IsGuardError(err) {
		r.pending = nil
	}
}

// =============================================================================
// REPL COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new                   start a new conversation
  /list                  list conversations
  /switch <n>            switch conversation
  /rename <title>        rename the active conversation
  /delete [n]            delete the active or n-th conversation
  /delete-all            delete every conversation (asks first)
  /agents                list agents
  /agent <n|name>        select an agent (resets conversations)
  /examples              show example prompts
  /vote <up|down> [why]  rate the last reply
  /copy [n]              copy the last reply or message n
  /attach [path]         attach a file to the next message
  /export [markdown|json] export the active conversation
  /temp [value]          show or set the temperature
  /stream [on|off]       toggle streaming
  /health                probe the backend
  /quit                  exit`

func (r *REPL) runCommand(ctx context.Context, line string) (quit bool) {
	name, rest, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	rest = strings.TrimSpace(rest)
	ctrl := r.app.Controller

	var err error
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true
	case "help", "h":
		r.println(replHelp)
	case "new":
		_, err = ctrl.NewConversation()
	case "list":
		r.listConversations()
	case "switch":
		var id string
		if id, err = r.conversationAt(rest); err == nil {
			err = ctrl.SetActive(id)
		}
	case "rename":
		err = r.rename(rest)
	case "delete":
		err = r.delete(rest)
	case "delete-all":
		r.deleteAll()
	case "agents":
		r.listAgents()
	case "agent":
		err = r.selectAgent(rest)
	case "examples":
		r.listExamples()
	case "vote":
		err = r.vote(rest)
	case "copy":
		err = r.copy(rest)
	case "attach":
		err = r.attach(rest)
	case "export":
		err = r.export(rest)
	case "temp":
		err = r.temperature(rest)
	case "stream":
		err = r.stream(rest)
	case "health":
		r.printf("Backend is %s.\n", ctrl.RefreshHealth(ctx))
	default:
		err = fmt.Errorf("unknown command /%s, try /help", name)
	}
	if err != nil {
		r.fail(err)
	}
	return false
}

func (r *REPL) listConversations() {
	snap := r.app.Store.Snapshot()
	if len(snap.Conversations) == 0 {
		r.println("No conversations.")
		return
	}
	for i, c := range snap.Conversations {
		marker := " "
		if c.ID == snap.ActiveID {
			marker = "*"
		}
		r.printf("%s %d. %s (%d messages)\n", marker, i+1, c.Title, c.MessageCount())
	}
}

func (r *REPL) conversationAt(ref string) (string, error) {
	convs := r.app.Store.Snapshot().Conversations
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(convs) {
		return "", NewValidationErrorWithExample("conversation", ref, "must be a number from /list", "/switch 2")
	}
	return convs[n-1].ID, nil
}

func (r *REPL) activeID() (string, error) {
	conv, ok := r.app.Store.Snapshot().Active()
	if !ok {
		return "", controller.ErrNoActiveConversation
	}
	return conv.ID, nil
}

func (r *REPL) rename(title string) error {
	if title == "" {
		return NewValidationErrorWithExample("title", "", "is required", "/rename Go basics")
	}
	id, err := r.activeID()
	if err != nil {
		return err
	}
	return r.app.Controller.Rename(id, title)
}

func (r *REPL) delete(ref string) error {
	id, err := r.activeID()
	if ref != "" {
		id, err = r.conversationAt(ref)
	}
	if err != nil {
		return err
	}
	return r.app.Controller.DeleteConversation(id)
}

func (r *REPL) deleteAll() {
	answer, err := r.in.Prompt("Delete all conversations? (y/n) ")
	if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		r.println("Cancelled.")
		return
	}
	if r.app.Controller.DeleteAll() == 0 {
		r.println("No conversations to delete.")
	}
}

func (r *REPL) listAgents() {
	snap := r.app.Store.Snapshot()
	for i, a := range snap.ActiveAgents() {
		marker := " "
		if a.ID == snap.SelectedAgentID {
			marker = "*"
		}
		r.printf("%s %d. %s  %s\n", marker, i+1, agentStyle.Sprint(a.Name), dimStyle.Sprint(a.Description))
	}
}

func (r *REPL) selectAgent(ref string) error {
	active := r.app.Store.Snapshot().ActiveAgents()
	var id string
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(active) {
		id = active[n-1].ID
	} else if a, ok := r.app.Agents.Find(ref); ok && a.Active {
		id = a.ID
	} else {
		return NewNotFoundError("active agent", ref)
	}
	if _, err := r.app.Controller.SelectAgent(id); err != nil {
		return err
	}
	r.printf("Now chatting with %s.\n", agentStyle.Sprint(r.agentName()))
	return nil
}

func (r *REPL) listExamples() {
	agent, ok := r.app.Store.Snapshot().SelectedAgent()
	if !ok || len(agent.ExamplePrompts) == 0 {
		r.println("No example prompts.")
		return
	}
	for i, ex := range agent.ExamplePrompts {
		r.printf("  %d. %s\n", i+1, ex)
	}
}

func (r *REPL) lastReply() (model.Message, error) {
	conv, ok := r.app.Store.Snapshot().Active()
	if !ok {
		return model.Message{}, controller.ErrNoActiveConversation
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if m := conv.Messages[i]; m.IsAssistant() && m.Content != "" {
			return m, nil
		}
	}
	return model.Message{}, errors.New("no reply yet")
}

func (r *REPL) vote(rest string) error {
	word, reason, _ := strings.Cut(rest, " ")
	vote, err := model.ParseVote(strings.ToLower(word))
	if err != nil {
		return err
	}
	reply, err := r.lastReply()
	if err != nil {
		return err
	}
	if err := r.app.Feedback.SubmitVote(reply.ID, vote, reason, r.app.Config.Chat.VoterName); err != nil {
		return err
	}
	r.println(successStyle.Sprint("Thanks for the feedback."))
	return nil
}

func (r *REPL) copy(ref string) error {
	var text string
	if ref == "" {
		reply, err := r.lastReply()
		if err != nil {
			return err
		}
		text = reply.Content
	} else {
		conv, ok := r.app.Store.Snapshot().Active()
		if !ok {
			return controller.ErrNoActiveConversation
		}
		n, err := strconv.Atoi(ref)
		if err != nil || n < 1 || n > len(conv.Messages) {
			return NewValidationErrorWithExample("message", ref, "out of range", "/copy 2")
		}
		text = conv.Messages[n-1].Content
	}
	if err := r.clipboardWrite(text); err != nil {
		return fmt.Errorf("clipboard unavailable: %w", err)
	}
	r.println(successStyle.Sprint("Copied to clipboard."))
	return nil
}

func (r *REPL) attach(path string) error {
	if path == "" {
		r.pending = nil
		r.println("Attachment cleared.")
		return nil
	}
	att, err := chat.LoadAttachment(path)
	if err != nil {
		return err
	}
	r.pending = att
	r.printf("Attached %s to the next message.\n", r.pending.Name)
	return nil
}

func (r *REPL) export(format string) error {
	snap := r.app.Store.Snapshot()
	conv, ok := snap.Active()
	if !ok {
		return controller.ErrNoActiveConversation
	}
	agent, _ := snap.Agent(conv.AgentID)
	opts := export.DefaultOptions()
	if dir := r.app.Config.UI.ExportDir; dir != "" {
		opts.OutputDir = dir
	}
	path, err := export.ExportConversation(export.Document{Conversation: conv, Agent: agent}, format, opts)
	if err != nil {
		return err
	}
	r.printf("Exported to %s\n", path)
	return nil
}

func (r *REPL) temperature(value string) error {
	ctrl := r.app.Controller
	if value == "" {
		r.printf("Temperature is %.2f.\n", ctrl.Temperature())
		return nil
	}
	t, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return NewValidationErrorWithExample("temperature", value, "must be a number", "/temp 0.7")
	}
	return ctrl.SetTemperature(t)
}

func (r *REPL) stream(value string) error {
	ctrl := r.app.Controller
	on := !ctrl.Streaming()
	if value != "" {
		b, err := ParseBoolString(value)
		if err != nil {
			return err
		}
		on = b
	}
	ctrl.SetStreaming(on)
	r.printf("Streaming %s.\n", map[bool]string{true: "on", false: "off"}[on])
	return nil
}

// =============================================================================
// COMMAND HANDLER
// =============================================================================

// HandleREPL runs the plain chat front-end on stdin/stdout.
func HandleREPL(ctx context.Context, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	input := newLinerInput(filepath.Join(dir, "repl_history"))
	defer input.Close()

	repl := NewREPL(input, os.Stdout)
	app, err := NewApp(ctx, cfg, args, repl.OnEvent)
	if err != nil {
		return err
	}
	defer app.Close()
	repl.app = app

	return repl.Run(ctx)
}
