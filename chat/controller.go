// Package chat implements the interactive session loop: command dispatch,
// chat selection, and handing user input to the streaming engine.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"chatterm/config"
	"chatterm/llm"
	"chatterm/logging"
	"chatterm/store"
	"chatterm/tool"
	"chatterm/ui"
)

// Options wires a Controller together. In and Out default to the process
// stdio when nil.
type Options struct {
	Config *config.AppConfig
	Store  *store.Store
	Engine *llm.Engine
	Tools  *tool.Registry
	Model  config.ModelConfig
	ChatID string
	Agent  bool
	In     io.Reader
	Out    io.Writer
	Log    *logging.Logger
}

// Controller owns the outer interaction loop and the live session state. It
// is strictly single-threaded: one turn at a time, the engine returns before
// the loop continues.
type Controller struct {
	cfg    *config.AppConfig
	store  *store.Store
	engine *llm.Engine
	tools  *tool.Registry
	model  config.ModelConfig
	log    *logging.Logger

	chatID  string
	history []llm.Message
	agent   bool

	in     *bufio.Scanner
	out    io.Writer
	styles *ui.Styles
	md     *ui.Markdown
}

// New creates a controller. The markdown renderer is best-effort: when it
// cannot be constructed, settled messages render as plain text.
func New(opts Options) *Controller {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = logging.FromEnv()
	}
	md, _ := ui.NewMarkdown(100)
	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Controller{
		cfg:    opts.Config,
		store:  opts.Store,
		engine: opts.Engine,
		tools:  opts.Tools,
		model:  opts.Model,
		log:    opts.Log,
		chatID: opts.ChatID,
		agent:  opts.Agent,
		in:     scanner,
		out:    opts.Out,
		styles: ui.NewStyles(opts.Config.Colors),
		md:     md,
	}
}

// Run drives the session until the user exits.
func (c *Controller) Run(ctx context.Context) error {
	if !c.agent {
		c.engine.SetTools(nil)
	}
	if c.chatID == "" {
		id, ok := c.selectChat()
		if !ok {
			return nil
		}
		c.chatID = id
	}
	if err := c.loadChat(c.chatID); err != nil {
		return err
	}
	c.renderConversation()

	think := false
	save := true

	for {
		input, ok := c.readInput()
		if !ok {
			break
		}
		if input == "" {
			continue
		}
		if input == "exit" || input == ":exit" {
			break
		}

		switch {
		case input == ":help":
			c.printHelp()
			continue
		case input == ":info":
			c.printInfo()
			continue
		case input == ":edit" || input == ":e":
			c.editTranscript()
			continue
		case input == ":chat":
			if id, ok := c.selectChat(); ok {
				c.chatID = id
				if err := c.loadChat(id); err != nil {
					c.printError(err)
					continue
				}
				c.renderConversation()
			}
			continue
		case input == ":model":
			c.selectModel()
			continue
		case input == ":redraw":
			c.renderConversation()
			continue
		case input == ":delete":
			c.deleteChat()
			continue
		case input == ":agent on":
			c.agent = true
			c.engine.SetTools(c.tools)
			c.printSystem("Agent mode enabled")
			continue
		case input == ":agent off":
			c.agent = false
			c.engine.SetTools(nil)
			c.printSystem("Agent mode disabled")
			continue
		case strings.HasPrefix(input, ":tmp"):
			save = false
			input = strings.TrimSpace(strings.TrimPrefix(input, ":tmp"))
		case strings.HasPrefix(input, ":think"):
			think = true
			input = strings.TrimSpace(strings.TrimPrefix(input, ":think"))
		}

		if input == "" {
			// Bare flag command; it applies to the next message.
			continue
		}

		expanded, err := expandInsertCommands(input, c.out)
		if err != nil {
			c.printError(err)
			think, save = false, true
			continue
		}

		streamer := ui.NewStreamer(c.out, c.styles)
		history, err := c.engine.RunTurn(ctx, c.history, expanded, llm.TurnOptions{
			Think:  think,
			Save:   save,
			ChatID: c.chatID,
		}, streamer.Token)
		streamer.End()
		c.history = history
		if err != nil {
			if errors.As(err, new(*store.PersistenceError)) {
				// History stays authoritative in memory; warn and go on.
				c.printError(err)
			} else {
				c.printError(fmt.Errorf("something went wrong... %w", err))
			}
		}

		// Both flags are single-turn scoped, whatever the outcome.
		think, save = false, true
	}

	fmt.Fprintln(c.out, c.styles.System.Render("Exiting..."))
	return nil
}

// readInput shows the user banner and prompt and reads one line. The second
// return is false on EOF.
func (c *Controller) readInput() (string, bool) {
	fmt.Fprintln(c.out, c.styles.UserBanner(c.cfg.UI.User))
	fmt.Fprint(c.out, c.styles.User.Render(c.cfg.UI.PromptSymbol))
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// loadChat replaces the live history with the chat's transcript, inserting
// the configured system prompt when the transcript lacks one.
func (c *Controller) loadChat(chatID string) error {
	var msgs []llm.Message
	if chatID != "" {
		loaded, err := c.store.Load(chatID)
		if err != nil {
			return fmt.Errorf("load chat %q: %w", chatID, err)
		}
		msgs = loaded
	}

	// Inserting the system prompt mutates the transcript, so a named chat is
	// written immediately, creating the file for a fresh chat.
	msgs, inserted := llm.EnsureSystemPrompt(msgs, c.cfg.LLM.SystemPrompt)
	if inserted && chatID != "" {
		if err := c.store.Save(chatID, msgs); err != nil {
			c.printError(err)
		}
	}
	c.history = msgs
	return nil
}

func (c *Controller) selectChat() (string, bool) {
	ids, err := c.store.List()
	if err != nil {
		c.printError(err)
		return "", false
	}
	if len(ids) == 0 {
		return c.newChatName(true)
	}

	items := append([]string{"Create new chat"}, ids...)
	title := " Select a chat (j/k to move, Enter to select, e to edit, d to delete, q to quit):"
	choice, ok := ui.SelectFrom(title, items,
		ui.MenuAction{Key: "d", Run: func(i int, items []string) []string {
			if i == 0 {
				return items
			}
			if err := c.store.Delete(items[i]); err != nil {
				return items
			}
			return append(items[:i], items[i+1:]...)
		}},
		ui.MenuAction{Key: "e", Run: func(i int, items []string) []string {
			if i > 0 {
				c.openInEditor(items[i])
			}
			return items
		}},
	)
	if !ok {
		return "", false
	}
	if choice == 0 {
		return c.newChatName(true)
	}
	return items[choice], true
}

// newChatName prompts for a chat name. With allowBlank a blank answer means
// an anonymous chat; otherwise blank cancels.
func (c *Controller) newChatName(allowBlank bool) (string, bool) {
	prompt := "Enter a name: "
	if allowBlank {
		prompt = "Enter a name (blank for anonymous chat): "
	}
	for {
		name, ok := ui.ChatName(prompt)
		if !ok {
			return "", false
		}
		name = strings.TrimSpace(name)
		if name == "" {
			if allowBlank {
				return "", true
			}
			return "", false
		}
		if c.store.Exists(name) {
			fmt.Fprintln(c.out, c.styles.Error.Render(
				fmt.Sprintf("Chat %s already exists at: %s", name, c.store.Path(name))))
			continue
		}
		fmt.Fprintf(c.out, "Chat conversation will be persisted to: %s\n", c.store.Path(name))
		return name, true
	}
}

func (c *Controller) selectModel() {
	names := make([]string, len(c.cfg.LLM.Models))
	for i, m := range c.cfg.LLM.Models {
		names[i] = m.Name
	}
	choice, ok := ui.SelectFrom(" Select a model (j/k to move, Enter to select, q to quit):", names)
	if !ok {
		return
	}

	model := c.cfg.LLM.Models[choice]
	key := c.cfg.Key(model.Provider)
	if key == "" && model.Provider != "mock" {
		c.printError(fmt.Errorf("API key for provider %s is not set; set it in the config file or as an env var", strings.ToUpper(model.Provider)))
		return
	}
	provider, err := llm.New(model.Provider, model.Name, key, model.Temperature)
	if err != nil {
		c.printError(err)
		return
	}
	c.model = model
	c.engine.SetProvider(provider)
	c.printSystem("Set model to " + model.Name)
}

// editTranscript opens the transcript in $EDITOR and reloads it. An
// anonymous chat must be named first so there is a file to edit.
func (c *Controller) editTranscript() {
	if c.chatID == "" {
		name, ok := c.newChatName(false)
		if !ok || name == "" {
			fmt.Fprintln(c.out, c.styles.Error.Render("Cannot edit conversation without a chat name..."))
			return
		}
		if err := c.store.Save(name, c.history); err != nil {
			c.printError(err)
			return
		}
		c.chatID = name
	}
	c.openInEditor(c.chatID)
	if err := c.loadChat(c.chatID); err != nil {
		c.printError(err)
		return
	}
	c.renderConversation()
}

func (c *Controller) openInEditor(chatID string) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	cmd := exec.Command(editor, c.store.Path(chatID))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		c.printError(fmt.Errorf("editor: %w", err))
	}
}

func (c *Controller) deleteChat() {
	if c.chatID == "" {
		c.printSystem("Anonymous chat has nothing to delete")
		return
	}
	if !ui.Confirm(fmt.Sprintf("Delete chat %s?", c.chatID)) {
		return
	}
	if err := c.store.Delete(c.chatID); err != nil {
		c.printError(err)
		return
	}
	c.printSystem("Deleted chat " + c.chatID)
	c.chatID = ""
	if err := c.loadChat(""); err != nil {
		c.printError(err)
	}
}

// renderConversation clears the screen and redraws the settled transcript.
func (c *Controller) renderConversation() {
	fmt.Fprint(c.out, "\x1b[2J\x1b[H")
	c.printWelcome()

	name := c.chatID
	if name == "" {
		name = "Anonymous chat"
	}
	fmt.Fprintln(c.out, c.styles.TitleBanner("CONVERSATION START ["+name+"]"))

	for _, msg := range c.history {
		switch msg.Role {
		case llm.RoleUser:
			fmt.Fprintln(c.out, c.styles.UserBanner(c.cfg.UI.User))
			fmt.Fprintln(c.out, c.styles.User.Render(c.cfg.UI.PromptSymbol)+msg.Content)
		case llm.RoleAssistant:
			if call, ok := llm.ParseToolCall(msg.Content); ok {
				c.printSystem("Used tool: " + call.Name)
				continue
			}
			fmt.Fprintln(c.out, c.styles.AssistantBanner(c.cfg.UI.Assistant))
			fmt.Fprintln(c.out, c.md.Render(msg.Content))
		}
	}
}

func (c *Controller) printWelcome() {
	c.printSystem("Type your message and press Enter to send.")
	c.printSystem("Type ':help' for commands help, ':exit' or Ctrl+D to exit.")
	fmt.Fprintln(c.out)
}

var helpCommands = []struct {
	cmd  string
	info []string
}{
	{":help", []string{"Displays this help message."}},
	{":info", []string{"Displays info about this chat."}},
	{":edit :e", []string{
		"Opens the conversation history in $EDITOR (vim by default).",
		"Edit it and save and it will be reloaded in the message history.",
		"You can edit the system prompt for the current conversation this way.",
	}},
	{":chat", []string{"Display a menu to select a different chat."}},
	{":model", []string{"Display a menu to select a different model."}},
	{":agent {on|off}", []string{
		"Enables/disables agent mode. Agent mode has access to tools that can",
		"affect your filesystem, use git etc.",
	}},
	{":redraw", []string{"Redraw the whole conversation."}},
	{":tmp {prompt}", []string{"Send this message without saving it to the transcript."}},
	{":think {prompt}", []string{"Enable thinking mode only for this question (Claude only)."}},
	{":read {path}", []string{"Embed a text file in the prompt (replaces the line with :read)."}},
	{":web {url}", []string{"Embed a webpage contents in the prompt (replaces the line with :web)."}},
	{":delete", []string{"Delete the current chat and switch to an anonymous one."}},
	{":exit", []string{"Exits the application. The conversation is saved if not anonymous chat."}},
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.out, c.styles.SystemBold.Render("Available commands"))
	fmt.Fprintln(c.out)

	width := 0
	for _, entry := range helpCommands {
		if len(entry.cmd) > width {
			width = len(entry.cmd)
		}
	}
	const padding = 4
	for _, entry := range helpCommands {
		for i, info := range entry.info {
			if i == 0 {
				pad := strings.Repeat(" ", width+padding-len(entry.cmd))
				c.printSystem(entry.cmd + pad + info)
			} else {
				c.printSystem(strings.Repeat(" ", width+padding) + info)
			}
		}
	}
	fmt.Fprintln(c.out)
}

func (c *Controller) printInfo() {
	if c.chatID != "" {
		fmt.Fprintln(c.out, c.styles.SystemBold.Render("Selected chat: "+c.chatID))
	} else {
		fmt.Fprintln(c.out, c.styles.SystemBold.Render("Anonymous chat"))
	}
	c.printSystem("Model: " + c.model.Name + " (" + c.model.Provider + ")")
	if c.agent {
		c.printSystem("Agent mode: on")
	} else {
		c.printSystem("Agent mode: off")
	}
}

func (c *Controller) printSystem(text string) {
	fmt.Fprintln(c.out, c.styles.System.Render(text))
}

func (c *Controller) printError(err error) {
	fmt.Fprintln(c.out, c.styles.Error.Render("Error: "+err.Error()))
	c.log.Debug("session error", "err", err)
}
