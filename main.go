package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"chatterm/chat"
	"chatterm/config"
	"chatterm/llm"
	"chatterm/logging"
	"chatterm/store"
	"chatterm/tool"
	"chatterm/ui"
)

func main() {
	app := &cli.App{
		Name:  "chatterm",
		Usage: "Chat with LLMs in your terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "chat",
				Aliases: []string{"c"},
				Usage:   "Open the named chat directly, skipping the selector",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Start with the named model from the config",
			},
			&cli.BoolFlag{
				Name:  "agent",
				Usage: "Start with agent mode (tool use) enabled",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the config file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := logging.FromEnv()

	configPath := c.String("config")
	if configPath == "" {
		var err error
		configPath, err = store.ConfigFile()
		if err != nil {
			return fmt.Errorf("locate config: %w", err)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	chatsDir, err := store.ChatsDir()
	if err != nil {
		return fmt.Errorf("locate chats dir: %w", err)
	}
	st, err := store.New(chatsDir)
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}

	model, err := pickModel(cfg, c.String("model"))
	if err != nil {
		return err
	}
	provider, err := llm.New(model.Provider, model.Name, cfg.Key(model.Provider), model.Temperature)
	if err != nil {
		return err
	}

	tools := tool.Builtin()
	engine := llm.NewEngine(provider, tools, st, ui.Confirm, logger)

	controller := chat.New(chat.Options{
		Config: cfg,
		Store:  st,
		Engine: engine,
		Tools:  tools,
		Model:  model,
		ChatID: c.String("chat"),
		Agent:  c.Bool("agent"),
		Log:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return controller.Run(ctx)
}

// pickModel resolves the starting model: the named one when given, otherwise
// the first configured model whose provider has a key.
func pickModel(cfg *config.AppConfig, name string) (config.ModelConfig, error) {
	if name == "" {
		return cfg.FirstUsableModel()
	}
	model, ok := cfg.Model(name)
	if !ok {
		return config.ModelConfig{}, fmt.Errorf("model %q is not in the config file", name)
	}
	if model.Provider != "mock" && cfg.Key(model.Provider) == "" {
		return config.ModelConfig{}, fmt.Errorf("API key for provider %s is not set", model.Provider)
	}
	return model, nil
}
