package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/ai"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/classify"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/config"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/conversation"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/sweep"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	setupLogger(cfg)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- state and audit ---
	ledger, sessions, closeState := openState(ctx, cfg)
	defer closeState()
	repo, closeAudit := openAudit(ctx, cfg)
	defer closeAudit()

	// --- conversation wiring ---
	script := conversation.NewScript(cfg.PersonaName, cfg.BrandName, cfg.CommercialContact)
	system := conversation.SystemPrompt(cfg.PersonaName, cfg.BrandName, cfg.KnowledgeBase, cfg.KnowledgeMaxChars)
	aiClient := ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	wa := whatsapp.NewClient(whatsapp.Config{
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.PhoneNumberID,
		APIVersion:    cfg.GraphVersion,
		RPS:           cfg.SendRPS,
	})

	svc := conversation.NewService(conversation.Deps{
		Ledger:              ledger,
		Sessions:            sessions,
		Classifier:          classify.Default,
		Responder:           conversation.NewResponder(aiClient, system, script),
		Sender:              wa,
		Audit:               repo,
		Script:              script,
		CommercialRecipient: cfg.CommercialRecipient,
	})
	jobs := conversation.NewDispatcher(conversation.DefaultJobTimeout)

	hook := whatsapp.NewHandler(cfg.VerifyToken, cfg.AppSecret, svc, jobs)
	router := newRouter(cfg, hook, svc, aiClient.Model())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := sweep.New(cfg.SweepInterval).
		Register("dedup", ledger).
		Register("sessions", sessions)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msgf("%s (%s) listening", cfg.BrandName, cfg.PersonaName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		if err := jobs.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("in-flight jobs abandoned")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("bye")
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.DefaultContextLogger = &log.Logger
}
