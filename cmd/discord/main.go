package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"guild-jukebox/internal/command/music"
	"guild-jukebox/internal/config"
	"guild-jukebox/internal/discord"
	"guild-jukebox/internal/httpapi"
	"guild-jukebox/internal/logger"
	"guild-jukebox/internal/music/jukebox"
	"guild-jukebox/internal/music/parsers/ffmpeg"
	"guild-jukebox/internal/music/parsers/kkdai"
	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/source_resolver"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/sources/radio"
	"guild-jukebox/internal/music/sources/youtube"
	"guild-jukebox/internal/music/stream"
	"guild-jukebox/internal/music/vote"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jukebox:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, dotenvMissing, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogPath)
	defer func() { _ = log.Sync() }()
	if dotenvMissing {
		log.Info("no .env file, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ytClient, err := kkdai.NewClient(cfg.YouTubeProxy)
	if err != nil {
		return err
	}
	ff := ffmpeg.New(cfg.FFmpegPath)

	yt := youtube.New(youtube.Options{
		Candidates: cfg.SelectionCandidates,
		RPS:        cfg.ResolverRPS,
		HTTPClient: ytClient.HTTPClient,
		Videos:     ytClient,
		Logger:     log,
	})
	resolver := source_resolver.New(yt, radio.New(&http.Client{Timeout: 10 * time.Second}, log), log, yt)

	opener := stream.NewOpener(log, ff)
	opener.Register(sources.SourceYouTube, kkdai.NewLink(ytClient, ff), kkdai.NewPipe(ytClient, ff))
	opener.Register(sources.SourceRadio, ff)

	bot, err := discord.New(cfg, log)
	if err != nil {
		return err
	}

	votes := vote.NewCoordinator()
	connector := discord.NewConnector(discord.GatewayTransport{Session: bot.Session()}, discord.FromOpener(opener), cfg.VoiceCipherModes, log)
	sched := scheduler.New(connector, scheduler.Options{
		PollInterval: cfg.PlaybackPollInterval,
		Votes:        votes,
		Logger:       log,
	})
	jb := jukebox.New(jukebox.Config{
		SkipThreshold:    cfg.SkipThreshold,
		AdminInstantSkip: cfg.AdminInstantSkip,
		SkipWhenEmpty:    cfg.SkipWhenEmpty,
		SelectionTimeout: cfg.SelectionTimeout,
		MaxCandidates:    cfg.SelectionCandidates,
	}, resolver, sched, votes, bot.Voice(), log)

	bot.Register(music.Commands(jb, bot)...)
	if err := bot.Open(); err != nil {
		return err
	}
	log.Info("jukebox started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bot.Announcer().Run(gctx, sched.Events())
		return nil
	})
	if cfg.HTTPEnabled {
		api := httpapi.NewServer(sched, jb.PendingSelections, log)
		g.Go(func() error { return api.Run(gctx, cfg.HTTPAddr) })
	}

	<-gctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		log.Warn("playback did not stop in time", zap.Error(err))
	}
	if err := bot.Close(); err != nil {
		log.Warn("closing gateway session failed", zap.Error(err))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
