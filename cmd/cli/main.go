// Command cli resolves a query the way /play would and prints the result,
// without connecting to Discord.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"guild-jukebox/internal/logger"
	"guild-jukebox/internal/music/parsers/kkdai"
	"guild-jukebox/internal/music/source_resolver"
	"guild-jukebox/internal/music/sources/radio"
	"guild-jukebox/internal/music/sources/youtube"
)

func main() {
	var (
		proxy      = flag.String("proxy", os.Getenv("YOUTUBE_PROXY"), "proxy for YouTube requests")
		candidates = flag.Int("n", 5, "search candidates")
		timeout    = flag.Duration("timeout", 30*time.Second, "lookup timeout")
		level      = flag.String("log", "warn", "log level")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: cli [flags] <link or search words>")
		os.Exit(2)
	}

	log := logger.New(*level, "")
	defer func() { _ = log.Sync() }()

	client, err := kkdai.NewClient(*proxy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	yt := youtube.New(youtube.Options{Candidates: *candidates, HTTPClient: client.HTTPClient, Videos: client, Logger: log})
	resolver := source_resolver.New(yt, radio.New(&http.Client{Timeout: 10 * time.Second}, log), log, yt)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := resolver.Resolve(ctx, strings.Join(flag.Args(), " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(res.Kind)
	for i, t := range res.Tracks {
		fmt.Printf("%d. [%s] %s (%s) %s\n", i+1, t.Source, t.DisplayTitle(), t.FormatDuration(), t.SourceURI)
	}
}
