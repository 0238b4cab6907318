// Package httpapi serves a read-only view of playback state.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/track"
)

// Playback is what the API reads. *scheduler.Scheduler satisfies it.
type Playback interface {
	Guilds() []string
	State(guildID string) scheduler.Snapshot
}

type Server struct {
	router   *gin.Engine
	playback Playback
	pending  func() int
	log      *zap.Logger
}

// NewServer builds the router. pending may be nil.
func NewServer(playback Playback, pending func() int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if pending == nil {
		pending = func() int { return 0 }
	}
	s := &Server{
		router:   gin.New(),
		playback: playback,
		pending:  pending,
		log:      log.With(zap.String("component", "httpapi")),
	}
	s.router.Use(s.accessLog(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	guilds := s.router.Group("/guilds")
	{
		guilds.GET("", s.listGuilds)
		guilds.GET("/:guildID/queue", s.guildQueue)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

type trackView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URI         string `json:"uri"`
	Duration    string `json:"duration"`
	RequestedBy string `json:"requested_by"`
	Source      string `json:"source,omitempty"`
}

func viewTrack(t track.Track) trackView {
	return trackView{
		ID:          t.ID,
		Title:       t.DisplayTitle(),
		URI:         t.SourceURI,
		Duration:    t.FormatDuration(),
		RequestedBy: t.RequestedBy,
		Source:      t.Source,
	}
}

type guildView struct {
	GuildID   string      `json:"guild_id"`
	Status    string      `json:"status"`
	ChannelID string      `json:"channel_id,omitempty"`
	Current   *trackView  `json:"current,omitempty"`
	Queued    []trackView `json:"queued"`
}

func viewGuild(snap scheduler.Snapshot) guildView {
	v := guildView{
		GuildID:   snap.GuildID,
		Status:    snap.Status.String(),
		ChannelID: snap.ChannelID,
		Queued:    make([]trackView, 0, len(snap.Queued)),
	}
	if snap.Current != nil {
		cur := viewTrack(*snap.Current)
		v.Current = &cur
	}
	for _, t := range snap.Queued {
		v.Queued = append(v.Queued, viewTrack(t))
	}
	return v
}

func (s *Server) health(c *gin.Context) {
	guilds := s.playback.Guilds()
	active := 0
	for _, id := range guilds {
		if s.playback.State(id).Status.IsActive() {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"guilds":             len(guilds),
		"active":             active,
		"pending_selections": s.pending(),
	})
}

func (s *Server) listGuilds(c *gin.Context) {
	ids := s.playback.Guilds()
	slices.Sort(ids)
	out := make([]guildView, 0, len(ids))
	for _, id := range ids {
		out = append(out, viewGuild(s.playback.State(id)))
	}
	c.JSON(http.StatusOK, gin.H{"guilds": out})
}

func (s *Server) guildQueue(c *gin.Context) {
	id := c.Param("guildID")
	if !slices.Contains(s.playback.Guilds(), id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown guild"})
		return
	}
	c.JSON(http.StatusOK, viewGuild(s.playback.State(id)))
}
