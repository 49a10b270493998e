// Package server exposes the HTTP API and the SSE observer gateway.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"jobwire/db"
	"jobwire/models"
)

// Store is the read/registry surface the API serves. *db.DB satisfies it.
type Store interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	CreateFeed(ctx context.Context, url string) (models.Feed, bool, error)
	DeleteFeed(ctx context.Context, id int64) (bool, error)
	ListJobs(ctx context.Context, filter db.JobFilter) ([]models.Job, error)
	ListImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error)
	GetStats(ctx context.Context) (models.Stats, error)
}

type ServerConfig struct {
	Store Store

	// Broadcast channel to pass run events to SSE clients
	Broadcaster *Broadcaster

	// AllowOrigin for the dashboard, e.g. http://localhost:3000
	AllowOrigin string
}

// Server returns a fiber.App serving the jobwire API and SSE gateway.
func Server(config *ServerConfig) *fiber.App {
	bc := config.Broadcaster
	store := config.Store

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	if config.AllowOrigin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     config.AllowOrigin,
			AllowHeaders:     "Cache-Control, Content-Type",
			AllowCredentials: true,
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ── Feed registry ──────────────────────────────────────────────

	app.Get("/api/feeds", func(c *fiber.Ctx) error {
		feeds, err := store.ListFeeds(c.Context())
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error listing feeds")
			return c.Status(500).JSON(fiber.Map{"error": "Error listing feeds"})
		}
		if feeds == nil {
			feeds = []models.Feed{}
		}
		return c.JSON(feeds)
	})

	app.Post("/api/feeds", func(c *fiber.Ctx) error {
		var body struct {
			URL string `json:"url"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := validateFeedURL(body.URL); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}

		feed, created, err := store.CreateFeed(c.Context(), body.URL)
		if err != nil {
			log.WithFields(log.Fields{"url": body.URL, "error": err}).Error("Error creating feed")
			return c.Status(500).JSON(fiber.Map{"error": "Error creating feed"})
		}
		if created {
			return c.Status(201).JSON(feed)
		}
		return c.JSON(feed)
	})

	app.Delete("/api/feeds/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid feed id"})
		}
		removed, err := store.DeleteFeed(c.Context(), id)
		if err != nil {
			log.WithFields(log.Fields{"id": id, "error": err}).Error("Error deleting feed")
			return c.Status(500).JSON(fiber.Map{"error": "Error deleting feed"})
		}
		if !removed {
			return c.Status(404).JSON(fiber.Map{"error": "Feed not found"})
		}
		return c.JSON(fiber.Map{"removed": true})
	})

	// ── Jobs and run history ───────────────────────────────────────

	app.Get("/api/jobs", func(c *fiber.Ctx) error {
		filter := db.JobFilter{
			FeedURL: c.Query("feed", ""),
			Search:  c.Query("q", ""),
			Limit:   c.QueryInt("limit", 50),
			Offset:  c.QueryInt("offset", 0),
		}
		jobs, err := store.ListJobs(c.Context(), filter)
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error listing jobs")
			return c.Status(500).JSON(fiber.Map{"error": "Error listing jobs"})
		}
		if jobs == nil {
			jobs = []models.Job{}
		}
		return c.JSON(jobs)
	})

	app.Get("/api/import-logs", func(c *fiber.Ctx) error {
		logs, err := store.ListImportLogs(c.Context(), c.QueryInt("limit", 50))
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error listing import logs")
			return c.Status(500).JSON(fiber.Map{"error": "Error listing import logs"})
		}
		if logs == nil {
			logs = []models.ImportLog{}
		}
		return c.JSON(logs)
	})

	app.Get("/api/stats", func(c *fiber.Ctx) error {
		stats, err := store.GetStats(c.Context())
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Error("Error getting stats")
			return c.Status(500).JSON(fiber.Map{"error": "Error getting stats"})
		}
		return c.JSON(stats)
	})

	// ── Observer gateway (SSE) ─────────────────────────────────────

	app.Delete("/api/events/sse", func(c *fiber.Ctx) error {
		key := c.Query("key", "")
		bc.RemoveClient(key)
		return c.SendString("OK")
	})

	app.Get("/api/events/sse", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		eventChan := make(chan models.RunEvent, 10) // Buffered channel
		aliveChan := time.NewTicker(5 * time.Second)
		defer aliveChan.Stop()

		bc.AddClient(key, eventChan)

		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-aliveChan.C:
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-eventChan:
					if !ok {
						log.Warnf("Event channel closed for client %s", key)
						return
					}
					if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Channel, event.Payload); err != nil {
						log.Warnf("Failed to send event to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush event for client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be a valid http(s) URL")
	}
	return nil
}
