package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/webseed87/camera/core"
	"github.com/webseed87/camera/encoder"
	"github.com/webseed87/camera/gallery"
	"github.com/webseed87/camera/handlers/api/captures"
	"github.com/webseed87/camera/handlers/api/controls"
	"github.com/webseed87/camera/handlers/api/frames"
	"github.com/webseed87/camera/handlers/websocket"
	authMiddleware "github.com/webseed87/camera/middleware"
	"github.com/webseed87/camera/session"
	"github.com/webseed87/camera/source"
	"github.com/webseed87/camera/stores"
)

func setupRouter(s *session.Session, src core.VideoSource, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return authMiddleware.IsLocalOrigin(origin)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT(jwtSecret))

		r.Get("/state", controls.HandleGetState(s))
		r.Route("/zoom", func(r chi.Router) {
			r.Put("/", controls.HandleSetZoom(s))
			r.Post("/next", controls.HandleStep(s, true))
			r.Post("/previous", controls.HandleStep(s, false))
			r.Post("/pinch", controls.HandlePinch(s))
			r.Post("/double-tap", controls.HandleDoubleTap(s))
			r.Post("/reset", controls.HandleResetZoom(s))
		})
		r.Post("/brightness", controls.HandleAdjustBrightness(s))

		r.Route("/frame", func(r chi.Router) {
			r.Get("/", frames.HandleGetFrame(src))
			if live, ok := src.(frames.FrameSink); ok {
				r.Put("/", frames.HandlePushFrame(live))
			}
		})

		r.Route("/captures", func(r chi.Router) {
			r.Get("/", captures.HandleList(s))
			r.Post("/", captures.HandleCapture(s))
			r.Delete("/", captures.HandleClear(s))
			r.Route("/{index}", func(r chi.Router) {
				r.Get("/", captures.HandleGet(s))
				r.Get("/download", captures.HandleDownload(s))
				r.Delete("/", captures.HandleDelete(s))
			})
		})
	})

	return r
}

func waitForShutdown(preview *websocket.Preview, closers ...func() error) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s := <-signalC
	logrus.WithField("signal", s).Info("Shutting down...")
	preview.Server().Close(nil)
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logrus.WithError(err).Warn("Failed to close resource")
		}
	}
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", "127.0.0.1:3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	issueToken := flag.String("issue-token", "", "Print an API token for the named device and exit.")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	jwtSecret := []byte(os.Getenv("API_JWT_SECRET"))
	if *issueToken != "" {
		if len(jwtSecret) == 0 {
			logrus.Fatal("API_JWT_SECRET must be set to issue tokens")
		}
		token, err := authMiddleware.IssueToken(jwtSecret, *issueToken, 30*24*time.Hour)
		if err != nil {
			logrus.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}
	if len(jwtSecret) == 0 {
		logrus.Warn("API_JWT_SECRET not set, camera API is unauthenticated")
	}

	ctx := context.Background()
	blobs := stores.GetStore(ctx)

	policy, err := gallery.ParseStartupPolicy(os.Getenv("STARTUP_POLICY"))
	if err != nil {
		logrus.Fatal(err)
	}
	store := gallery.NewStore(blobs)
	count := store.Init(ctx, policy)
	logrus.WithFields(logrus.Fields{"policy": policy, "captures": count}).Info("Gallery ready")

	src, err := source.Open(os.Getenv("CAMERA_SOURCE"), os.Getenv("CAMERA_FALLBACK_SOURCE"))
	if err != nil {
		logrus.WithField("event", "open camera").Fatal(err)
	}

	s := session.New(store, src, encoder.New())
	if v := os.Getenv("THUMBNAIL_WIDTH"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil || width <= 0 {
			logrus.Fatalf("Invalid THUMBNAIL_WIDTH %q", v)
		}
		s.ThumbnailWidth = width
	}

	r := setupRouter(s, src, jwtSecret)

	preview := websocket.NewPreview(s)
	s.SetListener(preview)
	r.Mount("/socket.io/", preview.Server().ServeHandler(nil))

	var closers []func() error
	if c, ok := blobs.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(preview, closers...)
}
