package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/jasonlvhit/gocron"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/tactics-server/api"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/feed"
	"github.com/a-bouts/tactics-server/marks"
	"github.com/a-bouts/tactics-server/notify"
	"github.com/a-bouts/tactics-server/provider"
	"github.com/a-bouts/tactics-server/store"
)

type providerConfig struct {
	venueLat float64
	venueLon float64
	venue    string
	gribFile string
	tideURL  string
	demoFile string
}

func main() {

	godotenv.Load()

	fs := flag.NewFlagSet("tactics-server", flag.ExitOnError)
	var (
		port       = fs.Int("port", 8888, "http listen port")
		debug      = fs.Bool("debug", false, "debug logging")
		cpuprofile = fs.Bool("cpuprofile", false, "profile course builds")

		venue     = fs.String("venue", "", "venue name, keys the demo dataset")
		venueLat  = fs.Float64("venue-lat", 0, "venue latitude for forecast sampling")
		venueLon  = fs.Float64("venue-lon", 0, "venue longitude for forecast sampling")
		boatDraft = fs.Float64("boat-draft", 1.8, "boat draft in meters for depth clearance")

		courseFile = fs.String("course-file", "", "course JSON document to preload")
		dbDsn      = fs.String("db", "", "postgres DSN of the mark source")
		raceID     = fs.String("race-id", "", "race to load from the mark source")

		gribFile = fs.String("grib-file", "", "grib2 file for fallback wind")
		tideURL  = fs.String("tide-url", "", "harbour tide table page to scrape")
		demoFile = fs.String("demo-file", "", "demo environment CSV")

		redisAddr     = fs.String("redis-addr", "", "redis address for state publication")
		redisPassword = fs.String("redis-password", "", "")
		redisDB       = fs.Int("redis-db", 0, "")
		redisPrefix   = fs.String("redis-prefix", "tactics", "")

		xmppHost     = fs.String("xmpp-host", "", "")
		xmppJid      = fs.String("xmpp-jid", "", "")
		xmppPassword = fs.String("xmpp-password", "", "")
		xmppTo       = fs.String("xmpp-to", "", "")
	)
	ff.Parse(fs, os.Args[1:], ff.WithEnvVarNoPrefix())

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	st := store.New(*venue, *boatDraft)

	hub := feed.NewHub()
	go hub.Run()
	st.Attach(hub)

	if *redisAddr != "" {
		pub, err := store.NewRedisPublisher(*redisAddr, *redisPassword, *redisDB, *redisPrefix)
		if err != nil {
			log.WithError(err).Warn("Redis unreachable, state publication disabled")
		} else {
			st.Attach(pub)
		}
	}

	if *xmppJid != "" {
		st.Attach(notify.New(notify.Config{
			Host:     *xmppHost,
			Jid:      *xmppJid,
			Password: *xmppPassword,
			To:       *xmppTo,
		}))
	}

	loadCourse(st, *courseFile, *dbDsn, *raceID)

	cfg := providerConfig{
		venueLat: *venueLat,
		venueLon: *venueLon,
		venue:    *venue,
		gribFile: *gribFile,
		tideURL:  *tideURL,
		demoFile: *demoFile,
	}
	refreshEnvironment(st, cfg)

	s := gocron.NewScheduler()
	job := s.Every(15).Minutes()
	job.Do(func() { refreshEnvironment(st, cfg) })
	go s.Start()

	log.Infof("Start server on :%d", *port)

	router := api.InitServer(*cpuprofile, st, hub)
	handler := handlers.CORS(
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(handlers.LoggingHandler(os.Stdout, router))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: handler}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("Shutting down")
		hub.Shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func loadCourse(st *store.Store, courseFile, dbDsn, raceID string) {
	if courseFile != "" {
		doc, err := marks.LoadFile(courseFile)
		if err != nil {
			log.WithError(err).Errorf("Error loading course file '%s'", courseFile)
			return
		}
		st.SetRawMarks(doc.Marks, doc.Metadata)
		return
	}

	if dbDsn != "" && raceID != "" {
		db, err := marks.OpenDB(dbDsn)
		if err != nil {
			log.WithError(err).Error("Error connecting to the mark source")
			return
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		doc, err := db.CourseDocument(ctx, raceID)
		if err != nil {
			log.WithError(err).Errorf("Error loading race '%s' from the mark source", raceID)
			return
		}
		st.SetRawMarks(doc.Marks, doc.Metadata)
	}
}

// refreshEnvironment polls the provider collaborators and installs their
// readings as the record and demo tiers. Any provider failing just leaves
// its reading absent.
func refreshEnvironment(st *store.Store, cfg providerConfig) {
	var record *env.Readings

	if cfg.gribFile != "" {
		w, err := provider.LoadGrib(cfg.gribFile, time.Now())
		if err != nil {
			log.WithError(err).Warnf("Error loading grib file '%s'", cfg.gribFile)
		} else if wind := w.Sample(cfg.venueLat, cfg.venueLon); wind != nil {
			record = &env.Readings{Wind: wind}
		}
	}

	if cfg.tideURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		tide, err := provider.FetchTideTable(ctx, http.DefaultClient, cfg.tideURL, time.Now())
		cancel()
		if err != nil {
			log.WithError(err).Warnf("Error scraping tide table '%s'", cfg.tideURL)
		} else {
			if record == nil {
				record = &env.Readings{}
			}
			record.Tide = tide
		}
	}

	var demo *env.Readings
	if cfg.demoFile != "" && cfg.venue != "" {
		d, err := provider.LoadDemo(cfg.demoFile, cfg.venue)
		if err != nil {
			log.WithError(err).Warnf("Error loading demo data '%s'", cfg.demoFile)
		} else {
			demo = d
		}
	}

	st.SetProviderReadings(record, demo)
}
