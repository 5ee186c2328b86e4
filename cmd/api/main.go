package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	teamMapService "github.com/cmlabs-hris/attendance-engine-go/internal/service/teammap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgresql.Migrate(ctx, db); err != nil {
		fmt.Println("Error applying schema:", err)
		os.Exit(1)
	}

	punchRepo := postgresql.NewPunchRepository(db)
	leaveWindowRepo := postgresql.NewLeaveWindowRepository(db)
	transactor := postgresql.NewTransactor(db)

	hub := sse.NewHub()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		punchRepo,
		leaveWindowRepo,
		hub,
		attendanceService.Options{
			Location:        cfg.Attendance.Timezone,
			LocationTimeout: cfg.Attendance.LocationTimeout,
			Geofences:       cfg.Attendance.Geofences,
		},
	)
	teamMapSvc := teamMapService.NewTeamMapService(
		punchRepo,
		leaveWindowRepo,
		cfg.Attendance.Timezone,
		cfg.Attendance.DeclutterOptions(),
	)

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc, JWTService, hub, cfg.Attendance.StreamInterval)
	teamMapHandler := appHTTP.NewTeamMapHandler(teamMapSvc)
	limiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	router := appHTTP.NewRouter(cfg.App, JWTService, limiter, attendanceHandler, teamMapHandler)

	scheduler := cron.NewScheduler(ctx)
	cron.NewAttendanceJobs(punchRepo).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Server running", "addr", server.Addr, "timezone", cfg.Attendance.Timezone.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
	}
}
