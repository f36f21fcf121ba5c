package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/auth"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/user"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		Tokens        *auth.TokenService
		UserSvc       *user.Service
		ClassSvc      *classroom.Service
		AssignmentSvc *assignment.Service
		SubmissionSvc *submission.Service
		UploadsDir    string
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(metricsMiddleware)
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.app.Static(conf.Uploads.URLPrefix, s.deps.UploadsDir)

	api := s.app.Group("/api")
	authorizer := auth.NewAuthorizer(s.deps.Tokens)
	authn := authMiddleware(authorizer)

	registerUserAPI(api.Group("/auth"), authn, &userApi{
		svc:        s.deps.UserSvc,
		tokens:     s.deps.Tokens,
		authorizer: authorizer,
		validate:   s.deps.Validate,
	})
	registerTeacherAPI(api.Group("/teacher", authn, roleMiddleware(user.RoleTeacher)), &teacherApi{
		classes:     s.deps.ClassSvc,
		assignments: s.deps.AssignmentSvc,
		submissions: s.deps.SubmissionSvc,
		validate:    s.deps.Validate,
	})
	studentMiddleware := []echo.MiddlewareFunc{authn, roleMiddleware(user.RoleStudent)}
	if conf.Uploads.MaxSize != "" {
		studentMiddleware = append([]echo.MiddlewareFunc{middleware.BodyLimit(conf.Uploads.MaxSize)}, studentMiddleware...)
	}
	registerStudentAPI(api.Group("/student", studentMiddleware...), &studentApi{
		classes:     s.deps.ClassSvc,
		assignments: s.deps.AssignmentSvc,
		submissions: s.deps.SubmissionSvc,
		validate:    s.deps.Validate,
	})
}

// Start blocks until the server stops. Errors other than a shutdown are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives on SIGINT, SIGTERM or when a handler hit a shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kazi API!")
}
