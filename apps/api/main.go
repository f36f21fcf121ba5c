package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/auth"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/user"
	"github.com/trezcool/kazi/services/extract"
	"github.com/trezcool/kazi/services/filestore"
	logsvc "github.com/trezcool/kazi/services/logger"
	"github.com/trezcool/kazi/services/oracle"
	"github.com/trezcool/kazi/services/revocation"
	"github.com/trezcool/kazi/storage/database"
	inmemdb "github.com/trezcool/kazi/storage/database/inmem"
	sqlxdb "github.com/trezcool/kazi/storage/database/sqlx"
)

// engineMemory selects the in-memory store (DEV_DATABASE_ENGINE=memory); data is lost on exit.
const engineMemory = "memory"

type repositories struct {
	db          core.DB // nil for the in-memory store
	users       user.Repository
	classes     classroom.Repository
	assignments assignment.Repository
	submissions submission.Repository
	close       func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	revoker, closeRevoker := setUpRevoker(conf, logger)
	defer closeRevoker()

	files, err := filestore.NewDisk(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	// set up services
	usrSvc := user.NewService(repos.users)
	classSvc := classroom.NewService(repos.db, repos.classes)
	asgSvc := assignment.NewService(repos.assignments, classSvc)

	subDeps := submission.Deps{
		DB:          repos.db,
		Repo:        repos.submissions,
		Assignments: asgSvc,
		Classes:     classSvc,
		Files:       files,
		Extractor:   extract.NewExtractor(logger),
		Logger:      logger,
	}
	switch client, err := oracle.NewClient(conf, logger); {
	case err == nil:
		subDeps.Grader = client
		subDeps.Analyzer = client
	case err == oracle.ErrNoAPIKey:
		logger.Warn("AI grading disabled: " + err.Error())
	default:
		logger.Fatal(fmt.Sprintf("setting up AI grading: %v", err), err)
	}
	subSvc := submission.NewService(subDeps)

	tokens := auth.NewTokenService(conf, usrSvc, revoker)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			Tokens:        tokens,
			UserSvc:       usrSvc,
			ClassSvc:      classSvc,
			AssignmentSvc: asgSvc,
			SubmissionSvc: subSvc,
			UploadsDir:    files.Dir(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return &repositories{
			users:       inmemdb.NewUserRepository(db),
			classes:     inmemdb.NewClassRepository(db),
			assignments: inmemdb.NewAssignmentRepository(db),
			submissions: inmemdb.NewSubmissionRepository(db),
			close:       func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(context.Background(), db.DB.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		db:          db,
		users:       sqlxdb.NewUserRepository(db),
		classes:     sqlxdb.NewClassRepository(db),
		assignments: sqlxdb.NewAssignmentRepository(db),
		submissions: sqlxdb.NewSubmissionRepository(db),
		close:       db.Close,
	}, nil
}

// setUpRevoker falls back to an in-process revocation list when redis is not configured.
func setUpRevoker(conf *core.Config, logger core.Logger) (auth.Revoker, func()) {
	if conf.Redis.URL == "" {
		return auth.NewMemoryRevoker(), func() {}
	}
	store, err := revocation.NewRedisStore(context.Background(), conf.Redis.URL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up token revocation: %v", err), err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing redis: %v", err), err)
		}
	}
}
