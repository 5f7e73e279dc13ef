package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pompin/gameserver/pkg/api"
	authproviders "github.com/pompin/gameserver/pkg/auth/providers"
	"github.com/pompin/gameserver/pkg/game"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/network"
	"github.com/pompin/gameserver/pkg/queue"
	"github.com/pompin/gameserver/pkg/repositories"
	"github.com/pompin/gameserver/pkg/version"
	"github.com/pompin/gameserver/pkg/workers"
)

func main() {
	wsPort := flag.Int("ws-port", 8888, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", 8889, "API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	repositoryKind := flag.String("repository", "memory", "Repository backend (memory, sqlite, postgres, redis)")
	sqlitePath := flag.String("sqlite-path", "gameserver.db", "Path to the SQLite database file")
	migrationsDir := flag.String("migrations", "migrations", "Path to the migrations directory")
	certFile := flag.String("cert-file", "", "TLS certificate file")
	keyFile := flag.String("key-file", "", "TLS key file")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx := context.Background()

	repository, err := newRepository(ctx, *repositoryKind, *sqlitePath, *migrationsDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to create repository: %v", err))
	}
	defer repository.Close(ctx)

	authProvider, err := newAuthProvider(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to create auth provider: %v", err))
	}

	var tlsConfig *network.TLSConfig
	var apiTLSConfig *api.TLSConfig
	if *certFile != "" && *keyFile != "" {
		tlsConfig = &network.TLSConfig{CertFile: *certFile, KeyFile: *keyFile}
		apiTLSConfig = &api.TLSConfig{CertFile: *certFile, KeyFile: *keyFile}
	}

	clientMessageQueue := queue.NewInMemoryQueue(10000)
	connectionEventQueue := queue.NewInMemoryQueue(1000)

	clientManager := network.NewClientManager(connectionEventQueue)
	networkManager := network.NewNetworkManager(network.NewNetworkManagerOptions{
		AuthProvider:  authProvider,
		ClientManager: clientManager,
		MessageQueue:  clientMessageQueue,
		WSPort:        *wsPort,
		WSServerTLS:   tlsConfig,
	})
	networkManager.Start(ctx)

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:       *apiPort,
		TLS:        apiTLSConfig,
		Repository: repository,
	})
	go apiServer.Start()
	defer apiServer.Stop(ctx)

	saveResultChan := make(chan workers.SaveResultRequest, 100)
	saveResultWorker := workers.NewSaveResultWorker(workers.NewSaveResultWorkerOptions{
		Repository:  repository,
		RequestChan: saveResultChan,
	})
	go saveResultWorker.Start(ctx)

	gameManager := game.NewGameManager(game.NewGameManagerOptions{
		ClientMessageQueue:   clientMessageQueue,
		ConnectionEventQueue: connectionEventQueue,
		Messenger:            networkManager,
		Identities:           clientManager,
		SaveChan:             saveResultChan,
		Config:               game.DefaultConfig(),
	})

	log.Info("Starting game manager")
	if err := gameManager.Start(ctx); err != nil {
		panic(fmt.Sprintf("Game manager stopped: %v", err))
	}
}

func newRepository(ctx context.Context, kind, sqlitePath, migrationsDir string) (repositories.Repository, error) {
	switch kind {
	case "memory":
		return repositories.NewInMemoryRepository(), nil
	case "sqlite":
		return repositories.NewSQLiteRepository(ctx, sqlitePath, migrationsDir)
	case "postgres":
		connStr := os.Getenv("DATABASE_URL")
		if connStr == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable must be set")
		}
		return repositories.NewPostgresRepository(ctx, connStr)
	case "redis":
		url := os.Getenv("REDIS_URL")
		if url == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable must be set")
		}
		return repositories.NewRedisRepository(ctx, url)
	default:
		return nil, fmt.Errorf("unknown repository kind: %s", kind)
	}
}

func newAuthProvider(ctx context.Context) (authproviders.AuthProvider, error) {
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	apiKey := os.Getenv("FIREBASE_API_KEY")
	if projectID == "" || apiKey == "" {
		log.Warn("Firebase is not configured, using the insecure auth provider")
		return authproviders.NewInsecureAuthProvider(), nil
	}
	return authproviders.NewFirebaseAuthProvider(ctx, projectID, apiKey)
}
