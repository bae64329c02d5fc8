package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/krobus00/clob-gateway/internal/config"
	httpHandler "github.com/krobus00/clob-gateway/internal/handler/gateway/http"
	"github.com/krobus00/clob-gateway/internal/infrastructure"
	"github.com/krobus00/clob-gateway/internal/repository"
	"github.com/krobus00/clob-gateway/internal/service/clob"
	"github.com/krobus00/clob-gateway/internal/service/credential"
	"github.com/krobus00/clob-gateway/internal/service/hub"
	"github.com/krobus00/clob-gateway/internal/service/order"
	"github.com/krobus00/clob-gateway/internal/service/venueconn"
	"github.com/krobus00/clob-gateway/internal/util"
)

func StartGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	venueCfg := config.Env.Venue

	venueClient := clob.NewClient(clob.Config{
		ClobHost:      venueCfg.ClobHost,
		GammaHost:     venueCfg.GammaHost,
		DataHost:      venueCfg.DataHost,
		ChainID:       venueCfg.ChainID,
		SignatureType: venueCfg.SignatureType,
		SigningKey:    venueCfg.SigningKey,
		Funder:        venueCfg.Funder,
	})

	credRepo := repository.NewEnvFileRepository(config.Env.CredentialFile)
	credStore := credential.NewStore(venueClient, credRepo)

	// missing signing config degrades the gateway instead of killing it:
	// the venue connection stays in WaitingForCredentials and the trading
	// endpoints report errors per request
	if strings.TrimSpace(venueCfg.SigningKey) == "" || strings.TrimSpace(venueCfg.Funder) == "" {
		logrus.Warn("venue signing key or funder not configured, skipping credential acquisition")
	} else if _, err := credStore.Acquire(ctx); err != nil {
		logrus.Errorf("credential acquisition failed: %v", err)
	}

	venueConnection := venueconn.NewConnection(venueconn.Config{
		URL:             venueCfg.UserStreamURL,
		PollInterval:    config.Env.Stream.CredentialPollInterval,
		BackoffInterval: config.Env.Stream.BackoffInterval,
	}, credStore)

	eventHub := hub.NewHub(venueConnection, config.Env.Stream.SubscriberBufferSize)
	venueConnection.SetFrameHandler(func(payload json.RawMessage) {
		eventHub.Broadcast(util.NewUserUpdateMessage(payload))
	})

	streamDone := make(chan struct{})
	go func() {
		venueConnection.Run(ctx)
		close(streamDone)
	}()

	orderGateway := order.NewGateway(venueClient)

	gatewayHTTPHandler := httpHandler.NewGatewayHTTPHandler(
		credStore,
		orderGateway,
		venueClient,
		eventHub,
		venueConnection,
		config.Env.CORS.AllowedOrigins,
	)
	httpMux := http.NewServeMux()
	gatewayHTTPHandler.Register(httpMux)

	httpAddr := ""
	if port := strings.TrimSpace(config.Env.Port["http"]); port != "" {
		httpAddr = fmt.Sprintf(":%s", port)
	}
	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            httpAddr,
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
		AllowedOrigins:  config.Env.CORS.AllowedOrigins,
	}, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpAddr))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"venue stream": func(ctx context.Context) error {
			cancel()
			<-streamDone
			return nil
		},
		"broadcast hub": func(ctx context.Context) error {
			eventHub.Close()
			return nil
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})

	<-wait
}
