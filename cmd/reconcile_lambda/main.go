package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/config"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/scheduler"
	dydbstore "github.com/chris/credit-reconciliation/pkg/storage/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/websockets"
)

var worker *scheduler.Worker

func init() {
	cfg, err := config.Load(config.ProfileWorker)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx := context.TODO()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.BalancesTable, cfg.LedgerTable, cfg.ConnectionsTable)
	provider := payments.NewStripeProvider(payments.StripeConfig{
		SecretKey:   cfg.StripeSecretKey,
		HTTPTimeout: cfg.ProviderTimeout,
	}, logger)

	var publisher websockets.Publisher = websockets.NoOpPublisher{}
	if cfg.WebsocketAPIEndpoint != "" {
		client, err := websockets.NewAPIGatewayClient(ctx, cfg.WebsocketAPIEndpoint)
		if err != nil {
			log.Fatalf("failed to create websocket client: %v", err)
		}
		publisher = websockets.NewPublisher(store, client, logger)
	}

	reconcileCfg := reconciler.DefaultConfig()
	reconcileCfg.ProviderTimeout = cfg.ProviderTimeout
	reconcileCfg.StoreTimeout = cfg.StoreTimeout
	reconcileCfg.MaxAttempts = cfg.ProviderMaxAttempts
	rec := reconciler.New(store, provider, reconcileCfg,
		reconciler.WithNotifier(websockets.NewGrantNotifier(publisher)),
		reconciler.WithLogger(logger),
	)

	worker = scheduler.NewWorker(rec, logger)
}

func main() {
	lambda.Start(worker.HandleSQSEvent)
}
