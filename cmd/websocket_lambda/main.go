package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/config"
	wshandler "github.com/chris/credit-reconciliation/pkg/handlers/websockets"
	dydbstore "github.com/chris/credit-reconciliation/pkg/storage/dynamodb"
)

var handler *wshandler.Handler

func init() {
	cfg, err := config.Load(config.ProfileWebsocket)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	slog.SetDefault(cfg.Logger())

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	// Only the connections table is used by this function.
	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.BalancesTable, cfg.LedgerTable, cfg.ConnectionsTable)
	handler = wshandler.NewHandler(store, nil)
}

func main() {
	lambda.Start(handler.Route)
}
