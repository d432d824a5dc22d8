package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/credit-reconciliation/pkg/config"
	"github.com/chris/credit-reconciliation/pkg/scheduler"
	dydbstore "github.com/chris/credit-reconciliation/pkg/storage/dynamodb"
)

var sweeper *scheduler.Sweeper

func init() {
	cfg, err := config.Load(config.ProfileSweeper)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	store := dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.BalancesTable, cfg.LedgerTable, cfg.ConnectionsTable)
	sqsScheduler := scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL)

	sweeper = scheduler.NewSweeper(store, sqsScheduler, cfg.PendingSweepAge, cfg.SweepConcurrency, logger)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) (scheduler.SweepReport, error) {
	return sweeper.Run(ctx)
}

func main() {
	lambda.Start(HandleRequest)
}
