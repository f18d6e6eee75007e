package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/global"
	"github.com/buildbarn/bb-storage/pkg/program"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/configuration/bb_test_queue"
	"github.com/buildbarn/bb-test-queue/pkg/queueserver"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/aliveness"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/history"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/pflag"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bb_test_queue hands out buckets of tests to workers. Clients enqueue
// buckets under a job, workers dequeue them and report results. Tests
// that fail are retried on other workers, and buckets of workers that
// stop responding are handed out once more.

func main() {
	printConfiguration := pflag.Bool("print-configuration", false, "Print the configuration with default values filled in, and exit")
	pflag.Parse()

	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if pflag.NArg() != 1 {
			return status.Error(codes.InvalidArgument, "Usage: bb_test_queue [--print-configuration] bb_test_queue.jsonnet")
		}
		configuration, err := bb_test_queue.GetApplicationConfiguration(pflag.Arg(0))
		if err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %s", pflag.Arg(0))
		}
		if *printConfiguration {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(configuration)
		}

		lifecycleState, _, err := global.ApplyConfiguration(configuration.Global.Configuration, dependenciesGroup)
		if err != nil {
			return util.StatusWrap(err, "Failed to apply global configuration options")
		}

		testQueue := scheduler.NewTracingTestQueue(
			scheduler.NewMetricsTestQueue(
				scheduler.NewInMemoryTestQueue(
					clock.SystemClock,
					uuid.NewRandom,
					aliveness.NewTracker(clock.SystemClock, configuration.WorkerMaximumNotReportingDuration.Duration),
					history.NewInMemoryTracker(),
					configuration.GetWorkerConfigurations()),
				clock.SystemClock),
			otel.GetTracerProvider())

		// Periodically take buckets away from workers that stopped
		// processing them.
		stuckBucketsSweeper := scheduler.NewStuckBucketsSweeper(
			testQueue,
			clock.SystemClock,
			configuration.StuckBucketsSweepInterval.Duration)
		siblingsGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			return stuckBucketsSweeper.Run(ctx)
		})

		// REST API used by clients and workers.
		router := mux.NewRouter()
		queueserver.NewTestQueueService(testQueue, util.DefaultErrorLogger, router)
		launchHTTPServer(
			siblingsGroup,
			"REST API",
			configuration.HTTPListenAddress,
			otelhttp.NewHandler(router, "bb_test_queue"))

		log.Printf(
			"Serving REST API on %s, with %d known workers",
			configuration.HTTPListenAddress,
			len(configuration.KnownWorkers))
		lifecycleState.MarkReadyAndWait(siblingsGroup)
		return nil
	})
}

// launchHTTPServer runs an HTTP server until the context of the group
// is canceled, after which it is shut down gracefully.
func launchHTTPServer(group program.Group, name, listenAddress string, handler http.Handler) {
	server := &http.Server{
		Addr:              listenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return util.StatusWrapf(err, "%s server failure", name)
		}
		return nil
	})
}
