package bb_test_queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pb "github.com/buildbarn/bb-storage/pkg/proto/configuration/global"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func writeConfiguration(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "bb_test_queue.jsonnet")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// requireGlobalConfiguration compares the global configuration
// separately, as protobuf messages cannot be compared using
// require.Equal(). It is cleared afterwards.
func requireGlobalConfiguration(t *testing.T, want *pb.Configuration, applicationConfiguration *ApplicationConfiguration) {
	testutil.RequireEqualProto(t, want, applicationConfiguration.Global.Configuration)
	applicationConfiguration.Global.Configuration = nil
}

func TestGetApplicationConfiguration(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		applicationConfiguration, err := GetApplicationConfiguration(writeConfiguration(t, "{}"))
		require.NoError(t, err)
		requireGlobalConfiguration(t, &pb.Configuration{}, applicationConfiguration)
		require.Equal(t, &ApplicationConfiguration{
			HTTPListenAddress:                 ":8080",
			WorkerMaximumNotReportingDuration: Duration{time.Minute},
			StuckBucketsSweepInterval:         Duration{5 * time.Second},
		}, applicationConfiguration)
	})

	t.Run("Full", func(t *testing.T) {
		t.Setenv("TEST_QUEUE_PORT", "8123")
		applicationConfiguration, err := GetApplicationConfiguration(writeConfiguration(t, `
local xcodeWorker(id) = {
  workerId: id,
  capabilities: { xcode: '15.2' },
};
{
  httpListenAddress: ':' + std.extVar('TEST_QUEUE_PORT'),
  global: {
    diagnosticsHttpServer: {
      enablePrometheus: true,
      enablePprof: true,
    },
    logPaths: ['/var/log/bb_test_queue.log'],
  },
  workerMaximumNotReportingDuration: '90s',
  stuckBucketsSweepInterval: '1.5s',
  knownWorkers: [xcodeWorker('mac1'), xcodeWorker('mac2')],
}`))
		require.NoError(t, err)
		requireGlobalConfiguration(t, &pb.Configuration{
			DiagnosticsHttpServer: &pb.DiagnosticsHTTPServerConfiguration{
				EnablePrometheus: true,
				EnablePprof:      true,
			},
			LogPaths: []string{"/var/log/bb_test_queue.log"},
		}, applicationConfiguration)
		require.Equal(t, map[model.WorkerID]capabilities.Set{
			"mac1": {"xcode": "15.2"},
			"mac2": {"xcode": "15.2"},
		}, applicationConfiguration.GetWorkerConfigurations())
		require.Equal(t, &ApplicationConfiguration{
			HTTPListenAddress:                 ":8123",
			WorkerMaximumNotReportingDuration: Duration{90 * time.Second},
			StuckBucketsSweepInterval:         Duration{1500 * time.Millisecond},
			KnownWorkers: []KnownWorker{
				{WorkerID: "mac1", Capabilities: capabilities.Set{"xcode": "15.2"}},
				{WorkerID: "mac2", Capabilities: capabilities.Set{"xcode": "15.2"}},
			},
		}, applicationConfiguration)
	})

	t.Run("InvalidJsonnet", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("InvalidDuration", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{ stuckBucketsSweepInterval: 'soon' }"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("InvalidGlobalConfiguration", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{ global: { diagnosticsHttpServer: { enableMetrics: true } } }"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{ grpcServers: [] }"))
		require.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("KnownWorkerWithoutID", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{ knownWorkers: [{}] }"))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Failed to retrieve configuration: Known worker at index 0 has no worker ID"),
			err)
	})

	t.Run("DuplicateKnownWorker", func(t *testing.T) {
		_, err := GetApplicationConfiguration(writeConfiguration(t, "{ knownWorkers: [{ workerId: 'mac1' }, { workerId: 'mac1' }] }"))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.InvalidArgument, "Failed to retrieve configuration: Known worker \"mac1\" is listed more than once"),
			err)
	})
}
