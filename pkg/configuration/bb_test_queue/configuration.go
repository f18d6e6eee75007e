package bb_test_queue

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	pb "github.com/buildbarn/bb-storage/pkg/proto/configuration/global"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/google/go-jsonnet"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Duration is a time.Duration that is stored in the configuration
// file using the JSON representation of google.protobuf.Duration
// (e.g., "30s" or "1.5s").
type Duration struct {
	time.Duration
}

// UnmarshalJSON parses a duration in google.protobuf.Duration form.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var duration durationpb.Duration
	if err := protojson.Unmarshal(data, &duration); err != nil {
		return util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid duration")
	}
	d.Duration = duration.AsDuration()
	return nil
}

// MarshalJSON converts the duration to google.protobuf.Duration form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(durationpb.New(d.Duration))
}

// GlobalConfiguration holds the options that are shared by all
// Buildbarn binaries, such as tracing, logging and the diagnostics HTTP
// server. It is stored in the configuration file using the JSON
// representation of buildbarn.configuration.global.Configuration.
type GlobalConfiguration struct {
	*pb.Configuration
}

// UnmarshalJSON parses the global configuration message.
func (c *GlobalConfiguration) UnmarshalJSON(data []byte) error {
	var message pb.Configuration
	if err := protojson.Unmarshal(data, &message); err != nil {
		return util.StatusWrapWithCode(err, codes.InvalidArgument, "Invalid global configuration")
	}
	c.Configuration = &message
	return nil
}

// MarshalJSON converts the global configuration message to its JSON
// representation.
func (c GlobalConfiguration) MarshalJSON() ([]byte, error) {
	if c.Configuration == nil {
		return []byte("{}"), nil
	}
	return protojson.Marshal(c.Configuration)
}

// KnownWorker is a worker that is permitted to register. Workers that
// are not listed are refused. The capabilities are announced to the
// worker upon registration, and take precedence over the ones it
// reports itself.
type KnownWorker struct {
	WorkerID     model.WorkerID   `json:"workerId"`
	Capabilities capabilities.Set `json:"capabilities"`
}

// ApplicationConfiguration of bb_test_queue.
type ApplicationConfiguration struct {
	// Address on which the REST API used by clients and workers is
	// exposed.
	HTTPListenAddress string `json:"httpListenAddress"`
	// Options common to all Buildbarn binaries. Prometheus metrics,
	// pprof and tracing are configured here.
	Global GlobalConfiguration `json:"global"`
	// Workers that don't report in for this amount of time are
	// considered to no longer be responding. Their buckets are
	// handed out to other workers.
	WorkerMaximumNotReportingDuration Duration `json:"workerMaximumNotReportingDuration"`
	// Interval at which buckets of workers that no longer respond
	// are enqueued once more.
	StuckBucketsSweepInterval Duration `json:"stuckBucketsSweepInterval"`
	// Workers that may register.
	KnownWorkers []KnownWorker `json:"knownWorkers"`
}

// GetApplicationConfiguration reads the configuration from a Jsonnet
// file and fills in default values. Environment variables are exposed
// to the configuration through std.extVar().
func GetApplicationConfiguration(path string) (*ApplicationConfiguration, error) {
	vm := jsonnet.MakeVM()
	for _, v := range os.Environ() {
		if name, value, ok := strings.Cut(v, "="); ok {
			vm.ExtVar(name, value)
		}
	}
	jsonData, err := vm.EvaluateFile(path)
	if err != nil {
		return nil, util.StatusWrapWithCode(err, codes.InvalidArgument, "Failed to retrieve configuration")
	}
	applicationConfiguration, err := unmarshalApplicationConfiguration([]byte(jsonData))
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to retrieve configuration")
	}
	return applicationConfiguration, nil
}

func unmarshalApplicationConfiguration(jsonData []byte) (*ApplicationConfiguration, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()
	var applicationConfiguration ApplicationConfiguration
	if err := decoder.Decode(&applicationConfiguration); err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	setDefaultApplicationValues(&applicationConfiguration)
	seenWorkerIDs := map[model.WorkerID]struct{}{}
	for i, knownWorker := range applicationConfiguration.KnownWorkers {
		if knownWorker.WorkerID == "" {
			return nil, status.Errorf(codes.InvalidArgument, "Known worker at index %d has no worker ID", i)
		}
		if _, ok := seenWorkerIDs[knownWorker.WorkerID]; ok {
			return nil, status.Errorf(codes.InvalidArgument, "Known worker %#v is listed more than once", knownWorker.WorkerID)
		}
		seenWorkerIDs[knownWorker.WorkerID] = struct{}{}
	}
	return &applicationConfiguration, nil
}

// GetWorkerConfigurations returns the capabilities of all known
// workers, keyed by worker ID.
func (c *ApplicationConfiguration) GetWorkerConfigurations() map[model.WorkerID]capabilities.Set {
	workerConfigurations := make(map[model.WorkerID]capabilities.Set, len(c.KnownWorkers))
	for _, knownWorker := range c.KnownWorkers {
		workerConfigurations[knownWorker.WorkerID] = knownWorker.Capabilities.Clone()
	}
	return workerConfigurations
}

func setDefaultApplicationValues(applicationConfiguration *ApplicationConfiguration) {
	if applicationConfiguration.HTTPListenAddress == "" {
		applicationConfiguration.HTTPListenAddress = ":8080"
	}
	if applicationConfiguration.Global.Configuration == nil {
		applicationConfiguration.Global.Configuration = &pb.Configuration{}
	}
	if applicationConfiguration.WorkerMaximumNotReportingDuration.Duration <= 0 {
		applicationConfiguration.WorkerMaximumNotReportingDuration.Duration = time.Minute
	}
	if applicationConfiguration.StuckBucketsSweepInterval.Duration <= 0 {
		applicationConfiguration.StuckBucketsSweepInterval.Duration = 5 * time.Second
	}
}
