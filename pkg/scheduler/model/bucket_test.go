package model_test

import (
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBucketValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		bucket := model.Bucket{
			BucketID:    "bucket-1",
			TestEntries: []model.TestEntry{{ClassName: "LoginTests", MethodName: "testLogin"}},
			CapabilityRequirements: capabilities.Requirements{
				{Name: "xcode", Constraint: capabilities.Equal("15.2")},
			},
		}
		require.NoError(t, bucket.Validate())
	})

	t.Run("NoID", func(t *testing.T) {
		bucket := model.Bucket{
			TestEntries: []model.TestEntry{{ClassName: "LoginTests", MethodName: "testLogin"}},
		}
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Bucket has no ID"), bucket.Validate())
	})

	t.Run("NoTests", func(t *testing.T) {
		bucket := model.Bucket{BucketID: "bucket-1"}
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Bucket \"bucket-1\" contains no tests"), bucket.Validate())
	})

	t.Run("InvalidRequirement", func(t *testing.T) {
		bucket := model.Bucket{
			BucketID:    "bucket-1",
			TestEntries: []model.TestEntry{{ClassName: "LoginTests", MethodName: "testLogin"}},
			CapabilityRequirements: capabilities.Requirements{
				{Name: "xcode", Constraint: capabilities.Constraint{Type: "between"}},
			},
		}
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Bucket \"bucket-1\": Invalid constraint for capability \"xcode\": Unknown constraint type \"between\""), bucket.Validate())
	})
}

func TestBucketWithTestEntries(t *testing.T) {
	bucket := model.Bucket{
		BucketID: "bucket-1",
		TestEntries: []model.TestEntry{
			{ClassName: "LoginTests", MethodName: "testLogin"},
			{ClassName: "LoginTests", MethodName: "testLogout"},
		},
		TestDestination: model.TestDestination{DeviceType: "iPhone 15", Runtime: "17.2"},
		AnalyticsTag:    "nightly",
	}
	retry := bucket.WithTestEntries("bucket-2", []model.TestEntry{
		{ClassName: "LoginTests", MethodName: "testLogout"},
	})
	require.Equal(t, model.Bucket{
		BucketID:        "bucket-2",
		TestEntries:     []model.TestEntry{{ClassName: "LoginTests", MethodName: "testLogout"}},
		TestDestination: model.TestDestination{DeviceType: "iPhone 15", Runtime: "17.2"},
		AnalyticsTag:    "nightly",
	}, retry)
	require.Equal(t, []string{"LoginTests/testLogin", "LoginTests/testLogout"}, bucket.TestNames())
}
