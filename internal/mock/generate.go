package mock

//go:generate mockgen -package mock -destination aliases.go github.com/buildbarn/bb-test-queue/internal/mock/aliases UUIDGenerator
//go:generate mockgen -package mock -destination clock.go github.com/buildbarn/bb-storage/pkg/clock Clock,Ticker
//go:generate mockgen -package mock -destination history.go github.com/buildbarn/bb-test-queue/pkg/scheduler/history Tracker
//go:generate mockgen -package mock -destination scheduler.go github.com/buildbarn/bb-test-queue/pkg/scheduler TestQueue,StuckBucketsReenqueuer
//go:generate mockgen -package mock -destination util.go github.com/buildbarn/bb-storage/pkg/util ErrorLogger
