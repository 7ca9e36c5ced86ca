package violationstore

import (
	"autoblock/objectstore"
	"autoblock/waf"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// StateObjectKey is the key of the violation state object inside a scope's bucket.
const StateObjectKey = "rate_limit_processor_blacklist_data.json"

// NewStore creates a violation store keeping one JSON object per scope in the given object store.
// The scope is used as the bucket name.
func NewStore(logger zerolog.Logger, objects objectstore.Store) waf.ViolationStore {
	return &storeImpl{logger: logger, objects: objects}
}

type storeImpl struct {
	logger  zerolog.Logger
	objects objectstore.Store
}

func (s *storeImpl) Load(ctx context.Context, scope string) (violators waf.ViolatorMap, err error) {
	data, err := s.objects.Get(ctx, scope, StateObjectKey)
	if errors.Is(err, objectstore.ErrNotFound) {
		s.logger.Info().Str("bucket", scope).Str("key", StateObjectKey).Msg("No violation state saved yet")
		violators, err = waf.ViolatorMap{}, nil
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to read violation state: %w", err)
		return
	}

	violators, err = Decode(data)
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", scope).Str("key", StateObjectKey).Msg("Violation state is corrupted")
		return
	}

	s.logger.Debug().Str("bucket", scope).Int("violators", len(violators)).Msg("Loaded violation state")
	return
}

func (s *storeImpl) Save(ctx context.Context, scope string, violators waf.ViolatorMap) (err error) {
	data, err := Encode(violators)
	if err != nil {
		return
	}

	err = s.objects.Put(ctx, scope, StateObjectKey, data)
	return
}
