package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/model"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// RedisMetadataStore keeps one hash per contract under contract:<id> plus a
// set of known ids for listing.
type RedisMetadataStore struct {
	client *redis.Client
}

const (
	redisKeyPrefix = "contract:"
	redisIndexKey  = "contracts"
)

func NewRedisMetadataStore(cfg *config.RedisConfig) *RedisMetadataStore {
	return &RedisMetadataStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Ensure verifies connectivity. Redis has no table to create.
func (s *RedisMetadataStore) Ensure(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "redis unreachable")
	}
	return nil
}

func (s *RedisMetadataStore) Put(ctx context.Context, rec *model.Contract) error {
	key := redisKeyPrefix + rec.ContractID
	fields := map[string]any{
		"contract_id":  rec.ContractID,
		"owner":        rec.Owner,
		"status":       rec.Status,
		"created_time": rec.CreatedTime.UTC().Format(time.RFC3339Nano),
		"updated_time": rec.UpdatedTime.UTC().Format(time.RFC3339Nano),
		"s3_path":      rec.S3Path,
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, redisIndexKey, rec.ContractID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to save contract metadata")
	}
	return nil
}

func (s *RedisMetadataStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	fields, err := s.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to fetch contract metadata")
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}
	return recordFromHash(fields), nil
}

func (s *RedisMetadataStore) Update(ctx context.Context, id string, status *string, updatedTime time.Time) error {
	key := redisKeyPrefix + id

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to check contract metadata")
	}
	if exists == 0 {
		return apperr.New(apperr.KindNotFound, "contract %s not found", id)
	}

	fields := map[string]any{
		"updated_time": updatedTime.UTC().Format(time.RFC3339Nano),
	}
	if status != nil {
		fields["status"] = *status
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to update contract metadata")
	}
	return nil
}

func (s *RedisMetadataStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisKeyPrefix+id)
	pipe.SRem(ctx, redisIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to delete contract metadata")
	}
	return nil
}

func (s *RedisMetadataStore) List(ctx context.Context) ([]*model.Contract, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "failed to list contracts")
	}

	out := make([]*model.Contract, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, redisKeyPrefix+id).Result()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "failed to fetch contract %s", id)
		}
		if len(fields) == 0 {
			// Index entry without a hash; skip rather than fail the listing.
			continue
		}
		out = append(out, recordFromHash(fields))
	}
	return out, nil
}

func recordFromHash(fields map[string]string) *model.Contract {
	created, _ := time.Parse(time.RFC3339Nano, fields["created_time"])
	updated, _ := time.Parse(time.RFC3339Nano, fields["updated_time"])
	return &model.Contract{
		ContractID:  fields["contract_id"],
		Owner:       fields["owner"],
		Status:      fields["status"],
		CreatedTime: created,
		UpdatedTime: updated,
		S3Path:      fields["s3_path"],
	}
}
