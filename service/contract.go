package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lataonhehe/data-contract-hackathon/model"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
	"github.com/lataonhehe/data-contract-hackathon/pkg/logger"
)

// ContractService orchestrates generation, extraction and persistence. It is
// stateless between requests apart from the one-time infrastructure check.
type ContractService struct {
	generator Generator
	blobs     BlobStore
	metadata  MetadataStore

	// When true, a metadata-write failure after a successful blob write still
	// reports creation success. Matches the reference behavior; see DESIGN.md.
	tolerateMetadataFailure bool

	ensureOnce sync.Once
}

func NewContractService(gen Generator, blobs BlobStore, metadata MetadataStore, tolerateMetadataFailure bool) *ContractService {
	return &ContractService{
		generator:               gen,
		blobs:                   blobs,
		metadata:                metadata,
		tolerateMetadataFailure: tolerateMetadataFailure,
	}
}

// ensureInfrastructure verifies the bucket and table once per process.
// Failures are logged but do not block the caller; the subsequent writes fail
// with a storage error if the resources genuinely do not exist.
func (s *ContractService) ensureInfrastructure(ctx context.Context) {
	s.ensureOnce.Do(func() {
		if err := s.blobs.Ensure(ctx); err != nil {
			logger.Error(ctx, "failed to ensure blob bucket", "error", err)
		}
		if err := s.metadata.Ensure(ctx); err != nil {
			logger.Error(ctx, "failed to ensure metadata store", "error", err)
		}
	})
}

// Create generates a contract from a natural-language request and persists it.
func (s *ContractService) Create(ctx context.Context, owner, request string) (*model.Contract, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required field: user")
	}
	if strings.TrimSpace(request) == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required field: request")
	}

	id := uuid.New().String()
	ctx = context.WithValue(ctx, logger.ContractIDKey, id)
	logger.Info(ctx, "generating contract")

	raw, err := s.generator.Invoke(ctx, request)
	if err != nil {
		return nil, err
	}

	yamlText := s.extractOrFallback(ctx, raw)
	return s.persist(ctx, id, owner, yamlText)
}

// Save persists caller-supplied YAML without invoking the model. Used by the
// preview flow: generate first, edit, then save.
func (s *ContractService) Save(ctx context.Context, owner, yamlText string) (*model.Contract, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required field: user")
	}
	if strings.TrimSpace(yamlText) == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required field: content")
	}

	id := uuid.New().String()
	ctx = context.WithValue(ctx, logger.ContractIDKey, id)
	logger.Info(ctx, "saving provided contract")

	return s.persist(ctx, id, owner, yamlText)
}

func (s *ContractService) persist(ctx context.Context, id, owner, yamlText string) (*model.Contract, error) {
	s.ensureInfrastructure(ctx)

	locator, err := s.blobs.Put(ctx, id, yamlText)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contract := &model.Contract{
		ContractID:  id,
		Owner:       owner,
		Status:      model.StatusDraft,
		CreatedTime: now,
		UpdatedTime: now,
		S3Path:      locator,
		YAML:        yamlText,
	}

	if err := s.metadata.Put(ctx, contract); err != nil {
		if !s.tolerateMetadataFailure {
			if delErr := s.blobs.Delete(ctx, id); delErr != nil {
				logger.Warn(ctx, "failed to roll back blob after metadata failure", "error", delErr)
			}
			return nil, err
		}
		// Documented degradation: the user still gets their YAML.
		logger.Error(ctx, "metadata write failed, returning contract anyway", "error", err)
	}

	logger.Info(ctx, "contract created", "s3_path", locator)
	return contract, nil
}

// Get returns the metadata record with the blob content populated. A missing
// blob leaves yaml empty; only a missing record is a not-found error.
func (s *ContractService) Get(ctx context.Context, id string) (*model.Contract, error) {
	contract, err := s.metadata.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	yamlText, err := s.blobs.Get(ctx, id)
	if err != nil {
		logger.Warn(ctx, "contract YAML missing from blob store", "contract_id", id, "error", err)
	} else {
		contract.YAML = yamlText
	}
	return contract, nil
}

// Update applies a status and/or yaml change and refreshes updated_time.
func (s *ContractService) Update(ctx context.Context, id string, upd model.ContractUpdate) (*model.Contract, error) {
	if upd.Empty() {
		return nil, apperr.New(apperr.KindValidation, "no update fields provided")
	}
	if upd.Status != nil && !model.ValidStatus(*upd.Status) {
		return nil, apperr.New(apperr.KindValidation, "invalid status %q, must be one of DRAFT, ACTIVE, VIOLATED, EXPIRED", *upd.Status)
	}

	if _, err := s.metadata.Get(ctx, id); err != nil {
		return nil, err
	}

	if upd.YAML != nil {
		if _, err := s.blobs.Put(ctx, id, *upd.YAML); err != nil {
			return nil, err
		}
	}

	if err := s.metadata.Update(ctx, id, upd.Status, time.Now().UTC()); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the blob and the metadata record. Blob absence is ignored.
func (s *ContractService) Delete(ctx context.Context, id string) error {
	if _, err := s.metadata.Get(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		logger.Warn(ctx, "failed to delete contract YAML", "contract_id", id, "error", err)
	}

	return s.metadata.Delete(ctx, id)
}

// List returns all metadata records. Order is incidental to the driver.
func (s *ContractService) List(ctx context.Context) ([]*model.Contract, error) {
	return s.metadata.List(ctx)
}

// Generate runs the model call and extraction without persisting anything.
func (s *ContractService) Generate(ctx context.Context, request string) (string, error) {
	if strings.TrimSpace(request) == "" {
		return "", apperr.New(apperr.KindValidation, "missing required field: request")
	}

	raw, err := s.generator.Invoke(ctx, request)
	if err != nil {
		return "", err
	}
	return s.extractOrFallback(ctx, raw), nil
}

// GenerateStream runs a streaming model call without persisting anything.
// The caller may abandon consumption by cancelling ctx.
func (s *ContractService) GenerateStream(ctx context.Context, request string) (<-chan GenChunk, error) {
	if strings.TrimSpace(request) == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required field: request")
	}
	return s.generator.InvokeStream(ctx, request)
}

// extractOrFallback isolates the YAML payload, falling back to the raw model
// text when extraction fails. The fallback is logged so malformed model output
// is visible instead of silently masked.
func (s *ContractService) extractOrFallback(ctx context.Context, raw string) string {
	yamlText, ok := ExtractYAML(raw)
	if !ok {
		logger.Warn(ctx, "no YAML payload found in model output, keeping raw text")
		return raw
	}
	return yamlText
}
