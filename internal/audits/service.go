package audits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/pkg/db/models"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox/payloads"
)

const defaultDiscoveryNote = "Asset discovered during audit - not in system"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service ingests physical audit scans and serves the audit read side.
type Service interface {
	ProcessScan(ctx context.Context, input ScanInput) (*ScanResult, error)
	UpdateAssetStatus(ctx context.Context, input StatusUpdateInput) (*StatusUpdateResult, error)
	ListAudits(ctx context.Context, filters ListFilters) ([]models.AssetAudit, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AssetAudit, error)
	Statistics(ctx context.Context, sessionID string) (*Statistics, error)
	ListAssetsForAudit(ctx context.Context, sessionID string) ([]AssetAuditStatus, error)
}

type service struct {
	repo          Repository
	assets        assets.Repository
	tx            txRunner
	outbox        outboxPublisher
	logg          *logger.Logger
	now           func() time.Time
	discoveryNote string
}

// ServiceParams collects the audit processor dependencies.
type ServiceParams struct {
	Repo          Repository
	Assets        assets.Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Logger        *logger.Logger
	Now           func() time.Time
	DiscoveryNote string
}

// NewService builds the audit processor.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("audits repository required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("assets repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	note := strings.TrimSpace(params.DiscoveryNote)
	if note == "" {
		note = defaultDiscoveryNote
	}
	return &service{
		repo:          params.Repo,
		assets:        params.Assets,
		tx:            params.Tx,
		outbox:        params.Outbox,
		logg:          params.Logger,
		now:           now,
		discoveryNote: note,
	}, nil
}

// ProcessScan classifies one scanned identifier and persists an audit record.
// A duplicate scan within the session is advisory: it annotates the message
// but never rejects the scan.
func (s *service) ProcessScan(ctx context.Context, input ScanInput) (*ScanResult, error) {
	code := strings.TrimSpace(input.ScannedCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scanned code required")
	}
	auditedBy := strings.TrimSpace(input.AuditedBy)
	if auditedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auditor name required")
	}

	now := s.now()
	result := &ScanResult{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assetRepo := s.assets.WithTx(tx)

		sessionID := ""
		if input.SessionID != nil {
			sessionID = strings.TrimSpace(*input.SessionID)
		}
		if sessionID != "" {
			prior, err := repo.FindLatestInSession(ctx, sessionID, code)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "duplicate lookup")
			}
			if prior != nil {
				result.Duplicate = true
				scanAt := prior.AuditDate
				result.PreviousScanAt = &scanAt
				if s.logg != nil {
					logCtx := s.logg.WithSessionID(ctx, sessionID)
					s.logg.Warn(logCtx, "duplicate scan in session")
				}
			}
		}

		asset, err := assetRepo.FindByCode(ctx, code)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve scanned code")
		}

		if asset == nil {
			return s.recordDiscovery(ctx, tx, repo, input, code, auditedBy, sessionID, now, result)
		}
		return s.recordVerification(ctx, tx, repo, assetRepo, asset, input, auditedBy, sessionID, now, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) recordDiscovery(ctx context.Context, tx *gorm.DB, repo Repository, input ScanInput, code, auditedBy, sessionID string, now time.Time, result *ScanResult) error {
	location := ""
	if input.Location != nil {
		location = strings.TrimSpace(*input.Location)
	}
	notes := input.Notes
	if notes == nil || strings.TrimSpace(*notes) == "" {
		note := s.discoveryNote
		notes = &note
	}
	audit := &models.AssetAudit{
		AuditDate:      now,
		AssetID:        nil,
		AssetTag:       code,
		AssetType:      enums.AssetTypeOther,
		Status:         enums.AssetStatusActive,
		Location:       location,
		AuditedBy:      auditedBy,
		Notes:          notes,
		IsNewAsset:     true,
		AuditSessionID: sessionID,
	}
	created, err := repo.Create(ctx, audit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discovery")
	}

	result.Audit = created
	result.IsNew = true
	result.Message = s.decorateMessage(result, "New asset discovered and recorded")
	return s.emitAuditRecorded(ctx, tx, created, auditedBy)
}

func (s *service) recordVerification(ctx context.Context, tx *gorm.DB, repo Repository, assetRepo assets.Repository, asset *models.Asset, input ScanInput, auditedBy, sessionID string, now time.Time, result *ScanResult) error {
	var previousLocation *string
	location := asset.Location
	if input.Location != nil {
		provided := strings.TrimSpace(*input.Location)
		if provided != "" && provided != asset.Location {
			prior := asset.Location
			previousLocation = &prior
			location = provided
			result.LocationChanged = true
		}
	}

	audit := &models.AssetAudit{
		AuditDate:        now,
		AssetID:          &asset.ID,
		AssetTag:         asset.Tag,
		AssetType:        asset.AssetType,
		Status:           asset.Status,
		Location:         location,
		AuditedBy:        auditedBy,
		Notes:            input.Notes,
		IsNewAsset:       false,
		PreviousLocation: previousLocation,
		AuditSessionID:   sessionID,
	}
	created, err := repo.Create(ctx, audit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit")
	}

	if result.LocationChanged {
		if err := assetRepo.Update(ctx, asset.ID, map[string]any{"location": location}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply location")
		}
		asset.Location = location
	}
	// Audited means verified this sweep, changed or not.
	if err := assetRepo.MarkAudited(ctx, asset.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark audited")
	}
	asset.IsAudited = true
	asset.LastAuditDate = &now

	result.Audit = created
	result.Asset = asset
	result.Message = s.decorateMessage(result, changeMessage(result.LocationChanged, result.StatusChanged))
	return s.emitAuditRecorded(ctx, tx, created, auditedBy)
}

// UpdateAssetStatus is the manual correction path. An unrecognized status
// string is treated as "no status change" and reported through the
// StatusParseIgnored flag rather than an error.
func (s *service) UpdateAssetStatus(ctx context.Context, input StatusUpdateInput) (*StatusUpdateResult, error) {
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	auditedBy := strings.TrimSpace(input.AuditedBy)
	if auditedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auditor name required")
	}

	now := s.now()
	result := &StatusUpdateResult{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assetRepo := s.assets.WithTx(tx)

		asset, err := assetRepo.FindByID(ctx, input.AssetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}

		sessionID := ""
		if input.SessionID != nil {
			sessionID = strings.TrimSpace(*input.SessionID)
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		result.SessionID = sessionID

		var previousStatus *string
		status := asset.Status
		if raw := strings.TrimSpace(input.Status); raw != "" {
			parsed, parseErr := enums.ParseAssetStatus(raw)
			if parseErr != nil {
				result.StatusParseIgnored = true
			} else if parsed != asset.Status {
				prior := asset.Status.String()
				previousStatus = &prior
				status = parsed
				result.StatusChanged = true
			}
		}

		var previousLocation *string
		location := asset.Location
		if input.Location != nil {
			provided := strings.TrimSpace(*input.Location)
			if provided != "" && provided != asset.Location {
				prior := asset.Location
				previousLocation = &prior
				location = provided
				result.LocationChanged = true
			}
		}

		audit := &models.AssetAudit{
			AuditDate:        now,
			AssetID:          &asset.ID,
			AssetTag:         asset.Tag,
			AssetType:        asset.AssetType,
			Status:           status,
			Location:         location,
			AuditedBy:        auditedBy,
			Notes:            input.Notes,
			PreviousStatus:   previousStatus,
			PreviousLocation: previousLocation,
			AuditSessionID:   sessionID,
		}
		created, err := repo.Create(ctx, audit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status update")
		}

		updates := map[string]any{}
		if result.StatusChanged {
			updates["status"] = status
		}
		if result.LocationChanged {
			updates["location"] = location
		}
		if len(updates) > 0 {
			if err := assetRepo.Update(ctx, asset.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply status update")
			}
			asset.Status = status
			asset.Location = location
		}
		if err := assetRepo.MarkAudited(ctx, asset.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark audited")
		}
		asset.IsAudited = true
		asset.LastAuditDate = &now

		result.Audit = created
		result.Asset = asset
		result.Message = changeMessage(result.LocationChanged, result.StatusChanged)
		return s.emitAuditRecorded(ctx, tx, created, auditedBy)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListAudits(ctx context.Context, filters ListFilters) ([]models.AssetAudit, error) {
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audits")
	}
	return rows, nil
}

func (s *service) ListBySession(ctx context.Context, sessionID string) ([]models.AssetAudit, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	rows, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session audits")
	}
	return rows, nil
}

// Statistics counts change rows as "previous value recorded and differs from
// current". A change to an empty value therefore does not count; this mirrors
// how the snapshot columns are written.
func (s *service) Statistics(ctx context.Context, sessionID string) (*Statistics, error) {
	rows, err := s.repo.List(ctx, ListFilters{SessionID: strings.TrimSpace(sessionID)})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audits")
	}

	stats := &Statistics{Total: int64(len(rows))}
	for _, row := range rows {
		if row.IsNewAsset {
			stats.NewAssets++
			continue
		}
		stats.ExistingAssets++
		if row.PreviousLocation != nil && *row.PreviousLocation != row.Location {
			stats.LocationChanges++
		}
		if row.PreviousStatus != nil && *row.PreviousStatus != row.Status.String() {
			stats.StatusChanges++
		}
	}
	return stats, nil
}

// ListAssetsForAudit returns every registered asset with a flag for whether it
// was audited, scoped to the session when one is given.
func (s *service) ListAssetsForAudit(ctx context.Context, sessionID string) ([]AssetAuditStatus, error) {
	allAssets, err := s.assets.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assets")
	}

	sessionID = strings.TrimSpace(sessionID)
	var audited map[string]struct{}
	if sessionID != "" {
		tags, err := s.repo.SessionTags(ctx, sessionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session tags")
		}
		audited = make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			audited[tag] = struct{}{}
		}
	}

	results := make([]AssetAuditStatus, 0, len(allAssets))
	for _, asset := range allAssets {
		status := AssetAuditStatus{Asset: asset}
		if sessionID != "" {
			_, status.Audited = audited[asset.Tag]
		} else {
			status.Audited = asset.IsAudited
		}
		results = append(results, status)
	}
	return results, nil
}

func (s *service) decorateMessage(result *ScanResult, message string) string {
	if !result.Duplicate || result.PreviousScanAt == nil {
		return message
	}
	return fmt.Sprintf("Warning: duplicate scan in this session (previous scan at %s). %s",
		result.PreviousScanAt.Format("2006-01-02 15:04:05"), message)
}

func changeMessage(locationChanged, statusChanged bool) string {
	switch {
	case locationChanged && statusChanged:
		return "Location and status updated"
	case locationChanged:
		return "Location updated"
	case statusChanged:
		return "Status updated"
	default:
		return "No changes detected"
	}
}

func (s *service) emitAuditRecorded(ctx context.Context, tx *gorm.DB, audit *models.AssetAudit, actor string) error {
	var session *string
	if audit.AuditSessionID != "" {
		session = &audit.AuditSessionID
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventAuditRecorded,
		AggregateType: enums.AggregateAssetAudit,
		AggregateID:   audit.ID,
		Version:       payloads.SchemaVersion,
		Actor:         &outbox.ActorRef{DisplayName: actor},
		Data: payloads.AuditRecordedEvent{
			AuditID:        audit.ID,
			AssetID:        audit.AssetID,
			AssetTag:       audit.AssetTag,
			AuditSessionID: session,
			IsNewAsset:     audit.IsNewAsset,
			AuditDate:      audit.AuditDate,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}
