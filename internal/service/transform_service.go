package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/digkill/artrelay/internal/imageproc"
	"github.com/digkill/artrelay/internal/metrics"
	"github.com/digkill/artrelay/internal/models"
	"github.com/digkill/artrelay/internal/openai"
	"github.com/digkill/artrelay/internal/storage"
)

// MaxUploadBytes is the largest accepted original upload.
const MaxUploadBytes = 4 << 20

const invalidInputMarker = "invalid input image"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// VisionModel and ImageModel are satisfied by *openai.Client.
type VisionModel interface {
	DescribeImage(ctx context.Context, data []byte, contentType, instruction string) (string, error)
}

type ImageModel interface {
	GenerateImage(ctx context.Context, opts openai.GenerateOptions) (*openai.Image, error)
}

type TransformConfig struct {
	PromptMaxChars int
	PromptTruncate bool
	CleanupDelay   time.Duration
}

type TransformService struct {
	cfg          TransformConfig
	log          *slog.Logger
	users        UserStore
	images       ImageStore
	transactions TransactionStore
	uploads      storage.Store
	vision       VisionModel
	generator    ImageModel

	normalize func([]byte) imageproc.Result
	schedule  func(time.Duration, func())
}

// NewTransformService wires the flow. vision and generator may be nil, in
// which case every transform fails with ErrAIUnavailable.
func NewTransformService(cfg TransformConfig, log *slog.Logger, users UserStore, images ImageStore, transactions TransactionStore, uploads storage.Store, vision VisionModel, generator ImageModel) *TransformService {
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = time.Minute
	}
	return &TransformService{
		cfg:          cfg,
		log:          log,
		users:        users,
		images:       images,
		transactions: transactions,
		uploads:      uploads,
		vision:       vision,
		generator:    generator,
		normalize:    imageproc.Normalize,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

type Upload struct {
	Filename string
	Data     []byte
}

type TransformRequest struct {
	UserID      string
	File        *Upload
	Prompt      string
	Style       string
	DetailLevel int
}

type TransformResult struct {
	Image            *models.ImageRecord
	ImageURL         string
	OriginalImageURL string
	Credits          int
	Prompt           string
	EnhancedPrompt   string
	Description      string
}

// Transform turns an uploaded photo into a styled image for one credit.
func (s *TransformService) Transform(ctx context.Context, req TransformRequest) (*TransformResult, error) {
	res, err := s.transform(ctx, req)
	if err != nil {
		metrics.Transformations.WithLabelValues(ErrorCode(err)).Inc()
		return nil, err
	}
	metrics.Transformations.WithLabelValues("ok").Inc()
	return res, nil
}

func (s *TransformService) transform(ctx context.Context, req TransformRequest) (*TransformResult, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}
	if s.vision == nil || s.generator == nil {
		return nil, ErrAIUnavailable
	}

	user, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Credits < 1 {
		return nil, ErrInsufficientCredits
	}

	log := s.log.With("user_id", req.UserID)

	original, err := s.storeOriginal(ctx, log, req.File.Data)
	if err != nil {
		return nil, err
	}

	norm := s.normalize(req.File.Data)
	if norm.Degraded {
		metrics.NormalizationDegraded.Inc()
		log.Warn("image normalization failed, forwarding original", "err", norm.Err)
	} else if norm.Err != nil {
		log.Warn("image second pass failed, using first pass", "err", norm.Err, "bytes", len(norm.Data))
	}
	if len(norm.Data) == 0 {
		return nil, ErrImageProcessingFailed
	}

	description, err := s.vision.DescribeImage(ctx, norm.Data, norm.ContentType, VisionInstruction)
	if err != nil {
		if errors.Is(err, openai.ErrEmptyCompletion) {
			return nil, ErrVisionAnalysisRefused
		}
		return nil, classifyProviderError("describe image", err)
	}
	if IsRefusal(description) {
		log.Info("vision model refused the image", "reply", description)
		return nil, ErrVisionAnalysisRefused
	}

	styleKey, style := ResolveStyle(req.Style)
	detail := NormalizeDetailLevel(req.DetailLevel)
	prompt := ComposePrompt(style, description, req.Prompt, s.cfg.PromptMaxChars, s.cfg.PromptTruncate)
	if prompt.Overflow > 0 {
		log.Warn("composed prompt exceeds limit", "overflow", prompt.Overflow, "limit", s.cfg.PromptMaxChars, "truncated", prompt.Truncated)
	}

	generated, err := s.generator.GenerateImage(ctx, openai.GenerateOptions{
		Prompt:  prompt.Text,
		Size:    "1024x1024",
		Quality: qualityFor(detail),
	})
	if err != nil {
		return nil, classifyProviderError("generate image", err)
	}
	if generated == nil || generated.URL == "" {
		return nil, ErrMalformedUpstreamResponse
	}

	return s.settle(ctx, log, req, &models.ImageRecord{
		UserID:         req.UserID,
		Prompt:         req.Prompt,
		EnhancedPrompt: prompt.Text,
		Description:    description,
		OriginalURL:    original.URL,
		Style:          styleKey,
		DetailLevel:    detail,
		ResultURL:      generated.URL,
	})
}

// settle charges the credit and writes the ledger entries. A failure part way
// leaves earlier writes in place.
func (s *TransformService) settle(ctx context.Context, log *slog.Logger, req TransformRequest, image *models.ImageRecord) (*TransformResult, error) {
	balance, err := s.users.AdjustCredits(ctx, req.UserID, -1)
	if err != nil {
		return nil, fmt.Errorf("deduct credit: %w", err)
	}
	if err := s.images.Append(ctx, image); err != nil {
		log.Error("credit deducted but image record not saved", "err", err, "result_url", image.ResultURL)
		return nil, fmt.Errorf("save image record: %w", err)
	}
	imageID := image.ID
	txn := &models.Transaction{
		UserID:  req.UserID,
		Amount:  -1,
		Type:    models.TransactionImageTransformation,
		ImageID: &imageID,
	}
	if err := s.transactions.Append(ctx, txn); err != nil {
		log.Error("credit deducted but transaction not saved", "err", err, "image_id", image.ID)
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	log.Info("image transformed", "image_id", image.ID, "style", image.Style, "balance", balance)
	return &TransformResult{
		Image:            image,
		ImageURL:         image.ResultURL,
		OriginalImageURL: image.OriginalURL,
		Credits:          balance,
		Prompt:           image.Prompt,
		EnhancedPrompt:   image.EnhancedPrompt,
		Description:      image.Description,
	}, nil
}

// storeOriginal publishes the upload and schedules its removal whatever
// happens to the rest of the request.
func (s *TransformService) storeOriginal(ctx context.Context, log *slog.Logger, data []byte) (storage.Object, error) {
	obj, err := s.uploads.Put(ctx, data, http.DetectContentType(data))
	if err != nil {
		return storage.Object{}, fmt.Errorf("store original upload: %w", err)
	}
	s.schedule(s.cfg.CleanupDelay, func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.uploads.Delete(cleanupCtx, obj.Key); err != nil {
			log.Warn("failed to remove temporary upload", "key", obj.Key, "err", err)
			return
		}
		log.Debug("temporary upload removed", "key", obj.Key)
	})
	return obj, nil
}

func validateUpload(req TransformRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: userId", ErrMissingField)
	}
	if req.File == nil {
		return ErrNoFileUploaded
	}
	if len(req.File.Data) == 0 {
		return ErrEmptyFile
	}
	if len(req.File.Data) > MaxUploadBytes {
		return ErrFileTooLarge
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(req.File.Filename))] {
		return ErrUnsupportedFileType
	}
	return nil
}

// classifyProviderError keeps the provider error in the chain for details
// while tagging it with the taxonomy sentinel.
func classifyProviderError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), invalidInputMarker) {
		return fmt.Errorf("%w: %s: %w", ErrIncompatibleImageFormat, op, err)
	}
	if errors.Is(err, openai.ErrMissingImageURL) {
		return fmt.Errorf("%w: %s: %w", ErrMalformedUpstreamResponse, op, err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: provider temporarily unavailable: %w", ErrGenerationFailed, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrGenerationFailed, op, err)
}
