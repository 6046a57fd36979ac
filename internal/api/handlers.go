package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/digkill/artrelay/internal/models"
	"github.com/digkill/artrelay/internal/service"
)

const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ArtRelay API is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Error("health check failed", "err", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(w, r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, _ := fields["id"].(string)
	if _, present := fields["id"]; present && id == "" {
		s.writeError(w, r, fmt.Errorf("%w: id must be a string", service.ErrInvalidField))
		return
	}

	user, err := s.users.CreateOrUpdate(r.Context(), id, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	items, err := s.users.ListTransactions(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Transaction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"transactions": items})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	items, err := s.users.ListImages(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.ImageRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"images": items})
}

type createOrderRequest struct {
	Price   float64 `json:"price" validate:"required,gt=0"`
	UserID  string  `json:"userId" validate:"required"`
	Credits int     `json:"credits" validate:"required,gt=0"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := s.payments.CreateOrder(r.Context(), req.Price, req.UserID, req.Credits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	Credits   int    `json:"credits" validate:"required,gt=0"`
	UserID    string `json:"userId" validate:"required"`
	Amount    *int   `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.payments.VerifyPayment(r.Context(), service.VerifyInput{
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
		UserID:     req.UserID,
		Credits:    req.Credits,
		AmountPaid: req.Amount,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "credits": balance})
}

type transformResponse struct {
	Success          bool   `json:"success"`
	ImageURL         string `json:"imageUrl"`
	OriginalImageURL string `json:"originalImageUrl"`
	Credits          int    `json:"credits"`
	Prompt           string `json:"prompt"`
	EnhancedPrompt   string `json:"enhancedPrompt"`
	Description      string `json:"description"`
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	req, err := readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.transforms.Transform(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transformResponse{
		Success:          true,
		ImageURL:         res.ImageURL,
		OriginalImageURL: res.OriginalImageURL,
		Credits:          res.Credits,
		Prompt:           res.Prompt,
		EnhancedPrompt:   res.EnhancedPrompt,
		Description:      res.Description,
	})
}

func (s *Server) handleGenerateImageRetired(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, errEndpointRetired)
}

// multipartOverhead leaves room for the text fields and part headers on top of
// the largest accepted file.
const multipartOverhead = 1 << 20

func readUpload(w http.ResponseWriter, r *http.Request) (service.TransformRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(service.MaxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.TransformRequest{}, service.ErrFileTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return service.TransformRequest{}, service.ErrNoFileUploaded
		}
		return service.TransformRequest{}, fmt.Errorf("%w: malformed multipart body: %v", service.ErrInvalidField, err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	req := service.TransformRequest{
		UserID:      strings.TrimSpace(r.FormValue("userId")),
		Prompt:      r.FormValue("prompt"),
		Style:       r.FormValue("style"),
		DetailLevel: service.ParseDetailLevel(r.FormValue("detailLevel")),
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil
		}
		return req, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadBytes+1))
	if err != nil {
		return req, fmt.Errorf("read upload: %w", err)
	}
	req.File = &service.Upload{Filename: header.Filename, Data: data}
	return req, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", service.ErrInvalidField, err)
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return fmt.Errorf("%w: %s", service.ErrMissingField, fe.Field())
	}
	return fmt.Errorf("%w: %s must satisfy %s=%s", service.ErrInvalidField, fe.Field(), fe.Tag(), fe.Param())
}
